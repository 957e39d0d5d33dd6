// handlers_test.go
//
// A view query engine serving named persisted views over internal and external tables
// Copyright (c) 2026 ViewLens Authors (https://github.com/viewlens/viewlens)
//
// This file is part of viewlens.
// viewlens is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// viewlens is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with viewlens.
// If not, see <https://www.gnu.org/licenses/>.

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/config"
	"github.com/viewlens/viewlens/internal/database"
	"github.com/viewlens/viewlens/internal/handlers"
	"github.com/viewlens/viewlens/internal/middleware"
	"github.com/viewlens/viewlens/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		SessionSecret: "handler-test-secret",
		SessionCookie: "viewlens_session",
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.Register(app, cfg, db)
	return app, db, cfg
}

// request performs one API call. A non-empty role attaches a signed
// session cookie for it.
func request(t *testing.T, app *fiber.App, cfg *config.Config, method, path, role string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		token, err := middleware.SignSession(role, cfg.SessionSecret)
		if err != nil {
			t.Fatalf("Failed to sign session: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: cfg.SessionCookie, Value: token})
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("Response %s %s is not a JSON object: %v (%s)", method, path, err, raw)
		}
	}
	return resp, decoded
}

func createTableHTTP(t *testing.T, app *fiber.App, cfg *config.Config) string {
	t.Helper()
	resp, body := request(t, app, cfg, fiber.MethodPost, "/api/tables", models.RoleAdmin, map[string]interface{}{
		"name":           "people",
		"primaryDisplay": "name",
		"schema": map[string]interface{}{
			"name":   map[string]interface{}{"type": models.FieldTypeString},
			"age":    map[string]interface{}{"type": models.FieldTypeNumber},
			"salary": map[string]interface{}{"type": models.FieldTypeNumber},
		},
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Create table returned %d: %v", resp.StatusCode, body)
	}
	return body["_id"].(string)
}

func createViewHTTP(t *testing.T, app *fiber.App, cfg *config.Config, tableID string) string {
	t.Helper()
	resp, body := request(t, app, cfg, fiber.MethodPost, "/api/v2/views", models.RoleAdmin, map[string]interface{}{
		"name":    "adults",
		"tableId": tableID,
		"query": []map[string]interface{}{
			{"operator": models.OpRangeLow, "field": "age", "value": 18},
		},
		"schema": map[string]interface{}{
			"name": map[string]interface{}{"visible": true},
			"age":  map[string]interface{}{"visible": true},
		},
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Create view returned %d: %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestSessionRequired(t *testing.T) {
	app, _, cfg := setupApp(t)

	resp, body := request(t, app, cfg, fiber.MethodPost, "/api/v2/views", "", map[string]interface{}{"name": "x"})
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("Expected 403 without a session, got %d", resp.StatusCode)
	}
	if !strings.Contains(body["message"].(string), "Session cookie") {
		t.Errorf("Unexpected message: %v", body["message"])
	}
	if body["type"] != "authorization" {
		t.Errorf("Expected authorization error type, got %v", body["type"])
	}

	resp, _ = request(t, app, cfg, fiber.MethodPost, "/api/v2/views", models.RoleBasic, map[string]interface{}{})
	if resp.StatusCode == fiber.StatusForbidden {
		t.Error("A valid session cookie must pass the gate")
	}
}

func TestViewLifecycleHTTP(t *testing.T) {
	app, _, cfg := setupApp(t)
	tableID := createTableHTTP(t, app, cfg)
	viewID := createViewHTTP(t, app, cfg, tableID)

	// Read it back
	resp, body := request(t, app, cfg, fiber.MethodGet, "/api/v2/views/"+viewID, models.RoleAdmin, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Get view returned %d: %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]interface{})
	if data["name"] != "adults" || data["version"] != float64(2) {
		t.Errorf("Unexpected view payload: %v", data)
	}

	// Rename through PUT
	resp, body = request(t, app, cfg, fiber.MethodPut, "/api/v2/views/"+viewID, models.RoleAdmin, map[string]interface{}{
		"id":      viewID,
		"tableId": tableID,
		"name":    "grownups",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Update view returned %d: %v", resp.StatusCode, body)
	}

	// Body id disagreeing with the path is a hard 400
	resp, body = request(t, app, cfg, fiber.MethodPut, "/api/v2/views/"+viewID, models.RoleAdmin, map[string]interface{}{
		"id":      viewID + "_other",
		"tableId": tableID,
		"name":    "grownups",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("Expected 400 on id mismatch, got %d", resp.StatusCode)
	}
	if body["message"] != "View id does not match between the body and the uri path" {
		t.Errorf("Unexpected message: %v", body["message"])
	}

	// Delete, then the view is gone
	resp, _ = request(t, app, cfg, fiber.MethodDelete, "/api/v2/views/"+viewID, models.RoleAdmin, nil)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("Delete view returned %d", resp.StatusCode)
	}
	resp, body = request(t, app, cfg, fiber.MethodGet, "/api/v2/views/"+viewID, models.RoleAdmin, nil)
	if resp.StatusCode != fiber.StatusNotFound || body["message"] != "View not found" {
		t.Errorf("Expected 404 View not found, got %d %v", resp.StatusCode, body)
	}
}

func TestRowsAndSearchHTTP(t *testing.T) {
	app, _, cfg := setupApp(t)
	tableID := createTableHTTP(t, app, cfg)
	viewID := createViewHTTP(t, app, cfg, tableID)

	// Allow BASIC sessions on the table
	resp, _ := request(t, app, cfg, fiber.MethodPost, "/api/permissions", models.RoleAdmin, map[string]interface{}{
		"resourceId": tableID,
		"roleId":     models.RoleBasic,
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Add permission returned %d", resp.StatusCode)
	}

	people := []map[string]interface{}{
		{"name": "Danny", "age": 32, "salary": 90000},
		{"name": "Alice", "age": 25, "salary": 80000},
		{"name": "Bob", "age": 17, "salary": 0},
	}
	var rowIDs []string
	for _, p := range people {
		resp, body := request(t, app, cfg, fiber.MethodPost, "/api/rows/"+tableID, models.RoleAdmin, p)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Save row returned %d: %v", resp.StatusCode, body)
		}
		rowIDs = append(rowIDs, body["_id"].(string))
	}

	// View search trims to visible fields and stamps attribution
	resp, body := request(t, app, cfg, fiber.MethodPost, fmt.Sprintf("/api/v2/views/%s/search", viewID), models.RoleBasic, map[string]interface{}{
		"sort": "age",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Search returned %d: %v", resp.StatusCode, body)
	}
	rows := body["rows"].([]interface{})
	if len(rows) != 2 {
		t.Fatalf("Expected 2 adults, got %d", len(rows))
	}
	first := rows[0].(map[string]interface{})
	if first["name"] != "Alice" {
		t.Errorf("Expected ascending age sort, got %v first", first["name"])
	}
	if _, ok := first["salary"]; ok {
		t.Error("Hidden field leaked through the view")
	}
	if first["_viewId"] != viewID || first["tableId"] != tableID {
		t.Errorf("Missing attribution stamps: %v", first)
	}

	// A row saved through the view comes back trimmed
	resp, body = request(t, app, cfg, fiber.MethodPost, "/api/rows/"+viewID, models.RoleBasic, map[string]interface{}{
		"name": "Eve", "age": 41, "salary": 100000,
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Save through view returned %d: %v", resp.StatusCode, body)
	}
	if _, ok := body["salary"]; ok {
		t.Error("Row saved through a view must come back trimmed")
	}

	// Direct row fetch stays untrimmed
	resp, body = request(t, app, cfg, fiber.MethodGet, fmt.Sprintf("/api/tables/%s/rows/%s", tableID, rowIDs[0]), models.RoleAdmin, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Get row returned %d: %v", resp.StatusCode, body)
	}
	if body["salary"] == nil {
		t.Error("Direct fetch must include all stored fields")
	}

	// Bulk delete reports how many rows actually went away
	resp, body = request(t, app, cfg, fiber.MethodDelete, "/api/rows/"+tableID, models.RoleAdmin, map[string]interface{}{
		"rows": []string{rowIDs[0], rowIDs[1], "ro_not-there"},
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Bulk delete returned %d: %v", resp.StatusCode, body)
	}
	if body["message"] != "Success" || body["deleted"] != float64(2) {
		t.Errorf("Unexpected delete envelope: %v", body)
	}
}

func TestPublicSearchTier(t *testing.T) {
	app, _, cfg := setupApp(t)
	tableID := createTableHTTP(t, app, cfg)
	viewID := createViewHTTP(t, app, cfg, tableID)

	request(t, app, cfg, fiber.MethodPost, "/api/rows/"+tableID, models.RoleAdmin, map[string]interface{}{
		"name": "Danny", "age": 32,
	})

	// Unbound resources require ADMIN, so anonymous callers bounce
	path := fmt.Sprintf("/api/public/views/%s/search", viewID)
	resp, body := request(t, app, cfg, fiber.MethodPost, path, "", nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("Expected 403 on an unbound view, got %d: %v", resp.StatusCode, body)
	}

	// Binding PUBLIC on the table opens the tier
	request(t, app, cfg, fiber.MethodPost, "/api/permissions", models.RoleAdmin, map[string]interface{}{
		"resourceId": tableID,
		"roleId":     models.RolePublic,
	})
	resp, body = request(t, app, cfg, fiber.MethodPost, path, "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200 after PUBLIC binding, got %d: %v", resp.StatusCode, body)
	}
	if len(body["rows"].([]interface{})) != 1 {
		t.Errorf("Expected 1 row, got %v", body["rows"])
	}

	// A stricter view binding closes it again
	request(t, app, cfg, fiber.MethodPost, "/api/permissions", models.RoleAdmin, map[string]interface{}{
		"resourceId": viewID,
		"roleId":     models.RolePower,
	})
	resp, _ = request(t, app, cfg, fiber.MethodPost, path, "", nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("View binding must override the table binding, got %d", resp.StatusCode)
	}
}

func TestNotFoundFallback(t *testing.T) {
	app, _, cfg := setupApp(t)

	resp, body := request(t, app, cfg, fiber.MethodGet, "/api/no-such-route", models.RoleAdmin, nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
	if body["message"] != "[404] Resource Not Found" {
		t.Errorf("Unexpected fallback message: %v", body["message"])
	}
}

func TestCreateViewRejectsLegacyShape(t *testing.T) {
	app, _, cfg := setupApp(t)
	tableID := createTableHTTP(t, app, cfg)

	// A v1-shaped body carries filters instead of query
	resp, body := request(t, app, cfg, fiber.MethodPost, "/api/v2/views", models.RoleAdmin, map[string]interface{}{
		"name":    "legacy",
		"tableId": tableID,
		"filters": []map[string]interface{}{
			{"key": "age", "condition": ">=", "value": 18},
		},
		"schema": map[string]interface{}{},
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("Expected 400 for a v1-shaped body, got %d: %v", resp.StatusCode, body)
	}
	if body["message"] != "Only views V2 can be created" {
		t.Errorf("Unexpected message: %v", body["message"])
	}

	// An explicit non-2 version is rejected the same way
	resp, body = request(t, app, cfg, fiber.MethodPost, "/api/v2/views", models.RoleAdmin, map[string]interface{}{
		"name":    "legacy",
		"tableId": tableID,
		"version": 1,
	})
	if resp.StatusCode != fiber.StatusBadRequest || body["message"] != "Only views V2 can be created" {
		t.Errorf("Expected 400 for version 1, got %d %v", resp.StatusCode, body)
	}

	// The same shape never slips through an update either
	viewID := createViewHTTP(t, app, cfg, tableID)
	resp, body = request(t, app, cfg, fiber.MethodPut, "/api/v2/views/"+viewID, models.RoleAdmin, map[string]interface{}{
		"id":      viewID,
		"name":    "adults",
		"tableId": tableID,
		"filters": []map[string]interface{}{},
	})
	if resp.StatusCode != fiber.StatusBadRequest || body["message"] != "Only views V2 can be updated" {
		t.Errorf("Expected 400 for a v1-shaped update, got %d %v", resp.StatusCode, body)
	}
}
