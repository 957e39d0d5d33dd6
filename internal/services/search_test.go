// search_test.go
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

package services_test

import (
	"testing"

	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

func seedViewWorld(t *testing.T, db *gorm.DB) (*models.Table, *models.ViewV2, *services.DBUsageReporter) {
	t.Helper()
	table := createPeopleTable(t, db)
	view, err := services.CreateView(db, &models.ViewV2{
		Name:    "adults",
		TableID: table.ID,
		Query:   []models.SearchFilter{{Operator: models.OpRangeLow, Field: "age", Value: float64(26)}},
		Sort:    &models.ViewSort{Field: "age", Order: models.SortAscending, Type: models.SortTypeNumber},
		Schema: map[string]models.ViewFieldSchema{
			"name": {Visible: boolPtr(true)},
			"age":  {Visible: boolPtr(true)},
			// salary stays hidden
		},
	})
	if err != nil {
		t.Fatalf("CreateView failed: %v", err)
	}
	if err := services.AddPermission(db, &models.Permission{
		ResourceID: table.ID, RoleID: models.RoleBasic,
	}); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}

	reporter := &services.DBUsageReporter{DB: db}
	people := []map[string]interface{}{
		{"name": "Danny", "age": float64(32), "salary": float64(90000)},
		{"name": "Alice", "age": float64(25), "salary": float64(80000)},
		{"name": "Charly", "age": float64(27), "salary": float64(70000)},
		{"name": "Bob", "age": float64(30), "salary": float64(60000)},
	}
	for _, p := range people {
		if _, err := services.SaveRow(db, reporter, table.ID, p); err != nil {
			t.Fatalf("SaveRow failed: %v", err)
		}
	}
	return table, view, reporter
}

func TestSearchViewAppliesQuerySortAndProjection(t *testing.T) {
	db := setupServiceDB(t)
	table, view, _ := seedViewWorld(t, db)

	resp, err := services.SearchView(db, models.RoleBasic, view.ID, &services.SearchRequest{})
	if err != nil {
		t.Fatalf("SearchView failed: %v", err)
	}

	// The view filter keeps ages >= 26, sorted ascending by age.
	if len(resp.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(resp.Rows))
	}
	wantOrder := []string{"Charly", "Bob", "Danny"}
	for i, want := range wantOrder {
		if resp.Rows[i]["name"] != want {
			t.Errorf("Row %d: expected %s, got %v", i, want, resp.Rows[i]["name"])
		}
	}

	for _, row := range resp.Rows {
		if _, ok := row["salary"]; ok {
			t.Error("Hidden field must not appear in materialized rows")
		}
		if row["_viewId"] != view.ID {
			t.Errorf("Row must be stamped with _viewId, got %v", row["_viewId"])
		}
		if row["tableId"] != table.ID {
			t.Errorf("Row must be stamped with tableId, got %v", row["tableId"])
		}
		if row["_id"] == nil || row["createdAt"] == nil {
			t.Error("Internal rows must keep identity and timestamps")
		}
	}

	if resp.TotalRows == nil || *resp.TotalRows != 3 {
		t.Errorf("Expected totalRows 3, got %v", resp.TotalRows)
	}
}

func TestSearchViewCallerQueryOverridesViewQuery(t *testing.T) {
	db := setupServiceDB(t)
	_, view, _ := seedViewWorld(t, db)

	req := &services.SearchRequest{
		Query: types.FlexList[models.SearchFilter]{
			{Operator: models.OpEqual, Field: "name", Value: "Alice"},
		},
	}

	resp, err := services.SearchView(db, models.RoleBasic, view.ID, req)
	if err != nil {
		t.Fatalf("SearchView failed: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0]["name"] != "Alice" {
		t.Errorf("Caller query must replace the view query, got %v", resp.Rows)
	}

	// Empty-operator placeholders do not count as an override.
	req = &services.SearchRequest{
		Query: types.FlexList[models.SearchFilter]{{}},
	}
	resp, err = services.SearchView(db, models.RoleBasic, view.ID, req)
	if err != nil {
		t.Fatalf("SearchView failed: %v", err)
	}
	if len(resp.Rows) != 3 {
		t.Errorf("Empty query must fall back to the view filter, got %d rows", len(resp.Rows))
	}
}

func TestSearchViewAuthorization(t *testing.T) {
	db := setupServiceDB(t)
	_, view, _ := seedViewWorld(t, db)

	_, err := services.SearchView(db, models.RolePublic, view.ID, &services.SearchRequest{})
	ce, ok := err.(*types.CustomError)
	if !ok || ce.Code != 403 {
		t.Errorf("PUBLIC caller must get 403 on a BASIC view, got %v", err)
	}

	// A stricter view binding wins over the table binding.
	if err := services.AddPermission(db, &models.Permission{
		ResourceID: view.ID, RoleID: models.RoleAdmin,
	}); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if _, err := services.SearchView(db, models.RoleBasic, view.ID, &services.SearchRequest{}); err == nil {
		t.Error("View binding must override the more permissive table binding")
	}
	if _, err := services.SearchView(db, models.RoleAdmin, view.ID, &services.SearchRequest{}); err != nil {
		t.Errorf("ADMIN must pass the stricter view binding: %v", err)
	}
}

func TestSaveRowThroughView(t *testing.T) {
	db := setupServiceDB(t)
	_, view, reporter := seedViewWorld(t, db)

	row, err := services.SaveRow(db, reporter, view.ID, map[string]interface{}{
		"name":   "Eve",
		"age":    float64(41),
		"salary": float64(100000),
		"_id":    "ro_attacker-chosen",
	})
	if err != nil {
		t.Fatalf("SaveRow failed: %v", err)
	}

	if row["_id"] == "ro_attacker-chosen" {
		t.Error("Reserved keys must be stripped from the payload")
	}
	if _, ok := row["salary"]; ok {
		t.Error("Row written through a view must come back trimmed")
	}
	if row["_viewId"] != view.ID {
		t.Errorf("Expected _viewId stamp, got %v", row["_viewId"])
	}

	// The hidden field never reached storage.
	table, _, err := services.ResolveSource(db, view.ID)
	if err != nil {
		t.Fatalf("ResolveSource failed: %v", err)
	}
	stored, err := services.GetRow(db, table.ID, row["_id"].(string))
	if err != nil {
		t.Fatalf("GetRow failed: %v", err)
	}
	if _, ok := stored["salary"]; ok {
		t.Error("Write through a view must not persist hidden fields")
	}
}

func TestPatchRowRequiresID(t *testing.T) {
	db := setupServiceDB(t)
	table, _, _ := seedViewWorld(t, db)

	_, err := services.PatchRow(db, table.ID, map[string]interface{}{"name": "X"})
	ce, ok := err.(*types.CustomError)
	if !ok || ce.Code != 400 {
		t.Errorf("Patch without _id must be a 400, got %v", err)
	}

	_, err = services.PatchRow(db, table.ID, map[string]interface{}{"_id": "ro_missing", "name": "X"})
	ce, ok = err.(*types.CustomError)
	if !ok || ce.Code != 404 {
		t.Errorf("Patch of a missing row must be a 404, got %v", err)
	}
}

func TestUsageCounterTracksRowLifecycle(t *testing.T) {
	db := setupServiceDB(t)
	table, _, reporter := seedViewWorld(t, db)

	total, err := services.CurrentUsage(db, models.UsageRows)
	if err != nil {
		t.Fatalf("CurrentUsage failed: %v", err)
	}
	if total != 4 {
		t.Errorf("Expected usage 4 after seeding, got %d", total)
	}

	// Patching never moves the counter.
	var patched models.Row
	if err := db.Where("table_id = ?", table.ID).First(&patched).Error; err != nil {
		t.Fatalf("Failed to pick a row: %v", err)
	}
	if _, err := services.PatchRow(db, table.ID, map[string]interface{}{
		"_id": patched.ID, "name": "Renamed",
	}); err != nil {
		t.Fatalf("PatchRow failed: %v", err)
	}
	if total, _ := services.CurrentUsage(db, models.UsageRows); total != 4 {
		t.Errorf("Patching must not move the usage counter, got %d", total)
	}

	// Delete three rows, one of them twice: only rows actually removed
	// count.
	var stored []models.Row
	if err := db.Where("table_id = ?", table.ID).Limit(2).Find(&stored).Error; err != nil {
		t.Fatalf("Failed to list rows: %v", err)
	}
	batch := []map[string]interface{}{
		{"_id": stored[0].ID},
		{"_id": stored[1].ID},
		{"_id": stored[1].ID},
	}
	removed, err := services.BulkDeleteRows(db, reporter, table.ID, batch)
	if err != nil {
		t.Fatalf("BulkDeleteRows failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 rows removed, got %d", removed)
	}

	total, err = services.CurrentUsage(db, models.UsageRows)
	if err != nil {
		t.Fatalf("CurrentUsage failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected usage 2 after removing 2 of 4, got %d", total)
	}
}
