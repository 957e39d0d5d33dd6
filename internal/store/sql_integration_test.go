package store_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/store"
	"github.com/viewlens/viewlens/internal/testutil"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestSQLStoreMariaDB exercises the SQL adapter against a real MariaDB
// started via testcontainers. Gated behind RUN_DB_TESTS so the default
// test run stays docker-free.
func TestSQLStoreMariaDB(t *testing.T) {
	if os.Getenv("RUN_DB_TESTS") != "true" {
		t.Skip("Set RUN_DB_TESTS=true to run database container tests")
	}
	if !testutil.DockerAvailable() {
		t.Skip("Docker daemon not available")
	}

	tc, err := testutil.CreateDBContainer(t)
	if err != nil {
		t.Fatalf("Failed to create database container: %v", err)
	}
	defer tc.Terminate(t)

	dbName := os.Getenv("DB_TEST_DATABASE")
	if dbName == "" {
		dbName = "viewlens_test"
	}
	dbUser := os.Getenv("DB_TEST_USER")
	if dbUser == "" {
		dbUser = "viewlens"
	}
	dbPassword := os.Getenv("DB_TEST_PASSWORD")
	if dbPassword == "" {
		dbPassword = "viewlens-secret"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbUser, dbPassword, tc.Host, tc.Port, dbName)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to container database: %v", err)
	}

	st := store.NewSQLStore(db)
	tbl := sqlTable()

	// The fixture DDL seeds the same four people.
	page, err := st.Search(tbl, store.SearchParams{
		Sort:        &models.ViewSort{Field: "age", Order: models.SortAscending, Type: models.SortTypeNumber},
		Attribution: "view:ta_people_v1",
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	assertNames(t, page.Rows, "Alice", "Charly", "Bob", "Danny")

	page, err = st.Search(tbl, store.SearchParams{
		Filters: []models.SearchFilter{
			{Operator: models.OpString, Field: "name", Value: "Da"},
		},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	assertNames(t, page.Rows, "Danny")

	saved, err := st.SaveRow(tbl, map[string]interface{}{"id": "p5", "name": "Eve", "age": 41, "city": "Rome"})
	if err != nil {
		t.Fatalf("SaveRow failed: %v", err)
	}
	if fmt.Sprintf("%v", saved["name"]) != "Eve" {
		t.Errorf("Expected persisted row back, got %v", saved)
	}

	removed, err := st.DeleteRows(tbl, []string{"p5"})
	if err != nil || removed != 1 {
		t.Errorf("Expected 1 row removed, got %d (%v)", removed, err)
	}
}
