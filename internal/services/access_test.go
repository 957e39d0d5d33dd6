package services_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceDB creates an in-memory SQLite metadata database for testing
func setupServiceDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Table{},
		&models.Row{},
		&models.Datasource{},
		&models.Permission{},
		&models.UsageCounter{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func TestRequiredRoleDefaultsToAdmin(t *testing.T) {
	db := setupServiceDB(t)

	role, err := services.RequiredRole(db, "ta_x_v1", "ta_x")
	if err != nil {
		t.Fatalf("RequiredRole failed: %v", err)
	}
	if role != models.RoleAdmin {
		t.Errorf("Unbound resources must require ADMIN, got %q", role)
	}
}

func TestRequiredRoleViewBindingWins(t *testing.T) {
	db := setupServiceDB(t)

	// Table is public, the view demands POWER: the view binding wins.
	if err := services.AddPermission(db, &models.Permission{
		ResourceID: "ta_x", RoleID: models.RolePublic,
	}); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if err := services.AddPermission(db, &models.Permission{
		ResourceID: "ta_x_v1", RoleID: models.RolePower,
	}); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}

	role, err := services.RequiredRole(db, "ta_x_v1", "ta_x")
	if err != nil {
		t.Fatalf("RequiredRole failed: %v", err)
	}
	if role != models.RolePower {
		t.Errorf("View binding must override table binding, got %q", role)
	}

	// A view with no binding of its own inherits the table's.
	role, err = services.RequiredRole(db, "ta_x_v2", "ta_x")
	if err != nil {
		t.Fatalf("RequiredRole failed: %v", err)
	}
	if role != models.RolePublic {
		t.Errorf("Unbound view must inherit table binding, got %q", role)
	}
}

func TestAuthorize(t *testing.T) {
	db := setupServiceDB(t)

	if err := services.AddPermission(db, &models.Permission{
		ResourceID: "ta_x", RoleID: models.RoleBasic,
	}); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}

	if err := services.Authorize(db, models.RolePublic, "ta_x_v1", "ta_x"); err == nil {
		t.Error("PUBLIC must not satisfy a BASIC requirement")
	} else if ce, ok := err.(*types.CustomError); !ok || ce.Code != 403 {
		t.Errorf("Expected a 403, got %v", err)
	}

	for _, role := range []string{models.RoleBasic, models.RolePower, models.RoleAdmin} {
		if err := services.Authorize(db, role, "ta_x_v1", "ta_x"); err != nil {
			t.Errorf("%s must satisfy a BASIC requirement: %v", role, err)
		}
	}

	if err := services.Authorize(db, "WIZARD", "ta_x_v1", "ta_x"); err == nil {
		t.Error("Unknown caller role must never be authorized")
	}
}

func TestAddPermissionValidation(t *testing.T) {
	db := setupServiceDB(t)

	if err := services.AddPermission(db, &models.Permission{ResourceID: "ta_x"}); err == nil {
		t.Error("Missing roleId must be rejected")
	}
	if err := services.AddPermission(db, &models.Permission{ResourceID: "ta_x", RoleID: "WIZARD"}); err == nil {
		t.Error("Unknown role must be rejected")
	}

	// Re-binding the same resource replaces the role.
	if err := services.AddPermission(db, &models.Permission{ResourceID: "ta_x", RoleID: models.RoleBasic}); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	if err := services.AddPermission(db, &models.Permission{ResourceID: "ta_x", RoleID: models.RolePower}); err != nil {
		t.Fatalf("AddPermission failed: %v", err)
	}
	role, err := services.RequiredRole(db, "", "ta_x")
	if err != nil {
		t.Fatalf("RequiredRole failed: %v", err)
	}
	if role != models.RolePower {
		t.Errorf("Re-binding must replace the role, got %q", role)
	}
}
