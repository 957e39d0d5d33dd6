package services

import (
	"errors"

	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// RequiredRole resolves the minimum role for reading through a view. An
// explicit binding on the view id always wins, even when the table binding
// is more permissive, so a stricter view can exist on an otherwise public
// table. With no binding on either resource the answer is the most
// restrictive built-in role: deny by default.
func RequiredRole(db *gorm.DB, viewID, tableID string) (string, error) {
	for _, resourceID := range []string{viewID, tableID} {
		if resourceID == "" {
			continue
		}
		var binding models.Permission
		err := db.Where("resource_id = ? AND level = ?", resourceID, models.PermissionLevelRead).
			First(&binding).Error
		if err == nil {
			return binding.RoleID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}
	return models.RoleAdmin, nil
}

// Authorize gates a caller against a view's resolved minimum role. The
// denial carries no hint about whether the resource exists.
func Authorize(db *gorm.DB, callerRole, viewID, tableID string) error {
	required, err := RequiredRole(db, viewID, tableID)
	if err != nil {
		return types.StoreError(err)
	}
	if !models.RoleSatisfies(callerRole, required) {
		return types.Forbidden()
	}
	return nil
}

// AddPermission stores or replaces the binding for a resource at a level.
func AddPermission(db *gorm.DB, binding *models.Permission) error {
	if binding.ResourceID == "" || binding.RoleID == "" {
		return types.Validation("resourceId and roleId are required")
	}
	if models.RoleRank(binding.RoleID) < 0 {
		return types.Validation("Unknown role: " + binding.RoleID)
	}
	if binding.Level == "" {
		binding.Level = models.PermissionLevelRead
	}

	var existing models.Permission
	err := db.Where("resource_id = ? AND level = ?", binding.ResourceID, binding.Level).
		First(&existing).Error
	if err == nil {
		existing.RoleID = binding.RoleID
		return db.Save(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(binding).Error
}
