package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// PermissionHandler handles resource permission bindings
type PermissionHandler struct {
	DB *gorm.DB
}

// AddPermission handles POST /api/permissions
// @Summary Bind a role to a resource
// @Description Set the minimum role required to access a table or view
// @Tags Permissions
// @Accept json
// @Produce json
// @Param permission body models.Permission true "Permission binding"
// @Success 200 {object} models.Permission
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /permissions [post]
func (h *PermissionHandler) AddPermission(c *fiber.Ctx) error {
	var binding models.Permission
	if err := c.BodyParser(&binding); err != nil {
		return types.Validation("Invalid permission body: " + err.Error())
	}

	if err := services.AddPermission(h.DB, &binding); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(binding)
}
