package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// legacyViewShape reports whether a request body looks like a v1 view
// record: a filters key, or an explicit version other than 2. Lenient
// struct decoding would otherwise drop the legacy predicate silently.
func legacyViewShape(body []byte) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	if _, ok := raw["filters"]; ok {
		return true
	}
	if v, ok := raw["version"]; ok {
		var version int
		if err := json.Unmarshal(v, &version); err != nil || version != 2 {
			return true
		}
	}
	return false
}

// ViewHandler handles view definition routes
type ViewHandler struct {
	DB *gorm.DB
}

// CreateView handles POST /api/v2/views
// @Summary Create a view
// @Description Create a V2 view on an existing table
// @Tags Views
// @Accept json
// @Produce json
// @Param view body models.ViewV2 true "View definition"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /v2/views [post]
func (h *ViewHandler) CreateView(c *fiber.Ctx) error {
	if legacyViewShape(c.Body()) {
		return types.Validation("Only views V2 can be created")
	}

	var req models.ViewV2
	if err := c.BodyParser(&req); err != nil {
		return types.Validation("Invalid view body: " + err.Error())
	}

	view, err := services.CreateView(h.DB, &req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": view})
}

// UpdateView handles PUT /api/v2/views/:viewId
// @Summary Update a view
// @Description Replace a V2 view definition
// @Tags Views
// @Accept json
// @Produce json
// @Param viewId path string true "View ID"
// @Param view body models.ViewV2 true "View definition"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /v2/views/{viewId} [put]
func (h *ViewHandler) UpdateView(c *fiber.Ctx) error {
	viewID := c.Params("viewId")

	if legacyViewShape(c.Body()) {
		return types.Validation("Only views V2 can be updated")
	}

	var req models.ViewV2
	if err := c.BodyParser(&req); err != nil {
		return types.Validation("Invalid view body: " + err.Error())
	}

	view, err := services.UpdateView(h.DB, viewID, &req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": view})
}

// DeleteView handles DELETE /api/v2/views/:viewId
// @Summary Delete a view
// @Description Remove a view definition. Rows of the underlying table are untouched.
// @Tags Views
// @Param viewId path string true "View ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /v2/views/{viewId} [delete]
func (h *ViewHandler) DeleteView(c *fiber.Ctx) error {
	viewID := c.Params("viewId")

	if err := services.DeleteView(h.DB, viewID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetView handles GET /api/v2/views/:viewId
// @Summary Get a view
// @Description Fetch a single V2 view definition
// @Tags Views
// @Produce json
// @Param viewId path string true "View ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /v2/views/{viewId} [get]
func (h *ViewHandler) GetView(c *fiber.Ctx) error {
	viewID := c.Params("viewId")

	view, _, err := services.GetView(h.DB, viewID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": view})
}
