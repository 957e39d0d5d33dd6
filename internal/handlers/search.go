package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/middleware"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// SearchHandler handles view-scoped row search
type SearchHandler struct {
	DB *gorm.DB
}

// SearchView handles POST /api/v2/views/:viewId/search
// @Summary Search rows through a view
// @Description Query rows through a view with optional filter, sort and pagination overrides
// @Tags Search
// @Accept json
// @Produce json
// @Param viewId path string true "View ID"
// @Param request body services.SearchRequest false "Search overrides"
// @Success 200 {object} services.SearchResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /v2/views/{viewId}/search [post]
func (h *SearchHandler) SearchView(c *fiber.Ctx) error {
	viewID := c.Params("viewId")

	req := services.SearchRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return types.Validation("Invalid search body: " + err.Error())
		}
	}

	resp, err := services.SearchView(h.DB, middleware.SessionRole(c), viewID, &req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
