// rows.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"github.com/viewlens/viewlens/internal/utils"
	"gorm.io/gorm"
)

// RowHandler handles row data routes. sourceId is a table id or a view id;
// rows written through a view come back trimmed to the view's shape.
type RowHandler struct {
	DB    *gorm.DB
	Usage services.UsageReporter
}

// SaveRow handles POST /api/rows/:sourceId
// @Summary Create a row
// @Description Create a row in a table, directly or through a view
// @Tags Rows
// @Accept json
// @Produce json
// @Param sourceId path string true "Table or view ID"
// @Param row body map[string]interface{} true "Row data"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /rows/{sourceId} [post]
func (h *RowHandler) SaveRow(c *fiber.Ctx) error {
	sourceID := c.Params("sourceId")

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		return types.Validation("Invalid row body: " + err.Error())
	}

	row, err := services.SaveRow(h.DB, h.Usage, sourceID, payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(row)
}

// PatchRow handles PATCH /api/rows/:sourceId
// @Summary Update a row
// @Description Partially update an existing row, addressed by _id in the body
// @Tags Rows
// @Accept json
// @Produce json
// @Param sourceId path string true "Table or view ID"
// @Param row body map[string]interface{} true "Row patch including _id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /rows/{sourceId} [patch]
func (h *RowHandler) PatchRow(c *fiber.Ctx) error {
	sourceID := c.Params("sourceId")

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		return types.Validation("Invalid row body: " + err.Error())
	}

	row, err := services.PatchRow(h.DB, sourceID, payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(row)
}

// BulkDeleteRows handles DELETE /api/rows/:sourceId
// @Summary Delete rows
// @Description Delete a batch of rows. Unknown ids are skipped, not errors.
// @Tags Rows
// @Accept json
// @Produce json
// @Param sourceId path string true "Table or view ID"
// @Param request body map[string]interface{} true "Rows to delete"
// @Success 200 {object} utils.DeleteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /rows/{sourceId} [delete]
func (h *RowHandler) BulkDeleteRows(c *fiber.Ctx) error {
	sourceID := c.Params("sourceId")

	rows, err := parseRowsPayload(c)
	if err != nil {
		return err
	}

	removed, err := services.BulkDeleteRows(h.DB, h.Usage, sourceID, rows)
	if err != nil {
		return err
	}

	return utils.DeleteSuccessResponse(c, removed)
}

// GetRow handles GET /api/tables/:tableId/rows/:rowId
// @Summary Get a row
// @Description Fetch one row directly from its owning table, untrimmed
// @Tags Rows
// @Produce json
// @Param tableId path string true "Table ID"
// @Param rowId path string true "Row ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/rows/{rowId} [get]
func (h *RowHandler) GetRow(c *fiber.Ctx) error {
	tableID := c.Params("tableId")
	rowID := c.Params("rowId")

	row, err := services.GetRow(h.DB, tableID, rowID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(row)
}
