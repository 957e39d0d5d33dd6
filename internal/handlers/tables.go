package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/services"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// TableHandler handles table and datasource registry routes
type TableHandler struct {
	DB *gorm.DB
}

// TableResponse is a table record with its JSON columns decoded.
type TableResponse struct {
	ID             string                        `json:"_id"`
	Name           string                        `json:"name"`
	SourceType     string                        `json:"sourceType"`
	SourceID       string                        `json:"sourceId"`
	ExternalName   string                        `json:"externalName,omitempty"`
	PrimaryDisplay string                        `json:"primaryDisplay,omitempty"`
	Schema         map[string]models.FieldSchema `json:"schema"`
	Views          map[string]models.ViewRecord  `json:"views,omitempty"`
}

// CreateTable handles POST /api/tables
// @Summary Create a table
// @Description Register a table over the internal store or an external datasource
// @Tags Tables
// @Accept json
// @Produce json
// @Param table body services.TableRequest true "Table definition"
// @Success 201 {object} TableResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables [post]
func (h *TableHandler) CreateTable(c *fiber.Ctx) error {
	var req services.TableRequest
	if err := c.BodyParser(&req); err != nil {
		return types.Validation("Invalid table body: " + err.Error())
	}

	table, err := services.CreateTable(h.DB, &req)
	if err != nil {
		return err
	}

	resp, err := tableResponse(table)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetTable handles GET /api/tables/:tableId
// @Summary Get a table
// @Description Fetch a table record with its schema and views decoded
// @Tags Tables
// @Produce json
// @Param tableId path string true "Table ID"
// @Success 200 {object} TableResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId} [get]
func (h *TableHandler) GetTable(c *fiber.Ctx) error {
	tableID := c.Params("tableId")

	table, err := services.GetTable(h.DB, tableID)
	if err != nil {
		return err
	}

	resp, err := tableResponse(table)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// DatasourceRequest carries datasource registration input. The DSN is
// accepted on input only and never echoed back.
type DatasourceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	DSN  string `json:"dsn"`
}

// CreateDatasource handles POST /api/datasources
// @Summary Register a datasource
// @Description Register an external SQL datasource for table bindings
// @Tags Tables
// @Accept json
// @Produce json
// @Param datasource body DatasourceRequest true "Datasource definition"
// @Success 201 {object} models.Datasource
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /datasources [post]
func (h *TableHandler) CreateDatasource(c *fiber.Ctx) error {
	var req DatasourceRequest
	if err := c.BodyParser(&req); err != nil {
		return types.Validation("Invalid datasource body: " + err.Error())
	}

	ds, err := services.CreateDatasource(h.DB, &models.Datasource{
		Name: req.Name,
		Type: req.Type,
		DSN:  req.DSN,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(ds)
}

func tableResponse(table *models.Table) (*TableResponse, error) {
	schema, err := table.DecodeSchema()
	if err != nil {
		return nil, types.StoreError(err)
	}
	views, err := table.DecodeViews()
	if err != nil {
		return nil, types.StoreError(err)
	}

	return &TableResponse{
		ID:             table.ID,
		Name:           table.Name,
		SourceType:     table.SourceType,
		SourceID:       table.SourceID,
		ExternalName:   table.ExternalName,
		PrimaryDisplay: table.PrimaryDisplay,
		Schema:         schema,
		Views:          views,
	}, nil
}
