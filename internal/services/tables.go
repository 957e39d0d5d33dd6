package services

import (
	"encoding/json"
	"errors"

	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// TableRequest is the thin table-creation input. Heavy schema persistence
// mechanics live outside this service; this is just enough table to own
// views and rows.
type TableRequest struct {
	Name           string                        `json:"name"`
	SourceType     string                        `json:"sourceType,omitempty"`
	SourceID       string                        `json:"sourceId,omitempty"`
	ExternalName   string                        `json:"externalName,omitempty"`
	PrimaryDisplay string                        `json:"primaryDisplay,omitempty"`
	Primary        []string                      `json:"primary,omitempty"`
	Schema         map[string]models.FieldSchema `json:"schema"`
}

// CreateTable persists a new table record.
func CreateTable(db *gorm.DB, req *TableRequest) (*models.Table, error) {
	if req.Name == "" {
		return nil, types.Validation("name is required")
	}
	if req.SourceType == "" {
		req.SourceType = models.SourceTypeInternal
	}
	if req.SourceType == models.SourceTypeExternal {
		if req.SourceID == "" {
			return nil, types.Validation("sourceId is required for external tables")
		}
		var ds models.Datasource
		if err := db.First(&ds, "id = ?", req.SourceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, types.NotFound("Datasource not found")
			}
			return nil, types.StoreError(err)
		}
	} else {
		req.SourceID = models.InternalSourceID
	}

	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, types.Validation("invalid schema")
	}

	table := models.Table{
		ID:             models.NewTableID(),
		Name:           req.Name,
		SourceType:     req.SourceType,
		SourceID:       req.SourceID,
		ExternalName:   req.ExternalName,
		PrimaryDisplay: req.PrimaryDisplay,
		Schema:         models.JSON(schema),
	}
	if len(req.Primary) > 0 {
		primary, err := json.Marshal(req.Primary)
		if err != nil {
			return nil, types.Validation("invalid primary keys")
		}
		table.Primary = models.JSON(primary)
	}

	if err := db.Create(&table).Error; err != nil {
		return nil, types.StoreError(err)
	}
	return &table, nil
}

// GetTable fetches a table record by id.
func GetTable(db *gorm.DB, tableID string) (*models.Table, error) {
	var table models.Table
	err := db.First(&table, "id = ?", tableID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Table not found")
		}
		return nil, types.StoreError(err)
	}
	return &table, nil
}

// CreateDatasource registers an external SQL backend.
func CreateDatasource(db *gorm.DB, ds *models.Datasource) (*models.Datasource, error) {
	if ds.Name == "" || ds.Type == "" || ds.DSN == "" {
		return nil, types.Validation("name, type and dsn are required")
	}
	ds.ID = models.NewDatasourceID()
	if err := db.Create(ds).Error; err != nil {
		return nil, types.StoreError(err)
	}
	return ds, nil
}
