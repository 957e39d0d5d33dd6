package services

import (
	"errors"

	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateView persists a new v2 view under its owning table. The response is
// the request echoed back with a server-assigned id and version 2; the
// stored schema keeps only UI overrides.
func CreateView(db *gorm.DB, req *models.ViewV2) (*models.ViewV2, error) {
	if req.Name == "" || req.TableID == "" {
		return nil, types.Validation("name and tableId are required")
	}
	if req.Version != 0 && req.Version != 2 {
		return nil, types.Validation("Only views V2 can be created")
	}

	view := *req
	view.Version = 2
	view.Schema = StripNonUI(req.Schema)

	err := db.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&table, "id = ?", req.TableID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("Table not found")
			}
			return types.StoreError(err)
		}

		views, err := table.DecodeViews()
		if err != nil {
			return types.StoreError(err)
		}

		view.ID = models.NewViewID(table.ID)
		views[view.Name] = models.ViewRecord{V2: &view}
		if err := table.EncodeViews(views); err != nil {
			return types.StoreError(err)
		}
		if err := tx.Save(&table).Error; err != nil {
			return types.StoreError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateView replaces an existing v2 view. Validation runs against the
// freshly read table record inside the transaction, not a cached copy, so
// concurrent edits cannot smuggle in an id or tableId change. Last writer
// wins on the content itself.
func UpdateView(db *gorm.DB, pathID string, req *models.ViewV2) (*models.ViewV2, error) {
	if pathID != "" && pathID != req.ID {
		return nil, types.Validation("View id does not match between the body and the uri path")
	}
	if req.Version != 2 {
		return nil, types.Validation("Only views V2 can be updated")
	}
	if req.ID == "" || req.TableID == "" || req.Name == "" {
		return nil, types.Validation("id, tableId and name are required")
	}

	view := *req
	view.Schema = StripNonUI(req.Schema)

	err := db.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&table, "id = ?", req.TableID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("View not found")
			}
			return types.StoreError(err)
		}

		views, err := table.DecodeViews()
		if err != nil {
			return types.StoreError(err)
		}

		oldName, record := findViewByID(views, req.ID)
		if record == nil {
			return types.NotFound("View not found")
		}
		if record.V1 != nil {
			return types.Validation("Only views V2 can be updated")
		}

		if oldName != view.Name {
			delete(views, oldName)
		}
		views[view.Name] = models.ViewRecord{V2: &view}
		if err := table.EncodeViews(views); err != nil {
			return types.StoreError(err)
		}
		if err := tx.Save(&table).Error; err != nil {
			return types.StoreError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteView removes the view record only. The underlying table and its
// rows are never touched by a view delete.
func DeleteView(db *gorm.DB, viewID string) error {
	tableID := models.TableIDFromViewID(viewID)
	if tableID == "" {
		return types.NotFound("View not found")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&table, "id = ?", tableID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("View not found")
			}
			return types.StoreError(err)
		}

		views, err := table.DecodeViews()
		if err != nil {
			return types.StoreError(err)
		}

		name, record := findViewByID(views, viewID)
		if record == nil {
			return types.NotFound("View not found")
		}

		delete(views, name)
		if err := table.EncodeViews(views); err != nil {
			return types.StoreError(err)
		}
		if err := tx.Save(&table).Error; err != nil {
			return types.StoreError(err)
		}
		return nil
	})
}

// GetView fetches a v2 view and its owning table.
func GetView(db *gorm.DB, viewID string) (*models.ViewV2, *models.Table, error) {
	tableID := models.TableIDFromViewID(viewID)
	if tableID == "" {
		return nil, nil, types.NotFound("View not found")
	}

	var table models.Table
	err := db.First(&table, "id = ?", tableID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.NotFound("View not found")
		}
		return nil, nil, types.StoreError(err)
	}

	views, err := table.DecodeViews()
	if err != nil {
		return nil, nil, types.StoreError(err)
	}
	_, record := findViewByID(views, viewID)
	if record == nil || record.V2 == nil {
		return nil, nil, types.NotFound("View not found")
	}
	return record.V2, &table, nil
}

// findViewByID locates a stored view record by id. Legacy v1 records carry
// no id and only ever match by their name.
func findViewByID(views map[string]models.ViewRecord, id string) (string, *models.ViewRecord) {
	for name, record := range views {
		if record.V2 != nil && record.V2.ID == id {
			r := record
			return name, &r
		}
		if record.V1 != nil && name == id {
			r := record
			return name, &r
		}
	}
	return "", nil
}
