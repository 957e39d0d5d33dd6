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

package services

import (
	"errors"

	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/store"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// Reserved keys a row payload can carry but never writes into storage.
var reservedRowKeys = map[string]struct{}{
	"_id":       {},
	"_rev":      {},
	"_viewId":   {},
	"tableId":   {},
	"type":      {},
	"createdAt": {},
	"updatedAt": {},
}

// ResolveSource resolves a row-operation target that may be a table id or a
// view id. Views resolve to their owning table; callers never need to
// delete a view before operating on rows through it.
func ResolveSource(db *gorm.DB, sourceID string) (*models.Table, *models.ViewV2, error) {
	var table models.Table
	err := db.First(&table, "id = ?", sourceID).Error
	if err == nil {
		return &table, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, types.StoreError(err)
	}

	view, owner, verr := GetView(db, sourceID)
	if verr != nil {
		return nil, nil, types.NotFound("Table or view not found")
	}
	return owner, view, nil
}

// SaveRow persists a new row through a table or view id. Writing through a
// view constrains the payload to the view's visible fields before it
// reaches table-level persistence; the usage collaborator gets one +1 rows
// event on success.
func SaveRow(db *gorm.DB, reporter UsageReporter, sourceID string, payload map[string]interface{}) (map[string]interface{}, error) {
	table, view, err := ResolveSource(db, sourceID)
	if err != nil {
		return nil, err
	}
	tableSchema, err := table.DecodeSchema()
	if err != nil {
		return nil, types.StoreError(err)
	}

	data := stripReserved(payload)
	var visible map[string]struct{}
	if view != nil {
		visible = VisibleFields(Project(tableSchema, view.Schema))
		data = restrictToFields(data, visible)
	}

	st, stbl, err := storeFor(db, table, tableSchema)
	if err != nil {
		return nil, err
	}
	row, err := st.SaveRow(stbl, data)
	if err != nil {
		return nil, types.StoreError(err)
	}

	reportUsage(reporter, 1)

	if view != nil {
		return materializeRow(row, visible, view.ID, table), nil
	}
	return row, nil
}

// PatchRow partially updates a row through a table or view id. Through a
// view, only visible fields are forwarded; everything else on the
// underlying row stays untouched. Patches never move the usage counter.
func PatchRow(db *gorm.DB, sourceID string, payload map[string]interface{}) (map[string]interface{}, error) {
	rowID, _ := payload["_id"].(string)
	if rowID == "" {
		return nil, types.Validation("_id is required")
	}

	table, view, err := ResolveSource(db, sourceID)
	if err != nil {
		return nil, err
	}
	tableSchema, err := table.DecodeSchema()
	if err != nil {
		return nil, types.StoreError(err)
	}

	data := stripReserved(payload)
	var visible map[string]struct{}
	if view != nil {
		visible = VisibleFields(Project(tableSchema, view.Schema))
		data = restrictToFields(data, visible)
	}

	st, stbl, err := storeFor(db, table, tableSchema)
	if err != nil {
		return nil, err
	}
	row, err := st.PatchRow(stbl, rowID, data)
	if err != nil {
		if errors.Is(err, store.ErrRowNotFound) {
			return nil, types.NotFound("Row not found")
		}
		return nil, types.StoreError(err)
	}

	if view != nil {
		return materializeRow(row, visible, view.ID, table), nil
	}
	return row, nil
}

// BulkDeleteRows removes the given rows at the table level, best effort:
// one bad id never fails the batch, and the result reports the count
// actually removed. The usage collaborator gets one -1 rows event per row
// actually removed, exactly once each.
func BulkDeleteRows(db *gorm.DB, reporter UsageReporter, sourceID string, rows []map[string]interface{}) (int, error) {
	table, _, err := ResolveSource(db, sourceID)
	if err != nil {
		return 0, err
	}
	tableSchema, err := table.DecodeSchema()
	if err != nil {
		return 0, types.StoreError(err)
	}

	st, stbl, err := storeFor(db, table, tableSchema)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := rowIdentity(row, stbl.PrimaryKey()); id != "" {
			ids = append(ids, id)
		}
	}

	removed, derr := st.DeleteRows(stbl, ids)
	for i := 0; i < removed; i++ {
		reportUsage(reporter, -1)
	}
	if derr != nil {
		return removed, types.StoreError(derr)
	}
	return removed, nil
}

// GetRow fetches one row directly from its owning table, untrimmed.
func GetRow(db *gorm.DB, tableID, rowID string) (map[string]interface{}, error) {
	var table models.Table
	err := db.First(&table, "id = ?", tableID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Table not found")
		}
		return nil, types.StoreError(err)
	}
	tableSchema, err := table.DecodeSchema()
	if err != nil {
		return nil, types.StoreError(err)
	}

	st, stbl, err := storeFor(db, &table, tableSchema)
	if err != nil {
		return nil, err
	}
	row, err := st.GetRow(stbl, rowID)
	if err != nil {
		if errors.Is(err, store.ErrRowNotFound) {
			return nil, types.NotFound("Row not found")
		}
		return nil, types.StoreError(err)
	}
	return row, nil
}

// materializeRow trims a raw store row to the view's visible fields plus
// identity and bookkeeping fields, and stamps the view-scoped metadata.
// External stores do not synthesize timestamps they don't own; only
// document-store rows carry type/createdAt/updatedAt.
func materializeRow(row map[string]interface{}, visible map[string]struct{}, viewID string, table *models.Table) map[string]interface{} {
	out := make(map[string]interface{}, len(visible)+8)
	for field := range visible {
		if value, ok := row[field]; ok {
			out[field] = value
		}
	}

	if table.SourceType == models.SourceTypeExternal {
		for _, pk := range table.PrimaryKeys() {
			if value, ok := row[pk]; ok {
				out[pk] = value
			}
		}
	} else {
		for _, key := range []string{"_id", "_rev", "type", "createdAt", "updatedAt"} {
			if value, ok := row[key]; ok {
				out[key] = value
			}
		}
	}

	// Primary display participates in row identity regardless of
	// visibility.
	if pd := table.PrimaryDisplay; pd != "" {
		if value, ok := row[pd]; ok {
			out[pd] = value
		}
	}

	out["tableId"] = table.ID
	out["_viewId"] = viewID
	return out
}

func stripReserved(payload map[string]interface{}) map[string]interface{} {
	data := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if _, reserved := reservedRowKeys[k]; reserved {
			continue
		}
		data[k] = v
	}
	return data
}

func restrictToFields(data map[string]interface{}, allowed map[string]struct{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}

// rowIdentity extracts a row's id from a bulk payload entry: _id for
// document rows, the primary key column for external rows.
func rowIdentity(row map[string]interface{}, primaryKey string) string {
	if id, ok := row["_id"].(string); ok && id != "" {
		return id
	}
	if v, ok := row[primaryKey]; ok && v != nil {
		switch id := v.(type) {
		case string:
			return id
		default:
			return stringifyID(v)
		}
	}
	return ""
}
