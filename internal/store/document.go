package store

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/viewlens/viewlens/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStore is the internal backing store: rows are JSON documents in
// the metadata database. Selection, ordering, and paging run in the engine
// against the decoded documents, which also makes a cheap totalRows count
// available.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore creates a document-store adapter over the metadata DB.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Search implements Store.
func (s *DocumentStore) Search(tbl *Table, params SearchParams) (*Page, error) {
	var recs []models.Row
	if err := s.db.Where("table_id = ?", tbl.ID).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}

	sel := compileSelector(tbl, params.Filters)
	rows := make([]map[string]interface{}, 0, len(recs))
	for i := range recs {
		row, err := docToMap(&recs[i])
		if err != nil {
			return nil, err
		}
		if sel.Matches(row) {
			rows = append(rows, row)
		}
	}

	sortRows(rows, params.Sort)
	total := int64(len(rows))

	if !params.Paginate {
		limit := clampLimit(params.Limit, false)
		if len(rows) > limit {
			rows = rows[:limit]
		}
		// Unpaginated internal reads carry no page bookkeeping.
		return &Page{Rows: rows, TotalRows: int64Ptr(total)}, nil
	}

	limit := clampLimit(params.Limit, true)
	start := 0
	if bm, ok := decodeDocBookmark(params.Bookmark); ok {
		start = resumeIndex(rows, bm, params.Sort)
	}

	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	page := rows[start:end]

	result := &Page{
		Rows:        page,
		HasNextPage: boolPtr(end < len(rows)),
		TotalRows:   int64Ptr(total),
		Bookmark:    params.Bookmark,
	}
	if len(page) > 0 {
		last := page[len(page)-1]
		bm := docBookmark{LastID: stringOf(last["_id"])}
		if params.Sort != nil {
			bm.Field = params.Sort.Field
			bm.Key = last[params.Sort.Field]
		}
		result.Bookmark = encodeBookmark(bm)
	}
	return result, nil
}

// GetRow implements Store.
func (s *DocumentStore) GetRow(tbl *Table, id string) (map[string]interface{}, error) {
	var rec models.Row
	err := s.db.Where("table_id = ? AND id = ?", tbl.ID, id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return docToMap(&rec)
}

// SaveRow implements Store.
func (s *DocumentStore) SaveRow(tbl *Table, data map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	rec := models.Row{
		ID:      models.NewRowID(),
		TableID: tbl.ID,
		Rev:     1,
		Data:    models.JSON(body),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return nil, err
	}
	return docToMap(&rec)
}

// PatchRow implements Store. Only the provided keys change; everything else
// on the document is left untouched. The revision bumps on every patch.
func (s *DocumentStore) PatchRow(tbl *Table, id string, data map[string]interface{}) (map[string]interface{}, error) {
	var updated map[string]interface{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec models.Row
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("table_id = ? AND id = ?", tbl.ID, id).
			First(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRowNotFound
			}
			return err
		}

		doc := map[string]interface{}{}
		if len(rec.Data) > 0 {
			if err := json.Unmarshal(rec.Data, &doc); err != nil {
				return err
			}
		}
		for k, v := range data {
			doc[k] = v
		}

		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		rec.Data = models.JSON(body)
		rec.Rev++
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}

		updated, err = docToMap(&rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRows implements Store. Deleting an already-deleted row is a no-op;
// the returned count is rows actually removed.
func (s *DocumentStore) DeleteRows(tbl *Table, ids []string) (int, error) {
	removed := 0
	for _, id := range ids {
		result := s.db.Where("table_id = ? AND id = ?", tbl.ID, id).Delete(&models.Row{})
		if result.Error != nil {
			return removed, result.Error
		}
		removed += int(result.RowsAffected)
	}
	return removed, nil
}

// docToMap flattens a stored document into the raw row shape: data fields
// plus identity and bookkeeping fields the document store owns.
func docToMap(rec *models.Row) (map[string]interface{}, error) {
	row := map[string]interface{}{}
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &row); err != nil {
			return nil, err
		}
	}
	row["_id"] = rec.ID
	row["_rev"] = rec.Rev
	row["tableId"] = rec.TableID
	row["type"] = models.RowType
	row["createdAt"] = rec.CreatedAt.UTC().Format(time.RFC3339)
	row["updatedAt"] = rec.UpdatedAt.UTC().Format(time.RFC3339)
	return row, nil
}

// sortRows orders rows with the resolved sort, tie-breaking on _id so the
// order is total and cursors can resume deterministically. No sort means
// document-id order.
func sortRows(rows []map[string]interface{}, vs *models.ViewSort) {
	sort.SliceStable(rows, func(i, j int) bool {
		return orderRows(rows[i], rows[j], vs) < 0
	})
}

func orderRows(a, b map[string]interface{}, vs *models.ViewSort) int {
	if vs != nil {
		numeric := vs.Type == models.SortTypeNumber
		cmp := compareValues(a[vs.Field], b[vs.Field], numeric)
		if vs.Order == models.SortDescending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp
		}
	}
	return strings.Compare(stringOf(a["_id"]), stringOf(b["_id"]))
}

// resumeIndex finds the first row strictly after the bookmarked position
// under the current ordering. If the bookmarked row vanished, resumption
// lands on the nearest following row.
func resumeIndex(rows []map[string]interface{}, bm docBookmark, vs *models.ViewSort) int {
	marker := map[string]interface{}{"_id": bm.LastID}
	if vs != nil && bm.Field == vs.Field {
		marker[vs.Field] = bm.Key
	}
	for i := range rows {
		if orderRows(rows[i], marker, vs) > 0 {
			return i
		}
	}
	return len(rows)
}
