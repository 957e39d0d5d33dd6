package store

import (
	"errors"

	"github.com/viewlens/viewlens/internal/models"
)

// Page size policy. An explicit limit is capped at MaxPageSize; an
// unpaginated read returns at most MaxUnpaginatedRows in one response.
const (
	DefaultPageSize    = 50
	MaxPageSize        = 500
	MaxUnpaginatedRows = 5000
)

// ErrRowNotFound is returned by row lookups and patches when the target row
// does not exist in the backing store.
var ErrRowNotFound = errors.New("row not found")

// Table is the store-facing description of a table: just enough to compile
// filters, sorts, and row mutations against the physical storage.
type Table struct {
	ID           string
	PhysicalName string // external table name; unused for the document store
	PrimaryKeys  []string
	Schema       map[string]models.FieldSchema
}

// PrimaryKey returns the first declared primary key column, defaulting to
// "id" for external tables that did not declare one.
func (t *Table) PrimaryKey() string {
	if len(t.PrimaryKeys) > 0 {
		return t.PrimaryKeys[0]
	}
	return "id"
}

// SearchParams is a compiled, store-agnostic search request. Filters are
// conjunctive; Sort is fully resolved by the caller (nil means store
// default order); Bookmark is an opaque token from a previous page.
type SearchParams struct {
	Filters     []models.SearchFilter
	Sort        *models.ViewSort
	Limit       int
	Paginate    bool
	Bookmark    string
	Attribution string // query attribution tag, e.g. a view id
}

// Page is the uniform result shape both store families produce.
// HasNextPage is a pointer because the document store omits it for
// unpaginated reads while SQL stores always report it.
type Page struct {
	Rows        []map[string]interface{}
	HasNextPage *bool
	Bookmark    string
	TotalRows   *int64
}

// Store is the capability contract both backing-store families implement.
// The engine depends only on this interface, never on a concrete store.
type Store interface {
	// Search runs a compiled query and returns one page of raw rows.
	Search(tbl *Table, params SearchParams) (*Page, error)
	// GetRow fetches one row by id (document id or primary key value).
	GetRow(tbl *Table, id string) (map[string]interface{}, error)
	// SaveRow persists a new row and returns it with identity fields set.
	SaveRow(tbl *Table, data map[string]interface{}) (map[string]interface{}, error)
	// PatchRow applies a partial update; absent keys are left untouched.
	PatchRow(tbl *Table, id string, data map[string]interface{}) (map[string]interface{}, error)
	// DeleteRows removes rows by id, best effort, and returns the count
	// actually removed. Missing rows are not errors.
	DeleteRows(tbl *Table, ids []string) (int, error)
}

func boolPtr(b bool) *bool {
	return &b
}

func int64Ptr(n int64) *int64 {
	return &n
}

// clampLimit applies the page-size policy to a requested limit.
func clampLimit(limit int, paginate bool) int {
	if limit <= 0 {
		if paginate {
			return DefaultPageSize
		}
		return MaxUnpaginatedRows
	}
	if limit > MaxPageSize && paginate {
		return MaxPageSize
	}
	if limit > MaxUnpaginatedRows {
		return MaxUnpaginatedRows
	}
	return limit
}
