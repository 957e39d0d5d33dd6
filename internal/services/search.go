package services

import (
	"errors"

	"github.com/viewlens/viewlens/internal/database"
	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/store"
	"github.com/viewlens/viewlens/internal/types"
	"gorm.io/gorm"
)

// SearchRequest is the caller-facing search input. Query, when present,
// replaces the view's stored filter for this call only; projection always
// stays view-scoped.
type SearchRequest struct {
	Query     types.FlexList[models.SearchFilter] `json:"query,omitempty"`
	Sort      string                              `json:"sort,omitempty"`
	SortOrder string                              `json:"sortOrder,omitempty"`
	SortType  string                              `json:"sortType,omitempty"`
	Limit     types.FlexInt                       `json:"limit,omitempty"`
	Paginate  bool                                `json:"paginate,omitempty"`
	Bookmark  string                              `json:"bookmark,omitempty"`
}

// SearchResponse is the uniform page shape. TotalRows only appears for
// document-store-backed tables; hasNextPage is omitted where the store
// did not compute it.
type SearchResponse struct {
	Rows        []map[string]interface{} `json:"rows"`
	HasNextPage *bool                    `json:"hasNextPage,omitempty"`
	Bookmark    string                   `json:"bookmark,omitempty"`
	TotalRows   *int64                   `json:"totalRows,omitempty"`
}

// SearchView runs one view-scoped search: access gate, schema projection,
// filter and sort compilation, store query, then row materialization.
func SearchView(db *gorm.DB, callerRole, viewID string, req *SearchRequest) (*SearchResponse, error) {
	view, table, err := GetView(db, viewID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(db, callerRole, view.ID, table.ID); err != nil {
		return nil, err
	}

	tableSchema, err := table.DecodeSchema()
	if err != nil {
		return nil, types.StoreError(err)
	}
	effective := Project(tableSchema, view.Schema)
	visible := VisibleFields(effective)

	filters := normalizeFilters(req.Query.Slice())
	if len(filters) == 0 {
		filters = view.Query
	}

	params := store.SearchParams{
		Filters:     filters,
		Sort:        ResolveSort(req.Sort, req.SortOrder, req.SortType, view.Sort, tableSchema),
		Limit:       req.Limit.Int(),
		Paginate:    req.Paginate,
		Bookmark:    req.Bookmark,
		Attribution: "view:" + view.ID,
	}

	st, stbl, err := storeFor(db, table, tableSchema)
	if err != nil {
		return nil, err
	}
	page, err := st.Search(stbl, params)
	if err != nil {
		return nil, types.StoreError(err)
	}

	rows := make([]map[string]interface{}, 0, len(page.Rows))
	for _, row := range page.Rows {
		rows = append(rows, materializeRow(row, visible, view.ID, table))
	}

	return &SearchResponse{
		Rows:        rows,
		HasNextPage: page.HasNextPage,
		Bookmark:    page.Bookmark,
		TotalRows:   page.TotalRows,
	}, nil
}

// normalizeFilters drops entries without an operator. Lenient request
// decoding can produce empty placeholders from callers sending `query: {}`.
func normalizeFilters(filters []models.SearchFilter) []models.SearchFilter {
	out := filters[:0:0]
	for _, f := range filters {
		if f.Operator != "" {
			out = append(out, f)
		}
	}
	return out
}

// storeFor picks the backing-store adapter for a table: the document store
// for internal tables, a freshly opened datasource connection for external
// ones.
func storeFor(db *gorm.DB, table *models.Table, tableSchema map[string]models.FieldSchema) (store.Store, *store.Table, error) {
	stbl := &store.Table{
		ID:           table.ID,
		PhysicalName: table.ExternalName,
		PrimaryKeys:  table.PrimaryKeys(),
		Schema:       tableSchema,
	}
	if stbl.PhysicalName == "" {
		stbl.PhysicalName = table.Name
	}

	if table.SourceType != models.SourceTypeExternal {
		return store.NewDocumentStore(db), stbl, nil
	}

	var ds models.Datasource
	err := db.First(&ds, "id = ?", table.SourceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.NotFound("Datasource not found")
		}
		return nil, nil, types.StoreError(err)
	}
	conn, err := database.OpenDatasource(&ds)
	if err != nil {
		return nil, nil, types.StoreError(err)
	}
	return store.NewSQLStore(conn), stbl, nil
}
