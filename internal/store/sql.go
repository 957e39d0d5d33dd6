package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/viewlens/viewlens/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// SQLStore is the external backing store adapter: one per opened
// datasource connection. Filters compile to parameterized clause
// expressions (never interpolated strings) and sorting translates to
// dialect-aware ORDER BY with the same null placement the document store's
// comparator produces, so cross-store ordering is identical for identical
// data.
type SQLStore struct {
	db      *gorm.DB
	dialect string
}

// NewSQLStore creates a SQL adapter over an opened datasource connection.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, dialect: db.Dialector.Name()}
}

// Search implements Store. Paging is offset/limit; hasNextPage comes from
// fetching one row past the limit rather than a separate count query, so
// totalRows is never computed for SQL stores.
func (s *SQLStore) Search(tbl *Table, params SearchParams) (*Page, error) {
	q := s.db.Table(tbl.PhysicalName)
	if tag := sanitizeComment(params.Attribution); tag != "" {
		q = q.Clauses(hints.CommentBefore("select", tag))
	}

	exprs, never := compileConditions(s.dialect, tbl, params.Filters)
	if never {
		q = q.Where("1 = 0")
	} else {
		for _, expr := range exprs {
			q = q.Where(expr)
		}
	}

	for _, order := range s.orderClauses(tbl, params.Sort) {
		q = q.Order(order)
	}

	limit := clampLimit(params.Limit, params.Paginate)
	page := 0
	if params.Paginate {
		if bm, ok := decodeSQLBookmark(params.Bookmark); ok {
			page = bm.Page
			// The stride is pinned by the first page of the sequence.
			if bm.Limit > 0 {
				limit = bm.Limit
			}
		}
		q = q.Offset(page * limit)
	}

	var rows []map[string]interface{}
	// One extra row decides hasNextPage without a count query.
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}

	result := &Page{Rows: rows, HasNextPage: boolPtr(hasNext)}
	if params.Paginate {
		next := page
		if hasNext {
			next = page + 1
		}
		result.Bookmark = encodeBookmark(sqlBookmark{Page: next, Limit: limit})
	}
	return result, nil
}

// GetRow implements Store.
func (s *SQLStore) GetRow(tbl *Table, id string) (map[string]interface{}, error) {
	var row map[string]interface{}
	err := s.db.Table(tbl.PhysicalName).
		Where(clause.Eq{Column: clause.Column{Name: tbl.PrimaryKey()}, Value: id}).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return row, nil
}

// SaveRow implements Store. External stores own their identity columns; if
// the payload carried the primary key the persisted row is re-read,
// otherwise the payload is returned as written.
func (s *SQLStore) SaveRow(tbl *Table, data map[string]interface{}) (map[string]interface{}, error) {
	record := make(map[string]interface{}, len(data))
	for k, v := range data {
		record[k] = v
	}
	if err := s.db.Table(tbl.PhysicalName).Create(record).Error; err != nil {
		return nil, err
	}
	if id, ok := record[tbl.PrimaryKey()]; ok {
		return s.GetRow(tbl, stringOf(id))
	}
	return record, nil
}

// PatchRow implements Store.
func (s *SQLStore) PatchRow(tbl *Table, id string, data map[string]interface{}) (map[string]interface{}, error) {
	if _, err := s.GetRow(tbl, id); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		err := s.db.Table(tbl.PhysicalName).
			Where(clause.Eq{Column: clause.Column{Name: tbl.PrimaryKey()}, Value: id}).
			Updates(data).Error
		if err != nil {
			return nil, err
		}
	}
	return s.GetRow(tbl, id)
}

// DeleteRows implements Store. Best effort, idempotent per row.
func (s *SQLStore) DeleteRows(tbl *Table, ids []string) (int, error) {
	table := quoteIdent(s.dialect, tbl.PhysicalName)
	pk := quoteIdent(s.dialect, tbl.PrimaryKey())
	removed := 0
	for _, id := range ids {
		result := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, pk), id)
		if result.Error != nil {
			return removed, result.Error
		}
		removed += int(result.RowsAffected)
	}
	return removed, nil
}

// compileConditions turns predicates into parameterized clause expressions.
// A predicate on a field the schema does not know makes the query match
// nothing instead of erroring, mirroring the document store's selector.
func compileConditions(dialect string, tbl *Table, filters []models.SearchFilter) ([]clause.Expression, bool) {
	exprs := make([]clause.Expression, 0, len(filters))
	for _, f := range filters {
		if _, ok := tbl.Schema[f.Field]; !ok {
			return nil, true
		}
		col := clause.Column{Name: f.Field}
		switch f.Operator {
		case models.OpEqual:
			exprs = append(exprs, clause.Eq{Column: col, Value: f.Value})
		case models.OpNotEqual:
			exprs = append(exprs, clause.Neq{Column: col, Value: f.Value})
		case models.OpString:
			exprs = append(exprs, likeEscaped(dialect, f.Field, escapeLike(dialect, stringOf(f.Value))+"%"))
		case models.OpContains:
			exprs = append(exprs, likeEscaped(dialect, f.Field, "%"+escapeLike(dialect, stringOf(f.Value))+"%"))
		case models.OpOneOf:
			exprs = append(exprs, clause.IN{Column: col, Values: oneOfValues(f.Value)})
		case models.OpEmpty:
			exprs = append(exprs, clause.Or(
				clause.Eq{Column: col, Value: nil},
				clause.Eq{Column: col, Value: ""},
			))
		case models.OpNotEmpty:
			exprs = append(exprs, clause.And(
				clause.Neq{Column: col, Value: nil},
				clause.Neq{Column: col, Value: ""},
			))
		case models.OpRangeLow:
			exprs = append(exprs, clause.Gte{Column: col, Value: f.Value})
		case models.OpRangeHigh:
			exprs = append(exprs, clause.Lte{Column: col, Value: f.Value})
		default:
			return nil, true
		}
	}
	return exprs, false
}

// orderClauses builds the ORDER BY translation for the resolved sort:
// numeric casting when the sort type is number, and null placement matching
// the comparator rule (absent last ascending, first descending). Column
// names never reach here unvalidated; only schema-known fields are quoted
// in.
func (s *SQLStore) orderClauses(tbl *Table, vs *models.ViewSort) []string {
	if vs == nil || vs.Field == "" {
		return []string{quoteIdent(s.dialect, tbl.PrimaryKey())}
	}
	if _, ok := tbl.Schema[vs.Field]; !ok {
		return []string{quoteIdent(s.dialect, tbl.PrimaryKey())}
	}

	col := quoteIdent(s.dialect, vs.Field)
	expr := col
	if vs.Type == models.SortTypeNumber {
		expr = numericCast(s.dialect, col)
	}

	dir := "ASC"
	if vs.Order == models.SortDescending {
		dir = "DESC"
	}

	var orders []string
	switch s.dialect {
	case "postgres":
		// Postgres defaults to ASC NULLS LAST, DESC NULLS FIRST, which
		// is already the placement the comparator uses.
	case "sqlserver":
		orders = append(orders, fmt.Sprintf("CASE WHEN %s IS NULL THEN 1 ELSE 0 END %s", col, dir))
	default: // mysql, mariadb, sqlite sort NULLs lowest
		orders = append(orders, fmt.Sprintf("(%s IS NULL) %s", col, dir))
	}
	orders = append(orders, fmt.Sprintf("%s %s", expr, dir))
	// Deterministic tiebreak for stable offset paging.
	if pk := tbl.PrimaryKey(); pk != vs.Field {
		orders = append(orders, quoteIdent(s.dialect, pk))
	}
	return orders
}

func numericCast(dialect, quotedCol string) string {
	switch dialect {
	case "mysql", "mariadb":
		return fmt.Sprintf("CAST(%s AS DECIMAL(65,10))", quotedCol)
	case "sqlserver":
		return fmt.Sprintf("TRY_CAST(%s AS FLOAT)", quotedCol)
	default: // postgres, sqlite
		return fmt.Sprintf("CAST(%s AS NUMERIC)", quotedCol)
	}
}

// quoteIdent quotes an identifier for the adapter's dialect.
func quoteIdent(dialect, name string) string {
	switch dialect {
	case "mysql", "mariadb":
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case "sqlserver":
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default: // postgres, sqlite
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// likeEscaped builds a LIKE predicate with an explicit escape character.
// SQLite and SQL Server have no default LIKE escape character, and a
// backslash escape would need per-dialect quoting in the statement text,
// so '!' is declared on every dialect.
func likeEscaped(dialect, field, pattern string) clause.Expression {
	return clause.Expr{
		SQL:  quoteIdent(dialect, field) + " LIKE ? ESCAPE '!'",
		Vars: []interface{}{pattern},
	}
}

// escapeLike neutralizes LIKE wildcards in a filter needle. SQL Server
// additionally treats '[' as the start of a character class.
func escapeLike(dialect, s string) string {
	s = strings.ReplaceAll(s, "!", "!!")
	s = strings.ReplaceAll(s, "%", "!%")
	s = strings.ReplaceAll(s, "_", "!_")
	if dialect == "sqlserver" {
		s = strings.ReplaceAll(s, "[", "![")
	}
	return s
}

// sanitizeComment keeps attribution tags from breaking out of the SQL
// comment they ride in.
func sanitizeComment(tag string) string {
	tag = strings.ReplaceAll(tag, "*/", "")
	return strings.TrimSpace(tag)
}
