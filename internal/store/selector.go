package store

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/viewlens/viewlens/internal/models"
)

// The document store's native selector language: conjunctive predicate
// evaluation over decoded row maps. Compilation validates fields against
// the table schema; a predicate on an unknown field makes the whole
// selector match nothing, so views keep functioning after schema edits
// remove a filtered field.

type selector struct {
	filters    []models.SearchFilter
	neverMatch bool
}

// compileSelector validates predicates against the table schema.
func compileSelector(tbl *Table, filters []models.SearchFilter) selector {
	for _, f := range filters {
		if _, ok := tbl.Schema[f.Field]; !ok {
			log.Printf("search on table %s filters unknown field %q: matching no rows", tbl.ID, f.Field)
			return selector{neverMatch: true}
		}
	}
	return selector{filters: filters}
}

// Matches evaluates the selector against one row document.
func (s selector) Matches(row map[string]interface{}) bool {
	if s.neverMatch {
		return false
	}
	for _, f := range s.filters {
		if !matchesFilter(row, f) {
			return false
		}
	}
	return true
}

func matchesFilter(row map[string]interface{}, f models.SearchFilter) bool {
	value, present := row[f.Field]

	switch f.Operator {
	case models.OpEqual:
		return present && valuesEqual(value, f.Value)
	case models.OpNotEqual:
		return !present || !valuesEqual(value, f.Value)
	case models.OpString:
		return present && strings.HasPrefix(stringOf(value), stringOf(f.Value))
	case models.OpContains:
		return present && strings.Contains(stringOf(value), stringOf(f.Value))
	case models.OpOneOf:
		for _, candidate := range oneOfValues(f.Value) {
			if present && valuesEqual(value, candidate) {
				return true
			}
		}
		return false
	case models.OpEmpty:
		return !present || value == nil || stringOf(value) == ""
	case models.OpNotEmpty:
		return present && value != nil && stringOf(value) != ""
	case models.OpRangeLow:
		return present && compareValues(value, f.Value, true) >= 0
	case models.OpRangeHigh:
		return present && compareValues(value, f.Value, true) <= 0
	default:
		// Unknown operator behaves like an unknown field: no match.
		return false
	}
}

// oneOfValues accepts either a JSON array or a comma-separated string.
func oneOfValues(v interface{}) []interface{} {
	switch vv := v.(type) {
	case []interface{}:
		return vv
	case string:
		parts := strings.Split(vv, ",")
		out := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	case nil:
		return nil
	default:
		return []interface{}{v}
	}
}

// valuesEqual compares numerically when both sides are numeric, otherwise
// by string rendering.
func valuesEqual(a, b interface{}) bool {
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if aok && bok {
		return an == bn
	}
	return stringOf(a) == stringOf(b)
}

// compareValues orders two values. Missing (nil) sorts after everything,
// so ascending puts absent rows last and descending puts them first.
// numeric forces by-value comparison: "15" < "25".
func compareValues(a, b interface{}, numeric bool) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	if numeric {
		an, aok := toNumber(a)
		bn, bok := toNumber(b)
		if aok && bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(stringOf(a), stringOf(b))
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringOf(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
