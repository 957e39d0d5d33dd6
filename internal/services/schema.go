package services

import (
	"github.com/viewlens/viewlens/internal/models"
)

// EffectiveField is one entry of a view's effective schema: the table's
// column definition layered with the view's UI override.
type EffectiveField struct {
	Field    models.FieldSchema
	Override models.ViewFieldSchema
	Visible  bool
}

// Project merges a table's column schema with a view's UI overrides into
// the effective schema. Both inputs are treated as immutable; type and
// constraint data always comes from the table, UI data from the override.
// Override keys the table schema does not know are dropped. A field with no
// override, or no explicit visible flag, is not visible: views are an
// allow-list.
func Project(tableSchema map[string]models.FieldSchema, overrides map[string]models.ViewFieldSchema) map[string]EffectiveField {
	effective := make(map[string]EffectiveField, len(tableSchema))
	for name, field := range tableSchema {
		entry := EffectiveField{Field: field}
		if override, ok := overrides[name]; ok {
			entry.Override = override
			entry.Visible = override.Visible != nil && *override.Visible
		}
		effective[name] = entry
	}
	return effective
}

// VisibleFields reduces an effective schema to its allow-list.
func VisibleFields(effective map[string]EffectiveField) map[string]struct{} {
	visible := make(map[string]struct{})
	for name, entry := range effective {
		if entry.Visible {
			visible[name] = struct{}{}
		}
	}
	return visible
}

// StripNonUI is the persistence inverse of Project: it reduces an incoming
// view schema to pure UI overrides. Type and constraint keys never survive
// the request decode, so the stored view schema cannot drift from the
// table's; entries left with no UI data at all are dropped, not stored as
// deletions.
func StripNonUI(schema map[string]models.ViewFieldSchema) map[string]models.ViewFieldSchema {
	if len(schema) == 0 {
		return nil
	}
	stripped := make(map[string]models.ViewFieldSchema, len(schema))
	for name, entry := range schema {
		if entry.IsEmpty() {
			continue
		}
		stripped[name] = entry
	}
	if len(stripped) == 0 {
		return nil
	}
	return stripped
}

// ResolveSort resolves the sort for one search call. An explicit per-call
// sort replaces the view's stored default sort wholesale, never merged
// field by field. Omitted order defaults to ascending; omitted type is
// inferred from the effective schema's declared field type.
func ResolveSort(field, order, sortType string, viewSort *models.ViewSort, tableSchema map[string]models.FieldSchema) *models.ViewSort {
	var resolved models.ViewSort
	switch {
	case field != "":
		resolved = models.ViewSort{Field: field, Order: order, Type: sortType}
	case viewSort != nil && viewSort.Field != "":
		resolved = *viewSort
	default:
		return nil
	}

	if resolved.Order == "" {
		resolved.Order = models.SortAscending
	}
	if resolved.Type == "" {
		if tableSchema[resolved.Field].Type == models.FieldTypeNumber {
			resolved.Type = models.SortTypeNumber
		} else {
			resolved.Type = models.SortTypeString
		}
	}
	return &resolved
}
