package models

// Field types a table schema can declare. The engine only distinguishes
// number from everything else for comparison purposes; the rest is
// presentation metadata carried for the UI layer.
const (
	FieldTypeString   = "string"
	FieldTypeNumber   = "number"
	FieldTypeBoolean  = "boolean"
	FieldTypeDatetime = "datetime"
	FieldTypeAuto     = "auto"
)

// FieldSchema is a table-owned column definition. Type and constraints live
// here and only here; views never duplicate them.
type FieldSchema struct {
	Name        string                 `json:"name,omitempty"`
	Type        string                 `json:"type"`
	Constraints map[string]interface{} `json:"constraints,omitempty"`
	AutoColumn  bool                   `json:"autocolumn,omitempty"`
}

// ViewFieldSchema is a view-owned UI override for a single field. All
// members are optional; absence means inherit. Anything else arriving in a
// request schema entry is dropped before persistence, never stored.
type ViewFieldSchema struct {
	Visible *bool  `json:"visible,omitempty"`
	Order   *int   `json:"order,omitempty"`
	Width   *int   `json:"width,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

// IsEmpty reports whether the override carries no UI data at all. Empty
// entries are not persisted.
func (v ViewFieldSchema) IsEmpty() bool {
	return v.Visible == nil && v.Order == nil && v.Width == nil && v.Icon == ""
}

// Filter operators. The list semantics are conjunctive; rangeLow/rangeHigh
// pair up on the same field for a two-sided range.
const (
	OpEqual     = "equal"
	OpNotEqual  = "notEqual"
	OpString    = "string" // starts-with
	OpContains  = "contains"
	OpOneOf     = "oneOf"
	OpEmpty     = "empty"
	OpNotEmpty  = "notEmpty"
	OpRangeLow  = "rangeLow"  // inclusive lower bound
	OpRangeHigh = "rangeHigh" // inclusive upper bound
)

// SearchFilter is one predicate of a view query or a call-scoped override.
type SearchFilter struct {
	Operator string      `json:"operator"`
	Field    string      `json:"field"`
	Value    interface{} `json:"value,omitempty"`
}

// Sort orders and types.
const (
	SortAscending  = "ascending"
	SortDescending = "descending"

	SortTypeString = "string"
	SortTypeNumber = "number"
)

// ViewSort is a view's default sort or a resolved per-call sort. A per-call
// sort replaces the view default wholesale, never field by field.
type ViewSort struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
	Type  string `json:"type,omitempty"`
}
