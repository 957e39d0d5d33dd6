package models

import (
	"encoding/json"
	"strings"
)

// ViewV2 is the current view record: a named projection/filter/sort lens
// over a table. Its id is derived from the owning table id
// (<tableId>_<suffix>) so ownership is recoverable from the id alone.
type ViewV2 struct {
	ID             string                     `json:"id"`
	Version        int                        `json:"version"`
	TableID        string                     `json:"tableId"`
	Name           string                     `json:"name"`
	PrimaryDisplay string                     `json:"primaryDisplay,omitempty"`
	Query          []SearchFilter             `json:"query,omitempty"`
	Sort           *ViewSort                  `json:"sort,omitempty"`
	Schema         map[string]ViewFieldSchema `json:"schema,omitempty"`
}

// ViewV1 is the legacy view record. It is a distinct, non-interoperable
// type: v2 operations must reject it with a typed error, never migrate it.
type ViewV1 struct {
	Name    string                 `json:"name"`
	TableID string                 `json:"tableId"`
	Filters []interface{}          `json:"filters"`
	Schema  map[string]interface{} `json:"schema,omitempty"`
}

// ViewRecord is the stored tagged union of view versions. Exactly one of
// V1/V2 is set after decoding.
type ViewRecord struct {
	V1 *ViewV1
	V2 *ViewV2
}

// UnmarshalJSON decodes a stored view, tagging by the version field.
// Records without version: 2 are legacy v1.
func (r *ViewRecord) UnmarshalJSON(data []byte) error {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Version == 2 {
		var v2 ViewV2
		if err := json.Unmarshal(data, &v2); err != nil {
			return err
		}
		r.V2 = &v2
		r.V1 = nil
		return nil
	}
	var v1 ViewV1
	if err := json.Unmarshal(data, &v1); err != nil {
		return err
	}
	r.V1 = &v1
	r.V2 = nil
	return nil
}

// MarshalJSON encodes whichever version the record holds.
func (r ViewRecord) MarshalJSON() ([]byte, error) {
	if r.V2 != nil {
		return json.Marshal(r.V2)
	}
	return json.Marshal(r.V1)
}

// TableIDFromViewID recovers the owning table id from a view id. Returns ""
// when the id is not view-shaped.
func TableIDFromViewID(viewID string) string {
	idx := strings.LastIndex(viewID, "_")
	if idx <= 0 {
		return ""
	}
	return viewID[:idx]
}
