package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Table source types. Internal tables live in the document store; external
// tables are backed by a registered SQL datasource.
const (
	SourceTypeInternal = "internal"
	SourceTypeExternal = "external"

	// InternalSourceID marks a table as document-store backed.
	InternalSourceID = "ds_internal"
)

// Table owns a column schema and the views defined over it. It is the unit
// of physical storage; view operations never delete or alter it.
type Table struct {
	ID             string `gorm:"primaryKey;size:64" json:"_id"`
	Name           string `gorm:"size:255;not null" json:"name"`
	SourceType     string `gorm:"size:16;not null" json:"sourceType"`
	SourceID       string `gorm:"size:64;not null" json:"sourceId"`
	ExternalName   string `gorm:"size:255" json:"externalName,omitempty"`
	PrimaryDisplay string `gorm:"size:255" json:"primaryDisplay,omitempty"`
	Primary        JSON   `gorm:"type:json" json:"primary,omitempty"`
	Schema         JSON   `gorm:"type:json" json:"schema"`
	Views          JSON   `gorm:"type:json" json:"views,omitempty"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the metadata table name for Table
func (Table) TableName() string {
	return "tables"
}

// NewTableID mints a table id.
func NewTableID() string {
	return "ta_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewViewID mints a view id owned by tableID. The table id prefix is load
// bearing: ownership is recovered from the id alone.
func NewViewID(tableID string) string {
	return tableID + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// DecodeSchema decodes the table's column schema.
func (t *Table) DecodeSchema() (map[string]FieldSchema, error) {
	schema := map[string]FieldSchema{}
	if len(t.Schema) == 0 {
		return schema, nil
	}
	if err := json.Unmarshal(t.Schema, &schema); err != nil {
		return nil, fmt.Errorf("table %s: invalid schema: %w", t.ID, err)
	}
	return schema, nil
}

// DecodeViews decodes the view-name → view-record map stored on the table.
func (t *Table) DecodeViews() (map[string]ViewRecord, error) {
	views := map[string]ViewRecord{}
	if len(t.Views) == 0 {
		return views, nil
	}
	if err := json.Unmarshal(t.Views, &views); err != nil {
		return nil, fmt.Errorf("table %s: invalid views: %w", t.ID, err)
	}
	return views, nil
}

// EncodeViews re-encodes the views map for persistence.
func (t *Table) EncodeViews(views map[string]ViewRecord) error {
	data, err := json.Marshal(views)
	if err != nil {
		return err
	}
	t.Views = JSON(data)
	return nil
}

// PrimaryKeys decodes the primary key column list. Internal tables always
// key on _id; this matters for external tables only.
func (t *Table) PrimaryKeys() []string {
	if len(t.Primary) == 0 {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(t.Primary, &keys); err != nil {
		return nil
	}
	return keys
}
