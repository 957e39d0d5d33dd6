package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RowType is stamped onto every internal row document.
const RowType = "row"

// Row is a document in the internal store. The visible-field values live in
// Data; identity and bookkeeping columns are first class so the store can
// index and page on them.
type Row struct {
	ID        string `gorm:"primaryKey;size:64" json:"_id"`
	TableID   string `gorm:"index;size:64;not null" json:"tableId"`
	Rev       uint64 `gorm:"not null;default:1" json:"_rev"`
	Data      JSON   `gorm:"type:json" json:"data"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the metadata table name for Row
func (Row) TableName() string {
	return "rows"
}

// NewRowID mints a row id.
func NewRowID() string {
	return "ro_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
