package models

import "time"

// UsageRows is the counter name for row-count quota accounting.
const UsageRows = "rows"

// UsageCounter is one named quota counter. The engine only ever touches the
// "rows" counter; the record shape leaves room for others.
type UsageCounter struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	Name      string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Total     int64  `gorm:"not null;default:0" json:"total"`
	UpdatedAt time.Time
}

// TableName overrides the metadata table name for UsageCounter
func (UsageCounter) TableName() string {
	return "usage_counters"
}

// UsageDelta is the event emitted to the quota collaborator, one per row
// actually created or removed.
type UsageDelta struct {
	Type  string `json:"type"`
	Delta int64  `json:"delta"`
}
