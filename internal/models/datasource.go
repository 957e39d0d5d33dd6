package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Datasource is a registered external SQL backend. Type is one of the
// supported dialects (mysql, mariadb, postgres, sqlite, sqlserver); DSN is
// the driver connection string.
type Datasource struct {
	ID        string `gorm:"primaryKey;size:64" json:"_id"`
	Name      string `gorm:"size:255;not null" json:"name"`
	Type      string `gorm:"size:32;not null" json:"type"`
	DSN       string `gorm:"size:1024;not null" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the metadata table name for Datasource
func (Datasource) TableName() string {
	return "datasources"
}

// NewDatasourceID mints a datasource id.
func NewDatasourceID() string {
	return "ds_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
