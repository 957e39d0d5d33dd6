package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/viewlens/viewlens/internal/models"
	"gorm.io/gorm"
)

// UsageReporter is the quota collaborator: the engine notifies it of row
// count deltas and otherwise knows nothing about quota bookkeeping. It is
// injected so the engine stays testable without a live accounting backend.
type UsageReporter interface {
	Report(delta models.UsageDelta) error
}

// DBUsageReporter keeps the counters in the metadata database.
type DBUsageReporter struct {
	DB *gorm.DB
}

// Report implements UsageReporter.
func (r *DBUsageReporter) Report(delta models.UsageDelta) error {
	result := r.DB.Model(&models.UsageCounter{}).
		Where("name = ?", delta.Type).
		UpdateColumn("total", gorm.Expr("total + ?", delta.Delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.DB.Create(&models.UsageCounter{Name: delta.Type, Total: delta.Delta}).Error
	}
	return nil
}

// CurrentUsage reads a counter's total. A counter that was never reported
// to reads as zero.
func CurrentUsage(db *gorm.DB, name string) (int64, error) {
	var counter models.UsageCounter
	err := db.Where("name = ?", name).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Total, nil
}

// reportUsage emits one rows-delta event. A failing quota collaborator is
// logged, not surfaced: accounting must not fail the data operation that
// already happened.
func reportUsage(reporter UsageReporter, delta int64) {
	if reporter == nil {
		return
	}
	if err := reporter.Report(models.UsageDelta{Type: models.UsageRows, Delta: delta}); err != nil {
		log.Printf("usage report failed (delta %+d): %v", delta, err)
	}
}

func stringifyID(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
