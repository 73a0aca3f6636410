package pipeline

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vendra-pipeline/internal/database/models"
)

// Run tracks one pipeline invocation across its stages. All stages of a
// single invocation share the same RunID.
type Run struct {
	ID string
	db *gorm.DB
}

func NewRun(db *gorm.DB) *Run {
	return &Run{ID: uuid.NewString(), db: db}
}

// RecordStage writes one run-ledger row. Ledger failures are logged and
// swallowed; bookkeeping never fails a run that produced output.
func (r *Run) RecordStage(stage string, startedAt time.Time, read, loaded, failed int64, status string, notes *string) {
	entry := models.PipelineRun{
		RunID:      r.ID,
		Stage:      stage,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		RowsRead:   read,
		RowsLoaded: loaded,
		RowsFailed: failed,
		Status:     status,
		Notes:      notes,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		log.Printf("Warning: failed to record %s stage for run %s: %v", stage, r.ID, err)
	}
}
