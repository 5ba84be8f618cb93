package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SyncJobPending = "pending"
	SyncJobDone    = "done"
	SyncJobFailed  = "failed"
)

const (
	JobFetchOrderKeys = "fetch_order_keys"
	JobStockSync      = "stock_sync"
)

// SyncJob is a row in the deferred-work queue consumed by jobs.StartSyncScheduler.
type SyncJob struct {
	gorm.Model

	JobType   string         `gorm:"size:32;index" json:"job_type"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Status    string         `gorm:"size:16;index;default:pending" json:"status"`
	Attempts  int64          `json:"attempts"`
	LastError string         `gorm:"size:255" json:"last_error"`
	RunAt     time.Time      `gorm:"index" json:"run_at"`
}
