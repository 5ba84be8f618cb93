package models

import (
	"time"

	"gorm.io/gorm"
)

// ApiHealth persists circuit-breaker state per external endpoint so that
// every instance (and every restart) sees the same open/closed view.
type ApiHealth struct {
	gorm.Model

	Endpoint   string     `gorm:"uniqueIndex;size:128" json:"endpoint"`
	IsOpen     bool       `json:"is_open"`
	OpenedAt   *time.Time `json:"opened_at"`
	ErrorCount int64      `json:"error_count"`
	LastError  string     `gorm:"size:255" json:"last_error"`
	CheckedAt  time.Time  `json:"checked_at"`
}
