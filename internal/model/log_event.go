package model

import "time"

// LogEvent is an append-only audit record.
type LogEvent struct {
	ID         uint   `gorm:"primaryKey"`
	PlatformID *int64 `gorm:"index"`
	Action     string `gorm:"index"`
	Details    string
	CreatedAt  time.Time
}
