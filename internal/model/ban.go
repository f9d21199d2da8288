package model

import "time"

// Ban marks a platform identity as blocked. The row existing is the ban.
type Ban struct {
	PlatformID int64 `gorm:"primaryKey;autoIncrement:false"`
	Reason     string
	BannedAt   time.Time
}
