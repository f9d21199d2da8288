package model

import "time"

// User stores a Telegram identity seen by the bot together with its subscription.
type User struct {
	ID                uint   `gorm:"primaryKey"`
	PlatformID        int64  `gorm:"uniqueIndex"`
	Handle            string `gorm:"index"`
	IsSubscribed      bool   `gorm:"default:false"`
	SubscriptionUntil *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SubscriptionValid reports whether the subscription is active at now.
// A nil SubscriptionUntil on a subscribed user means it never expires.
func (u User) SubscriptionValid(now time.Time) bool {
	if !u.IsSubscribed {
		return false
	}
	return u.SubscriptionUntil == nil || u.SubscriptionUntil.After(now)
}
