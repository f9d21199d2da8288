package model

import "time"

// Gift is a catalog entry owned by the storefront. The bot only reads it.
type Gift struct {
	ID             uint   `gorm:"primaryKey"`
	Title          string `gorm:"size:200"`
	Description    string
	GifURL         string `gorm:"column:gif_url;size:1000"`
	TelegramFileID string `gorm:"size:255"`
	PriceCents     int
	CreatedAt      time.Time
}

func (Gift) TableName() string {
	return "nft_gifts"
}

// Animation returns the reference to send, preferring an uploaded Telegram file.
func (g Gift) Animation() (ref string, isFileID bool) {
	if g.TelegramFileID != "" {
		return g.TelegramFileID, true
	}
	return g.GifURL, false
}
