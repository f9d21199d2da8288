package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses reported by the payment gateway. Other values are stored verbatim.
const (
	InvoiceActive  = "active"
	InvoicePending = "pending"
	InvoicePaid    = "paid"
	InvoiceExpired = "expired"
)

// Invoice mirrors a gateway invoice issued for a subscription plan.
type Invoice struct {
	InvoiceID  string `gorm:"primaryKey"`
	PlatformID int64  `gorm:"index"`
	Status     string
	Asset      string
	Amount     decimal.Decimal `gorm:"type:numeric(18,8)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
