package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ForeverDays is the duration of the "forever" plan.
const ForeverDays = 36500

// MaxGrantDays bounds manual grants.
const MaxGrantDays = ForeverDays

// Plan is a purchasable subscription duration.
type Plan struct {
	Days  int
	Price decimal.Decimal
}

func (p Plan) Forever() bool {
	return p.Days >= ForeverDays
}

// Label renders the plan for buttons and invoices.
func (p Plan) Label() string {
	if p.Forever() {
		return fmt.Sprintf("Навсегда · %s$", p.Price.StringFixed(2))
	}
	return fmt.Sprintf("%d дн. · %s$", p.Days, p.Price.StringFixed(2))
}

var catalog = []Plan{
	{Days: 1, Price: decimal.RequireFromString("2.90")},
	{Days: 3, Price: decimal.RequireFromString("5.90")},
	{Days: 7, Price: decimal.RequireFromString("7.90")},
	{Days: 15, Price: decimal.RequireFromString("11.99")},
	{Days: 30, Price: decimal.RequireFromString("14.90")},
	{Days: ForeverDays, Price: decimal.RequireFromString("29.90")},
}

var assets = []string{"USDT", "TON"}

// Plans returns the catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Assets returns the accepted payment assets.
func Assets() []string {
	out := make([]string, len(assets))
	copy(out, assets)
	return out
}

// FindPlan looks a plan up by duration. The price must match when given,
// so a forged callback cannot change what is charged.
func FindPlan(days int, price *decimal.Decimal) (Plan, error) {
	for _, p := range catalog {
		if p.Days != days {
			continue
		}
		if price != nil && !price.Equal(p.Price) {
			return Plan{}, invalidf("price %s does not match the %d day plan", price, days)
		}
		return p, nil
	}
	return Plan{}, invalidf("unknown plan %d", days)
}

func IsAsset(code string) bool {
	for _, a := range assets {
		if strings.EqualFold(a, code) {
			return true
		}
	}
	return false
}
