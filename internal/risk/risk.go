// Package risk caps how much quote-currency size a single alert may move.
package risk

import "github.com/shopspring/decimal"

// Limits bounds per-order notional. A zero max means unlimited.
type Limits struct {
	MaxNotionalPerTrade decimal.Decimal
}

// Allow reports whether an order of the given quote size may proceed.
func (l Limits) Allow(notional decimal.Decimal) bool {
	if l.MaxNotionalPerTrade.IsZero() {
		return true
	}
	return notional.LessThanOrEqual(l.MaxNotionalPerTrade)
}
