package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single transaction on a linked credit account,
// as reported by the transactions provider for one request. Transactions
// are never persisted; they live only for the duration of a fetch.
type Transaction struct {
	ID        string
	AccountID string
	Merchant  string
	Category  string // Empty when the provider supplied no category.
	Amount    decimal.Decimal
	Currency  string
	Date      time.Time
	Pending   bool
}

// TimeWindow bounds a transaction query. Both ends are inclusive dates.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// LastDays returns a window covering the trailing number of days up to now.
func LastDays(now time.Time, days int) TimeWindow {
	return TimeWindow{
		Start: now.AddDate(0, 0, -days),
		End:   now,
	}
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
