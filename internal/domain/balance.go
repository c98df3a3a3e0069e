package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot is the last observed on-chain balance of an address.
// When Err is set the most recent refresh failed and Amount still holds the
// value from the last successful one.
type BalanceSnapshot struct {
	Address string
	Amount  decimal.Decimal
	AsOf    time.Time
	Err     error
	// Known is false until the first successful fetch.
	Known bool
}

// Stale reports whether the snapshot carries a refresh error.
func (s BalanceSnapshot) Stale() bool {
	return s.Err != nil
}
