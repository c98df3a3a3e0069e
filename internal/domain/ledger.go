package domain

import (
	"fmt"
	"strings"
	"time"
)

// Direction of a ledger entry relative to its owner.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == DirectionSent || d == DirectionReceived
}

// LedgerEntry is one user-facing history record. Entries are append-only
// and never reference each other; the two sides of a transfer share only
// TxReference.
type LedgerEntry struct {
	ID          string
	OwnerUserID string
	Direction   Direction
	// WalletLabel is the owner's wallet involved, e.g. "@alice".
	WalletLabel string
	// CounterpartyLabel is the other side, e.g. "@bob".
	CounterpartyLabel string
	// Amount is a signed decimal string: negative for sent, positive for received.
	Amount      string
	Timestamp   time.Time
	TxReference string
	Succeeded   bool
}

// Description renders the entry the way history lists show it.
func (e *LedgerEntry) Description() string {
	amount := strings.TrimPrefix(e.Amount, "-")
	switch e.Direction {
	case DirectionSent:
		desc := fmt.Sprintf("Sent %s %s from %s to %s", amount, NativeSymbol, e.WalletLabel, e.CounterpartyLabel)
		if !e.Succeeded {
			desc += " (failed)"
		}
		return desc
	default:
		return fmt.Sprintf("Received %s %s from %s to %s", amount, NativeSymbol, e.CounterpartyLabel, e.WalletLabel)
	}
}

// SortOrder of ledger query results by timestamp.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// Ledger query window bounds.
const (
	DefaultLedgerLimit = 50
	MaxLedgerLimit     = 200
)

// LedgerFilter narrows a ledger query. Zero values match everything.
type LedgerFilter struct {
	Direction      Direction
	WalletLabel    string
	Date           *time.Time
	AmountContains string
	Order          SortOrder
	Limit          int
}

// Normalize fills defaults and clamps the window.
func (f LedgerFilter) Normalize() LedgerFilter {
	if f.Order != SortOldest {
		f.Order = SortNewest
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLedgerLimit
	}
	if f.Limit > MaxLedgerLimit {
		f.Limit = MaxLedgerLimit
	}
	f.AmountContains = strings.TrimSpace(f.AmountContains)
	f.WalletLabel = strings.TrimSpace(f.WalletLabel)
	if f.WalletLabel != "" && !strings.HasPrefix(f.WalletLabel, "@") {
		f.WalletLabel = "@" + f.WalletLabel
	}
	return f
}

// Matches reports whether e passes every predicate except the window.
func (f LedgerFilter) Matches(e *LedgerEntry) bool {
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.WalletLabel != "" && e.WalletLabel != f.WalletLabel {
		return false
	}
	if f.Date != nil && !SameUTCDay(e.Timestamp, *f.Date) {
		return false
	}
	if f.AmountContains != "" && !strings.Contains(e.Amount, f.AmountContains) {
		return false
	}
	return true
}

// SameUTCDay reports whether a and b fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// TransferRecord is the input for writing both sides of a confirmed transfer.
type TransferRecord struct {
	TxReference string
	Sender      Wallet
	Recipient   Wallet
	Amount      string
	Timestamp   time.Time
}
