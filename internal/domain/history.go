package domain

// HistoryRowKind discriminates HistoryRow variants.
type HistoryRowKind int

const (
	HistoryRowLedger HistoryRowKind = iota + 1
	HistoryRowOtherWallet
)

func (k HistoryRowKind) String() string {
	switch k {
	case HistoryRowLedger:
		return "ledger"
	case HistoryRowOtherWallet:
		return "other_wallet"
	default:
		return "unknown"
	}
}

// HistoryRow is one row of the combined activity feed. The set of
// implementations is closed: LedgerRow and OtherWalletRow.
type HistoryRow interface {
	Kind() HistoryRowKind
	historyRow()
}

// LedgerRow wraps a ledger entry in the feed.
type LedgerRow struct {
	Entry *LedgerEntry
}

func (LedgerRow) Kind() HistoryRowKind { return HistoryRowLedger }
func (LedgerRow) historyRow()          {}

// OtherWalletRow shows the balance of one of the user's non-active wallets.
type OtherWalletRow struct {
	Wallet  *Wallet
	Balance BalanceSnapshot
}

func (OtherWalletRow) Kind() HistoryRowKind { return HistoryRowOtherWallet }
func (OtherWalletRow) historyRow()          {}
