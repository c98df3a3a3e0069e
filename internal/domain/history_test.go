package domain

import "testing"

func TestHistoryRowKinds(t *testing.T) {
	t.Parallel()

	rows := []HistoryRow{
		LedgerRow{Entry: &LedgerEntry{ID: "e1"}},
		OtherWalletRow{Wallet: &Wallet{ID: "w2", Username: "savings"}},
	}

	var ledger, other int
	for _, row := range rows {
		switch r := row.(type) {
		case LedgerRow:
			ledger++
			if r.Kind() != HistoryRowLedger {
				t.Errorf("unexpected kind %v", r.Kind())
			}
		case OtherWalletRow:
			other++
			if r.Kind() != HistoryRowOtherWallet {
				t.Errorf("unexpected kind %v", r.Kind())
			}
		default:
			t.Fatalf("unexpected row type %T", row)
		}
	}

	if ledger != 1 || other != 1 {
		t.Fatalf("expected one row of each kind, got ledger=%d other=%d", ledger, other)
	}
	if HistoryRowOtherWallet.String() != "other_wallet" {
		t.Fatalf("unexpected kind string %q", HistoryRowOtherWallet.String())
	}
}
