package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
	"github.com/iho/blockpay/internal/usecase/mocks"
)

func newLedger(repo *mocks.MockLedgerRepository, txm usecase.TransactionManager, balances *usecase.BalanceSync) *usecase.LedgerUseCase {
	return usecase.NewLedgerUseCase(txm, repo, mocks.NewMockIDGenerator(), balances, testLogger(), nil)
}

func TestLedger_RecordTransferWritesPair(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()
	ledger := newLedger(repo, mocks.NewMockTransactionManager(), nil)

	entries, err := ledger.RecordTransfer(context.Background(), domain.TransferRecord{
		TxReference: "0xabc",
		Sender:      *aliceWallet(),
		Recipient:   *bobWallet(),
		Amount:      "0.5",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	sent, received := entries[0], entries[1]
	assert.Equal(t, "-0.5", sent.Amount)
	assert.Equal(t, "0.5", received.Amount)
	assert.Equal(t, sent.TxReference, received.TxReference)
	assert.Equal(t, sent.Timestamp, received.Timestamp)
	assert.Equal(t, "user-a", sent.OwnerUserID)
	assert.Equal(t, "user-b", received.OwnerUserID)
	assert.True(t, sent.Succeeded && received.Succeeded)
	assert.NotEqual(t, sent.ID, received.ID)
}

func TestLedger_RecordTransferIsAtomic(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()
	calls := 0
	repo.CreateFunc = func(context.Context, usecase.Transaction, *domain.LedgerEntry) error {
		calls++
		if calls == 2 {
			return errors.New("write failed")
		}
		return nil
	}

	committed, rolledBack := false, false
	txm := mocks.NewMockTransactionManager()
	txm.BeginFunc = func(context.Context) (usecase.Transaction, error) {
		return &mocks.MockTransaction{
			CommitFunc:   func(context.Context) error { committed = true; return nil },
			RollbackFunc: func(context.Context) error { rolledBack = true; return nil },
		}, nil
	}

	_, err := newLedger(repo, txm, nil).RecordTransfer(context.Background(), domain.TransferRecord{
		TxReference: "0xabc", Sender: *aliceWallet(), Recipient: *bobWallet(), Amount: "1",
	})
	require.Error(t, err)
	assert.False(t, committed, "transaction must not commit when one side fails")
	assert.True(t, rolledBack)
}

type retryTwice struct{ attempts int }

func (r *retryTwice) Retry(_ context.Context, op func() error) error {
	var err error
	for r.attempts < 2 {
		r.attempts++
		if err = op(); err == nil {
			return nil
		}
	}
	return err
}

func TestLedger_RetrierRerunsWholeTransaction(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()
	calls := 0
	repo.CreateFunc = func(context.Context, usecase.Transaction, *domain.LedgerEntry) error {
		calls++
		if calls == 2 {
			return errors.New("deadlock detected")
		}
		return nil
	}

	begins := 0
	txm := mocks.NewMockTransactionManager()
	txm.BeginFunc = func(context.Context) (usecase.Transaction, error) {
		begins++
		return &mocks.MockTransaction{}, nil
	}

	r := &retryTwice{}
	_, err := newLedger(repo, txm, nil).WithRetrier(r).RecordTransfer(context.Background(), domain.TransferRecord{
		TxReference: "0xabc", Sender: *aliceWallet(), Recipient: *bobWallet(), Amount: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.attempts)
	assert.Equal(t, 2, begins)
	assert.Equal(t, 4, calls)
}

func TestLedger_RecordFailure(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()

	entry, err := newLedger(repo, mocks.NewMockTransactionManager(), nil).RecordFailure(context.Background(), domain.TransferRecord{
		TxReference: "0xdead", Sender: *aliceWallet(), Recipient: *bobWallet(), Amount: "2",
	})
	require.NoError(t, err)
	assert.False(t, entry.Succeeded)
	assert.Equal(t, domain.DirectionSent, entry.Direction)
	assert.Equal(t, "-2", entry.Amount)
	assert.Len(t, repo.Entries(), 1)
}

func TestLedger_AppendValidation(t *testing.T) {
	ledger := newLedger(mocks.NewMockLedgerRepository(), mocks.NewMockTransactionManager(), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry domain.LedgerEntry
	}{
		{name: "missing tx reference", entry: domain.LedgerEntry{OwnerUserID: "u", Direction: domain.DirectionSent, Amount: "-1"}},
		{name: "missing owner", entry: domain.LedgerEntry{TxReference: "0x1", Direction: domain.DirectionSent, Amount: "-1"}},
		{name: "unknown direction", entry: domain.LedgerEntry{OwnerUserID: "u", TxReference: "0x1", Direction: "sideways", Amount: "1"}},
		{name: "positive sent", entry: domain.LedgerEntry{OwnerUserID: "u", TxReference: "0x1", Direction: domain.DirectionSent, Amount: "1"}},
		{name: "negative received", entry: domain.LedgerEntry{OwnerUserID: "u", TxReference: "0x1", Direction: domain.DirectionReceived, Amount: "-1"}},
		{name: "bad amount", entry: domain.LedgerEntry{OwnerUserID: "u", TxReference: "0x1", Direction: domain.DirectionReceived, Amount: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tt.entry
			err := ledger.Append(ctx, &entry)
			assert.ErrorIs(t, err, usecase.ErrInvalidLedgerEntry)
		})
	}

	ok := &domain.LedgerEntry{OwnerUserID: "u", TxReference: "0x1", Direction: domain.DirectionReceived, Amount: "1"}
	require.NoError(t, ledger.Append(ctx, ok))
	assert.NotEmpty(t, ok.ID)
	assert.False(t, ok.Timestamp.IsZero())
}

func TestLedger_Query(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()
	ledger := newLedger(repo, mocks.NewMockTransactionManager(), nil)
	ctx := context.Background()

	day1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	seed := []*domain.LedgerEntry{
		{OwnerUserID: "user-a", Direction: domain.DirectionSent, WalletLabel: "@alice", CounterpartyLabel: "@bob", Amount: "-0.5", Timestamp: day1, TxReference: "0x1", Succeeded: true},
		{OwnerUserID: "user-a", Direction: domain.DirectionReceived, WalletLabel: "@alice.savings", CounterpartyLabel: "@bob", Amount: "1.75", Timestamp: day2, TxReference: "0x2", Succeeded: true},
		{OwnerUserID: "user-a", Direction: domain.DirectionSent, WalletLabel: "@alice.savings", CounterpartyLabel: "@bob", Amount: "-3", Timestamp: day2.Add(time.Hour), TxReference: "0x3", Succeeded: true},
		{OwnerUserID: "user-b", Direction: domain.DirectionReceived, WalletLabel: "@bob", CounterpartyLabel: "@alice", Amount: "0.5", Timestamp: day1, TxReference: "0x1", Succeeded: true},
	}
	for _, e := range seed {
		require.NoError(t, ledger.Append(ctx, e))
	}

	all, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "0x3", all[0].TxReference, "newest first by default")

	oldest, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{Order: domain.SortOldest})
	require.NoError(t, err)
	assert.Equal(t, "0x1", oldest[0].TxReference)

	received, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{Direction: domain.DirectionReceived})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "0x2", received[0].TxReference)

	byWallet, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{WalletLabel: "alice.savings"})
	require.NoError(t, err)
	assert.Len(t, byWallet, 2)

	byDate, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{Date: &day1})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "0x1", byDate[0].TxReference)

	byAmount, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{AmountContains: "75"})
	require.NoError(t, err)
	require.Len(t, byAmount, 1)

	limited, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = ledger.Query(ctx, "user-a", domain.LedgerFilter{Direction: "up"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ledger.Query(ctx, "", domain.LedgerFilter{})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestLedger_QueryOldestFirstKeepsRecentWindow(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()
	ledger := newLedger(repo, mocks.NewMockTransactionManager(), nil)
	ctx := context.Background()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, ref := range []string{"0x1", "0x2", "0x3"} {
		require.NoError(t, ledger.Append(ctx, &domain.LedgerEntry{
			OwnerUserID: "user-a", Direction: domain.DirectionSent, WalletLabel: "@alice", CounterpartyLabel: "@bob",
			Amount: "-1", Timestamp: start.Add(time.Duration(i) * time.Hour), TxReference: ref, Succeeded: true,
		}))
	}

	window, err := ledger.Query(ctx, "user-a", domain.LedgerFilter{Order: domain.SortOldest, Limit: 2})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "0x2", window[0].TxReference)
	assert.Equal(t, "0x3", window[1].TxReference)
}

func TestLedger_RecordTransferTwice(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()
	ledger := newLedger(repo, mocks.NewMockTransactionManager(), nil)
	rec := domain.TransferRecord{
		TxReference: "0xabc", Sender: *aliceWallet(), Recipient: *bobWallet(), Amount: "1",
	}

	_, err := ledger.RecordTransfer(context.Background(), rec)
	require.NoError(t, err)

	_, err = ledger.RecordTransfer(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrEntryExists)
	assert.Len(t, repo.Entries(), 2)
}

func TestLedger_FeedMixesRows(t *testing.T) {
	repo := mocks.NewMockLedgerRepository()
	chain := &scriptedChain{step: func(int) (*big.Int, error) { return ether("4"), nil }}
	balances := usecase.NewBalanceSync(chain, testLogger(), nil)
	ledger := newLedger(repo, mocks.NewMockTransactionManager(), balances)
	ctx := context.Background()

	reg := newRegistry(mocks.NewMockWalletRepository(aliceWallet(), savingsWallet()), mocks.NewMockSessionStore())
	_, err := reg.Load(ctx, "user-a", nil)
	require.NoError(t, err)

	require.NoError(t, ledger.Append(ctx, &domain.LedgerEntry{
		OwnerUserID: "user-a", Direction: domain.DirectionSent, WalletLabel: "@alice", CounterpartyLabel: "@bob",
		Amount: "-1", TxReference: "0x1", Succeeded: true,
	}))

	rows, err := ledger.Feed(ctx, reg, domain.LedgerFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var sawWallet, sawEntry bool
	for _, row := range rows {
		switch r := row.(type) {
		case domain.OtherWalletRow:
			sawWallet = true
			assert.Equal(t, "w-savings", r.Wallet.ID)
			assert.Equal(t, "4", r.Balance.Amount.String())
		case domain.LedgerRow:
			sawEntry = true
			assert.Equal(t, "0x1", r.Entry.TxReference)
		default:
			t.Fatalf("unexpected row %T", row)
		}
	}
	assert.True(t, sawWallet && sawEntry)
}
