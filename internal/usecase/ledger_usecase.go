package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
)

var (
	// ErrInvalidLedgerEntry is returned when an entry violates ledger rules.
	ErrInvalidLedgerEntry = errors.New("invalid ledger entry")
)

// LedgerUseCase writes and reads the per-user activity history.
type LedgerUseCase struct {
	txManager  TransactionManager
	ledgerRepo LedgerRepository
	idGen      IDGenerator
	balances   *BalanceSync
	retrier    Retrier
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase. balances is only used by
// Feed and may be nil; m may be nil.
func NewLedgerUseCase(
	txManager TransactionManager,
	ledgerRepo LedgerRepository,
	idGen IDGenerator,
	balances *BalanceSync,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:  txManager,
		ledgerRepo: ledgerRepo,
		idGen:      idGen,
		balances:   balances,
		logger:     logger.With().Str("component", "ledger").Logger(),
		metrics:    m,
	}
}

// WithRetrier makes ledger writes retry the whole transaction on
// transient storage errors.
func (uc *LedgerUseCase) WithRetrier(r Retrier) *LedgerUseCase {
	uc.retrier = r
	return uc
}

// Append writes one immutable entry.
func (uc *LedgerUseCase) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	return uc.write(ctx, entry)
}

// RecordTransfer writes the sent and received entries of a confirmed
// transfer in one transaction. Both carry the same tx reference. If
// either side is already stored nothing is written and the error wraps
// domain.ErrEntryExists.
func (uc *LedgerUseCase) RecordTransfer(ctx context.Context, rec domain.TransferRecord) ([]*domain.LedgerEntry, error) {
	amount, err := decimal.NewFromString(rec.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidLedgerEntry, rec.Amount)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	sent := &domain.LedgerEntry{
		ID:                uc.idGen.Generate(),
		OwnerUserID:       rec.Sender.OwnerUserID,
		Direction:         domain.DirectionSent,
		WalletLabel:       rec.Sender.Label(),
		CounterpartyLabel: rec.Recipient.Label(),
		Amount:            amount.Neg().String(),
		Timestamp:         ts,
		TxReference:       rec.TxReference,
		Succeeded:         true,
	}
	received := &domain.LedgerEntry{
		ID:                uc.idGen.Generate(),
		OwnerUserID:       rec.Recipient.OwnerUserID,
		Direction:         domain.DirectionReceived,
		WalletLabel:       rec.Recipient.Label(),
		CounterpartyLabel: rec.Sender.Label(),
		Amount:            amount.String(),
		Timestamp:         ts,
		TxReference:       rec.TxReference,
		Succeeded:         true,
	}

	if err := uc.write(ctx, sent, received); err != nil {
		return nil, err
	}

	return []*domain.LedgerEntry{sent, received}, nil
}

// RecordFailure writes a single failed sent entry for a transaction that
// was included but did not succeed.
func (uc *LedgerUseCase) RecordFailure(ctx context.Context, rec domain.TransferRecord) (*domain.LedgerEntry, error) {
	amount, err := decimal.NewFromString(rec.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidLedgerEntry, rec.Amount)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	entry := &domain.LedgerEntry{
		ID:                uc.idGen.Generate(),
		OwnerUserID:       rec.Sender.OwnerUserID,
		Direction:         domain.DirectionSent,
		WalletLabel:       rec.Sender.Label(),
		CounterpartyLabel: rec.Recipient.Label(),
		Amount:            amount.Neg().String(),
		Timestamp:         ts,
		TxReference:       rec.TxReference,
		Succeeded:         false,
	}

	if err := uc.write(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Recorded reports whether the sender side of txRef is already in the ledger.
func (uc *LedgerUseCase) Recorded(ctx context.Context, ownerUserID, txRef string) (bool, error) {
	return uc.ledgerRepo.HasEntry(ctx, ownerUserID, txRef)
}

// Query lists userID's entries matching filter within a bounded window.
func (uc *LedgerUseCase) Query(ctx context.Context, userID string, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if filter.Direction != "" && !filter.Direction.IsValid() {
		return nil, fmt.Errorf("%w: unknown direction %q", domain.ErrValidation, filter.Direction)
	}

	return uc.ledgerRepo.ListByOwner(ctx, userID, filter.Normalize())
}

// Feed returns the user's other wallets with their balances followed by
// the ledger rows matching filter.
func (uc *LedgerUseCase) Feed(ctx context.Context, registry *WalletRegistry, filter domain.LedgerFilter) ([]domain.HistoryRow, error) {
	session := registry.Session()

	entries, err := uc.Query(ctx, session.OwnerUserID, filter)
	if err != nil {
		return nil, err
	}

	var rows []domain.HistoryRow
	for _, w := range registry.Wallets() {
		if w.ID == session.ActiveWalletID {
			continue
		}
		row := domain.OtherWalletRow{Wallet: w}
		if uc.balances != nil {
			snap, ok := uc.balances.Snapshot(w.Address)
			if !ok {
				snap = uc.balances.Refresh(ctx, w.Address, nil)
			}
			row.Balance = snap
		}
		rows = append(rows, row)
	}

	for _, e := range entries {
		rows = append(rows, domain.LedgerRow{Entry: e})
	}

	return rows, nil
}

func (uc *LedgerUseCase) write(ctx context.Context, entries ...*domain.LedgerEntry) error {
	for _, e := range entries {
		if err := uc.validate(e); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	if uc.retrier == nil {
		return uc.writeOnce(ctx, entries)
	}
	return uc.retrier.Retry(ctx, func() error {
		return uc.writeOnce(ctx, entries)
	})
}

func (uc *LedgerUseCase) writeOnce(ctx context.Context, entries []*domain.LedgerEntry) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		uc.failed()
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if err := uc.ledgerRepo.Create(ctx, tx, e); err != nil {
			if !errors.Is(err, domain.ErrEntryExists) {
				uc.failed()
			}
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		uc.failed()
		return err
	}

	return nil
}

func (uc *LedgerUseCase) validate(e *domain.LedgerEntry) error {
	if e.OwnerUserID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidLedgerEntry)
	}
	if e.TxReference == "" {
		return fmt.Errorf("%w: tx reference is required", ErrInvalidLedgerEntry)
	}
	if !e.Direction.IsValid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidLedgerEntry, e.Direction)
	}

	amount, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return fmt.Errorf("%w: amount %q", ErrInvalidLedgerEntry, e.Amount)
	}
	if e.Direction == domain.DirectionSent && !amount.IsNegative() {
		return fmt.Errorf("%w: sent amount must be negative", ErrInvalidLedgerEntry)
	}
	if e.Direction == domain.DirectionReceived && !amount.IsPositive() {
		return fmt.Errorf("%w: received amount must be positive", ErrInvalidLedgerEntry)
	}

	if e.ID == "" {
		e.ID = uc.idGen.Generate()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}

func (uc *LedgerUseCase) failed() {
	if uc.metrics != nil {
		uc.metrics.LedgerWriteFailures.Inc()
	}
}
