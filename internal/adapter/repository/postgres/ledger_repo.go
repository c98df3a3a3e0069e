package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db querier) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, owner_user_id, direction, wallet_label, counterparty_label, amount, created_at, tx_reference, succeeded`

// Create inserts an entry inside tx. A second entry for the same owner,
// tx reference and direction fails with domain.ErrEntryExists.
func (r *LedgerRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := inTx(tx, r.db).Exec(ctx, query,
		entry.ID,
		entry.OwnerUserID,
		string(entry.Direction),
		entry.WalletLabel,
		entry.CounterpartyLabel,
		entry.Amount,
		entry.Timestamp,
		entry.TxReference,
		entry.Succeeded,
	)
	if isUniqueViolation(err) {
		return domain.ErrEntryExists
	}

	return err
}

// ListByOwner returns entries matching filter. filter must be normalized.
func (r *LedgerRepository) ListByOwner(ctx context.Context, ownerUserID string, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	query, args := buildLedgerQuery(ownerUserID, filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			direction string
		)
		err := rows.Scan(
			&e.ID,
			&e.OwnerUserID,
			&direction,
			&e.WalletLabel,
			&e.CounterpartyLabel,
			&e.Amount,
			&e.Timestamp,
			&e.TxReference,
			&e.Succeeded,
		)
		if err != nil {
			return nil, err
		}
		e.Direction = domain.Direction(direction)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// HasEntry reports whether ownerUserID has any entry for txRef.
func (r *LedgerRepository) HasEntry(ctx context.Context, ownerUserID, txRef string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE owner_user_id = $1 AND tx_reference = $2)`

	var exists bool
	err := r.db.QueryRow(ctx, query, ownerUserID, txRef).Scan(&exists)
	return exists, err
}

func buildLedgerQuery(ownerUserID string, filter domain.LedgerFilter) (string, []any) {
	var sb strings.Builder
	args := []any{ownerUserID}

	sb.WriteString(`SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE owner_user_id = $1`)

	if filter.Direction != "" {
		args = append(args, string(filter.Direction))
		fmt.Fprintf(&sb, " AND direction = $%d", len(args))
	}
	if filter.WalletLabel != "" {
		args = append(args, filter.WalletLabel)
		fmt.Fprintf(&sb, " AND wallet_label = $%d", len(args))
	}
	if filter.Date != nil {
		y, m, d := filter.Date.UTC().Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		args = append(args, start, start.Add(24*time.Hour))
		fmt.Fprintf(&sb, " AND created_at >= $%d AND created_at < $%d", len(args)-1, len(args))
	}
	if filter.AmountContains != "" {
		args = append(args, filter.AmountContains)
		fmt.Fprintf(&sb, " AND strpos(amount, $%d) > 0", len(args))
	}

	// The window is always the most recent entries; oldest-first only
	// changes how that window is presented.
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	args = append(args, filter.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	if filter.Order == domain.SortOldest {
		return `SELECT ` + ledgerColumns + ` FROM (` + sb.String() + `) recent ORDER BY created_at ASC, id ASC`, args
	}
	return sb.String(), args
}
