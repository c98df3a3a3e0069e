package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/blockpay/internal/domain"
)

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	db querier
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db querier) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = `id, owner_user_id, username, address, created_at`

// Create inserts a wallet. A duplicate username maps to ErrUsernameTaken.
func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, owner_user_id, username, address, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		wallet.ID,
		wallet.OwnerUserID,
		wallet.Username,
		wallet.Address,
		wallet.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}

	return err
}

// GetByID retrieves a wallet by ID.
func (r *WalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.db.QueryRow(ctx, query, id))
}

// GetByUsername retrieves a wallet by its exact username.
func (r *WalletRepository) GetByUsername(ctx context.Context, username string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE username = $1`
	return scanWallet(r.db.QueryRow(ctx, query, username))
}

// ListByOwner lists a user's wallets, oldest first.
func (r *WalletRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE owner_user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.ID, &w.OwnerUserID, &w.Username, &w.Address, &w.CreatedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, &w)
	}

	return wallets, rows.Err()
}

// Delete removes a wallet. Ledger rows are not touched.
func (r *WalletRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.OwnerUserID, &w.Username, &w.Address, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
