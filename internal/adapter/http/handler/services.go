package handler

import (
	"context"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
)

// Directory manages username registrations.
type Directory interface {
	IsUsernameAvailable(ctx context.Context, name string) (bool, error)
	LinkWallet(ctx context.Context, input usecase.LinkWalletInput) (*domain.Wallet, error)
	UnlinkWallet(ctx context.Context, userID, walletID string) error
}

// Registries hands out the per-user wallet registry.
type Registries interface {
	For(ctx context.Context, userID string) (*usecase.WalletRegistry, error)
	// Drop forgets the cached registry so the next For reloads it.
	Drop(userID string)
}

// Balances refreshes on-chain balances.
type Balances interface {
	RefreshActive(ctx context.Context, registry *usecase.WalletRegistry, live *usecase.Liveness) (domain.BalanceSnapshot, error)
}

// Transfers runs payments.
type Transfers interface {
	Transfer(ctx context.Context, in usecase.TransferInput) (*domain.TransferOutcome, error)
	ReconcileReference(ctx context.Context, registry *usecase.WalletRegistry, txRef string) (*domain.TransferOutcome, error)
}

// History reads the activity ledger.
type History interface {
	Query(ctx context.Context, userID string, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error)
	Feed(ctx context.Context, registry *usecase.WalletRegistry, filter domain.LedgerFilter) ([]domain.HistoryRow, error)
}

// Users registers and authenticates accounts.
type Users interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error)
}

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	Generate(user *domain.User) (string, error)
}
