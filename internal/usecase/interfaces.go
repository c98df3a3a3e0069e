package usecase

import (
	"context"
	"math/big"
	"time"

	"github.com/iho/blockpay/internal/domain"
)

// WalletRepository defines data access for wallets.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByUsername(ctx context.Context, username string) (*domain.Wallet, error)
	// ListByOwner returns the owner's wallets ordered by creation time.
	ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Wallet, error)
	Delete(ctx context.Context, id string) error
}

// LedgerRepository defines data access for ledger entries.
type LedgerRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	// ListByOwner applies the filter. The limit always selects the most
	// recent entries; the order only sorts that window.
	ListByOwner(ctx context.Context, ownerUserID string, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error)
	// HasEntry reports whether ownerUserID already has an entry for txRef.
	HasEntry(ctx context.Context, ownerUserID, txRef string) (bool, error)
}

// UserRepository defines data access for registered users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// IdentityProvider exposes the signed-in user and credential checks.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*domain.Identity, bool)
	Reauthenticate(ctx context.Context, email, secret string) error
}

// ChainClient reads chain state.
type ChainClient interface {
	// BalanceAt returns the latest balance of address in wei.
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
	// AwaitConfirmation blocks until txRef is included in a block or ctx ends.
	AwaitConfirmation(ctx context.Context, txRef string) (*domain.Receipt, error)
}

// Signer submits contract calls on behalf of one address.
type Signer interface {
	Address() string
	SendCall(ctx context.Context, req domain.CallRequest) (string, error)
}

// SignerProvider hands out signers, e.g. a wallet-connection SDK session.
type SignerProvider interface {
	Signer(ctx context.Context, address string) (Signer, error)
}

// SessionStore is a small key-value store that survives restarts.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// InFlightLock marks a key as busy for at most ttl.
type InFlightLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher publishes domain events. Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
