package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
)

// DirectoryUseCase maps usernames to chain addresses and owns wallet
// registration.
type DirectoryUseCase struct {
	walletRepo WalletRepository
	idGen      IDGenerator
	publisher  EventPublisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewDirectoryUseCase creates a new DirectoryUseCase. publisher and m may
// be nil.
func NewDirectoryUseCase(
	walletRepo WalletRepository,
	idGen IDGenerator,
	publisher EventPublisher,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *DirectoryUseCase {
	return &DirectoryUseCase{
		walletRepo: walletRepo,
		idGen:      idGen,
		publisher:  publisher,
		logger:     logger.With().Str("component", "directory").Logger(),
		metrics:    m,
	}
}

// IsUsernameAvailable reports whether no wallet uses name. The check is
// not transactional: two concurrent registrations may both see true.
func (uc *DirectoryUseCase) IsUsernameAvailable(ctx context.Context, name string) (bool, error) {
	name = domain.NormalizeUsername(name)
	if err := domain.ValidateUsername(name); err != nil {
		return false, err
	}

	_, err := uc.walletRepo.GetByUsername(ctx, name)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup username: %w", err)
	}

	return false, nil
}

// Resolve returns the chain address registered under username.
// An unknown username yields domain.ErrRecipientNotFound.
func (uc *DirectoryUseCase) Resolve(ctx context.Context, username string) (string, error) {
	wallet, err := uc.ResolveWallet(ctx, username)
	if err != nil {
		return "", err
	}
	return wallet.Address, nil
}

// ResolveWallet returns the full wallet registered under username.
func (uc *DirectoryUseCase) ResolveWallet(ctx context.Context, username string) (*domain.Wallet, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, domain.ErrEmptyRecipient
	}

	wallet, err := uc.walletRepo.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return nil, domain.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", username, err)
	}

	return wallet, nil
}

// ResolveOwner lists every wallet owned by userID, oldest first.
func (uc *DirectoryUseCase) ResolveOwner(ctx context.Context, userID string) ([]*domain.Wallet, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	wallets, err := uc.walletRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	sort.SliceStable(wallets, func(i, j int) bool {
		return wallets[i].CreatedAt.Before(wallets[j].CreatedAt)
	})

	return wallets, nil
}

// LinkWalletInput represents input for registering an address.
type LinkWalletInput struct {
	OwnerUserID string
	Username    string
	Address     string
}

// LinkWallet registers an address under a new username.
func (uc *DirectoryUseCase) LinkWallet(ctx context.Context, input LinkWalletInput) (*domain.Wallet, error) {
	if input.OwnerUserID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	address := strings.TrimSpace(input.Address)
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}

	available, err := uc.IsUsernameAvailable(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, domain.ErrUsernameTaken
	}

	wallet := &domain.Wallet{
		ID:          uc.idGen.Generate(),
		OwnerUserID: input.OwnerUserID,
		Username:    domain.NormalizeUsername(input.Username),
		Address:     address,
		CreatedAt:   time.Now().UTC(),
	}

	if err := uc.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("wallet_id", wallet.ID).
		Str("username", wallet.Username).
		Msg("wallet linked")

	if uc.metrics != nil {
		uc.metrics.WalletsLinked.Inc()
	}

	if uc.publisher != nil {
		event := &domain.Event{
			ID:        uc.idGen.Generate(),
			Type:      domain.EventTypeWalletLinked,
			Key:       wallet.ID,
			CreatedAt: wallet.CreatedAt,
			Payload: domain.WalletLinkedEvent{
				WalletID: wallet.ID,
				Username: wallet.Username,
				Address:  wallet.Address,
				OwnerID:  wallet.OwnerUserID,
			},
		}
		if err := uc.publisher.Publish(ctx, event); err != nil {
			uc.logger.Warn().Err(err).Str("wallet_id", wallet.ID).Msg("failed to publish wallet event")
		}
	}

	return wallet, nil
}

// UnlinkWallet deletes a wallet owned by userID. Ledger entries that
// mention its username are left untouched.
func (uc *DirectoryUseCase) UnlinkWallet(ctx context.Context, userID, walletID string) error {
	wallet, err := uc.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return err
	}

	if !wallet.OwnedBy(userID) {
		return domain.ErrNotWalletOwner
	}

	if err := uc.walletRepo.Delete(ctx, walletID); err != nil {
		return err
	}

	uc.logger.Info().Str("wallet_id", walletID).Msg("wallet unlinked")
	return nil
}
