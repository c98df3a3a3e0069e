package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/domain"
)

// WalletLister lists a user's wallets oldest first.
type WalletLister interface {
	ResolveOwner(ctx context.Context, userID string) ([]*domain.Wallet, error)
}

// WalletRegistry holds one device's wallet set and active selection.
// The selection is persisted through a SessionStore so it survives
// restarts.
type WalletRegistry struct {
	mu      sync.RWMutex
	lister  WalletLister
	store   SessionStore
	logger  zerolog.Logger
	state   domain.RegistryState
	session domain.WalletSession
	wallets []*domain.Wallet
	loadGen uint64
}

// NewWalletRegistry creates an uninitialized registry.
func NewWalletRegistry(lister WalletLister, store SessionStore, logger zerolog.Logger) *WalletRegistry {
	return &WalletRegistry{
		lister: lister,
		store:  store,
		logger: logger.With().Str("component", "wallet_registry").Logger(),
		state:  domain.RegistryUninitialized,
	}
}

// Load fetches userID's wallets and restores the persisted active wallet,
// falling back to the oldest wallet when the persisted one is gone. If
// live is released or a newer Load started meanwhile, the result is
// discarded and the current state returned.
func (r *WalletRegistry) Load(ctx context.Context, userID string, live *Liveness) (domain.RegistryState, error) {
	if userID == "" {
		return r.State(), domain.ErrNotAuthenticated
	}

	r.mu.Lock()
	r.loadGen++
	gen := r.loadGen
	r.mu.Unlock()

	listed, err := r.lister.ResolveOwner(ctx, userID)
	if err != nil {
		return r.State(), err
	}

	wallets := make([]*domain.Wallet, 0, len(listed))
	for _, w := range listed {
		if w.OwnedBy(userID) {
			wallets = append(wallets, w)
		}
	}

	persisted, found, err := r.store.Get(ctx, activeWalletKey(userID))
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("could not read persisted wallet selection")
		found = false
	}

	active := ""
	if found {
		for _, w := range wallets {
			if w.ID == persisted {
				active = w.ID
				break
			}
		}
	}
	if active == "" && len(wallets) > 0 {
		active = wallets[0].ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !live.Alive() || gen != r.loadGen {
		r.logger.Debug().Str("user_id", userID).Msg("discarding superseded wallet load")
		return r.state, nil
	}

	r.wallets = wallets
	r.session = domain.WalletSession{OwnerUserID: userID, ActiveWalletID: active}
	if len(wallets) == 0 {
		r.state = domain.RegistryEmpty
	} else {
		r.state = domain.RegistryLoaded
	}

	return r.state, nil
}

// SelectActive makes walletID the active wallet and persists the choice.
// It returns false without side effects if walletID is not loaded.
func (r *WalletRegistry) SelectActive(ctx context.Context, walletID string) (bool, error) {
	r.mu.Lock()
	if r.state != domain.RegistryLoaded || r.find(walletID) == nil {
		r.mu.Unlock()
		return false, nil
	}
	r.session.ActiveWalletID = walletID
	userID := r.session.OwnerUserID
	r.mu.Unlock()

	if err := r.store.Set(ctx, activeWalletKey(userID), walletID); err != nil {
		return true, fmt.Errorf("persist active wallet: %w", err)
	}

	r.logger.Debug().Str("user_id", userID).Str("wallet_id", walletID).Msg("active wallet selected")
	return true, nil
}

// ActiveWallet returns the currently selected wallet.
func (r *WalletRegistry) ActiveWallet() (*domain.Wallet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w := r.find(r.session.ActiveWalletID)
	if w == nil {
		return nil, false
	}
	cp := *w
	return &cp, true
}

// Wallets returns a copy of the loaded wallet set.
func (r *WalletRegistry) Wallets() []*domain.Wallet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Wallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		cp := *w
		out = append(out, &cp)
	}
	return out
}

// State returns the registry's lifecycle state.
func (r *WalletRegistry) State() domain.RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Session returns a copy of the current session.
func (r *WalletRegistry) Session() domain.WalletSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// SignOut tears the session down. The persisted selection is kept for the
// next sign-in.
func (r *WalletRegistry) SignOut() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loadGen++
	r.wallets = nil
	r.session = domain.WalletSession{}
	r.state = domain.RegistryUninitialized
}

func (r *WalletRegistry) find(walletID string) *domain.Wallet {
	if walletID == "" {
		return nil
	}
	for _, w := range r.wallets {
		if w.ID == walletID {
			return w
		}
	}
	return nil
}

// RegistrySet keeps one WalletRegistry per user for servers that host
// several sessions.
type RegistrySet struct {
	mu         sync.Mutex
	lister     WalletLister
	store      SessionStore
	logger     zerolog.Logger
	registries map[string]*WalletRegistry
}

// NewRegistrySet creates an empty RegistrySet.
func NewRegistrySet(lister WalletLister, store SessionStore, logger zerolog.Logger) *RegistrySet {
	return &RegistrySet{
		lister:     lister,
		store:      store,
		logger:     logger,
		registries: make(map[string]*WalletRegistry),
	}
}

// For returns userID's registry, loading it on first use.
func (s *RegistrySet) For(ctx context.Context, userID string) (*WalletRegistry, error) {
	s.mu.Lock()
	reg, ok := s.registries[userID]
	if !ok {
		reg = NewWalletRegistry(s.lister, s.store, s.logger)
		s.registries[userID] = reg
	}
	s.mu.Unlock()

	if reg.State() == domain.RegistryUninitialized {
		if _, err := reg.Load(ctx, userID, nil); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Drop signs userID out and forgets the registry.
func (s *RegistrySet) Drop(userID string) {
	s.mu.Lock()
	reg, ok := s.registries[userID]
	delete(s.registries, userID)
	s.mu.Unlock()

	if ok {
		reg.SignOut()
	}
}
