package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
)

// BalanceSync keeps the last known balance per address. Each refresh gets
// a per-address request id; a completion is applied only if no
// later-started refresh for the same address was applied before it.
type BalanceSync struct {
	chain   ChainClient
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	snapshots map[string]domain.BalanceSnapshot
	started   map[string]uint64
	applied   map[string]uint64
}

// NewBalanceSync creates a new BalanceSync. m may be nil.
func NewBalanceSync(chain ChainClient, logger zerolog.Logger, m *metrics.Metrics) *BalanceSync {
	return &BalanceSync{
		chain:     chain,
		logger:    logger.With().Str("component", "balance_sync").Logger(),
		metrics:   m,
		snapshots: make(map[string]domain.BalanceSnapshot),
		started:   make(map[string]uint64),
		applied:   make(map[string]uint64),
	}
}

// Refresh queries the chain for address and returns the resulting
// snapshot. On failure the previous amount is kept and Err is set. When
// the completion is stale or live was released, the stored snapshot is
// returned unchanged.
func (s *BalanceSync) Refresh(ctx context.Context, address string, live *Liveness) domain.BalanceSnapshot {
	key := strings.ToLower(strings.TrimSpace(address))

	s.mu.Lock()
	s.started[key]++
	id := s.started[key]
	s.mu.Unlock()

	var (
		result domain.BalanceSnapshot
		err    error
	)

	if err = domain.ValidateAddress(address); err == nil {
		balance, fetchErr := s.chain.BalanceAt(ctx, address)
		if fetchErr != nil {
			err = fmt.Errorf("fetch balance: %w", fetchErr)
		} else {
			result = domain.BalanceSnapshot{
				Address: address,
				Amount:  domain.FromWei(balance),
				AsOf:    time.Now().UTC(),
				Known:   true,
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshots[key]
	if !live.Alive() || id <= s.applied[key] {
		s.observe("discarded")
		return current
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("address", address).Msg("balance refresh failed")
		s.observe("error")
		result = current
		result.Address = address
		result.Err = err
	} else {
		s.observe("ok")
	}

	s.applied[key] = id
	s.snapshots[key] = result
	return result
}

// Snapshot returns the stored snapshot for address.
func (s *BalanceSync) Snapshot(address string) (domain.BalanceSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[strings.ToLower(strings.TrimSpace(address))]
	return snap, ok
}

// RefreshActive refreshes the registry's current active wallet.
func (s *BalanceSync) RefreshActive(ctx context.Context, registry *WalletRegistry, live *Liveness) (domain.BalanceSnapshot, error) {
	wallet, ok := registry.ActiveWallet()
	if !ok {
		return domain.BalanceSnapshot{}, domain.ErrNoActiveWallet
	}
	return s.Refresh(ctx, wallet.Address, live), nil
}

func (s *BalanceSync) observe(result string) {
	if s.metrics != nil {
		s.metrics.BalanceRefreshes.WithLabelValues(result).Inc()
	}
}
