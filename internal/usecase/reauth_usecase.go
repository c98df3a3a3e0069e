package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/domain"
)

// ReauthGate re-checks the signed-in user's credential before a transfer.
type ReauthGate struct {
	identity IdentityProvider
	logger   zerolog.Logger
}

// NewReauthGate creates a new ReauthGate.
func NewReauthGate(identity IdentityProvider, logger zerolog.Logger) *ReauthGate {
	return &ReauthGate{
		identity: identity,
		logger:   logger.With().Str("component", "reauth_gate").Logger(),
	}
}

// Challenge returns nil when secret is accepted for the current user and an
// error wrapping domain.ErrAuthRejected otherwise.
func (g *ReauthGate) Challenge(ctx context.Context, secret string) error {
	user, ok := g.identity.CurrentUser(ctx)
	if !ok || user == nil {
		return fmt.Errorf("%w: %w", domain.ErrAuthRejected, domain.ErrNotAuthenticated)
	}

	if secret == "" {
		return fmt.Errorf("%w: empty credential", domain.ErrAuthRejected)
	}

	if err := g.identity.Reauthenticate(ctx, user.Email, secret); err != nil {
		g.logger.Info().Str("user_id", user.UserID).Msg("reauthentication rejected")
		return fmt.Errorf("%w: %w", domain.ErrAuthRejected, err)
	}

	return nil
}
