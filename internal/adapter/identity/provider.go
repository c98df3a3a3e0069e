// Package identity exposes the signed-in user carried on a request context.
package identity

import (
	"context"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
)

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*domain.Identity)
	return id, ok && id != nil
}

// Authenticator checks a user's password.
type Authenticator interface {
	Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error)
}

// Provider implements usecase.IdentityProvider.
type Provider struct {
	users Authenticator
}

// NewProvider creates a Provider that verifies credentials with users.
func NewProvider(users Authenticator) *Provider {
	return &Provider{users: users}
}

// CurrentUser returns the identity attached to ctx.
func (p *Provider) CurrentUser(ctx context.Context) (*domain.Identity, bool) {
	return FromContext(ctx)
}

// Reauthenticate re-checks secret for email. The account must also be the
// one signed in on ctx.
func (p *Provider) Reauthenticate(ctx context.Context, email, secret string) error {
	current, ok := FromContext(ctx)
	if !ok {
		return domain.ErrNotAuthenticated
	}

	user, err := p.users.Authenticate(ctx, usecase.AuthenticateInput{Email: email, Password: secret})
	if err != nil {
		return err
	}
	if user.ID != current.UserID {
		return domain.ErrInvalidCredentials
	}

	return nil
}
