package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	pgErrSerializationFailure = "40001"
	pgErrDeadlock             = "40P01"
	pgErrLockNotAvailable     = "55P03"
)

// RetryPolicy bounds how a ledger write is re-run.
type RetryPolicy struct {
	Attempts    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	GiveUpAfter time.Duration
}

// DefaultRetryPolicy is used by NewRetrier.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:    4,
	BaseDelay:   50 * time.Millisecond,
	MaxDelay:    time.Second,
	GiveUpAfter: 10 * time.Second,
}

// Retrier re-runs a ledger transaction when Postgres reports a transient
// conflict or the connection failed before anything was sent.
type Retrier struct {
	policy RetryPolicy
	logger zerolog.Logger
}

func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithPolicy(DefaultRetryPolicy, logger)
}

func NewRetrierWithPolicy(p RetryPolicy, logger zerolog.Logger) *Retrier {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	return &Retrier{
		policy: p,
		logger: logger.With().Str("component", "ledger_retrier").Logger(),
	}
}

func (r *Retrier) newBackOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.policy.BaseDelay
	exp.MaxInterval = r.policy.MaxDelay
	exp.MaxElapsedTime = r.policy.GiveUpAfter
	// Attempts counts the first run, WithMaxRetries counts re-runs.
	capped := backoff.WithMaxRetries(exp, uint64(r.policy.Attempts-1))
	return backoff.WithContext(capped, ctx)
}

// Retry runs op until it succeeds, fails permanently or the policy is spent.
// The last error from op is returned unchanged.
func (r *Retrier) Retry(ctx context.Context, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return backoff.Permanent(err)
		case !isRetryableError(err):
			return backoff.Permanent(err)
		}
		return err
	}, r.newBackOff(ctx), func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("pg_code", pgCode(err)).
			Dur("backoff", wait).
			Msg("transient ledger write failure")
	})
}

func isRetryableError(err error) bool {
	switch pgCode(err) {
	case pgErrSerializationFailure, pgErrDeadlock, pgErrLockNotAvailable:
		return true
	}
	return pgconn.SafeToRetry(err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
