package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/blockpay/internal/domain"
)

// UserRepository stores account holders. Emails arrive lower-cased from
// the use case and are unique.
type UserRepository struct {
	db querier
}

func NewUserRepository(db querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, hashed_password, active, created_at, updated_at`

// Create inserts user, returning ErrUserExists when the email is taken.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING`,
		user.ID, user.Email, user.Name, user.HashedPassword,
		user.Active, user.CreatedAt, user.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		// Primary key clash on a freshly generated ID.
		return domain.ErrUserExists
	case err != nil:
		return fmt.Errorf("insert user: %w", err)
	case tag.RowsAffected() == 0:
		return domain.ErrUserExists
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)

	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.HashedPassword, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}
