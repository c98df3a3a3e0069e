package usecase_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
	"github.com/iho/blockpay/internal/usecase/mocks"
)

func TestUserUseCase_Register(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	uc := usecase.NewUserUseCase(repo, mocks.NewMockIDGenerator())
	ctx := context.Background()

	user, err := uc.Register(ctx, usecase.RegisterInput{
		Email:    " Alice@Example.com ",
		Name:     "Alice",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.HashedPassword != "" {
		t.Fatal("expected returned user to hide hashed password")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}

	stored, err := repo.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("expected stored user: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("longenough")) != nil {
		t.Fatal("expected bcrypt hash of the password to be stored")
	}

	if _, err := uc.Register(ctx, usecase.RegisterInput{Email: "alice@example.com", Password: "longenough"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserUseCase_RegisterValidation(t *testing.T) {
	t.Parallel()

	uc := usecase.NewUserUseCase(mocks.NewMockUserRepository(), mocks.NewMockIDGenerator())

	if _, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "invalid-email", Password: "longenough"}); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	if _, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "bob@example.com", Password: "short"}); !errors.Is(err, domain.ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
	}
}

func TestUserUseCase_Authenticate(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	uc := usecase.NewUserUseCase(repo, mocks.NewMockIDGenerator())
	ctx := context.Background()

	if _, err := uc.Register(ctx, usecase.RegisterInput{Email: "bob@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, err := uc.Authenticate(ctx, usecase.AuthenticateInput{Email: "BOB@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.HashedPassword != "" {
		t.Fatal("expected hashed password to be hidden")
	}

	if _, err := uc.Authenticate(ctx, usecase.AuthenticateInput{Email: "bob@example.com", Password: "wrong-password"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := uc.Authenticate(ctx, usecase.AuthenticateInput{Email: "nobody@example.com", Password: "longenough"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}
