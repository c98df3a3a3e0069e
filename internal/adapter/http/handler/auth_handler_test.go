package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/blockpay/internal/adapter/http/dto"
	"github.com/iho/blockpay/internal/infrastructure/auth"
	"github.com/iho/blockpay/internal/usecase"
	"github.com/iho/blockpay/internal/usecase/mocks"
)

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	users := usecase.NewUserUseCase(mocks.NewMockUserRepository(), mocks.NewMockIDGenerator())
	jwtManager := auth.NewJWTManager("test-secret", time.Minute)
	h := NewAuthHandler(users, jwtManager)

	rec := httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email: "alice@example.com", Name: "Alice", Password: "correct-horse",
	}, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email: "alice@example.com", Name: "Alice", Password: "correct-horse",
	}, nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected duplicate registration to conflict, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "alice@example.com", Password: "wrong"}, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeBody[dto.AuthResponse](t, rec)
	claims, err := jwtManager.Verify(resp.Token)
	if err != nil || claims.UserID != resp.User.ID {
		t.Fatalf("expected a valid token for the user, err=%v", err)
	}
}
