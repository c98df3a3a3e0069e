package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/adapter/identity"
	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
	"github.com/iho/blockpay/internal/usecase/mocks"
)

const (
	aliceAddr = "0x52908400098527886E0F7030069857D2E4169EE7"
	bobAddr   = "0xde709f2102306220921060314715629080e2fb77"
)

var alice = &domain.Identity{UserID: "user-a", Email: "alice@example.com"}

type walletFixture struct {
	repo       *mocks.MockWalletRepository
	directory  *usecase.DirectoryUseCase
	registries *usecase.RegistrySet
}

func newWalletFixture(wallets ...*domain.Wallet) *walletFixture {
	repo := mocks.NewMockWalletRepository(wallets...)
	directory := usecase.NewDirectoryUseCase(repo, mocks.NewMockIDGenerator(), nil, zerolog.Nop(), nil)
	return &walletFixture{
		repo:       repo,
		directory:  directory,
		registries: usecase.NewRegistrySet(directory, mocks.NewMockSessionStore(), zerolog.Nop()),
	}
}

func aliceWallet() *domain.Wallet {
	return &domain.Wallet{ID: "w-alice", OwnerUserID: "user-a", Username: "alice", Address: aliceAddr, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func bobWallet() *domain.Wallet {
	return &domain.Wallet{ID: "w-bob", OwnerUserID: "user-b", Username: "bob", Address: bobAddr, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// newRequest builds a request signed in as id (nil for anonymous).
func newRequest(t *testing.T, method, target string, body any, id *domain.Identity) *http.Request {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, r)
	if id != nil {
		req = req.WithContext(identity.WithIdentity(req.Context(), id))
	}
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
