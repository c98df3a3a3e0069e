package handler

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/adapter/http/dto"
	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
)

type chainStub struct {
	balance *big.Int
	err     error
}

func (c *chainStub) BalanceAt(context.Context, string) (*big.Int, error) {
	return c.balance, c.err
}

func (c *chainStub) AwaitConfirmation(context.Context, string) (*domain.Receipt, error) {
	return nil, errors.New("not used")
}

func TestBalanceHandler_Get(t *testing.T) {
	f := newWalletFixture(aliceWallet())
	chain := &chainStub{balance: big.NewInt(2_000_000_000_000_000_000)}
	balances := usecase.NewBalanceSync(chain, zerolog.Nop(), nil)
	h := NewBalanceHandler(f.registries, balances)

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(t, http.MethodGet, "/balance", nil, alice))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody[dto.BalanceResponse](t, rec); got.Amount != "2" || got.Stale {
		t.Fatalf("unexpected balance %+v", got)
	}

	chain.err = errors.New("rpc down")
	rec = httptest.NewRecorder()
	h.Get(rec, newRequest(t, http.MethodGet, "/balance", nil, alice))
	got := decodeBody[dto.BalanceResponse](t, rec)
	if !got.Stale || got.Amount != "2" {
		t.Fatalf("expected stale previous amount, got %+v", got)
	}
}

func TestBalanceHandler_NoActiveWallet(t *testing.T) {
	f := newWalletFixture()
	balances := usecase.NewBalanceSync(&chainStub{}, zerolog.Nop(), nil)
	h := NewBalanceHandler(f.registries, balances)

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(t, http.MethodGet, "/balance", nil, alice))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
