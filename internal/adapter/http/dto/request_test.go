package dto

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
)

func TestLinkWalletRequest_ToUseCaseInput(t *testing.T) {
	req := &LinkWalletRequest{Username: "alice", Address: "0x1111111111111111111111111111111111111111"}

	got := req.ToUseCaseInput("user-a")
	want := usecase.LinkWalletInput{
		OwnerUserID: "user-a",
		Username:    "alice",
		Address:     "0x1111111111111111111111111111111111111111",
	}

	if got != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", got, want)
	}
}

func TestTransferRequest_Intent(t *testing.T) {
	req := &TransferRequest{SenderWalletID: "w-1", Recipient: "@bob", Amount: " 0.5 ", Password: "pw"}

	got := req.Intent()
	if got.SenderWalletID != "w-1" || got.RecipientUsername != "@bob" || got.Amount != " 0.5 " {
		t.Fatalf("unexpected intent %+v", got)
	}
}

func TestParseLedgerFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(t *testing.T, f domain.LedgerFilter)
	}{
		{
			name:  "empty",
			query: "",
			check: func(t *testing.T, f domain.LedgerFilter) {
				if f.Direction != "" || f.Date != nil || f.Limit != 0 {
					t.Fatalf("expected zero filter, got %+v", f)
				}
			},
		},
		{
			name:  "all fields",
			query: "direction=SENT&wallet=alice&date=2024-03-01&amount=0.5&order=oldest&limit=10",
			check: func(t *testing.T, f domain.LedgerFilter) {
				if f.Direction != domain.DirectionSent || f.WalletLabel != "alice" || f.AmountContains != "0.5" {
					t.Fatalf("unexpected filter %+v", f)
				}
				if f.Order != domain.SortOldest || f.Limit != 10 {
					t.Fatalf("unexpected order/limit %+v", f)
				}
				if f.Date == nil || !f.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
					t.Fatalf("unexpected date %v", f.Date)
				}
			},
		},
		{name: "bad direction", query: "direction=sideways", wantErr: true},
		{name: "bad date", query: "date=03/01/2024", wantErr: true},
		{name: "bad order", query: "order=random", wantErr: true},
		{name: "bad limit", query: "limit=-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}

			f, err := ParseLedgerFilter(q)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, f)
		})
	}
}
