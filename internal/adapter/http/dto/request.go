package dto

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
)

// DateLayout is the format of the history date filter.
const DateLayout = "2006-01-02"

// RegisterRequest represents a sign-up request.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterRequest) ToUseCaseInput() usecase.RegisterInput {
	return usecase.RegisterInput{
		Email:    r.Email,
		Name:     r.Name,
		Password: r.Password,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *LoginRequest) ToUseCaseInput() usecase.AuthenticateInput {
	return usecase.AuthenticateInput{
		Email:    r.Email,
		Password: r.Password,
	}
}

// LinkWalletRequest registers a username for an address.
type LinkWalletRequest struct {
	Username string `json:"username"`
	Address  string `json:"address"`
}

// ToUseCaseInput converts to use case input for ownerUserID.
func (r *LinkWalletRequest) ToUseCaseInput(ownerUserID string) usecase.LinkWalletInput {
	return usecase.LinkWalletInput{
		OwnerUserID: ownerUserID,
		Username:    r.Username,
		Address:     r.Address,
	}
}

// SelectWalletRequest picks the active wallet.
type SelectWalletRequest struct {
	WalletID string `json:"wallet_id"`
}

// TransferRequest starts a payment. SenderWalletID is optional and, when
// set, must name the active wallet.
type TransferRequest struct {
	SenderWalletID string `json:"sender_wallet_id,omitempty"`
	Recipient      string `json:"recipient"`
	Amount         string `json:"amount"`
	Password       string `json:"password"`
}

// Intent converts the request to a transfer intent.
func (r *TransferRequest) Intent() domain.TransferIntent {
	return domain.TransferIntent{
		SenderWalletID:    r.SenderWalletID,
		RecipientUsername: r.Recipient,
		Amount:            r.Amount,
	}
}

// ReconcileRequest asks for a timed-out transfer to be checked again.
type ReconcileRequest struct {
	TxReference string `json:"tx_reference"`
}

// ParseLedgerFilter reads history filters from query parameters:
// direction, wallet, date (YYYY-MM-DD, UTC), amount, order and limit.
func ParseLedgerFilter(q url.Values) (domain.LedgerFilter, error) {
	f := domain.LedgerFilter{
		Direction:      domain.Direction(strings.ToLower(q.Get("direction"))),
		WalletLabel:    q.Get("wallet"),
		AmountContains: strings.TrimSpace(q.Get("amount")),
	}

	if f.Direction != "" && !f.Direction.IsValid() {
		return f, fmt.Errorf("%w: direction must be sent or received", domain.ErrValidation)
	}

	if raw := q.Get("date"); raw != "" {
		day, err := time.Parse(DateLayout, raw)
		if err != nil {
			return f, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
		}
		f.Date = &day
	}

	switch order := domain.SortOrder(strings.ToLower(q.Get("order"))); order {
	case "":
	case domain.SortNewest, domain.SortOldest:
		f.Order = order
	default:
		return f, fmt.Errorf("%w: order must be newest or oldest", domain.ErrValidation)
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrValidation)
		}
		f.Limit = n
	}

	return f, nil
}
