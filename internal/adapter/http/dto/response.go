package dto

import (
	"errors"
	"time"

	"github.com/iho/blockpay/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// TransferErrorResponse describes a failed transfer.
type TransferErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	Stage       string `json:"stage"`
	TxReference string `json:"tx_reference,omitempty"`
	Retryable   bool   `json:"retryable"`
	Warning     bool   `json:"warning"`
}

// TransferErrorFromDomain converts a transfer error to a response.
func TransferErrorFromDomain(te *domain.TransferError) *TransferErrorResponse {
	category := "transfer failed"
	if te.Category != nil {
		category = te.Category.Error()
	}
	msg := ""
	if te.Err != nil {
		msg = te.Err.Error()
	}
	return &TransferErrorResponse{
		Error:       category,
		Message:     msg,
		Stage:       te.Stage.String(),
		TxReference: te.TxReference,
		Retryable:   te.Retryable(),
		Warning:     te.Severity() == domain.SeverityWarning,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthResponse carries a session token.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// AuthFromDomain builds an AuthResponse.
func AuthFromDomain(token string, u *domain.User) *AuthResponse {
	return &AuthResponse{
		Token: token,
		User:  UserResponse{ID: u.ID, Email: u.Email, Name: u.Name},
	}
}

// WalletResponse represents a wallet in API responses.
type WalletResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Label     string    `json:"label"`
	Address   string    `json:"address"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletFromDomain converts a wallet to a response.
func WalletFromDomain(w *domain.Wallet, activeID string) *WalletResponse {
	return &WalletResponse{
		ID:        w.ID,
		Username:  w.Username,
		Label:     w.Label(),
		Address:   w.Address,
		Active:    activeID != "" && w.ID == activeID,
		CreatedAt: w.CreatedAt,
	}
}

// WalletsResponse lists a user's wallets.
type WalletsResponse struct {
	State          string            `json:"state"`
	ActiveWalletID string            `json:"active_wallet_id,omitempty"`
	Wallets        []*WalletResponse `json:"wallets"`
}

// WalletsFromDomain converts wallets to a response.
func WalletsFromDomain(state domain.RegistryState, session domain.WalletSession, wallets []*domain.Wallet) *WalletsResponse {
	result := make([]*WalletResponse, len(wallets))
	for i, w := range wallets {
		result[i] = WalletFromDomain(w, session.ActiveWalletID)
	}
	return &WalletsResponse{
		State:          string(state),
		ActiveWalletID: session.ActiveWalletID,
		Wallets:        result,
	}
}

// AvailabilityResponse reports whether a username is free.
type AvailabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// BalanceResponse represents a balance snapshot.
type BalanceResponse struct {
	Address string     `json:"address"`
	Amount  string     `json:"amount"`
	Symbol  string     `json:"symbol"`
	Known   bool       `json:"known"`
	AsOf    *time.Time `json:"as_of,omitempty"`
	Stale   bool       `json:"stale"`
	Error   string     `json:"error,omitempty"`
}

// BalanceFromDomain converts a snapshot to a response.
func BalanceFromDomain(s domain.BalanceSnapshot) *BalanceResponse {
	resp := &BalanceResponse{
		Address: s.Address,
		Amount:  s.Amount.String(),
		Symbol:  domain.NativeSymbol,
		Known:   s.Known,
		Stale:   s.Stale(),
	}
	if !s.AsOf.IsZero() {
		asOf := s.AsOf
		resp.AsOf = &asOf
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

// TransferResponse describes a confirmed transfer.
type TransferResponse struct {
	TxReference string          `json:"tx_reference"`
	Amount      string          `json:"amount"`
	Symbol      string          `json:"symbol"`
	Sender      *WalletResponse `json:"sender"`
	Recipient   *WalletResponse `json:"recipient"`
	BlockNumber uint64          `json:"block_number"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
	Warning     string          `json:"warning,omitempty"`
}

// TransferFromDomain converts a transfer outcome to a response.
func TransferFromDomain(o *domain.TransferOutcome) *TransferResponse {
	resp := &TransferResponse{
		TxReference: o.TxReference,
		Amount:      o.Amount.String(),
		Symbol:      domain.NativeSymbol,
		BlockNumber: o.BlockNumber,
		ConfirmedAt: o.ConfirmedAt,
	}
	if o.Sender != nil {
		resp.Sender = WalletFromDomain(o.Sender, "")
	}
	if o.Recipient != nil {
		resp.Recipient = WalletFromDomain(o.Recipient, "")
	}
	if o.RecordingWarning != nil {
		resp.Warning = domain.ErrRecording.Error()
		var te *domain.TransferError
		if errors.As(o.RecordingWarning, &te) && te.Err != nil {
			resp.Warning += ": " + te.Err.Error()
		}
	}
	return resp
}

// LedgerEntryResponse represents a history entry.
type LedgerEntryResponse struct {
	ID           string    `json:"id"`
	Direction    string    `json:"direction"`
	Wallet       string    `json:"wallet"`
	Counterparty string    `json:"counterparty"`
	Amount       string    `json:"amount"`
	Timestamp    time.Time `json:"timestamp"`
	TxReference  string    `json:"tx_reference"`
	Succeeded    bool      `json:"succeeded"`
	Description  string    `json:"description"`
}

// LedgerEntryFromDomain converts an entry to a response.
func LedgerEntryFromDomain(e *domain.LedgerEntry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		ID:           e.ID,
		Direction:    string(e.Direction),
		Wallet:       e.WalletLabel,
		Counterparty: e.CounterpartyLabel,
		Amount:       e.Amount,
		Timestamp:    e.Timestamp,
		TxReference:  e.TxReference,
		Succeeded:    e.Succeeded,
		Description:  e.Description(),
	}
}

// LedgerEntriesFromDomain converts entries to responses.
func LedgerEntriesFromDomain(entries []*domain.LedgerEntry) []*LedgerEntryResponse {
	result := make([]*LedgerEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = LedgerEntryFromDomain(e)
	}
	return result
}

// HistoryRowResponse is one row of the activity feed. Exactly one of Entry
// and Wallet is set, according to Kind.
type HistoryRowResponse struct {
	Kind    string               `json:"kind"`
	Entry   *LedgerEntryResponse `json:"entry,omitempty"`
	Wallet  *WalletResponse      `json:"wallet,omitempty"`
	Balance *BalanceResponse     `json:"balance,omitempty"`
}

// HistoryFromDomain converts feed rows to responses.
func HistoryFromDomain(rows []domain.HistoryRow) []*HistoryRowResponse {
	result := make([]*HistoryRowResponse, 0, len(rows))
	for _, row := range rows {
		resp := &HistoryRowResponse{Kind: row.Kind().String()}
		switch r := row.(type) {
		case domain.LedgerRow:
			resp.Entry = LedgerEntryFromDomain(r.Entry)
		case domain.OtherWalletRow:
			resp.Wallet = WalletFromDomain(r.Wallet, "")
			resp.Balance = BalanceFromDomain(r.Balance)
		}
		result = append(result, resp)
	}
	return result
}
