package domain

import "time"

// Event types
const (
	EventTypeTransferConfirmed = "transfer.confirmed"
	EventTypeWalletLinked      = "wallet.linked"
)

// Event is a notification published after a state change. Delivery is
// best-effort.
type Event struct {
	ID        string
	Type      string
	Key       string
	Payload   any
	CreatedAt time.Time
}

// TransferConfirmedEvent payload
type TransferConfirmedEvent struct {
	TxReference       string `json:"tx_reference"`
	SenderUsername    string `json:"sender_username"`
	SenderAddress     string `json:"sender_address"`
	RecipientUsername string `json:"recipient_username"`
	RecipientAddress  string `json:"recipient_address"`
	Amount            string `json:"amount"`
	BlockNumber       uint64 `json:"block_number"`
	ConfirmedAt       string `json:"confirmed_at"`
}

// WalletLinkedEvent payload
type WalletLinkedEvent struct {
	WalletID string `json:"wallet_id"`
	Username string `json:"username"`
	Address  string `json:"address"`
	OwnerID  string `json:"owner_id"`
}
