package usecase

import (
	"strings"
	"time"
)

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultConfirmationTimeout bounds how long a transfer waits for block inclusion
	DefaultConfirmationTimeout = 2 * time.Minute

	// DefaultTransferLockTTL is how long a per-wallet in-flight marker lives if never released
	DefaultTransferLockTTL = 5 * time.Minute

	// PaymentMethod is the payable contract method that forwards value to a recipient
	PaymentMethod = "sendPayment"

	activeWalletKeyPrefix = "active_wallet:"
	transferLockKeyPrefix = "transfer:"
	pendingKeyPrefix      = "pending_transfer:"
)

func activeWalletKey(userID string) string {
	return activeWalletKeyPrefix + userID
}

func transferLockKey(walletID string) string {
	return transferLockKeyPrefix + walletID
}

func pendingTransferKey(txRef string) string {
	return pendingKeyPrefix + strings.ToLower(txRef)
}
