package domain

import (
	"time"
)

// Wallet links a chain address to a globally unique username. A wallet is
// owned by exactly one user identity.
type Wallet struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	Username    string    `json:"username"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
}

// Label returns the display form of the username, e.g. "@alice".
func (w *Wallet) Label() string {
	return "@" + w.Username
}

// OwnedBy reports whether the wallet belongs to userID.
func (w *Wallet) OwnedBy(userID string) bool {
	return userID != "" && w.OwnerUserID == userID
}

// WalletSession is the per-device wallet selection of a signed-in user.
// It is passed explicitly to the components that need it.
type WalletSession struct {
	OwnerUserID    string
	ActiveWalletID string
}

// HasActive reports whether a wallet is selected.
func (s WalletSession) HasActive() bool {
	return s.ActiveWalletID != ""
}

// RegistryState is the lifecycle state of a wallet registry.
type RegistryState string

const (
	RegistryUninitialized RegistryState = "uninitialized"
	RegistryLoaded        RegistryState = "loaded"
	RegistryEmpty         RegistryState = "empty"
)
