package handler

import (
	"net/http"

	"github.com/iho/blockpay/internal/adapter/http/dto"
)

// BalanceHandler serves the active wallet's balance.
type BalanceHandler struct {
	registries Registries
	balances   Balances
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(registries Registries, balances Balances) *BalanceHandler {
	return &BalanceHandler{registries: registries, balances: balances}
}

// Get refreshes and returns the active wallet's balance. A failed refresh
// still answers 200 with the previous amount marked stale.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	reg, err := h.registries.For(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, "failed to load wallets", err)
		return
	}

	snap, err := h.balances.RefreshActive(r.Context(), reg, nil)
	if err != nil {
		writeDomainError(w, "failed to refresh balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(snap))
}
