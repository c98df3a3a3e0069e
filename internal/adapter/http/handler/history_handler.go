package handler

import (
	"net/http"

	"github.com/iho/blockpay/internal/adapter/http/dto"
)

// HistoryHandler serves the activity ledger.
type HistoryHandler struct {
	registries Registries
	history    History
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(registries Registries, history History) *HistoryHandler {
	return &HistoryHandler{registries: registries, history: history}
}

// List returns ledger entries matching the query filters.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter, err := dto.ParseLedgerFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, "invalid filter", err)
		return
	}

	entries, err := h.history.Query(r.Context(), user.UserID, filter)
	if err != nil {
		writeDomainError(w, "failed to list history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerEntriesFromDomain(entries))
}

// Feed returns the other wallets' balances followed by ledger rows.
func (h *HistoryHandler) Feed(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter, err := dto.ParseLedgerFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, "invalid filter", err)
		return
	}

	reg, err := h.registries.For(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, "failed to load wallets", err)
		return
	}

	rows, err := h.history.Feed(r.Context(), reg, filter)
	if err != nil {
		writeDomainError(w, "failed to build feed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoryFromDomain(rows))
}
