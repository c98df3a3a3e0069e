package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/adapter/http/dto"
	"github.com/iho/blockpay/internal/usecase"
)

// TransferHandler handles payment requests.
type TransferHandler struct {
	registries Registries
	transfers  Transfers
	logger     zerolog.Logger
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(registries Registries, transfers Transfers, logger zerolog.Logger) *TransferHandler {
	return &TransferHandler{
		registries: registries,
		transfers:  transfers,
		logger:     logger,
	}
}

// Create runs a transfer from the active wallet and blocks until it is
// confirmed or fails.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.registries.For(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, "failed to load wallets", err)
		return
	}

	outcome, err := h.transfers.Transfer(r.Context(), usecase.TransferInput{
		Registry: reg,
		Intent:   req.Intent(),
		Secret:   req.Password,
	})
	if err != nil {
		writeDomainError(w, "transfer failed", err)
		return
	}

	if outcome.RecordingWarning != nil {
		h.logger.Warn().Err(outcome.RecordingWarning).Str("tx", outcome.TxReference).Msg("transfer confirmed with recording warning")
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromDomain(outcome))
}

// Reconcile re-checks a transfer whose confirmation timed out.
func (h *TransferHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.ReconcileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TxReference == "" {
		writeError(w, http.StatusBadRequest, "missing tx_reference", "")
		return
	}

	reg, err := h.registries.For(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, "failed to load wallets", err)
		return
	}

	outcome, err := h.transfers.ReconcileReference(r.Context(), reg, req.TxReference)
	if err != nil {
		writeDomainError(w, "reconcile failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(outcome))
}
