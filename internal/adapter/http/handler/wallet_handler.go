package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/adapter/http/dto"
	"github.com/iho/blockpay/internal/domain"
)

// WalletHandler handles wallet and session endpoints.
type WalletHandler struct {
	directory  Directory
	registries Registries
	logger     zerolog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(directory Directory, registries Registries, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		directory:  directory,
		registries: registries,
		logger:     logger.With().Str("handler", "wallets").Logger(),
	}
}

// List returns the signed-in user's wallets and the active selection.
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	reg, err := h.registries.For(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, "failed to load wallets", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletsFromDomain(reg.State(), reg.Session(), reg.Wallets()))
}

// Link registers a username for an address owned by the user.
func (h *WalletHandler) Link(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.LinkWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wallet, err := h.directory.LinkWallet(r.Context(), req.ToUseCaseInput(user.UserID))
	if err != nil {
		writeDomainError(w, "failed to link wallet", err)
		return
	}

	activeID := h.reload(r, user.UserID)
	writeJSON(w, http.StatusCreated, dto.WalletFromDomain(wallet, activeID))
}

// Unlink removes one of the user's wallets.
func (h *WalletHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing wallet ID", "")
		return
	}

	if err := h.directory.UnlinkWallet(r.Context(), user.UserID, id); err != nil {
		writeDomainError(w, "failed to unlink wallet", err)
		return
	}

	h.reload(r, user.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// Available reports whether ?username= is free.
func (h *WalletHandler) Available(w http.ResponseWriter, r *http.Request) {
	name := domain.NormalizeUsername(r.URL.Query().Get("username"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing username", "")
		return
	}

	available, err := h.directory.IsUsernameAvailable(r.Context(), name)
	if err != nil {
		writeDomainError(w, "failed to check username", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AvailabilityResponse{Username: name, Available: available})
}

// SelectActive changes the active wallet.
func (h *WalletHandler) SelectActive(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.SelectWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.registries.For(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, "failed to load wallets", err)
		return
	}

	selected, err := reg.SelectActive(r.Context(), req.WalletID)
	if err != nil {
		writeDomainError(w, "failed to select wallet", err)
		return
	}
	if !selected {
		writeError(w, http.StatusNotFound, "wallet not found", domain.ErrWalletNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletsFromDomain(reg.State(), reg.Session(), reg.Wallets()))
}

// reload refreshes the cached registry after the wallet set changed and
// returns the active wallet id. On failure the cached registry is dropped
// so the next request loads it from storage, and "" is returned.
func (h *WalletHandler) reload(r *http.Request, userID string) string {
	reg, err := h.registries.For(r.Context(), userID)
	if err == nil {
		_, err = reg.Load(r.Context(), userID, nil)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to reload wallet registry")
		h.registries.Drop(userID)
		return ""
	}
	return reg.Session().ActiveWalletID
}
