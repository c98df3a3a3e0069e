package handler

import (
	"net/http"

	"github.com/iho/blockpay/internal/adapter/http/dto"
	"github.com/iho/blockpay/internal/domain"
)

// AuthHandler handles sign-up and login.
type AuthHandler struct {
	users  Users
	tokens TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users Users, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
	}
}

// Register creates an account and returns a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "registration failed", err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// Login checks credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "invalid credentials", err)
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// Me returns the signed-in identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.UserResponse{ID: user.UserID, Email: user.Email})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *domain.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token", "")
		return
	}

	writeJSON(w, status, dto.AuthFromDomain(token, user))
}
