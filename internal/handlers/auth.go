package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/auth"
	"github.com/leaflens/leaflens-host/internal/authz"
	"github.com/leaflens/leaflens-host/internal/repository"
)

type AuthHandler struct {
	service  *auth.Service
	sessions Sessions
	logger   zerolog.Logger
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string `json:"id_token"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func NewAuthHandler(service *auth.Service, sessions Sessions, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		logger:   logger.With().Str("handler", "auth").Logger(),
	}
}

// authError mirrors the {user, error} shape the screens expect.
func authError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"user": nil, "error": msg})
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			authError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrEmailTaken):
			authError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Msg("sign-up failed")
			authError(w, http.StatusInternalServerError, "Failed to create account")
		}
		return
	}

	h.sessions.Open(r.Context(), res.User.ID, r.UserAgent())
	writeJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidCredentials):
			authError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, repository.ErrUserInactive):
			authError(w, http.StatusForbidden, err.Error())
		default:
			h.logger.Error().Err(err).Msg("sign-in failed")
			authError(w, http.StatusInternalServerError, "Failed to sign in")
		}
		return
	}

	h.sessions.Open(r.Context(), res.User.ID, r.UserAgent())
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) SignInWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.SignInWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrGoogleNotConfigured):
			authError(w, http.StatusNotImplemented, err.Error())
		case errors.Is(err, auth.ErrGoogleTokenInvalid):
			authError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, repository.ErrUserInactive):
			authError(w, http.StatusForbidden, err.Error())
		default:
			h.logger.Error().Err(err).Msg("google sign-in failed")
			authError(w, http.StatusInternalServerError, "Failed to sign in with Google")
		}
		return
	}

	h.sessions.Open(r.Context(), res.User.ID, r.UserAgent())
	writeJSON(w, http.StatusOK, res)
}

// SignOut ends the caller's session. Tokens are stateless; the client drops
// its copy.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if userID, ok := authz.UserIDFromRequest(r); ok {
		h.sessions.Close(userID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "sign in required", http.StatusUnauthorized)
		return
	}
	user, err := h.service.User(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load user")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrInvalidEmail) {
			authError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("password reset request failed")
		authError(w, http.StatusInternalServerError, "Failed to send reset email")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			authError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrResetTokenInvalid), errors.Is(err, repository.ErrNotFound):
			authError(w, http.StatusBadRequest, repository.ErrResetTokenInvalid.Error())
		default:
			h.logger.Error().Err(err).Msg("password reset confirm failed")
			authError(w, http.StatusInternalServerError, "Failed to reset password")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JWTMiddleware attaches the identity of a valid bearer token. Requests
// without a token pass through as guests; a bad token is rejected.
func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := ""
		if header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			tokenString = parts[1]
		} else if r.Header.Get("Accept") == "text/event-stream" {
			// EventSource cannot set headers.
			tokenString = r.URL.Query().Get("access_token")
		}
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := h.service.Tokens().Parse(tokenString)
		if err != nil {
			http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := authz.WithIdentity(r.Context(), claims.Subject, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
