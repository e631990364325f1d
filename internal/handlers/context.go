package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/leaflens/leaflens-host/internal/authz"
	"github.com/leaflens/leaflens-host/internal/session"
)

// Sessions opens per-user sessions on demand; Open returns the running
// session when there is one.
type Sessions interface {
	Open(ctx context.Context, userID, deviceInfo string) *session.Session
	Close(userID string) bool
}

// sessionFor returns the caller's session. Routes using it sit behind
// authz.RequireUser.
func sessionFor(sessions Sessions, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "sign in required", http.StatusUnauthorized)
		return nil, false
	}
	return sessions.Open(r.Context(), userID, r.UserAgent()), true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
