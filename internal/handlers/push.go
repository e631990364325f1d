package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/push"
)

// permissionWait bounds how long a settings-screen permission request waits
// for the device to answer.
const permissionWait = 60 * time.Second

type PushHandler struct {
	sessions Sessions
	vapidKey string
	logger   zerolog.Logger
}

type permissionReport struct {
	Granted bool `json:"granted"`
}

type tokenReport struct {
	Token string `json:"token"`
}

func NewPushHandler(sessions Sessions, vapidKey string, logger zerolog.Logger) *PushHandler {
	return &PushHandler{
		sessions: sessions,
		vapidKey: push.SanitizeVAPIDKey(vapidKey),
		logger:   logger.With().Str("handler", "push").Logger(),
	}
}

// Config gives the web shell the public key it needs to request a token.
func (h *PushHandler) Config(w http.ResponseWriter, r *http.Request) {
	_, err := push.ValidVAPIDKey(h.vapidKey)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vapid_key":  h.vapidKey,
		"configured": err == nil,
	})
}

func (h *PushHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"initialized": sess.Push.Initialized(),
		"has_token":   sess.Push.Token() != "",
	})
}

func (h *PushHandler) ReportPermission(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	var req permissionReport
	if !decodeJSON(w, r, &req) {
		return
	}
	sess.Relay.ReportPermission(req.Granted)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PushHandler) ReportToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	var req tokenReport
	if !decodeJSON(w, r, &req) {
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	sess.Relay.ReportToken(token)
	w.WriteHeader(http.StatusNoContent)
}

// Deliver relays a foreground message the device received.
func (h *PushHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	var msg push.Message
	if !decodeJSON(w, r, &msg) {
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"delivered": sess.Relay.Deliver(msg)})
}

// RequestPermission asks for push permission from the settings screen and
// enables the bridge when it is granted. The device answers through
// ReportPermission.
func (h *PushHandler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), permissionWait)
	defer cancel()

	granted := sess.Registry.RequestPushPermission(ctx)
	if granted {
		if err := sess.EnablePush(ctx); err != nil && !errors.Is(err, push.ErrPermissionDenied) {
			h.logger.Warn().Err(err).Str("user_id", sess.UserID).Msg("failed to enable push")
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"granted": granted,
		"token":   sess.Push.Token(),
	})
}
