package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
)

// streamKeepAlive is how often an idle event stream sends a comment line.
const streamKeepAlive = 25 * time.Second

type NotificationHandler struct {
	sessions Sessions
	logger   zerolog.Logger
}

func NewNotificationHandler(sessions Sessions, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		sessions: sessions,
		logger:   logger.With().Str("handler", "notification").Logger(),
	}
}

// List returns the notifications newest first, optionally filtered by
// ?category=.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}

	var list []models.Notification
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" && raw != "all" {
		category := models.NotificationCategory(raw)
		if !category.Valid() {
			http.Error(w, "Unknown category", http.StatusBadRequest)
			return
		}
		list = sess.Registry.ByCategory(category)
	} else {
		list = sess.Registry.Notifications()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"unread_count":  sess.Registry.UnreadCount(),
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": sess.Registry.UnreadCount()})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}

	notifID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notifID == "" {
		http.Error(w, "Notification ID is required", http.StatusBadRequest)
		return
	}
	if !sess.Registry.MarkAsRead(r.Context(), notifID) {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	sess.Registry.MarkAllAsRead(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	sess.Registry.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type streamEvent struct {
	name    string
	payload interface{}
}

// Stream is a Server-Sent Events feed: a "notifications" event with the full
// list on connect and after every change, and a "toast" event per toast.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events := make(chan streamEvent, 32)
	offer := func(ev streamEvent) {
		select {
		case events <- ev:
		default:
			h.logger.Warn().Str("user_id", sess.UserID).Str("event", ev.name).Msg("dropping event for slow stream")
		}
	}
	unsubscribe := sess.Registry.Subscribe(func(list []models.Notification) {
		offer(streamEvent{name: "notifications", payload: list})
	})
	defer unsubscribe()
	unsubscribeToasts := sess.Registry.SubscribeToasts(func(t models.Toast) {
		offer(streamEvent{name: "toast", payload: t})
	})
	defer unsubscribeToasts()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, streamEvent{name: "notifications", payload: sess.Registry.Notifications()}); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				h.logger.Debug().Err(err).Msg("event stream closed")
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, ev streamEvent) error {
	data, err := json.Marshal(ev.payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
	return err
}
