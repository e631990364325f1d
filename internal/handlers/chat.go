package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/authz"
	"github.com/leaflens/leaflens-host/internal/chat"
)

var errUnknownModel = errors.New("unknown model")

type ChatHandler struct {
	gateway  *chat.Gateway
	sessions Sessions
	logger   zerolog.Logger
}

type chatPlantContext struct {
	Name           string `json:"name"`
	ScientificName string `json:"scientific_name"`
}

type chatRequest struct {
	Message string            `json:"message"`
	History []chat.Turn       `json:"history"`
	Plant   *chatPlantContext `json:"plant,omitempty"`
	Model   string            `json:"model,omitempty"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	Model    string `json:"model"`
	Fallback bool   `json:"fallback"`
}

type setModelRequest struct {
	Model string `json:"model"`
}

// NewChatHandler serves guests and signed-in users. sessions holds the model
// a signed-in user picked; it may be nil when no one can sign in.
func NewChatHandler(gateway *chat.Gateway, sessions Sessions, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		gateway:  gateway,
		sessions: sessions,
		logger:   logger.With().Str("handler", "chat").Logger(),
	}
}

// modelFor picks the request's model, then the caller's session choice, then
// the gateway default.
func (h *ChatHandler) modelFor(r *http.Request, requested string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	if userID, ok := authz.UserIDFromRequest(r); ok && h.sessions != nil {
		if m := h.sessions.Open(r.Context(), userID, r.UserAgent()).ChatModel(); m != "" {
			return m
		}
	}
	return h.gateway.Model()
}

// withPlantContext prefixes the question with the plant the user is looking
// at so the model answers about that plant.
func withPlantContext(message string, plant *chatPlantContext) string {
	if plant == nil || strings.TrimSpace(plant.Name) == "" {
		return message
	}
	name := strings.TrimSpace(plant.Name)
	if sci := strings.TrimSpace(plant.ScientificName); sci != "" {
		name = fmt.Sprintf("%s (%s)", name, sci)
	}
	return fmt.Sprintf("I'm asking about my %s. %s", name, message)
}

// Send answers a chat message. When the gateway is unconfigured or fails, a
// canned answer is returned with fallback set.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	model := h.modelFor(r, req.Model)
	reply, err := h.gateway.SendMessageWith(r.Context(), model, withPlantContext(message, req.Plant), req.History)
	if err != nil {
		if !errors.Is(err, chat.ErrNotConfigured) {
			h.logger.Warn().Err(err).Msg("chat gateway failed, answering from fallback")
		}
		writeJSON(w, http.StatusOK, chatResponse{Reply: chat.FallbackAnswer(message), Fallback: true})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, Model: model})
}

func (h *ChatHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.gateway.ListModels(r.Context())
	if err != nil {
		if errors.Is(err, chat.ErrNotConfigured) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error().Err(err).Msg("failed to list chat models")
		http.Error(w, "Failed to list models", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  models,
		"current": h.modelFor(r, ""),
	})
}

// SetModel stores the caller's model choice on their session. The id must be
// one the gateway lists.
func (h *ChatHandler) SetModel(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	var req setModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		http.Error(w, "model is required", http.StatusBadRequest)
		return
	}

	if err := h.checkModel(r.Context(), model); err != nil {
		switch {
		case errors.Is(err, errUnknownModel):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, chat.ErrNotConfigured):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.logger.Error().Err(err).Msg("failed to list chat models")
			http.Error(w, "Failed to list models", http.StatusBadGateway)
		}
		return
	}

	s.SetChatModel(model)
	writeJSON(w, http.StatusOK, map[string]string{"current": model})
}

func (h *ChatHandler) checkModel(ctx context.Context, id string) error {
	models, err := h.gateway.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errUnknownModel, id)
}
