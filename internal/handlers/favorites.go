package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/repository"
)

type FavoriteHandler struct {
	favorites repository.FavoriteRepository
	sessions  Sessions
	logger    zerolog.Logger
}

type favoriteRequest struct {
	Name           string           `json:"name"`
	ScientificName string           `json:"scientific_name"`
	Description    string           `json:"description"`
	CareGuide      models.CareGuide `json:"care_guide"`
	FunFacts       []string         `json:"fun_facts"`
	Image          string           `json:"image"`
}

func NewFavoriteHandler(favorites repository.FavoriteRepository, sessions Sessions, logger zerolog.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		favorites: favorites,
		sessions:  sessions,
		logger:    logger.With().Str("handler", "favorites").Logger(),
	}
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}

	favorites, err := h.favorites.ListByUser(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("failed to list favorites")
		http.Error(w, "Failed to list favorites", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": favorites})
}

// Add saves a plant and emits the "Plant Saved" notification.
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	var req favoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	fav, err := h.favorites.Add(r.Context(), models.Favorite{
		UserID:         sess.UserID,
		Name:           req.Name,
		ScientificName: strings.TrimSpace(req.ScientificName),
		Description:    req.Description,
		CareGuide:      req.CareGuide,
		FunFacts:       req.FunFacts,
		Image:          req.Image,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", sess.UserID).Msg("failed to save favorite")
		http.Error(w, "Failed to save favorite", http.StatusInternalServerError)
		return
	}

	if _, err := sess.Registry.PlantSaved(r.Context(), fav.Name); err != nil {
		h.logger.Warn().Err(err).Msg("failed to add plant saved notification")
	}
	writeJSON(w, http.StatusCreated, fav)
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFor(h.sessions, w, r)
	if !ok {
		return
	}
	favoriteID := strings.TrimSpace(mux.Vars(r)["favoriteID"])
	if _, err := uuid.Parse(favoriteID); err != nil {
		http.Error(w, "Favorite not found", http.StatusNotFound)
		return
	}

	if err := h.favorites.Delete(r.Context(), sess.UserID, favoriteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Favorite not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("favorite_id", favoriteID).Msg("failed to remove favorite")
		http.Error(w, "Failed to remove favorite", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
