package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/repository"
)

type memFavorites struct {
	items []models.Favorite
}

func (m *memFavorites) Add(_ context.Context, fav models.Favorite) (models.Favorite, error) {
	fav.ID = uuid.NewString()
	m.items = append(m.items, fav)
	return fav, nil
}

func (m *memFavorites) ListByUser(_ context.Context, userID string) ([]models.Favorite, error) {
	out := make([]models.Favorite, 0)
	for _, f := range m.items {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFavorites) Delete(_ context.Context, userID, favoriteID string) error {
	for i, f := range m.items {
		if f.ID == favoriteID && f.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func TestFavoriteAddEmitsPlantSaved(t *testing.T) {
	sessions := newSessions(t)
	favs := &memFavorites{}
	h := NewFavoriteHandler(favs, sessions, zerolog.Nop())

	body := `{"name":"Monstera","scientific_name":"Monstera deliciosa","fun_facts":["Holes help in wind"]}`
	rec := serve(h.Add, asUser(httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(body)), "user-1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved models.Favorite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "user-1", saved.UserID)

	sess, ok := sessions.Get("user-1")
	require.True(t, ok)
	plants := sess.Registry.ByCategory(models.NotificationCategoryPlant)
	require.Len(t, plants, 1)
	assert.Equal(t, "Plant Saved", plants[0].Title)
	assert.Equal(t, "Monstera has been added to your favorites", plants[0].Message)
}

func TestFavoriteAddRequiresName(t *testing.T) {
	h := NewFavoriteHandler(&memFavorites{}, newSessions(t), zerolog.Nop())
	rec := serve(h.Add, asUser(httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(`{"name":"  "}`)), "user-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoriteListAndRemove(t *testing.T) {
	favs := &memFavorites{}
	h := NewFavoriteHandler(favs, newSessions(t), zerolog.Nop())
	mine, _ := favs.Add(context.Background(), models.Favorite{UserID: "user-1", Name: "Fern"})
	favs.Add(context.Background(), models.Favorite{UserID: "user-2", Name: "Cactus"})

	rec := serve(h.List, asUser(httptest.NewRequest(http.MethodGet, "/api/favorites", nil), "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fern")
	assert.NotContains(t, rec.Body.String(), "Cactus")

	remove := func(id string) int {
		r := asUser(httptest.NewRequest(http.MethodDelete, "/api/favorites/"+id, nil), "user-1")
		return serve(h.Remove, mux.SetURLVars(r, map[string]string{"favoriteID": id})).Code
	}
	assert.Equal(t, http.StatusNoContent, remove(mine.ID))
	assert.Equal(t, http.StatusNotFound, remove(mine.ID))
	assert.Equal(t, http.StatusNotFound, remove("not-a-uuid"))
}

func TestFavoritesNeedSignIn(t *testing.T) {
	h := NewFavoriteHandler(&memFavorites{}, newSessions(t), zerolog.Nop())
	rec := serve(h.List, httptest.NewRequest(http.MethodGet, "/api/favorites", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
