package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/models"
)

const testVAPIDKey = "BEl62iUYgUivxIkv69yViEuiBIa-Ib9-SkvMeAtA3LFgDzkrxZJjSgSnfckjBJuBkr3qBUYIHBQFLXYp5Nksh8U"

func TestPushConfigSanitizesKey(t *testing.T) {
	h := NewPushHandler(newSessions(t), ` "`+testVAPIDKey+`=" `, zerolog.Nop())
	rec := serve(h.Config, httptest.NewRequest(http.MethodGet, "/api/push/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"vapid_key":"`+testVAPIDKey+`","configured":true}`, rec.Body.String())

	h = NewPushHandler(newSessions(t), "short", zerolog.Nop())
	rec = serve(h.Config, httptest.NewRequest(http.MethodGet, "/api/push/config", nil))
	assert.Contains(t, rec.Body.String(), `"configured":false`)
}

func TestPushRelayEndpoints(t *testing.T) {
	sessions := newSessions(t)
	h := NewPushHandler(sessions, testVAPIDKey, zerolog.Nop())
	post := func(fn http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
		return serve(fn, asUser(httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)), "user-1"))
	}

	require.Equal(t, http.StatusNoContent, post(h.ReportPermission, "/api/push/permission", `{"granted":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.ReportToken, "/api/push/token", `{"token":" "}`).Code)
	require.Equal(t, http.StatusNoContent, post(h.ReportToken, "/api/push/token", `{"token":"device-token"}`).Code)

	sess, ok := sessions.Get("user-1")
	require.True(t, ok)
	require.Eventually(t, sess.Push.Initialized, 2*time.Second, 10*time.Millisecond)

	rec := post(h.Deliver, "/api/push/messages", `{"title":"Repot soon","body":"Roots are showing","category":"plant"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"delivered":1}`, rec.Body.String())

	plants := sess.Registry.ByCategory(models.NotificationCategoryPlant)
	require.Len(t, plants, 1)
	assert.Equal(t, models.NotificationTypePush, plants[0].Type)

	rec = post(h.RequestPermission, "/api/push/permission/request", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"granted":true,"token":"device-token"}`, rec.Body.String())

	rec = serve(h.Status, asUser(httptest.NewRequest(http.MethodGet, "/api/push", nil), "user-1"))
	assert.JSONEq(t, `{"initialized":true,"has_token":true}`, rec.Body.String())
}

func TestPushRequestPermissionDenied(t *testing.T) {
	sessions := newSessions(t)
	h := NewPushHandler(sessions, testVAPIDKey, zerolog.Nop())
	serve(h.ReportPermission, asUser(httptest.NewRequest(http.MethodPost, "/api/push/permission", strings.NewReader(`{"granted":false}`)), "user-1"))

	rec := serve(h.RequestPermission, asUser(httptest.NewRequest(http.MethodPost, "/api/push/permission/request", nil), "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"granted":false,"token":""}`, rec.Body.String())
}
