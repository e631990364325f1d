package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/leaflens/leaflens-host/internal/authz"
	"github.com/leaflens/leaflens-host/internal/handlers"
)

type Handlers struct {
	Health        http.HandlerFunc
	Auth          *handlers.AuthHandler
	Favorites     *handlers.FavoriteHandler
	Notifications *handlers.NotificationHandler
	Weather       *handlers.WeatherHandler
	Chat          *handlers.ChatHandler
	Scan          *handlers.ScanHandler
	Push          *handlers.PushHandler
}

// NewRouter sets up the API routes
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.Auth.JWTMiddleware)

	// Public auth endpoints
	api.HandleFunc("/auth/signup", h.Auth.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/signin", h.Auth.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/auth/google", h.Auth.SignInWithGoogle).Methods(http.MethodPost)
	api.HandleFunc("/auth/password-reset", h.Auth.RequestPasswordReset).Methods(http.MethodPost)
	api.HandleFunc("/auth/password-reset/confirm", h.Auth.ConfirmPasswordReset).Methods(http.MethodPost)
	api.HandleFunc("/auth/signout", h.Auth.SignOut).Methods(http.MethodPost)

	// Guests may scan and chat
	api.HandleFunc("/scan/capture", h.Scan.Capture).Methods(http.MethodPost)
	api.HandleFunc("/scan/upload", h.Scan.Upload).Methods(http.MethodPost)
	api.HandleFunc("/chat", h.Chat.Send).Methods(http.MethodPost)
	api.HandleFunc("/chat/models", h.Chat.ListModels).Methods(http.MethodGet)
	api.HandleFunc("/push/config", h.Push.Config).Methods(http.MethodGet)

	user := api.NewRoute().Subrouter()
	user.Use(authz.RequireUser)

	user.HandleFunc("/auth/me", h.Auth.Me).Methods(http.MethodGet)

	user.HandleFunc("/chat/model", h.Chat.SetModel).Methods(http.MethodPut)

	user.HandleFunc("/favorites", h.Favorites.List).Methods(http.MethodGet)
	user.HandleFunc("/favorites", h.Favorites.Add).Methods(http.MethodPost)
	user.HandleFunc("/favorites/{favoriteID}", h.Favorites.Remove).Methods(http.MethodDelete)

	user.HandleFunc("/notifications", h.Notifications.List).Methods(http.MethodGet)
	user.HandleFunc("/notifications", h.Notifications.Clear).Methods(http.MethodDelete)
	user.HandleFunc("/notifications/unread-count", h.Notifications.UnreadCount).Methods(http.MethodGet)
	user.HandleFunc("/notifications/read-all", h.Notifications.MarkAllRead).Methods(http.MethodPost)
	user.HandleFunc("/notifications/stream", h.Notifications.Stream).Methods(http.MethodGet)
	user.HandleFunc("/notifications/{notificationID}/read", h.Notifications.MarkRead).Methods(http.MethodPost)

	user.HandleFunc("/weather", h.Weather.Status).Methods(http.MethodGet)
	user.HandleFunc("/weather/refresh", h.Weather.Refresh).Methods(http.MethodPost)
	user.HandleFunc("/weather/location", h.Weather.ReportLocation).Methods(http.MethodPost)
	user.HandleFunc("/weather/location/denied", h.Weather.DenyLocation).Methods(http.MethodPost)
	user.HandleFunc("/weather/location", h.Weather.SetLocation).Methods(http.MethodPut)

	user.HandleFunc("/push", h.Push.Status).Methods(http.MethodGet)
	user.HandleFunc("/push/permission", h.Push.ReportPermission).Methods(http.MethodPost)
	user.HandleFunc("/push/permission/request", h.Push.RequestPermission).Methods(http.MethodPost)
	user.HandleFunc("/push/token", h.Push.ReportToken).Methods(http.MethodPost)
	user.HandleFunc("/push/messages", h.Push.Deliver).Methods(http.MethodPost)

	return router
}
