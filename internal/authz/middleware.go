package authz

import "net/http"

// RequireUser rejects requests that carry no signed-in identity. Guests may
// still use the routes that are not wrapped.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromRequest(r); !ok {
			http.Error(w, "sign in required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUserHandler applies RequireUser inline when registering routes.
func RequireUserHandler(next http.Handler) http.Handler {
	return RequireUser(next)
}
