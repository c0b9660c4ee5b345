package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

// SessionVerifier checks a session cookie value and returns the
// authenticated username.
type SessionVerifier interface {
	Verify(cookieValue string) (username string, ok bool)
}

// AdminAuth guards a route behind the admin session cookie. Requests
// without a valid session get a 401 JSON response; the username is
// placed in the context for handlers that want it.
func AdminAuth(sessions SessionVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			username, ok := sessions.Verify(cookie.Value)
			if !ok {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), AdminUserKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminUser extracts the authenticated admin username from the
// context. Returns empty string if the request was not authenticated.
func GetAdminUser(ctx context.Context) string {
	if username, ok := ctx.Value(AdminUserKey).(string); ok {
		return username
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Unauthorized"})
}
