package middleware

import (
	"context"
	"net/http"

	"github.com/snatchdl/snatch/internal/domain"
)

// SessionVerifier resolves the authenticated user of a request.
type SessionVerifier interface {
	FromRequest(r *http.Request) (*domain.User, error)
}

type contextKey struct{}

var userKey contextKey

// WithUser attaches the session user to the request context when a valid
// session is present. Anonymous requests pass through untouched; the
// download endpoints work without an account.
func WithUser(sessions SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := sessions.FromRequest(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests without a valid session.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFrom(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFrom extracts the session user placed by WithUser.
func UserFrom(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok
}
