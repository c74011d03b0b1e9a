package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[len("Bearer "):])
}

func resolveUser(r *http.Request, tokens *security.TokenService, users domain.UserRepository) *domain.User {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		return nil
	}
	claims, err := tokens.Parse(tokenStr)
	if err != nil {
		return nil
	}
	userID, err := security.Subject(claims)
	if err != nil {
		return nil
	}
	user, err := users.GetByID(r.Context(), userID)
	if err != nil || user == nil || !user.IsActive {
		return nil
	}
	return user
}

// AuthMiddleware validates the Bearer token and attaches the user to the
// context, rejecting requests without a valid active user.
func AuthMiddleware(tokens *security.TokenService, users domain.UserRepository, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolveUser(r, tokens, users)
			if user == nil {
				log.Debug().Str("path", r.URL.Path).Msg("rejected unauthenticated request")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuthMiddleware attaches the user when a valid token is present
// and passes the request through untouched otherwise. Read endpoints use
// this so an unauthenticated caller gets empty data instead of an error.
func OptionalAuthMiddleware(tokens *security.TokenService, users domain.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := resolveUser(r, tokens, users); user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}
