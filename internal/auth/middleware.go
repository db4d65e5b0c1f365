package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/halcyon/courier/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// Middleware creates an authentication middleware. It runs the
// admission gate on the bearer credential and injects the verified
// user into the request context.
func Middleware(authService *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authService.Admit(r.Context(), BearerToken(r))
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, domain.ErrMissingCredential) {
					status = http.StatusForbidden
				}
				http.Error(w, `{"error":"`+err.Error()+`"}`, status)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the bearer credential from a request. A bare
// token in the Authorization header is accepted for compatibility with
// clients that omit the scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return header
}

// UserFrom extracts the verified user from context
func UserFrom(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok
}
