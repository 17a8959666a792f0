package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Authenticator is what Middleware needs from Service.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*AuthContext, error)
}

// Middleware resolves the bearer key and attaches the AuthContext; requests
// that fail authentication get 401.
func Middleware(a Authenticator, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				status, msg := http.StatusUnauthorized, err.Error()
				if !IsAuthError(err) {
					logger.Errorw("authentication failed", "err", err)
					status, msg = http.StatusInternalServerError, "internal error"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}
