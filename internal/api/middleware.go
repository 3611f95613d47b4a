package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/api/response"
	"go.uber.org/zap"
)

type contextKey string

const authenticatedKey contextKey = "isAuthenticated"

// AuthMiddleware creates a middleware function that checks for a static bearer token.
func AuthMiddleware(requiredToken string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debug("Missing Authorization header", zap.String("path", r.URL.Path))
				response.Error(w, http.StatusUnauthorized, "Unauthorized: Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Debug("Invalid Authorization header format", zap.String("path", r.URL.Path))
				response.Error(w, http.StatusUnauthorized, "Unauthorized: Invalid Authorization header format")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(requiredToken)) != 1 {
				log.Warn("Invalid token", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
				response.Error(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), authenticatedKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ApplyAuth selectively applies the authentication middleware only if the token is not empty.
// If the token is empty, it allows all requests through for that handler.
func ApplyAuth(handler http.Handler, requiredToken string, log *zap.Logger) http.Handler {
	if requiredToken == "" {
		return handler
	}
	return AuthMiddleware(requiredToken, log)(handler)
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
