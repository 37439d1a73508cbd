package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"equipment-rental-backend/internal/config"
	"equipment-rental-backend/internal/logger"
	"equipment-rental-backend/internal/security"
)

const headerRequestID = "X-Request-ID"

type claimsKey struct{}

// ClaimsFromContext returns the verified caller, or nil on public routes.
func ClaimsFromContext(ctx context.Context) *security.UserClaims {
	c, _ := ctx.Value(claimsKey{}).(*security.UserClaims)
	return c
}

func withClaims(ctx context.Context, c *security.UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// requestIDMiddleware reuses a well-formed inbound X-Request-ID or mints one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "HTTP request", args...)
			return
		}
		logger.InfoContext(r.Context(), "HTTP request", args...)
	})
}

// authMiddleware enforces the security level configured for the matched route.
func authMiddleware(verifier security.TokenVerifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			level := config.SecurityAccess
			if route := mux.CurrentRoute(r); route != nil {
				level = config.RouteSecurity(route.GetName())
			}
			if level == config.SecurityPublic {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "authorization token is not provided")
				return
			}
			claims, err := verifier.ValidateToken(token)
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}
			if level == config.SecurityAdmin && !claims.HasRole(security.RoleAdmin) {
				writeForbidden(w, "admin role required")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:]), true
	}
	return "", false
}
