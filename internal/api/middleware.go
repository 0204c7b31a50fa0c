package api

import (
	"net/http"
	"strings"
	"time"

	"file-access-ledger-go/internal/models"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the bearer token and attaches its identity to the request context
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.respondWithError(w, http.StatusUnauthorized, "Unauthenticated", "authorization token not provided")
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			h.respondWithError(w, http.StatusUnauthorized, "Unauthenticated", "invalid authorization header")
			return
		}

		identity, err := h.tokens.Verify(parts[1])
		if err != nil {
			zap.L().Debug("Rejected bearer token", zap.Error(err))
			h.respondWithError(w, http.StatusUnauthorized, "Unauthenticated", "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(models.WithCaller(r.Context(), identity)))
	})
}

// requestLogger logs each request with zap
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		zap.L().Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)))
	})
}
