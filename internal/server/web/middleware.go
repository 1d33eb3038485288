package web

import (
	"context"
	"net/http"
	"time"

	"github.com/kuzkabot/sellerbot/internal/logging"
)

type ctxKey int

const sessionKey ctxKey = iota

// sessionFrom returns the authenticated telegram id placed in the context
// by RequireAuth. Zero means the middleware did not run.
func sessionFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(sessionKey).(int64)
	return id
}

// RequireAuth verifies the session cookie and stores the telegram id in the
// request context. Without a valid session the request stops at 401.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tgID, err := h.sessionID(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, tgID)))
	})
}

// RequestLogger logs one line per request with status and duration.
func RequestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
