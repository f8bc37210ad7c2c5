package middleware

import (
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
)

// AccessLog writes one http_request line per request. It must run after
// RequestID so the line carries the id.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		l := logger.WithCtx(r.Context())
		evt := l.Info()
		if wrapped.status >= http.StatusInternalServerError {
			evt = l.Error()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routePattern(r)).
			Int("status", wrapped.status).
			Int("bytes", wrapped.bytes).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http_request")
	})
}
