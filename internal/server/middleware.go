package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// LogRequests logs one line per request. Static assets and health checks log at debug.
func LogRequests(next http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cw := newCountingWriter(w)
		next.ServeHTTP(cw, r)

		level := slog.LevelInfo
		if quietPath(r.URL.Path) {
			level = slog.LevelDebug
		}
		if cw.StatusCode() >= 500 {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", cw.StatusCode(),
			"bytes", cw.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func quietPath(p string) bool {
	return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/healthz") || p == "/metrics"
}
