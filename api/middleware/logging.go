package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

// Logging writes one access entry per request. Health probes log at debug
// and server errors at warn.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	if logg == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if pattern := logRoutePattern(r); pattern != "" {
				fields["route"] = pattern
			}
			logAccess(logg, logg.WithFields(ctx, fields), r.URL.Path, status)
		})
	}
}

func logAccess(logg *logger.Logger, ctx context.Context, path string, status int) {
	switch {
	case status >= http.StatusInternalServerError:
		logg.Warn(ctx, "request.complete")
	case strings.HasPrefix(path, "/health/"):
		logg.Debug(ctx, "request.complete")
	default:
		logg.Info(ctx, "request.complete")
	}
}

func logRoutePattern(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return ""
	}
	return rc.RoutePattern()
}
