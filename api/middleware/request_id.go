package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/vitora-backend/pkg/logger"
)

const (
	requestIDHeader   = "X-Request-Id"
	cloudTraceHeader  = "X-Cloud-Trace-Context"
	maxRequestIDBytes = 128
)

// RequestID propagates a caller supplied id (or the Cloud Run trace id) and
// mints a uuid when neither is usable.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := incomingRequestID(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := context.WithValue(r.Context(), ctxRequestID, reqID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func incomingRequestID(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); validRequestID(id) {
		return id
	}
	if trace := r.Header.Get(cloudTraceHeader); trace != "" {
		// TRACE_ID/SPAN_ID;o=OPTIONS
		if i := strings.IndexAny(trace, "/;"); i >= 0 {
			trace = trace[:i]
		}
		if validRequestID(trace) {
			return trace
		}
	}
	return uuid.NewString()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDBytes {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}
