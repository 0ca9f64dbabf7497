package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/osintools/idgen"
	"github.com/hazyhaar/osintools/kit"
)

var newTraceID = idgen.Prefixed("trc_", idgen.UUIDv7())

// TraceID tags each request with a trace ID, kept in the context under
// kit.TraceIDKey, echoed as X-Trace-ID, and attached to a per-request
// logger stored under LoggerKey. An incoming X-Trace-ID is reused. Every
// request also gets its own request ID, which is never inherited.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = newTraceID()
		}

		requestID := "req_" + idgen.New()

		ctx := kit.WithTraceID(r.Context(), traceID)
		ctx = kit.WithRequestID(ctx, requestID)
		w.Header().Set("X-Trace-ID", traceID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request", "remote_addr", r.RemoteAddr)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
