package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
)

// Trace copies the chi request ID into the context as the trace ID used by
// observability.Logger.WithContext.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(observability.ContextWithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs method, path, status and latency of every request.
func RequestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.WithContext(r.Context()).Info()
			if status >= http.StatusInternalServerError {
				evt = logger.WithContext(r.Context()).Error()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}
