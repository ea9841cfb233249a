package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/signalsfoundry/comms-inspector/internal/logging"
	"github.com/signalsfoundry/comms-inspector/internal/observability"
	"github.com/signalsfoundry/comms-inspector/internal/session"
)

// RequestIDHeader carries the request id in and out of the API.
const RequestIDHeader = "X-Request-ID"

// RequestLogger ensures every request has a request id, taken from the
// X-Request-ID header when the client sent one, stores a request-scoped
// logger on the context and logs the completed request. Records logged with
// the request context carry the request id and the client's session id.
func RequestLogger(base logging.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = logging.Noop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if incoming := r.Header.Get(RequestIDHeader); incoming != "" {
				ctx = logging.ContextWithRequestID(ctx, incoming)
			}
			if sid := r.Header.Get(session.HeaderName); sid != "" {
				ctx = logging.ContextWithSessionID(ctx, sid)
			}
			ctx, reqLog := logging.WithRequestLogger(ctx, base.With(
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
			))
			w.Header().Set(RequestIDHeader, logging.RequestIDFromContext(ctx))

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []logging.Field{
				logging.String("route", observability.RoutePattern(r)),
				logging.Int("status", status),
				logging.Duration("elapsed", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				reqLog.Warn(ctx, "request failed", fields...)
				return
			}
			reqLog.Debug(ctx, "request served", fields...)
		})
	}
}

// requestLog returns the logger RequestLogger attached to the request.
func requestLog(r *http.Request, fallback logging.Logger) logging.Logger {
	if l := logging.LoggerFromContext(r.Context()); l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return logging.Noop()
}
