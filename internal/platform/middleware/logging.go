// Package middleware holds HTTP middleware shared by the ops endpoints.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	slogctx "github.com/veqryn/slog-context"
)

type options struct {
	logger *slog.Logger
	quiet  map[string]bool
}

// Option configures RequestLogger.
type Option func(*options)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithQuietPaths suppresses access logs for noisy paths such as scrapes.
func WithQuietPaths(paths ...string) Option {
	return func(o *options) {
		for _, p := range paths {
			o.quiet[p] = true
		}
	}
}

// RequestLogger adds the request id to the context logger and logs each
// completed request at debug level.
func RequestLogger(opts ...Option) func(http.Handler) http.Handler {
	o := &options{logger: slog.Default(), quiet: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := slogctx.Append(r.Context(), "request_id", chimw.GetReqID(r.Context()))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			if o.quiet[r.URL.Path] {
				return
			}
			o.logger.DebugContext(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
