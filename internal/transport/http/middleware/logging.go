package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/match-bot/pkg/log"
)

// quietPaths опрашиваются оркестратором и Prometheus постоянно, их пишем на debug.
var quietPaths = map[string]struct{}{
	"/livez":   {},
	"/healthz": {},
	"/metrics": {},
}

// Logging кладёт в контекст логгер запроса (с request_id) и пишет http_request по завершении.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := log.Into(r.Context(), l.With(slog.String("request_id", RequestIDFrom(r.Context()))))
			r = r.WithContext(ctx)

			rec := &recorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			status := rec.Status()

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case isQuiet(r.URL.Path) && status < http.StatusBadRequest:
				level = slog.LevelDebug
			}

			log.From(ctx).LogAttrs(ctx, level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int64("dur_ms", time.Since(start).Milliseconds()),
				slog.Int("bytes", rec.bytes),
			)
		})
	}
}

func isQuiet(path string) bool {
	_, ok := quietPaths[path]
	return ok
}
