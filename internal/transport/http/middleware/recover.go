package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/match-bot/internal/transport/http/httperr"
	"github.com/pribylovaa/match-bot/pkg/log"
)

var errPanic = errors.New("panic")

// Recover превращает panic в 500. Причина и стек остаются в логе.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.From(r.Context()).Error("http_panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)
				httperr.WriteError(w, r, errPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
