// http — служебный HTTP-сервер бота: liveness/readiness, метрики и приём webhook-апдейтов.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/match-bot/internal/transport/http/httperr"
	"github.com/pribylovaa/match-bot/internal/transport/http/middleware"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// Pinger — зависимость, без которой бот не готов обслуживать апдейты.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options — параметры сборки роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration

	// Ready — флаг готовности процесса (выставляется после старта всех компонентов).
	Ready *atomic.Bool
	// Deps проверяются на /healthz в указанном порядке.
	Deps []Pinger

	// Metrics — обработчик /metrics (promhttp); nil — маршрут не регистрируется.
	Metrics http.Handler
	// Webhook и WebhookPath — приём апдейтов в режиме webhook; nil — маршрут не регистрируется.
	Webhook     http.Handler
	WebhookPath string
	// WebhookSecret сверяется с заголовком X-Telegram-Bot-Api-Secret-Token; пусто — не проверяется.
	WebhookSecret string
}

// NewRouter собирает http.Handler на chi.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", healthz(opts.Ready, opts.Deps))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if opts.Webhook != nil && opts.WebhookPath != "" {
		r.With(
			middleware.SecretToken(opts.WebhookSecret),
			middleware.Deadline(opts.Timeout),
		).Method(http.MethodPost, opts.WebhookPath, opts.Webhook)
	}

	return r
}

// healthz: 200 — процесс готов и все зависимости отвечают; иначе 503.
func healthz(ready *atomic.Bool, deps []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready == nil || !ready.Load() {
			httperr.WriteError(w, r, httperr.ErrNotReady)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, d := range deps {
			if err := d.Ping(ctx); err != nil {
				log.From(r.Context()).Warn("readiness_check_failed", slog.String("err", err.Error()))
				httperr.WriteError(w, r, httperr.ErrNotReady)

				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
