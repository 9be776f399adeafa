// sweeper — фоновое обслуживание профилей: снятие истёкших подписок
// и суточный сброс квоты лайков.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/match-bot/internal/clock"
	"github.com/pribylovaa/match-bot/internal/config"
	"github.com/pribylovaa/match-bot/internal/metrics"
	"github.com/pribylovaa/match-bot/internal/notify"
	"github.com/pribylovaa/match-bot/internal/storage"
	"github.com/pribylovaa/match-bot/pkg/log"
)

const textExpired = "⏳ Your premium access ran out. You're back to %d free swipes a day."

// Sweeper периодически запускает RunOnce.
type Sweeper struct {
	storage  storage.Storage
	notifier notify.Notifier
	clock    clock.Clock
	cfg      config.Config
	metrics  *metrics.Metrics
}

// New создаёт Sweeper. m == nil -> метрики не регистрируются.
func New(st storage.Storage, n notify.Notifier, clk clock.Clock, cfg config.Config, m *metrics.Metrics) *Sweeper {
	if m == nil {
		m = metrics.New(nil)
	}

	return &Sweeper{storage: st, notifier: n, clock: clk, cfg: cfg, metrics: m}
}

// Start выполняет проход сразу и затем каждые sweeper.interval.
//
// Особенности:
//   - ошибки прохода логируются, цикл продолжается;
//   - останавливается по ctx.
func (s *Sweeper) Start(ctx context.Context) error {
	const op = "sweeper/Start"

	if !s.cfg.Sweeper.Enabled {
		return fmt.Errorf("%s: sweeper disabled", op)
	}

	lg := log.From(ctx)
	lg.Info("sweeper_start",
		slog.String("op", op),
		slog.Duration("interval", s.cfg.Sweeper.Interval),
		slog.Bool("reset_quotas", s.cfg.Sweeper.ResetQuotas),
	)

	ticker := s.clock.NewTicker(s.cfg.Sweeper.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		lg.Warn("sweeper_tick_error", slog.String("op", op), slog.String("err", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			lg.Info("sweeper_stop", slog.String("op", op))
			return nil
		case <-ticker.C():
			if err := s.RunOnce(ctx); err != nil {
				lg.Warn("sweeper_tick_error", slog.String("op", op), slog.String("err", err.Error()))
			}
		}
	}
}

// RunOnce — один проход: истёкшие подписки (с уведомлением владельцев), затем сброс квот.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	const op = "sweeper/RunOnce"

	lg := log.From(ctx)
	quota := s.cfg.Limits.DailySwipes

	expired, err := s.storage.ExpireSubscriptions(ctx, s.clock.Now().UTC(), quota)
	if err != nil {
		s.metrics.SweeperRuns.WithLabelValues("expire", "error").Inc()
		return fmt.Errorf("%s: expire_subscriptions: %w", op, err)
	}
	s.metrics.SweeperRuns.WithLabelValues("expire", "ok").Inc()

	msg := notify.Message{Text: fmt.Sprintf(textExpired, quota)}
	for _, id := range expired {
		if err := s.notifier.Send(ctx, id, msg); err != nil {
			lg.Warn("notify_error", slog.String("op", op), slog.Int64("user_id", id), slog.String("err", err.Error()))
		}
	}

	if len(expired) > 0 {
		lg.Info("subscriptions_expired", slog.String("op", op), slog.Int("count", len(expired)))
	}

	if !s.cfg.Sweeper.ResetQuotas {
		return nil
	}

	n, err := s.storage.ResetQuotas(ctx, quota)
	if err != nil {
		s.metrics.SweeperRuns.WithLabelValues("reset", "error").Inc()
		return fmt.Errorf("%s: reset_quotas: %w", op, err)
	}
	s.metrics.SweeperRuns.WithLabelValues("reset", "ok").Inc()

	lg.Info("quotas_reset", slog.String("op", op), slog.Int64("profiles", n), slog.Int("quota", quota))

	return nil
}
