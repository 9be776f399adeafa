package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/pribylovaa/match-bot/internal/clock"
	"github.com/pribylovaa/match-bot/internal/config"
	"github.com/pribylovaa/match-bot/internal/metrics"
	"github.com/pribylovaa/match-bot/internal/scheduler"
	"github.com/pribylovaa/match-bot/internal/service"
	"github.com/pribylovaa/match-bot/internal/state"
	statemem "github.com/pribylovaa/match-bot/internal/state/memory"
	stateredis "github.com/pribylovaa/match-bot/internal/state/redis"
	mbmongo "github.com/pribylovaa/match-bot/internal/storage/mongo"
	"github.com/pribylovaa/match-bot/internal/sweeper"
	httptransport "github.com/pribylovaa/match-bot/internal/transport/http"
	"github.com/pribylovaa/match-bot/internal/transport/telegram"
	"github.com/pribylovaa/match-bot/pkg/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lg := setupLogger(cfg.Env)
	slog.SetDefault(lg)
	lg.Info("starting match-bot", "env", cfg.Env, "mode", cfg.Bot.Mode)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	rootCtx = log.Into(rootCtx, lg)

	if err := run(rootCtx, cfg, lg); err != nil {
		lg.Error("match-bot_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	rootCancel()
	lg.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *slog.Logger) error {
	if cfg.Bot.Token == "" {
		return errors.New("bot.token is required")
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := mbmongo.New(dbCtx, cfg)
	dbCancel()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()
	lg.Info("mongo_connected")

	deps := []httptransport.Pinger{store}

	var states state.Store
	if cfg.Redis.URL != "" {
		rCtx, rCancel := context.WithTimeout(ctx, 10*time.Second)
		rs, err := stateredis.New(rCtx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL)
		rCancel()
		if err != nil {
			return err
		}
		states = rs
		deps = append(deps, rs)
		lg.Info("redis_connected")
	} else {
		states = statemem.New()
		lg.Warn("redis_url_empty_using_memory_state")
	}
	defer func() { _ = states.Close() }()

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return err
	}
	bot.Debug = cfg.Env == envLocal
	lg.Info("telegram_authorized", slog.String("bot", bot.Self.UserName))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clk := clock.Real()
	sched := scheduler.New(clk)
	defer sched.Stop()

	notifier := telegram.NewNotifier(bot)
	svc := service.New(store, states, notifier, sched, *cfg,
		service.WithMetrics(m),
		service.WithBaseContext(ctx),
	)
	lg.Info("service_initialized")

	dispatcher := telegram.NewDispatcher(bot, svc, cfg.Bot.Workers)

	var ready atomic.Bool
	opts := httptransport.Options{
		Logger:  lg,
		Timeout: cfg.Timeouts.Event,
		Ready:   &ready,
		Deps:    deps,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if cfg.Bot.Mode == config.ModeWebhook {
		opts.Webhook = dispatcher.Webhook(ctx)
		opts.WebhookPath = cfg.Bot.WebhookPath
		opts.WebhookSecret = cfg.Bot.WebhookSecret
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           httptransport.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		lg.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	var wg sync.WaitGroup

	if cfg.Sweeper.Enabled {
		sw := sweeper.New(store, notifier, clk, *cfg, m)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sw.Start(ctx); err != nil {
				lg.Error("sweeper_failed", slog.String("err", err.Error()))
			}
		}()
	}

	if cfg.Bot.Mode == config.ModePolling {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Poll(ctx, cfg.Bot.PollTimeout)
		}()
	}

	ready.Store(true)

	var serveErr error
	select {
	case <-ctx.Done():
		lg.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			lg.Error("http_serve_failed", slog.String("err", err.Error()))
			serveErr = err
		}
	}

	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http_force_stop", slog.String("err", err.Error()))
	}

	// polling и sweeper завершаются по отмене ctx; при ошибке HTTP ctx ещё жив.
	if serveErr == nil {
		wg.Wait()
	}
	dispatcher.Stop()

	return serveErr
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
