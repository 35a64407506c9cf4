package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"promo_engine/internal/bot"
	"promo_engine/internal/capture"
	"promo_engine/internal/config"
	"promo_engine/internal/metrics"
	"promo_engine/internal/model"
	"promo_engine/internal/retention"
	"promo_engine/internal/scheduler"
	"promo_engine/internal/storage"
	"promo_engine/internal/web"
)

// Inbound events wait here while the engine is busy with a previous one.
const eventBuffer = 256

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		slog.Error("load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error("promo engine stopped", "error", err)
		os.Exit(1)
	}
	log.Info("promo engine stopped")
}

// run wires the components and blocks until ctx is cancelled or one of them
// fails. The store is closed before it returns.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close database", "error", err)
		}
	}()

	if err := store.EnsureFilterConfig(ctx, storage.DefaultFilters); err != nil {
		return fmt.Errorf("seed filter config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		return err
	}

	engine := capture.New(store, store, b, m, log)
	engine.SetForwardTimeout(cfg.ForwardTimeout)

	sweeper := retention.New(store, cfg.RetentionMaxAge(), cfg.RetentionSchedule, m, log)

	poller := scheduler.New(cfg.FeedSources, m, log)
	poller.SetTickInterval(cfg.FeedInterval)
	poller.SetMaxAge(cfg.RetentionMaxAge())

	server := web.New(store, reg, log)

	events := make(chan model.Event, eventBuffer)

	log.Info("starting promo engine",
		"forward_chat_id", cfg.ForwardChatID,
		"feeds", len(cfg.FeedSources),
		"http_addr", cfg.HTTPAddr,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		b.Run(gctx, events)
		return nil
	})
	g.Go(func() error {
		poller.Run(gctx, events)
		return nil
	})
	g.Go(func() error {
		engine.Run(gctx, events)
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx, cfg.HTTPAddr)
	})
	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
