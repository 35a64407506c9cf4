// Package retention purges promotions older than the configured age.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"promo_engine/internal/metrics"
	"promo_engine/internal/storage"
)

// DefaultMaxAge is how long promotions are kept.
const DefaultMaxAge = 7 * 24 * time.Hour

// Sweeper deletes expired promotions at boot and then on a cron schedule.
type Sweeper struct {
	store    storage.RecordStore
	maxAge   time.Duration
	schedule string
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// New creates a Sweeper. schedule accepts standard cron specs and descriptors
// such as "@daily" or "@every 6h".
func New(store storage.RecordStore, maxAge time.Duration, schedule string, m *metrics.Metrics, log *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		schedule: schedule,
		metrics:  m,
		log:      log,
	}
}

// Sweep deletes every promotion captured more than maxAge ago.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteOlderThan(ctx, s.maxAge)
	if err != nil {
		s.metrics.SweepErrors.Inc()
		s.log.Error("retention sweep", "max_age", s.maxAge, "error", err)
		return 0, err
	}
	s.metrics.SweptTotal.Add(float64(n))
	if n > 0 {
		s.log.Info("retention sweep", "deleted", n, "max_age", s.maxAge)
	} else {
		s.log.Debug("retention sweep", "deleted", n, "max_age", s.maxAge)
	}
	return n, nil
}

// Run sweeps once, then on every schedule tick until ctx is cancelled.
// A failed sweep is logged and never stops the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLogger(cronLogger{s.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if _, err := c.AddFunc(s.schedule, func() { _, _ = s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule retention %q: %w", s.schedule, err)
	}

	_, _ = s.Sweep(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
