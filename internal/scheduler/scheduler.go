// Package scheduler polls the configured promotion feeds and publishes their
// items as message events.
package scheduler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"promo_engine/internal/config"
	"promo_engine/internal/fetcher"
	"promo_engine/internal/metrics"
	"promo_engine/internal/model"
)

// Poller periodically fetches every feed source.
type Poller struct {
	sources []config.FeedSource
	fetcher *fetcher.Fetcher
	metrics *metrics.Metrics
	log     *slog.Logger
	tick    time.Duration
	maxAge  time.Duration
	now     func() time.Time
}

// New creates a Poller with the default HTTP client.
func New(sources []config.FeedSource, m *metrics.Metrics, log *slog.Logger) *Poller {
	return NewWithFetcher(sources, fetcher.New(http.DefaultClient), m, log)
}

// NewWithFetcher creates a Poller with a custom fetcher (useful for testing).
func NewWithFetcher(sources []config.FeedSource, f *fetcher.Fetcher, m *metrics.Metrics, log *slog.Logger) *Poller {
	return &Poller{
		sources: sources,
		fetcher: f,
		metrics: m,
		log:     log,
		tick:    15 * time.Minute,
		now:     time.Now,
	}
}

// SetTickInterval overrides the default 15-minute poll interval.
func (p *Poller) SetTickInterval(d time.Duration) {
	p.tick = d
}

// SetMaxAge skips items published longer than d ago. Items older than the
// retention window would otherwise be captured again after every sweep.
func (p *Poller) SetMaxAge(d time.Duration) {
	p.maxAge = d
}

// Run polls every source once, then on every tick, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, events chan<- model.Event) {
	if len(p.sources) == 0 {
		p.log.Info("no feed sources configured")
		return
	}

	p.pollAll(ctx, events)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx, events)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context, events chan<- model.Event) {
	for _, src := range p.sources {
		if ctx.Err() != nil {
			return
		}
		p.pollSource(ctx, src, events)
	}
}

func (p *Poller) pollSource(ctx context.Context, src config.FeedSource, events chan<- model.Event) {
	p.log.Debug("polling feed", "source", src.Name, "url", src.URL)

	feed, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		p.metrics.FeedFetchErrors.WithLabelValues(src.Name).Inc()
		p.log.Error("fetch feed", "source", src.Name, "url", src.URL, "error", err)
		return
	}

	// Feeds list newest first; publish oldest first so capture order follows
	// publication order.
	items := slices.Clone(feed.Items)
	slices.Reverse(items)

	var cutoff time.Time
	if p.maxAge > 0 {
		cutoff = p.now().Add(-p.maxAge)
	}

	published := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		if ts := fetcher.ItemTime(item); !cutoff.IsZero() && !ts.IsZero() && ts.Before(cutoff) {
			continue
		}
		select {
		case events <- fetcher.ItemEvent(src.Name, item):
			published++
		case <-ctx.Done():
			return
		}
	}

	p.log.Debug("polled feed", "source", src.Name, "items", len(feed.Items), "published", published)
}
