// Package capture turns inbound message events into deduplicated promotion
// records and forwards the ones matching an interest keyword.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"promo_engine/internal/extract"
	"promo_engine/internal/filter"
	"promo_engine/internal/identity"
	"promo_engine/internal/metrics"
	"promo_engine/internal/model"
	"promo_engine/internal/storage"
)

// DefaultForwardTimeout bounds a single forwarding send.
const DefaultForwardTimeout = 10 * time.Second

// Sink receives the original text of interesting messages.
type Sink interface {
	Forward(ctx context.Context, ev model.Event) error
}

// Outcome classifies how an event was handled.
type Outcome string

// Possible outcomes, in pipeline order.
const (
	OutcomeUnmonitored   Outcome = "unmonitored"
	OutcomeEmpty         Outcome = "empty"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeStored        Outcome = "stored"
	OutcomeForwarded     Outcome = "forwarded"
	OutcomeForwardFailed Outcome = "forward_failed"
	OutcomeFailed        Outcome = "failed"
)

// Result is the contained result of handling one event.
type Result struct {
	Outcome Outcome
	// ID is the fingerprint, empty when the event was dropped before hashing.
	ID      string
	Keyword string
	Err     error
}

// Engine is the capture pipeline. It keeps no state between events.
type Engine struct {
	filters        storage.FilterStore
	records        storage.RecordStore
	sink           Sink
	metrics        *metrics.Metrics
	log            *slog.Logger
	forwardTimeout time.Duration
}

// New creates an Engine.
func New(filters storage.FilterStore, records storage.RecordStore, sink Sink, m *metrics.Metrics, log *slog.Logger) *Engine {
	return &Engine{
		filters:        filters,
		records:        records,
		sink:           sink,
		metrics:        m,
		log:            log,
		forwardTimeout: DefaultForwardTimeout,
	}
}

// SetForwardTimeout overrides DefaultForwardTimeout.
func (e *Engine) SetForwardTimeout(d time.Duration) {
	e.forwardTimeout = d
}

// Run handles events one at a time until ctx is cancelled or events is closed.
// An event already taken off the channel is processed to completion even if
// ctx is cancelled meanwhile.
func (e *Engine) Run(ctx context.Context, events <-chan model.Event) {
	e.log.Info("capture engine listening")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.Handle(context.WithoutCancel(ctx), ev)
		}
	}
}

// Handle runs the full pipeline for a single event. It never panics and never
// returns an error: every failure is reported in the Result and logged.
func (e *Engine) Handle(ctx context.Context, ev model.Event) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeFailed, ID: res.ID, Err: fmt.Errorf("panic: %v", r)}
		}
		e.report(ev, res)
	}()
	return e.process(ctx, ev)
}

func (e *Engine) process(ctx context.Context, ev model.Event) Result {
	cfg, err := e.filters.CurrentFilters(ctx)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("load filters: %w", err)}
	}
	if !filter.AcceptsSource(cfg, ev.SourceID) {
		return Result{Outcome: OutcomeUnmonitored}
	}
	if ev.Text == "" {
		return Result{Outcome: OutcomeEmpty}
	}

	id := identity.Fingerprint(ev.Text)

	seen, err := e.records.Exists(ctx, id)
	if err != nil {
		return Result{Outcome: OutcomeFailed, ID: id, Err: err}
	}
	if seen {
		return Result{Outcome: OutcomeDuplicate, ID: id}
	}

	promo := &model.Promotion{
		ID:     id,
		Title:  extract.Title(ev.Text),
		Link:   extract.Link(ev.Text),
		Source: filter.NormalizeSource(ev.SourceID),
	}
	if price, ok := extract.Price(ev.Text); ok {
		promo.Price = &price
	}

	if err := e.records.Insert(ctx, promo); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Result{Outcome: OutcomeDuplicate, ID: id}
		}
		return Result{Outcome: OutcomeFailed, ID: id, Err: err}
	}

	kw, interesting := filter.MatchKeyword(cfg, ev.Text)
	if !interesting {
		return Result{Outcome: OutcomeStored, ID: id}
	}

	fctx, cancel := context.WithTimeout(ctx, e.forwardTimeout)
	defer cancel()
	if err := e.sink.Forward(fctx, ev); err != nil {
		return Result{Outcome: OutcomeForwardFailed, ID: id, Keyword: kw, Err: err}
	}
	return Result{Outcome: OutcomeForwarded, ID: id, Keyword: kw}
}

func (e *Engine) report(ev model.Event, res Result) {
	e.metrics.EventsTotal.WithLabelValues(string(res.Outcome)).Inc()

	switch res.Outcome {
	case OutcomeUnmonitored, OutcomeEmpty:
		e.log.Debug("event dropped", "source", ev.SourceID, "reason", res.Outcome)
	case OutcomeDuplicate:
		e.log.Debug("duplicate promotion", "source", ev.SourceID, "fingerprint", res.ID)
	case OutcomeStored:
		e.log.Info("promotion stored", "source", ev.SourceID, "fingerprint", res.ID)
	case OutcomeForwarded:
		e.metrics.ForwardsTotal.WithLabelValues("ok").Inc()
		e.log.Info("promotion forwarded", "source", ev.SourceID, "fingerprint", res.ID, "keyword", res.Keyword)
	case OutcomeForwardFailed:
		e.metrics.ForwardsTotal.WithLabelValues("error").Inc()
		e.log.Warn("forward promotion", "source", ev.SourceID, "fingerprint", res.ID, "keyword", res.Keyword, "error", res.Err)
	case OutcomeFailed:
		e.log.Error("process event", "source", ev.SourceID, "message_id", ev.MessageID, "fingerprint", res.ID, "error", res.Err)
	}
}
