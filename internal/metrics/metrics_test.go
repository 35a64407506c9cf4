package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EventsTotal.WithLabelValues("stored").Inc()
	m.ForwardsTotal.WithLabelValues("ok").Inc()
	m.SweptTotal.Add(3)
	m.SweepErrors.Inc()
	m.FeedFetchErrors.WithLabelValues("pelando").Inc()

	if got := testutil.ToFloat64(m.SweptTotal); got != 3 {
		t.Errorf("swept = %v, want 3", got)
	}
	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 5 {
		t.Errorf("gathered series = %d, want 5", n)
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("registering on separate registries panicked: %v", r)
		}
	}()
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
