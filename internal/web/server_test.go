package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"

	"promo_engine/internal/metrics"
	"promo_engine/internal/model"
	"promo_engine/internal/storage"
)

var errStore = errors.New("database is locked")

type brokenStore struct{}

func (brokenStore) Exists(context.Context, string) (bool, error)   { return false, errStore }
func (brokenStore) Insert(context.Context, *model.Promotion) error { return errStore }
func (brokenStore) ListRecent(context.Context, int, string) ([]model.Promotion, error) {
	return nil, errStore
}
func (brokenStore) DeleteOlderThan(context.Context, time.Duration) (int64, error) { return 0, errStore }
func (brokenStore) CurrentFilters(context.Context) (model.FilterConfig, error) {
	return model.FilterConfig{}, errStore
}
func (brokenStore) EnsureFilterConfig(context.Context, model.FilterConfig) error { return errStore }
func (brokenStore) SaveFilterConfig(context.Context, model.FilterConfig) error   { return errStore }
func (brokenStore) Ping(context.Context) error                                   { return errStore }
func (brokenStore) Close() error                                                 { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *storage.SQLite, *prometheus.Registry) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	reg := prometheus.NewRegistry()
	return New(store, reg, discardLogger()), store, reg
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func seedPromotions(t *testing.T, store *storage.SQLite, titles ...string) {
	t.Helper()
	for i, title := range titles {
		p := &model.Promotion{
			ID:     strings.Repeat(string(rune('a'+i)), 64),
			Title:  title,
			Link:   model.LinkNotFound,
			Source: "pelando",
		}
		if err := store.Insert(context.Background(), p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if diff := cmp.Diff(http.StatusOK, rec.Code); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}

	broken := New(brokenStore{}, prometheus.NewRegistry(), discardLogger())
	rec = do(t, broken.Handler(), http.MethodGet, "/health", "")
	if diff := cmp.Diff(http.StatusServiceUnavailable, rec.Code); diff != "" {
		t.Errorf("broken status (-want +got):\n%s", diff)
	}
}

func TestListPromotions(t *testing.T) {
	s, store, _ := newTestServer(t)
	seedPromotions(t, store, "iPhone 15", "Smart TV", "Capinha iPhone")
	price := 1299.0
	withPrice := &model.Promotion{
		ID: strings.Repeat("z", 64), Title: "Notebook", Price: &price,
		Link: "https://loja.example.com/n", Source: "cupomonline",
	}
	if err := store.Insert(context.Background(), withPrice); err != nil {
		t.Fatalf("insert: %v", err)
	}

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
		wantTitles []string
	}{
		{name: "default", target: "/api/promotions", wantStatus: http.StatusOK, wantCount: 4},
		{name: "limit", target: "/api/promotions?limit=2", wantStatus: http.StatusOK, wantCount: 2},
		{name: "limit clamped", target: "/api/promotions?limit=100000", wantStatus: http.StatusOK, wantCount: 4},
		{
			name:       "title query",
			target:     "/api/promotions?q=iphone",
			wantStatus: http.StatusOK,
			wantCount:  2,
			wantTitles: []string{"Capinha iPhone", "iPhone 15"},
		},
		{name: "bad limit", target: "/api/promotions?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "zero limit", target: "/api/promotions?limit=0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodGet, tt.target, "")
			if diff := cmp.Diff(tt.wantStatus, rec.Code); diff != "" {
				t.Fatalf("status (-want +got):\n%s\nbody: %s", diff, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			got := decode[promotionsResponse](t, rec)
			if diff := cmp.Diff(tt.wantCount, got.Count); diff != "" {
				t.Errorf("count (-want +got):\n%s", diff)
			}
			if tt.wantTitles != nil {
				var titles []string
				for _, it := range got.Items {
					titles = append(titles, it.Title)
				}
				if diff := cmp.Diff(tt.wantTitles, titles, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
					t.Errorf("titles (-want +got):\n%s", diff)
				}
			}
		})
	}

	t.Run("price and link serialized", func(t *testing.T) {
		rec := do(t, s.Handler(), http.MethodGet, "/api/promotions?q=Notebook", "")
		var raw struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(raw.Items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(raw.Items))
		}
		if diff := cmp.Diff(1299.0, raw.Items[0]["price"]); diff != "" {
			t.Errorf("price (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("https://loja.example.com/n", raw.Items[0]["link"]); diff != "" {
			t.Errorf("link (-want +got):\n%s", diff)
		}
	})
}

func TestListPromotionsStoreFailure(t *testing.T) {
	s := New(brokenStore{}, prometheus.NewRegistry(), discardLogger())
	rec := do(t, s.Handler(), http.MethodGet, "/api/promotions", "")

	if diff := cmp.Diff(http.StatusServiceUnavailable, rec.Code); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Errorf("expected empty items array, got %s", rec.Body.String())
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s, store, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/config", "")
	if diff := cmp.Diff(configJSON{Keywords: []string{}, Channels: []string{}}, decode[configJSON](t, rec)); diff != "" {
		t.Errorf("empty config (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodPut, "/api/config",
		`{"keywords":[" iPhone ","iphone","Cupom",""],"channels":["@Pelando","pelando","promobit"]}`)
	if diff := cmp.Diff(http.StatusOK, rec.Code); diff != "" {
		t.Fatalf("status (-want +got):\n%s\nbody: %s", diff, rec.Body.String())
	}
	want := configJSON{Keywords: []string{"iphone", "cupom"}, Channels: []string{"pelando", "promobit"}}
	if diff := cmp.Diff(want, decode[configJSON](t, rec)); diff != "" {
		t.Errorf("put response (-want +got):\n%s", diff)
	}

	stored, err := store.CurrentFilters(context.Background())
	if err != nil {
		t.Fatalf("load filters: %v", err)
	}
	if diff := cmp.Diff(model.FilterConfig{Keywords: want.Keywords, Channels: want.Channels}, stored); diff != "" {
		t.Errorf("stored config (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodGet, "/api/config", "")
	if diff := cmp.Diff(want, decode[configJSON](t, rec)); diff != "" {
		t.Errorf("get after put (-want +got):\n%s", diff)
	}
}

func TestPutConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"keywords":`},
		{name: "unknown field", body: `{"keywords":[],"channels":[],"extra":1}`},
		{name: "comma in keyword", body: `{"keywords":["a,b"],"channels":[]}`},
		{name: "comma in channel", body: `{"keywords":[],"channels":["x,y"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestServer(t)
			rec := do(t, s.Handler(), http.MethodPut, "/api/config", tt.body)
			if diff := cmp.Diff(http.StatusBadRequest, rec.Code); diff != "" {
				t.Errorf("status (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigStoreFailure(t *testing.T) {
	s := New(brokenStore{}, prometheus.NewRegistry(), discardLogger())
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/api/config", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET status = %d, want 503", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/api/config", `{"keywords":["a"],"channels":["b"]}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("PUT status = %d, want 503", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	s, _, reg := newTestServer(t)
	m := metrics.New(reg)
	m.EventsTotal.WithLabelValues("stored").Inc()

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	if diff := cmp.Diff(http.StatusOK, rec.Code); diff != "" {
		t.Fatalf("status (-want +got):\n%s", diff)
	}
	if !strings.Contains(rec.Body.String(), `promo_engine_events_total{outcome="stored"} 1`) {
		t.Errorf("metrics output missing events counter:\n%s", rec.Body.String())
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
