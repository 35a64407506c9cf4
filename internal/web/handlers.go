package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"promo_engine/internal/filter"
	"promo_engine/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodySize      = 64 * 1024
)

type promotionJSON struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Price      *float64  `json:"price"`
	Link       string    `json:"link"`
	Source     string    `json:"source"`
	CapturedAt time.Time `json:"captured_at"`
}

type promotionsResponse struct {
	Items []promotionJSON `json:"items"`
	Count int             `json:"count"`
	Error string          `json:"error,omitempty"`
}

type configJSON struct {
	Keywords []string `json:"keywords"`
	Channels []string `json:"channels"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.log.Error("health check", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPromotions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = min(n, maxListLimit)
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	promos, err := s.store.ListRecent(r.Context(), limit, query)
	if err != nil {
		s.log.Error("list promotions", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, promotionsResponse{
			Items: []promotionJSON{},
			Error: "store unavailable",
		})
		return
	}

	items := make([]promotionJSON, 0, len(promos))
	for _, p := range promos {
		items = append(items, promotionJSON{
			ID:         p.ID,
			Title:      p.Title,
			Price:      p.Price,
			Link:       p.Link,
			Source:     p.Source,
			CapturedAt: p.CapturedAt,
		})
	}
	writeJSON(w, http.StatusOK, promotionsResponse{Items: items, Count: len(items)})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.CurrentFilters(r.Context())
	if err != nil {
		s.log.Error("load filters", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, toConfigJSON(cfg))
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var body configJSON
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid body: %v", err)})
		return
	}

	cfg, err := normalizeConfig(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.store.SaveFilterConfig(r.Context(), cfg); err != nil {
		s.log.Error("save filters", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		return
	}
	s.log.Info("filters updated", "keywords", len(cfg.Keywords), "channels", len(cfg.Channels))
	writeJSON(w, http.StatusOK, toConfigJSON(cfg))
}

// normalizeConfig canonicalizes and de-duplicates entries. Commas are
// rejected because the store keeps each list comma-separated.
func normalizeConfig(in configJSON) (model.FilterConfig, error) {
	var cfg model.FilterConfig
	for _, kw := range in.Keywords {
		if strings.Contains(kw, ",") {
			return model.FilterConfig{}, fmt.Errorf("keyword %q contains a comma", kw)
		}
		cfg.Keywords, _ = filter.Add(cfg.Keywords, kw, filter.NormalizeKeyword)
	}
	for _, ch := range in.Channels {
		if strings.Contains(ch, ",") {
			return model.FilterConfig{}, fmt.Errorf("channel %q contains a comma", ch)
		}
		cfg.Channels, _ = filter.Add(cfg.Channels, ch, filter.NormalizeSource)
	}
	return cfg, nil
}

func toConfigJSON(cfg model.FilterConfig) configJSON {
	out := configJSON{Keywords: cfg.Keywords, Channels: cfg.Channels}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	if out.Channels == nil {
		out.Channels = []string{}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
