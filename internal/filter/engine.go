// Package filter implements source and keyword matching against the operator's rules.
package filter

import (
	"strings"

	"promo_engine/internal/model"
)

// Split parses a comma-separated list, trimming entries and dropping empty ones.
func Split(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Join renders a list in its comma-separated storage form.
func Join(items []string) string {
	return strings.Join(items, ",")
}

// NormalizeSource maps "@Pelando", " pelando " and "pelando" to the same identifier.
func NormalizeSource(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(s)
}

// AcceptsSource reports whether sourceID is one of the monitored channels.
// An empty channel list accepts nothing.
func AcceptsSource(cfg model.FilterConfig, sourceID string) bool {
	id := NormalizeSource(sourceID)
	if id == "" {
		return false
	}
	for _, ch := range cfg.Channels {
		if NormalizeSource(ch) == id {
			return true
		}
	}
	return false
}

// MatchKeyword returns the first configured keyword contained in text.
// Matching is a case-insensitive substring test; blank keywords never match.
func MatchKeyword(cfg model.FilterConfig, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range cfg.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// Add appends value to list unless an equivalent entry is already present.
func Add(list []string, value string, norm func(string) string) ([]string, bool) {
	v := norm(value)
	if v == "" {
		return list, false
	}
	for _, item := range list {
		if norm(item) == v {
			return list, false
		}
	}
	return append(list, v), true
}

// Remove drops every entry equivalent to value.
func Remove(list []string, value string, norm func(string) string) ([]string, bool) {
	v := norm(value)
	var out []string
	removed := false
	for _, item := range list {
		if norm(item) == v {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out, removed
}

// NormalizeKeyword trims and lower-cases a keyword.
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
