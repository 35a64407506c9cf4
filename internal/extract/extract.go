// Package extract derives structured fields from raw promotion text.
// Every function is total: unrecognized input yields a zero value, never an error.
package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"promo_engine/internal/model"
)

// MaxTitleLength is the number of characters kept from the first line.
const MaxTitleLength = 100

var (
	priceRe = regexp.MustCompile(`R\$[\s\p{Z}]?(\d{1,3}(?:\.\d{3})+|\d+),(\d{2})`)
	linkRe  = regexp.MustCompile("(?i)https?://[^\\s\\p{Z}<>\"'`]+")
	closing = map[byte]byte{')': '(', ']': '[', '}': '{'}
)

// Price returns the first amount written as "R$ 1.299,00" in text.
// Thousands separators are dropped and the decimal comma becomes a point.
func Price(text string) (float64, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	whole := strings.ReplaceAll(m[1], ".", "")
	v, err := strconv.ParseFloat(whole+"."+m[2], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Link returns the first well-formed http(s) URL in text, or model.LinkNotFound.
func Link(text string) string {
	for _, candidate := range linkRe.FindAllString(text, -1) {
		candidate = trimTrailing(candidate)
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}
		return candidate
	}
	return model.LinkNotFound
}

// trimTrailing drops sentence punctuation after a URL. A closing bracket is
// dropped only when it has no opening partner inside the URL.
func trimTrailing(s string) string {
	for s != "" {
		last := s[len(s)-1]
		if strings.IndexByte(".,;:!?", last) >= 0 {
			s = s[:len(s)-1]
			continue
		}
		open, ok := closing[last]
		if ok && strings.Count(s, string(open)) < strings.Count(s, string(last)) {
			s = s[:len(s)-1]
			continue
		}
		return s
	}
	return s
}

// Title returns the first line of text truncated to MaxTitleLength characters.
func Title(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimRight(line, "\r")
	if utf8.RuneCountInString(line) <= MaxTitleLength {
		return line
	}
	runes := []rune(line)
	return string(runes[:MaxTitleLength])
}
