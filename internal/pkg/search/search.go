// Package search provides shared helpers for multi-keyword AND search:
// keyword parsing/limits, ILIKE escaping, and a default query timeout.
package search

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultMaxKeywordCount bounds how many space-separated keywords a
	// single search request may carry, to keep the generated WHERE clause
	// (one ILIKE pair per keyword) from growing unbounded.
	DefaultMaxKeywordCount = 5
	// DefaultMaxKeywordLength bounds the length of a single keyword.
	DefaultMaxKeywordLength = 100
	// DefaultSearchTimeout caps how long a trigram ILIKE search may run
	// before the request gives up, so a pathological keyword set can't
	// hold a connection indefinitely.
	DefaultSearchTimeout = 5 * time.Second
)

// ParseKeywords splits a space-separated keyword string, trims whitespace,
// drops empties, and enforces count/length limits.
func ParseKeywords(raw string, maxCount, maxLength int) ([]string, error) {
	fields := strings.Fields(raw)
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		if len(f) > maxLength {
			return nil, fmt.Errorf("keyword %q exceeds maximum length of %d", f, maxLength)
		}
		keywords = append(keywords, f)
	}
	if len(keywords) == 0 {
		return nil, errors.New("at least one keyword is required")
	}
	if len(keywords) > maxCount {
		return nil, fmt.Errorf("too many keywords: got %d, max %d", len(keywords), maxCount)
	}
	return keywords, nil
}

// EscapeILIKE escapes the characters ILIKE treats specially (%, _, \) so a
// user-supplied keyword is matched literally inside a LIKE/ILIKE pattern.
func EscapeILIKE(keyword string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return replacer.Replace(keyword)
}
