// Package collector implements the feed collector (§4.3): concurrent
// per-source polling, extraction, bulk dedupe, and two-phase batch insert.
package collector

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
)

// RawEntry is one parsed feed item before extraction picks its winning
// content candidate and fingerprint.
type RawEntry struct {
	Title             string
	Link              string
	ContentCandidates []string // priority order: typed content, description, summary, subtitle, encoded
	DateCandidates    []string // priority order: published, updated, created, pubDate
	StructuredTime    *time.Time
}

// FetchResult is what a FeedFetcher returns for one source poll.
type FetchResult struct {
	NotModified  bool // HTTP 304: caller treats as empty-success
	Terminal     bool // HTTP 403/404: terminal for this run, not fatal to the source
	Entries      []RawEntry
	ETag         string
	LastModified string
	ResponseMs   float64
}

// FeedFetcher fetches and parses one source's feed, applying conditional
// request headers when the source has a cached ETag/Last-Modified.
type FeedFetcher interface {
	Fetch(ctx context.Context, source *entity.Source) (*FetchResult, error)
}
