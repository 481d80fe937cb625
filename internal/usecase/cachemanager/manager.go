// Package cachemanager coordinates the five cache layers described in
// §4.6 on top of the KV adapter: fingerprint, topic, recency, source
// performance, and digest caches, plus warming, smart invalidation, and
// analytics.
package cachemanager

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/cache"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/repository"
)

const (
	defaultTopicListCap   = 200
	defaultRecencyListCap = 200
	defaultTopTopics      = 15
)

var fallbackTopics = []entity.Topic{
	entity.TopicTechnology, entity.TopicBusiness, entity.TopicPolitics, entity.TopicGeneral,
}

// SourcePerfMetrics is the L4 cache payload.
type SourcePerfMetrics struct {
	Reliability         int       `json:"reliability"`
	SuccessRate         float64   `json:"success_rate"`
	AvgResponseMs       float64   `json:"avg_response_ms"`
	TotalArticles       int64     `json:"total_articles"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccessfulPoll  time.Time `json:"last_successful_poll"`
	IsHealthy           bool      `json:"is_healthy"`
}

// Analytics are the counters the manager maintains, fused with hit_ratio.
type Analytics struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Writes       int64   `json:"writes"`
	Invalidations int64  `json:"invalidations"`
	Warmings     int64   `json:"warmings"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	HitRatio     float64 `json:"hit_ratio"`
}

// Manager is the injected collaborator the rest of the pipeline depends
// on; constructed once at process boot per the design notes.
type Manager struct {
	kv        cache.KV
	articles  repository.ArticleRepository
	sources   repository.SourceRepository
	logger    *slog.Logger
	startedAt time.Time

	mu          sync.Mutex
	layerLocks  map[string]bool
	hits        int64
	misses      int64
	writes      int64
	invalidations int64
	warmings    int64
}

func New(kv cache.KV, articles repository.ArticleRepository, sources repository.SourceRepository, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		kv:         kv,
		articles:   articles,
		sources:    sources,
		logger:     logger,
		startedAt:  time.Now(),
		layerLocks: make(map[string]bool),
	}
}

// tryLockLayer implements the per-layer mutual exclusion keyed by a
// string lock so concurrent warming of the same layer is rejected while
// different layers proceed in parallel.
func (m *Manager) tryLockLayer(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.layerLocks[name] {
		return false
	}
	m.layerLocks[name] = true
	return true
}

func (m *Manager) unlockLayer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.layerLocks, name)
}

func (m *Manager) recordHit(layer string) {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
	metrics.RecordCacheHit(layer)
}
func (m *Manager) recordMiss(layer string) {
	m.mu.Lock()
	m.misses++
	m.mu.Unlock()
	metrics.RecordCacheMiss(layer)
}
func (m *Manager) recordWrite() { m.mu.Lock(); m.writes++; m.mu.Unlock() }
func (m *Manager) recordInvalidation(layer string) {
	m.mu.Lock()
	m.invalidations++
	m.mu.Unlock()
	metrics.RecordCacheInvalidation(layer)
}
func (m *Manager) recordWarming(layer string, since time.Time) {
	m.mu.Lock()
	m.warmings++
	m.mu.Unlock()
	metrics.RecordCacheWarming(layer, time.Since(since))
}

// WriteFingerprint is L1: written on every insert.
func (m *Manager) WriteFingerprint(ctx context.Context, a *entity.Article) {
	proj := entity.NewArticleProjection(a)
	m.kv.SetJSON(ctx, cache.ArticleKey(a.Fingerprint), proj, cache.TTLArticle)
	m.recordWrite()
}

// GetByTopic is L2's read API: on miss, callers fall back to persistence
// and write through via WarmTopic.
func (m *Manager) GetByTopic(ctx context.Context, topic string, limit int) ([]string, bool) {
	ids := m.kv.LRange(ctx, cache.TopicKey(topic), 0, int64(limit-1))
	if len(ids) == 0 {
		m.recordMiss("topic")
		return nil, false
	}
	m.recordHit("topic")
	return ids, true
}

// WarmAll warms every layer concurrently; each layer is protected from
// concurrent re-warming by tryLockLayer.
func (m *Manager) WarmAll(ctx context.Context) {
	layers := []struct {
		name string
		fn   func(context.Context)
	}{
		{"topic", m.WarmTopics},
		{"recency", m.WarmRecency},
		{"source_perf", m.WarmSourcePerf},
	}
	var wg sync.WaitGroup
	for _, l := range layers {
		wg.Add(1)
		go func(name string, fn func(context.Context)) {
			defer wg.Done()
			fn(ctx)
		}(l.name, l.fn)
	}
	wg.Wait()
}

// WarmTopics populates topic:<t>:articles for the top-N active topics by
// article count in the last 24h (default 15), falling back to a fixed
// list when the persistence query yields nothing.
func (m *Manager) WarmTopics(ctx context.Context) {
	if !m.tryLockLayer("topic") {
		return
	}
	defer m.unlockLayer("topic")
	started := time.Now()

	counts, err := m.articles.CountByTopic(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		m.logger.Warn("warm topics: count query failed", slog.String("error", err.Error()))
		return
	}
	topics := topTopics(counts, defaultTopTopics)
	if len(topics) == 0 {
		topics = fallbackTopics
	}

	recent, err := m.articles.FetchRecentForDedup(ctx, time.Now().Add(-6*time.Hour))
	if err != nil {
		m.logger.Warn("warm topics: fetch recent failed", slog.String("error", err.Error()))
		return
	}

	byTopic := make(map[entity.Topic][]string)
	for _, a := range recent {
		byTopic[a.PrimaryTopic] = append(byTopic[a.PrimaryTopic], fmt.Sprintf("%d", a.ID))
	}

	for _, topic := range topics {
		ids := byTopic[topic]
		if len(ids) > defaultTopicListCap {
			ids = ids[:defaultTopicListCap]
		}
		key := cache.TopicKey(string(topic))
		m.kv.Delete(ctx, key)
		if len(ids) > 0 {
			m.kv.RPush(ctx, key, ids...)
			m.kv.Expire(ctx, key, cache.TTLTopic)
		}
	}
	m.recordWarming("topic", started)
}

func topTopics(counts map[entity.Topic]int64, n int) []entity.Topic {
	type pair struct {
		topic entity.Topic
		count int64
	}
	pairs := make([]pair, 0, len(counts))
	for t, c := range counts {
		pairs = append(pairs, pair{t, c})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].count > pairs[j].count })
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]entity.Topic, len(pairs))
	for i, p := range pairs {
		out[i] = p.topic
	}
	return out
}

// WarmRecency populates all three recency buckets.
func (m *Manager) WarmRecency(ctx context.Context) {
	if !m.tryLockLayer("recency") {
		return
	}
	defer m.unlockLayer("recency")
	started := time.Now()

	windows := map[cache.RecencyBucket]time.Duration{
		cache.Recency1h:  time.Hour,
		cache.Recency6h:  6 * time.Hour,
		cache.Recency24h: 24 * time.Hour,
	}
	for _, bucket := range cache.RecencyBuckets {
		articles, err := m.articles.FetchRecentForDedup(ctx, time.Now().Add(-windows[bucket]))
		if err != nil {
			m.logger.Warn("warm recency: fetch failed", slog.String("bucket", string(bucket)), slog.String("error", err.Error()))
			continue
		}
		sort.Slice(articles, func(i, j int) bool { return articles[i].DiscoveredAt.After(articles[j].DiscoveredAt) })
		if len(articles) > defaultRecencyListCap {
			articles = articles[:defaultRecencyListCap]
		}
		ids := make([]string, len(articles))
		for i, a := range articles {
			ids[i] = fmt.Sprintf("%d", a.ID)
		}
		key := cache.RecencyKey(bucket)
		m.kv.Delete(ctx, key)
		if len(ids) > 0 {
			m.kv.RPush(ctx, key, ids...)
			m.kv.Expire(ctx, key, cache.TTLRecency)
		}
	}
	m.recordWarming("recency", started)
}

// WarmSourcePerf refreshes L4 for every active source on a 30-minute
// cadence, and is also called directly after a successful collection.
func (m *Manager) WarmSourcePerf(ctx context.Context) {
	if !m.tryLockLayer("source_perf") {
		return
	}
	defer m.unlockLayer("source_perf")
	started := time.Now()

	sources, err := m.sources.ListActive(ctx)
	if err != nil {
		m.logger.Warn("warm source perf: list failed", slog.String("error", err.Error()))
		return
	}
	for _, s := range sources {
		m.WriteSourcePerf(ctx, s)
	}
	m.recordWarming("source_perf", started)
}

// WriteSourcePerf writes L4 for a single source, used on the 30-minute
// cadence and after every successful collection from that source.
func (m *Manager) WriteSourcePerf(ctx context.Context, s *entity.Source) {
	var lastSuccess time.Time
	if s.LastSuccessfulPollAt != nil {
		lastSuccess = *s.LastSuccessfulPollAt
	}
	metrics := SourcePerfMetrics{
		Reliability:         s.Reliability,
		SuccessRate:         s.SuccessRate(),
		AvgResponseMs:       s.AvgResponseMs,
		TotalArticles:       s.ArticlesCollected,
		ConsecutiveFailures: s.ConsecutiveFailures,
		LastSuccessfulPoll:  lastSuccess,
		IsHealthy:           s.IsHealthy(),
	}
	m.kv.SetJSON(ctx, cache.SourcePerfKey(s.ID), metrics, cache.TTLSourcePerf)
	m.recordWrite()
}

// InvalidateTopic drops the cached article list for a single topic, for
// the scheduler's on-demand invalidate_topic(topic) job — distinct from
// InvalidateFor, which derives the touched topics from a batch of articles.
func (m *Manager) InvalidateTopic(ctx context.Context, topic string) {
	m.kv.Delete(ctx, cache.TopicKey(topic))
	m.recordInvalidation("topic")
}

// InvalidateFor implements smart invalidation on ingest (§4.6): drop every
// touched topic key, all three recency buckets, and current-hour digests.
func (m *Manager) InvalidateFor(ctx context.Context, articles []*entity.Article) {
	if len(articles) == 0 {
		return
	}
	touched := make(map[entity.Topic]bool)
	for _, a := range articles {
		touched[a.PrimaryTopic] = true
	}
	for topic := range touched {
		m.kv.Delete(ctx, cache.TopicKey(string(topic)))
		m.recordInvalidation("topic")
	}
	for _, bucket := range cache.RecencyBuckets {
		m.kv.Delete(ctx, cache.RecencyKey(bucket))
		m.recordInvalidation("recency")
	}
	now := time.Now()
	for _, digestType := range []string{"morning", "evening"} {
		m.kv.Delete(ctx, cache.DigestKey(digestType, now))
		m.recordInvalidation("digest")
	}
}

// GetDigest is L5's read API: on miss, probe the previous hour before
// giving up.
func (m *Manager) GetDigest(ctx context.Context, digestType string, dest any) bool {
	now := time.Now()
	if m.kv.GetJSON(ctx, cache.DigestKey(digestType, now), dest) {
		m.recordHit("digest")
		return true
	}
	if m.kv.GetJSON(ctx, cache.DigestKey(digestType, now.Add(-time.Hour)), dest) {
		m.recordHit("digest")
		return true
	}
	m.recordMiss("digest")
	return false
}

// SetDigest writes a named digest for the current hour.
func (m *Manager) SetDigest(ctx context.Context, digestType string, value any) {
	m.kv.SetJSON(ctx, cache.DigestKey(digestType, time.Now()), value, cache.TTLDigest)
	m.recordWrite()
}

// GetArticlesSmart is the typical read-through contract: tries recency (if
// bucket given), then topic (if topic given); returns nil on full miss —
// callers decide whether to hit persistence.
func (m *Manager) GetArticlesSmart(ctx context.Context, topic string, bucket cache.RecencyBucket, limit int) ([]string, string) {
	if bucket != "" {
		ids := m.kv.LRange(ctx, cache.RecencyKey(bucket), 0, int64(limit-1))
		if len(ids) > 0 {
			m.recordHit("recency")
			return ids, "recency"
		}
	}
	if topic != "" {
		ids := m.kv.LRange(ctx, cache.TopicKey(topic), 0, int64(limit-1))
		if len(ids) > 0 {
			m.recordHit("topic")
			return ids, "topic"
		}
	}
	m.recordMiss("smart")
	return nil, ""
}

// GetArticleProjection reads L1 by fingerprint.
func (m *Manager) GetArticleProjection(ctx context.Context, fingerprint string) (entity.ArticleProjection, bool) {
	var proj entity.ArticleProjection
	if m.kv.GetJSON(ctx, cache.ArticleKey(fingerprint), &proj) {
		m.recordHit("fingerprint")
		return proj, true
	}
	m.recordMiss("fingerprint")
	return entity.ArticleProjection{}, false
}

// GetSourcePerf reads L4 for a single source, for GET /cache/performance.
func (m *Manager) GetSourcePerf(ctx context.Context, sourceID int64) (SourcePerfMetrics, bool) {
	var perf SourcePerfMetrics
	if m.kv.GetJSON(ctx, cache.SourcePerfKey(sourceID), &perf) {
		m.recordHit("source_perf")
		return perf, true
	}
	m.recordMiss("source_perf")
	return SourcePerfMetrics{}, false
}

// GetAnalytics fuses the manager's own counters with hit_ratio.
func (m *Manager) GetAnalytics() Analytics {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := m.hits + m.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(m.hits) / float64(total)
	}
	return Analytics{
		Hits:          m.hits,
		Misses:        m.misses,
		Writes:        m.writes,
		Invalidations: m.invalidations,
		Warmings:      m.warmings,
		UptimeSeconds: time.Since(m.startedAt).Seconds(),
		HitRatio:      ratio,
	}
}
