package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
	"catchup-feed/internal/utils/text"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultMaxConcurrent = 10
const insertBatchSize = 5

// perDomainRPS/perDomainBurst cap how often collectOne hits any single
// feed host, independent of how many sources on that host are due at
// once — politeness the per-source circuit breaker doesn't cover.
const perDomainRPS = 5.0
const perDomainBurst = 10

// SourcePerfWriter is the subset of the cache manager's surface a
// successful collection writes through to, keeping this package from
// depending on the full cachemanager.Manager type.
type SourcePerfWriter interface {
	WriteSourcePerf(ctx context.Context, s *entity.Source)
	InvalidateFor(ctx context.Context, articles []*entity.Article)
}

// Service is the feed collector (C3): it owns per-source circuit
// breakers, coordinates bounded-concurrency polling, and persists new
// articles via the two-phase batch-insert policy.
type Service struct {
	Sources  repository.SourceRepository
	Articles repository.ArticleRepository
	Fetcher  FeedFetcher
	Cache    SourcePerfWriter
	Logger   *slog.Logger

	mu       sync.Mutex
	breakers map[int64]*circuitbreaker.CircuitBreaker
	limiters map[string]*rate.Limiter
}

func NewService(sources repository.SourceRepository, articles repository.ArticleRepository, fetcher FeedFetcher, cache SourcePerfWriter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Sources:  sources,
		Articles: articles,
		Fetcher:  fetcher,
		Cache:    cache,
		Logger:   logger,
		breakers: make(map[int64]*circuitbreaker.CircuitBreaker),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *Service) breakerFor(source *entity.Source) *circuitbreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[source.ID]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.CollectorConfig(source.Name))
		s.breakers[source.ID] = cb
	}
	return cb
}

// limiterFor returns the shared token-bucket limiter for a feed's host,
// creating one lazily. Sources on the same domain share a bucket even
// though each has its own circuit breaker.
func (s *Service) limiterFor(feedURL string) *rate.Limiter {
	host := hostnameOf(feedURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(perDomainRPS), perDomainBurst)
		s.limiters[host] = l
	}
	return l
}

func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

// sourceOutcome is the per-source result collect_all never lets escape as
// an overall failure — partial success is the normal case.
type sourceOutcome struct {
	source     *entity.Source
	inserted   int
	err        error
	skippedCB  bool
	duration   time.Duration
}

// CollectAll implements §4.3's public contract: poll every due source,
// bounded by maxConcurrent, and never fail the overall run.
func (s *Service) CollectAll(ctx context.Context, maxConcurrent int) (*entity.CollectionStats, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	started := time.Now()

	due, err := s.Sources.ListDue(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("list due sources: %w", err)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Reliability > due[j].Reliability })

	stats, err := s.collectMany(ctx, due, maxConcurrent)
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(started)

	s.Logger.Info("collect_all completed",
		slog.Int("sources_processed", stats.SourcesProcessed),
		slog.Int("sources_failed", stats.SourcesFailed),
		slog.Int64("articles_collected", stats.ArticlesCollected),
		slog.Int("circuit_breaker_skips", stats.CircuitBreakerSkips),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// CollectSingle runs the state machine for exactly one source, ignoring
// its next_poll_at — the on-demand collect_single(source_id) job.
func (s *Service) CollectSingle(ctx context.Context, sourceID int64) (*entity.CollectionStats, error) {
	source, err := s.Sources.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", sourceID, err)
	}
	started := time.Now()
	stats, err := s.collectMany(ctx, []*entity.Source{source}, 1)
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(started)
	return stats, nil
}

// CollectSources runs the state machine for every enabled source whose
// name matches one in names, ignoring next_poll_at — the on-demand
// trigger_sources(names) job.
func (s *Service) CollectSources(ctx context.Context, names []string) (*entity.CollectionStats, error) {
	all, err := s.Sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var matched []*entity.Source
	for _, src := range all {
		if wanted[src.Name] {
			matched = append(matched, src)
		}
	}
	started := time.Now()
	stats, err := s.collectMany(ctx, matched, defaultMaxConcurrent)
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(started)
	return stats, nil
}

// collectMany runs collectOne over sources bounded by maxConcurrent and
// folds the per-source outcomes into a CollectionStats. It never returns
// an error itself — partial per-source failure is the normal case.
func (s *Service) collectMany(ctx context.Context, sources []*entity.Source, maxConcurrent int) (*entity.CollectionStats, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	outcomes := make([]sourceOutcome, len(sources))
	sem := make(chan struct{}, maxConcurrent)
	eg, egCtx := errgroup.WithContext(ctx)

	for i, src := range sources {
		i, src := i, src
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()
			outcomes[i] = s.collectOne(egCtx, src)
			return nil
		})
	}
	_ = eg.Wait()

	stats := &entity.CollectionStats{
		SourceResponseTime: make(map[int64]time.Duration),
	}
	for _, o := range outcomes {
		if o.source == nil {
			continue
		}
		stats.SourcesProcessed++
		stats.SourceResponseTime[o.source.ID] = o.duration
		if o.skippedCB {
			stats.CircuitBreakerSkips++
			continue
		}
		if o.err != nil {
			stats.SourcesFailed++
			continue
		}
		stats.ArticlesCollected += int64(o.inserted)
	}
	return stats, nil
}

// collectOne runs the Idle→Fetching→Parsing→Extracting→DedupeCheck→
// Inserting→Recording→Done state machine for a single source. Any step
// failing lands in Recording's failure branch; it never returns an error
// the caller must propagate.
func (s *Service) collectOne(ctx context.Context, source *entity.Source) sourceOutcome {
	outcome := sourceOutcome{source: source}
	started := time.Now()
	defer func() { outcome.duration = time.Since(started) }()

	cb := s.breakerFor(source)
	if cb.IsOpen() {
		outcome.skippedCB = true
		return outcome
	}

	result, err := s.fetchWithRetry(ctx, cb, source)
	if err != nil {
		s.recordFailure(ctx, source, err)
		outcome.err = err
		return outcome
	}
	if result.Terminal {
		// 403/404 are terminal for this run but not fatal to the source:
		// leave its reliability counters untouched.
		return outcome
	}
	if result.NotModified {
		s.recordSuccess(ctx, source, 0, result.ResponseMs)
		return outcome
	}
	if len(result.Entries) == 0 {
		err := errors.New("no entries")
		s.recordFailure(ctx, source, err)
		outcome.err = err
		return outcome
	}

	now := time.Now()
	articles := make([]*entity.Article, 0, len(result.Entries))
	for _, raw := range result.Entries {
		extracted, ok := extractEntry(raw, now)
		if !ok {
			continue
		}
		fp := text.Fingerprint(extracted.Title, extracted.Link)
		articles = append(articles, &entity.Article{
			Fingerprint:  fp,
			SourceID:     source.ID,
			SourceName:   source.Name,
			Title:        extracted.Title,
			URL:          extracted.Link,
			Body:         extracted.Content,
			PublishedAt:  extracted.PublishedAt,
			DiscoveredAt: now,
			Language:     source.Language,
			PrimaryTopic: classifyProvisional(source.TopicTags, extracted.Title, extracted.Content),
			CreatedAt:    now,
		})
	}

	inserted, err := s.dedupeAndInsert(ctx, articles)
	if err != nil {
		s.recordFailure(ctx, source, err)
		outcome.err = err
		return outcome
	}
	outcome.inserted = len(inserted)

	s.recordSuccess(ctx, source, len(inserted), result.ResponseMs)
	if s.Cache != nil {
		s.Cache.WriteSourcePerf(ctx, source)
		if len(inserted) > 0 {
			s.Cache.InvalidateFor(ctx, inserted)
		}
	}
	return outcome
}

// fetchWithRetry runs the fetch through the circuit breaker, retrying up
// to 3 attempts with a 2^attempt-second backoff.
func (s *Service) fetchWithRetry(ctx context.Context, cb *circuitbreaker.CircuitBreaker, source *entity.Source) (*FetchResult, error) {
	limiter := s.limiterFor(source.FeedURL)
	var result *FetchResult
	err := retry.WithBackoff(ctx, retry.CollectorConfig(), func() error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		v, err := cb.Execute(func() (interface{}, error) {
			return s.Fetcher.Fetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				s.Logger.Warn("collector circuit breaker open", slog.Int64("source_id", source.ID))
			}
			return err
		}
		result = v.(*FetchResult)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dedupeAndInsert implements the bulk dedupe check and the two-phase
// insert policy: batches of 5 in one transaction, rolled back and
// retried per-row on a unique violation.
func (s *Service) dedupeAndInsert(ctx context.Context, articles []*entity.Article) ([]*entity.Article, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	fingerprints := make([]string, len(articles))
	for i, a := range articles {
		fingerprints[i] = a.Fingerprint
	}
	existing, err := s.Articles.FetchFingerprintsIn(ctx, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("fetch existing fingerprints: %w", err)
	}

	candidates := make([]*entity.Article, 0, len(articles))
	for _, a := range articles {
		if !existing[a.Fingerprint] {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	inserted := make([]*entity.Article, 0, len(candidates))
	for start := 0; start < len(candidates); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		outcomes, err := s.Articles.InsertBatch(ctx, batch)
		if err == nil {
			for i, o := range outcomes {
				if o.Inserted {
					inserted = append(inserted, batch[i])
				}
			}
			continue
		}

		s.Logger.Warn("batch insert failed, retrying per-row", slog.Int("batch_size", len(batch)), slog.String("error", err.Error()))
		for _, a := range batch {
			ok, rowErr := s.Articles.InsertOne(ctx, a)
			if rowErr != nil {
				s.Logger.Warn("row insert failed", slog.String("url", a.URL), slog.String("error", rowErr.Error()))
				continue
			}
			if ok {
				inserted = append(inserted, a)
			}
		}
	}
	return inserted, nil
}

func (s *Service) recordSuccess(ctx context.Context, source *entity.Source, inserted int, responseMs float64) {
	source.RecordSuccess(time.Now(), inserted, responseMs)
	if err := s.Sources.Update(ctx, source); err != nil {
		s.Logger.Warn("update source after success failed", slog.Int64("source_id", source.ID), slog.String("error", err.Error()))
	}
	metrics.RecordFeedCrawl(source.ID, 0, int64(inserted), int64(inserted), 0)
}

func (s *Service) recordFailure(ctx context.Context, source *entity.Source, err error) {
	source.RecordFailure(time.Now(), err.Error())
	if updateErr := s.Sources.Update(ctx, source); updateErr != nil {
		s.Logger.Warn("update source after failure failed", slog.Int64("source_id", source.ID), slog.String("error", updateErr.Error()))
	}
	metrics.RecordFeedCrawlError(source.ID, "collect_failed")
}
