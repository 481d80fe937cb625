// Package scheduler implements the task scheduler (C7): it drives the
// periodic collection/processing/dedup/health cadence and exposes the
// same operations as on-demand, individually triggerable jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/repository"

	"github.com/robfig/cron/v3"
)

const recordHistoryLimit = 200

// Collector is the subset of the feed collector's surface the scheduler
// drives: the periodic sweep plus the two on-demand entry points.
type Collector interface {
	CollectAll(ctx context.Context, maxConcurrent int) (*entity.CollectionStats, error)
	CollectSingle(ctx context.Context, sourceID int64) (*entity.CollectionStats, error)
	CollectSources(ctx context.Context, names []string) (*entity.CollectionStats, error)
}

// Processor is the subset of the content processor's surface the
// scheduler drives.
type Processor interface {
	ProcessUnprocessed(ctx context.Context, batchSize int) (*entity.ProcessingStats, error)
}

// Deduplicator is the full deduplicator surface; the daily job runs every
// strategy except hash-regeneration, which is maintenance-only.
type Deduplicator interface {
	DedupeHash(ctx context.Context, since time.Time) (*entity.DedupStats, error)
	DedupeTitle(ctx context.Context, since time.Time) (*entity.DedupStats, error)
	DedupeDomain(ctx context.Context, since time.Time) (*entity.DedupStats, error)
}

// CacheWarmer is the subset of the cache manager's surface the scheduler
// drives: the warming jobs and on-demand single-topic invalidation.
type CacheWarmer interface {
	WarmAll(ctx context.Context)
	WarmTopics(ctx context.Context)
	WarmRecency(ctx context.Context)
	WarmSourcePerf(ctx context.Context)
	InvalidateTopic(ctx context.Context, topic string)
}

// Service is the task scheduler. It owns a cron.Cron for the periodic
// cadence and a job history for both periodic and on-demand runs, keyed
// by a per-run UUID so GET /tasks/status/{id} can look one up.
type Service struct {
	Collector Collector
	Processor Processor
	Dedup     Deduplicator
	Cache     CacheWarmer
	Sources   repository.SourceRepository
	Logger    *slog.Logger
	Config    Config

	cron *cron.Cron
	life context.Context

	mu      sync.Mutex
	running map[string]bool
	records map[string]*JobRecord
	order   []string
}

func NewService(collector Collector, processor Processor, dedup Deduplicator, cache CacheWarmer, sources repository.SourceRepository, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Collector: collector,
		Processor: processor,
		Dedup:     dedup,
		Cache:     cache,
		Sources:   sources,
		Logger:    logger,
		Config:    cfg,
		running:   make(map[string]bool),
		records:   make(map[string]*JobRecord),
	}
}

// Start registers every periodic job on a UTC cron schedule and starts
// the scheduler loop. ctx is the service lifetime; it is threaded into
// every job run as the parent context.
func (s *Service) Start(ctx context.Context) error {
	s.life = ctx
	s.cron = cron.New(cron.WithLocation(time.UTC))

	entries := []struct {
		spec string
		kind string
		fn   jobFunc
	}{
		{s.Config.CollectAllCron, "collect-all", s.runCollectAll},
		{s.Config.ProcessContentCron, "process-content", s.runProcessContent},
		{s.Config.DedupeCron, "deduplicate", s.runDeduplicate},
		{s.Config.HealthCheckCron, "health-check-sources", s.runHealthCheck},
		{s.Config.SourcePerfCron, "source-performance-refresh", s.runSourcePerfRefresh},
	}
	for _, e := range entries {
		kind, fn := e.kind, e.fn
		if _, err := s.cron.AddFunc(e.spec, func() { s.runJob(s.life, kind, fn) }); err != nil {
			return fmt.Errorf("register cron job %q (%s): %w", kind, e.spec, err)
		}
	}

	s.cron.Start()
	s.Logger.Info("scheduler started", slog.Int("jobs_registered", len(entries)))
	return nil
}

// Stop drains in-flight cron jobs and blocks until they finish or ctx is
// cancelled, whichever comes first.
func (s *Service) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// JobStatus looks up a job run by id, for GET /tasks/status/{id}.
func (s *Service) JobStatus(id string) (JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return JobRecord{}, false
	}
	return *rec, true
}

// CollectSingle runs the collect_single(source_id) on-demand job.
func (s *Service) CollectSingle(ctx context.Context, sourceID int64) JobRecord {
	return *s.runJob(ctx, "collect_single", func(jctx context.Context) error {
		stats, err := s.Collector.CollectSingle(jctx, sourceID)
		if err != nil {
			return err
		}
		s.Logger.Info("collect_single completed", slog.Int64("source_id", sourceID), slog.Int64("articles_collected", stats.ArticlesCollected))
		return nil
	})
}

// TriggerCollectAll runs collect-all as an on-demand job, for GET
// /tasks/rss/trigger called without a source list.
func (s *Service) TriggerCollectAll(ctx context.Context) JobRecord {
	return *s.runJob(ctx, "trigger_collect_all", func(jctx context.Context) error {
		stats, err := s.Collector.CollectAll(jctx, s.Config.MaxConcurrentCollect)
		if err != nil {
			return err
		}
		s.Logger.Info("trigger_collect_all completed", slog.Int64("articles_collected", stats.ArticlesCollected))
		return nil
	})
}

// TriggerSources runs the trigger_sources(names) on-demand job.
func (s *Service) TriggerSources(ctx context.Context, names []string) JobRecord {
	return *s.runJob(ctx, "trigger_sources", func(jctx context.Context) error {
		stats, err := s.Collector.CollectSources(jctx, names)
		if err != nil {
			return err
		}
		s.Logger.Info("trigger_sources completed", slog.Any("names", names), slog.Int64("articles_collected", stats.ArticlesCollected))
		return nil
	})
}

// WarmCacheLayers runs the warm_cache_layers(layers) on-demand job. Each
// requested layer is warmed independently; an unrecognized layer name is
// logged and skipped rather than failing the whole job.
func (s *Service) WarmCacheLayers(ctx context.Context, layers []string) JobRecord {
	return *s.runJob(ctx, "warm_cache_layers", func(jctx context.Context) error {
		for _, layer := range layers {
			switch layer {
			case "all":
				s.Cache.WarmAll(jctx)
			case "topic", "topics":
				s.Cache.WarmTopics(jctx)
			case "recency":
				s.Cache.WarmRecency(jctx)
			case "source_perf":
				s.Cache.WarmSourcePerf(jctx)
			default:
				s.Logger.Warn("warm_cache_layers: unrecognized layer", slog.String("layer", layer))
			}
		}
		return nil
	})
}

// InvalidateTopic runs the invalidate_topic(topic) on-demand job.
func (s *Service) InvalidateTopic(ctx context.Context, topic string) JobRecord {
	return *s.runJob(ctx, "invalidate_topic", func(jctx context.Context) error {
		s.Cache.InvalidateTopic(jctx, topic)
		return nil
	})
}

func (s *Service) runCollectAll(ctx context.Context) error {
	stats, err := s.Collector.CollectAll(ctx, s.Config.MaxConcurrentCollect)
	if err != nil {
		return err
	}
	if stats.ArticlesCollected > 0 {
		s.scheduleProcessAfterCollect()
	}
	return nil
}

// scheduleProcessAfterCollect fires process-content out-of-band, in
// addition to its own cron cadence, per §4.7's "5 minutes after a
// collection run that found new articles" rule.
func (s *Service) scheduleProcessAfterCollect() {
	life := s.life
	if life == nil {
		return
	}
	time.AfterFunc(s.Config.ProcessAfterCollect, func() {
		s.runJob(life, "process-content", s.runProcessContent)
	})
}

func (s *Service) runProcessContent(ctx context.Context) error {
	_, err := s.Processor.ProcessUnprocessed(ctx, s.Config.BatchSize)
	return err
}

func (s *Service) runDeduplicate(ctx context.Context) error {
	since := time.Now().Add(-s.Config.DedupWindow)
	if _, err := s.Dedup.DedupeHash(ctx, since); err != nil {
		return fmt.Errorf("dedupe hash: %w", err)
	}
	if _, err := s.Dedup.DedupeTitle(ctx, since); err != nil {
		return fmt.Errorf("dedupe title: %w", err)
	}
	if _, err := s.Dedup.DedupeDomain(ctx, since); err != nil {
		return fmt.Errorf("dedupe domain: %w", err)
	}
	return nil
}

func (s *Service) runSourcePerfRefresh(ctx context.Context) error {
	s.Cache.WarmSourcePerf(ctx)
	return nil
}

// runHealthCheck implements §4.7's disable/warn thresholds over every
// enabled source: failure_rate > DisableFailureRate with at least
// DisableMinConsecutive consecutive failures disables the source;
// failure_rate > WarnFailureRate alone only logs.
func (s *Service) runHealthCheck(ctx context.Context) error {
	sources, err := s.Sources.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sources: %w", err)
	}
	for _, src := range sources {
		rate := src.FailureRate()
		switch {
		case rate > s.Config.DisableFailureRate && src.ConsecutiveFailures >= s.Config.DisableMinConsecutive:
			src.Enabled = false
			if err := s.Sources.Update(ctx, src); err != nil {
				s.Logger.Warn("health check: disable source failed",
					slog.Int64("source_id", src.ID), slog.String("error", err.Error()))
				continue
			}
			s.Logger.Warn("health check: source disabled",
				slog.Int64("source_id", src.ID), slog.String("name", src.Name),
				slog.Float64("failure_rate", rate), slog.Int("consecutive_failures", src.ConsecutiveFailures))
		case rate > s.Config.WarnFailureRate:
			s.Logger.Warn("health check: source failure rate elevated",
				slog.Int64("source_id", src.ID), slog.String("name", src.Name), slog.Float64("failure_rate", rate))
		}
	}
	return nil
}

// runJob enforces per-kind mutual exclusion, the soft/hard deadlines, and
// the retry-with-backoff policy around a single job kind, recording its
// outcome under a fresh UUID. A kind already running is skipped outright
// and reported as nil.
func (s *Service) runJob(parent context.Context, kind string, fn jobFunc) *JobRecord {
	s.mu.Lock()
	if s.running[kind] {
		s.mu.Unlock()
		s.Logger.Warn("job skipped, previous run still in flight", slog.String("kind", kind))
		return &JobRecord{ID: "", Kind: kind, Status: JobFailed, Error: "already running"}
	}
	s.running[kind] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, kind)
		s.mu.Unlock()
	}()

	rec := &JobRecord{ID: newJobID(), Kind: kind, Status: JobRunning, StartedAt: time.Now()}
	s.storeRecord(rec)

	hardCtx, cancel := context.WithTimeout(parent, s.Config.HardDeadline)
	defer cancel()

	softTimer := time.AfterFunc(s.Config.SoftDeadline, func() {
		s.Logger.Warn("job exceeded soft deadline", slog.String("kind", kind), slog.String("job_id", rec.ID))
	})
	defer softTimer.Stop()

	maxAttempts := s.Config.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rec.Attempt = attempt
		lastErr = fn(hardCtx)
		if lastErr == nil {
			break
		}
		if attempt == maxAttempts || hardCtx.Err() != nil {
			break
		}
		s.Logger.Warn("job attempt failed, retrying",
			slog.String("kind", kind), slog.String("job_id", rec.ID),
			slog.Int("attempt", attempt), slog.String("error", lastErr.Error()))
		select {
		case <-time.After(delay):
		case <-hardCtx.Done():
		}
		delay *= 2
	}

	rec.EndedAt = time.Now()
	duration := rec.EndedAt.Sub(rec.StartedAt)
	metrics.RecordSchedulerJob(kind, duration)
	if lastErr != nil {
		rec.Status = JobFailed
		rec.Error = lastErr.Error()
		metrics.RecordSchedulerJobError(kind)
		s.Logger.Error("job failed", slog.String("kind", kind), slog.String("job_id", rec.ID),
			slog.Int("attempts", rec.Attempt), slog.String("error", lastErr.Error()))
	} else {
		rec.Status = JobSuccess
		s.Logger.Info("job completed", slog.String("kind", kind), slog.String("job_id", rec.ID),
			slog.Int("attempts", rec.Attempt), slog.Duration("duration", duration))
	}
	s.storeRecord(rec)
	return rec
}

// storeRecord upserts a job record by id and evicts the oldest entry once
// the history exceeds recordHistoryLimit.
func (s *Service) storeRecord(rec *JobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	for len(s.order) > recordHistoryLimit {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
}
