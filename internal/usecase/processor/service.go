// Package processor implements the content processor (C4): it walks
// unprocessed articles in batches, applies the six enhancement steps from
// §4.4, and hands off to the deduplicator once every batch is done.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/repository"
)

const defaultDedupWindow = 3 * 24 * time.Hour

// Deduplicator is the subset of the deduplicator's surface the processor
// drives after a processing run — hash and title strategies only, per
// §4.4's "both hash and title strategies" instruction.
type Deduplicator interface {
	DedupeHash(ctx context.Context, since time.Time) (*entity.DedupStats, error)
	DedupeTitle(ctx context.Context, since time.Time) (*entity.DedupStats, error)
}

// Service is the content processor. Each enhancement step is a pure
// function of the current row; a step erroring skips the whole article
// without flipping content_processed, so it is retried next cycle.
type Service struct {
	Articles repository.ArticleRepository
	Dedup    Deduplicator
	Logger   *slog.Logger
	tables   *KeywordTables

	DedupWindow time.Duration
}

func NewService(articles repository.ArticleRepository, dedup Deduplicator, tables *KeywordTables, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tables == nil {
		tables = defaultKeywordTables()
	}
	return &Service{
		Articles:    articles,
		Dedup:       dedup,
		Logger:      logger,
		tables:      tables,
		DedupWindow: defaultDedupWindow,
	}
}

// ProcessUnprocessed implements §4.4's batch contract: loop in batches
// ordered by discovered_at descending until none remain, one enhancement
// pass per article per batch, then invoke the deduplicator.
func (s *Service) ProcessUnprocessed(ctx context.Context, batchSize int) (*entity.ProcessingStats, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	started := time.Now()
	stats := &entity.ProcessingStats{}

	for {
		batch, err := s.Articles.FetchUnprocessed(ctx, batchSize)
		if err != nil {
			return nil, fmt.Errorf("fetch unprocessed: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		now := time.Now()
		for _, a := range batch {
			if err := s.processOne(ctx, a, now); err != nil {
				s.Logger.Warn("article enhancement failed, will retry next cycle",
					slog.Int64("article_id", a.ID), slog.String("error", err.Error()))
				stats.ArticlesSkipped++
				continue
			}
			stats.ArticlesProcessed++
		}

		if len(batch) < batchSize {
			break
		}
	}

	stats.Duration = time.Since(started)
	metrics.RecordProcessorBatch(stats.Duration)
	s.Logger.Info("process_unprocessed completed",
		slog.Int("processed", stats.ArticlesProcessed),
		slog.Int("skipped", stats.ArticlesSkipped),
		slog.Duration("duration", stats.Duration))

	if s.Dedup != nil {
		since := started.Add(-s.DedupWindow)
		if _, err := s.Dedup.DedupeHash(ctx, since); err != nil {
			s.Logger.Warn("post-process hash dedup failed", slog.String("error", err.Error()))
		}
		if _, err := s.Dedup.DedupeTitle(ctx, since); err != nil {
			s.Logger.Warn("post-process title dedup failed", slog.String("error", err.Error()))
		}
	}

	return stats, nil
}

func (s *Service) processOne(ctx context.Context, a *entity.Article, now time.Time) error {
	s.enhance(a, now)
	a.Flags.ContentProcessed = true
	a.Flags.Classified = true
	if a.Summary != "" {
		a.Flags.SummaryGenerated = true
	}
	processedAt := now
	a.ProcessedAt = &processedAt

	metrics.RecordArticleProcessed(string(a.Importance))
	if err := s.Articles.UpdateProcessed(ctx, a); err != nil {
		return fmt.Errorf("persist processed article %d: %w", a.ID, err)
	}
	return nil
}
