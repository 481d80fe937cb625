// Package dedup implements the deduplicator (C5): hash-based,
// title-similarity, domain-based, and hash-regeneration strategies over
// persisted articles, each independently invocable and idempotent.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/utils/text"
)

const minNormalizedTitleLen = 10

// Service is the deduplicator. Deletion is hard: rows removed by any
// strategy are gone, not soft-flagged.
type Service struct {
	Articles repository.ArticleRepository
	Logger   *slog.Logger
}

func NewService(articles repository.ArticleRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Articles: articles, Logger: logger}
}

// DedupeHash implements the hash-based strategy: group the dedup window by
// fingerprint, and within any group with more than one member keep the
// best and delete the rest.
func (s *Service) DedupeHash(ctx context.Context, since time.Time) (*entity.DedupStats, error) {
	started := time.Now()
	articles, err := s.Articles.FetchRecentForDedup(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch recent for dedup: %w", err)
	}

	groups := make(map[string][]*entity.Article)
	for _, a := range articles {
		if a.Fingerprint == "" {
			continue
		}
		groups[a.Fingerprint] = append(groups[a.Fingerprint], a)
	}

	removed, err := s.deleteDuplicatesInGroups(ctx, groups)
	if err != nil {
		return nil, err
	}
	stats := &entity.DedupStats{DuplicatesRemoved: removed, ArticlesProcessed: len(articles), Duration: time.Since(started)}
	metrics.RecordDuplicatesRemoved("hash", removed)
	s.logResult("hash", stats)
	return stats, nil
}

// DedupeTitle implements the title-similarity strategy: normalize titles
// and group by the normalized form, discarding titles too short to be a
// reliable grouping key.
func (s *Service) DedupeTitle(ctx context.Context, since time.Time) (*entity.DedupStats, error) {
	started := time.Now()
	articles, err := s.Articles.FetchRecentForDedup(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch recent for dedup: %w", err)
	}

	removed, err := s.dedupeByNormalizedTitle(ctx, articles)
	if err != nil {
		return nil, err
	}
	stats := &entity.DedupStats{DuplicatesRemoved: removed, ArticlesProcessed: len(articles), Duration: time.Since(started)}
	metrics.RecordDuplicatesRemoved("title", removed)
	s.logResult("title", stats)
	return stats, nil
}

// DedupeDomain implements the domain-based strategy: group by URL domain,
// then apply title-similarity dedup within each domain, to catch
// cross-posting of the same story under different URLs.
func (s *Service) DedupeDomain(ctx context.Context, since time.Time) (*entity.DedupStats, error) {
	started := time.Now()
	articles, err := s.Articles.FetchRecentForDedup(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch recent for dedup: %w", err)
	}

	byDomain := make(map[string][]*entity.Article)
	for _, a := range articles {
		domain := a.URLDomain()
		if domain == "" {
			continue
		}
		byDomain[domain] = append(byDomain[domain], a)
	}

	total := 0
	for _, group := range byDomain {
		removed, err := s.dedupeByNormalizedTitle(ctx, group)
		if err != nil {
			return nil, err
		}
		total += removed
	}
	stats := &entity.DedupStats{DuplicatesRemoved: total, ArticlesProcessed: len(articles), Duration: time.Since(started)}
	metrics.RecordDuplicatesRemoved("domain", total)
	s.logResult("domain", stats)
	return stats, nil
}

// RegenerateHashes implements the hash-regeneration strategy: find rows
// with a missing fingerprint and compute/persist one.
func (s *Service) RegenerateHashes(ctx context.Context, limit int) (*entity.DedupStats, error) {
	started := time.Now()
	if limit <= 0 {
		limit = 500
	}
	articles, err := s.Articles.FetchMissingFingerprint(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch missing fingerprint: %w", err)
	}

	updated := 0
	for _, a := range articles {
		a.Fingerprint = text.Fingerprint(a.Title, a.URL)
		if err := s.Articles.Update(ctx, a); err != nil {
			s.Logger.Warn("hash regeneration update failed", slog.Int64("article_id", a.ID), slog.String("error", err.Error()))
			continue
		}
		updated++
	}
	stats := &entity.DedupStats{DuplicatesRemoved: 0, ArticlesProcessed: updated, Duration: time.Since(started)}
	s.logResult("regenerate_hashes", stats)
	return stats, nil
}

func (s *Service) dedupeByNormalizedTitle(ctx context.Context, articles []*entity.Article) (int, error) {
	groups := make(map[string][]*entity.Article)
	for _, a := range articles {
		norm := text.NormalizeTitleForDedup(a.Title)
		if len(norm) < minNormalizedTitleLen {
			continue
		}
		groups[norm] = append(groups[norm], a)
	}
	return s.deleteDuplicatesInGroups(ctx, groups)
}

// deleteDuplicatesInGroups keeps the best-scoring article in each group
// (ties broken by latest discovered_at) and hard-deletes the rest.
func (s *Service) deleteDuplicatesInGroups(ctx context.Context, groups map[string][]*entity.Article) (int, error) {
	var toDelete []int64
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			si, sj := group[i].BestArticleScore(), group[j].BestArticleScore()
			if si != sj {
				return si > sj
			}
			return group[i].DiscoveredAt.After(group[j].DiscoveredAt)
		})
		for _, loser := range group[1:] {
			toDelete = append(toDelete, loser.ID)
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}
	removed, err := s.Articles.DeleteBatch(ctx, toDelete)
	if err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	return removed, nil
}

func (s *Service) logResult(strategy string, stats *entity.DedupStats) {
	s.Logger.Info("dedup strategy completed",
		slog.String("strategy", strategy),
		slog.Int("duplicates_removed", stats.DuplicatesRemoved),
		slog.Int("articles_processed", stats.ArticlesProcessed),
		slog.Duration("duration", stats.Duration))
}
