package repository

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
)

// ArticleWithSource represents an article along with its source name.
type ArticleWithSource struct {
	Article    *entity.Article
	SourceName string
}

// ArticleSearchFilters contains optional filters for article search.
type ArticleSearchFilters struct {
	SourceID *int64     // Optional: Filter by source ID
	From     *time.Time // Optional: Filter articles published >= this date
	To       *time.Time // Optional: Filter articles published <= this date
	Topic    *string    // Optional: Filter by primary topic
}

// InsertOutcome is the per-row result of a batch insert, used by the
// collector's two-phase insert policy (batch attempt, then per-row retry
// on unique violation).
type InsertOutcome struct {
	Fingerprint string
	Inserted    bool
	Err         error
}

// ArticleRepository is the persistence contract for Article rows (C8).
type ArticleRepository interface {
	List(ctx context.Context) ([]*entity.Article, error)
	// ListWithSource retrieves all articles with their source names.
	ListWithSource(ctx context.Context) ([]ArticleWithSource, error)
	// ListWithSourcePaginated retrieves paginated articles with their source
	// names, ordered by published_at DESC.
	ListWithSourcePaginated(ctx context.Context, offset, limit int) ([]ArticleWithSource, error)
	// CountArticles returns the total number of articles in the database.
	CountArticles(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (*entity.Article, error)
	// GetWithSource retrieves an article by ID along with its source name.
	// Returns (nil, "", nil) if the article is not found.
	GetWithSource(ctx context.Context, id int64) (*entity.Article, string, error)
	Search(ctx context.Context, keyword string) ([]*entity.Article, error)
	// SearchWithFilters searches articles with multi-keyword AND logic and
	// optional filters.
	SearchWithFilters(ctx context.Context, keywords []string, filters ArticleSearchFilters) ([]*entity.Article, error)
	Create(ctx context.Context, article *entity.Article) error
	Update(ctx context.Context, article *entity.Article) error
	Delete(ctx context.Context, id int64) error
	ExistsByURL(ctx context.Context, url string) (bool, error)
	// ExistsByURLBatch checks URL existence in one round trip to avoid N+1
	// queries during ingestion.
	ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error)

	// FetchFingerprintsIn returns the subset of the given fingerprints that
	// are already persisted — the collector's bulk dedupe-check query.
	FetchFingerprintsIn(ctx context.Context, fingerprints []string) (map[string]bool, error)

	// InsertBatch inserts rows within a single transaction; on a
	// unique-violation it rolls back the batch and the caller retries
	// per-row via InsertOne, per §4.3's two-phase insert policy.
	InsertBatch(ctx context.Context, articles []*entity.Article) ([]InsertOutcome, error)
	// InsertOne inserts a single article, used for the per-row retry path
	// after a batch rollback. Returns (false, nil) without error when the
	// fingerprint already exists (skip, not fail).
	InsertOne(ctx context.Context, article *entity.Article) (bool, error)

	// FetchUnprocessed returns up to limit articles with
	// content_processed = false, ordered by discovered_at DESC.
	FetchUnprocessed(ctx context.Context, limit int) ([]*entity.Article, error)
	// UpdateProcessed persists the processor's enhancement of one article
	// and flips content_processed = true atomically.
	UpdateProcessed(ctx context.Context, article *entity.Article) error

	// FetchRecentForDedup returns articles discovered within the window,
	// used by the deduplicator's three strategies.
	FetchRecentForDedup(ctx context.Context, since time.Time) ([]*entity.Article, error)
	// FetchMissingFingerprint returns rows with NULL/empty fingerprint for
	// the deduplicator's hash-regeneration strategy.
	FetchMissingFingerprint(ctx context.Context, limit int) ([]*entity.Article, error)
	// DeleteBatch removes the given article ids in one statement — the
	// deduplicator's hard-delete policy.
	DeleteBatch(ctx context.Context, ids []int64) (int, error)

	// CountByTopic returns article counts grouped by primary topic, used by
	// /stats and by cache-warming's top-N active topics selection.
	CountByTopic(ctx context.Context, since time.Time) (map[entity.Topic]int64, error)
	// CountBySource returns article counts grouped by source name, used by
	// /stats's top_sources projection.
	CountBySource(ctx context.Context, limit int) (map[string]int64, error)
	// CountRecent returns the number of articles discovered since the given
	// time, used by /stats's recent_articles_24h.
	CountRecent(ctx context.Context, since time.Time) (int64, error)
}
