package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/pkg/search"
	"catchup-feed/internal/repository"
)

type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

const articleColumns = `
	id, fingerprint, source_id, title, url, body, summary,
	published_at, discovered_at, processed_at, language,
	primary_topic, secondary_topics, importance, primary_region,
	countries_mentioned, word_count, reading_minutes, quality_score,
	tickers, market_sector, content_processed, summary_generated,
	classified, created_at`

func scanArticle(scanner interface{ Scan(...interface{}) error }) (*entity.Article, error) {
	var a entity.Article
	var primaryTopic, importance string
	if err := scanner.Scan(
		&a.ID, &a.Fingerprint, &a.SourceID, &a.Title, &a.URL, &a.Body,
		&a.Summary, &a.PublishedAt, &a.DiscoveredAt, &a.ProcessedAt,
		&a.Language, &primaryTopic, pq.Array(&a.SecondaryTopics),
		&importance, &a.PrimaryRegion, pq.Array(&a.CountriesMentioned),
		&a.WordCount, &a.ReadingMinutes, &a.QualityScore,
		pq.Array(&a.Tickers), &a.MarketSector, &a.Flags.ContentProcessed,
		&a.Flags.SummaryGenerated, &a.Flags.Classified, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.PrimaryTopic = entity.Topic(primaryTopic)
	a.Importance = entity.Importance(importance)
	return &a, nil
}

func scanArticleWithSource(scanner interface{ Scan(...interface{}) error }) (*entity.Article, string, error) {
	var a entity.Article
	var primaryTopic, importance, sourceName string
	var sourceReliability int
	if err := scanner.Scan(
		&a.ID, &a.Fingerprint, &a.SourceID, &a.Title, &a.URL, &a.Body,
		&a.Summary, &a.PublishedAt, &a.DiscoveredAt, &a.ProcessedAt,
		&a.Language, &primaryTopic, pq.Array(&a.SecondaryTopics),
		&importance, &a.PrimaryRegion, pq.Array(&a.CountriesMentioned),
		&a.WordCount, &a.ReadingMinutes, &a.QualityScore,
		pq.Array(&a.Tickers), &a.MarketSector, &a.Flags.ContentProcessed,
		&a.Flags.SummaryGenerated, &a.Flags.Classified, &a.CreatedAt,
		&sourceName, &sourceReliability,
	); err != nil {
		return nil, "", err
	}
	a.PrimaryTopic = entity.Topic(primaryTopic)
	a.Importance = entity.Importance(importance)
	a.SourceName = sourceName
	a.SourceReliability = sourceReliability
	return &a, sourceName, nil
}

func (repo *ArticleRepo) List(ctx context.Context) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY published_at DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, 100)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) ListWithSource(ctx context.Context) ([]repository.ArticleWithSource, error) {
	query := `
SELECT ` + articleColumnsAliased("a") + `, s.name, s.reliability
FROM articles a
INNER JOIN sources s ON a.source_id = s.id
ORDER BY a.published_at DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListWithSource: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectArticlesWithSource(rows, "ListWithSource")
}

// ListWithSourcePaginated retrieves paginated articles with source names,
// ordered by published_at DESC.
func (repo *ArticleRepo) ListWithSourcePaginated(ctx context.Context, offset, limit int) ([]repository.ArticleWithSource, error) {
	query := `
SELECT ` + articleColumnsAliased("a") + `, s.name, s.reliability
FROM articles a
INNER JOIN sources s ON a.source_id = s.id
ORDER BY a.published_at DESC
LIMIT $1 OFFSET $2`
	rows, err := repo.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListWithSourcePaginated: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectArticlesWithSource(rows, "ListWithSourcePaginated")
}

func collectArticlesWithSource(rows *sql.Rows, op string) ([]repository.ArticleWithSource, error) {
	result := make([]repository.ArticleWithSource, 0, 100)
	for rows.Next() {
		a, sourceName, err := scanArticleWithSource(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		result = append(result, repository.ArticleWithSource{Article: a, SourceName: sourceName})
	}
	return result, rows.Err()
}

// articleColumnsAliased renders articleColumns with the given table alias
// prefix, for use in joined queries.
func articleColumnsAliased(alias string) string {
	cols := strings.Split(strings.ReplaceAll(articleColumns, "\n", " "), ",")
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, alias+"."+c)
	}
	return strings.Join(out, ", ")
}

func (repo *ArticleRepo) CountArticles(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM articles`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountArticles: %w", err)
	}
	return count, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1 LIMIT 1`
	a, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

// GetWithSource retrieves an article by ID along with its source name.
// Returns (nil, "", nil) if the article is not found.
func (repo *ArticleRepo) GetWithSource(ctx context.Context, id int64) (*entity.Article, string, error) {
	query := `
SELECT ` + articleColumnsAliased("a") + `, s.name, s.reliability
FROM articles a
INNER JOIN sources s ON a.source_id = s.id
WHERE a.id = $1
LIMIT 1`
	a, sourceName, err := scanArticleWithSource(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("GetWithSource: %w", err)
	}
	return a, sourceName, nil
}

func (repo *ArticleRepo) Search(ctx context.Context, keyword string) ([]*entity.Article, error) {
	query := `
SELECT ` + articleColumns + `
FROM articles
WHERE title ILIKE $1 ESCAPE '\' OR summary ILIKE $1 ESCAPE '\'
ORDER BY published_at DESC`
	param := "%" + search.EscapeILIKE(keyword) + "%"
	rows, err := repo.db.QueryContext(ctx, query, param)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectArticles(rows, "Search")
}

func (repo *ArticleRepo) SearchWithFilters(ctx context.Context, keywords []string, filters repository.ArticleSearchFilters) ([]*entity.Article, error) {
	if len(keywords) == 0 && filters.SourceID == nil && filters.From == nil && filters.To == nil && filters.Topic == nil {
		return []*entity.Article{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	qb := NewArticleQueryBuilder()
	whereClause, args := qb.BuildWhereClause(keywords, filters, "")

	query := `SELECT ` + articleColumns + ` FROM articles ` + whereClause + ` ORDER BY published_at DESC`
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchWithFilters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectArticles(rows, "SearchWithFilters")
}

func collectArticles(rows *sql.Rows, op string) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, 100)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	if article.DiscoveredAt.IsZero() {
		article.DiscoveredAt = time.Now()
	}
	const query = `
INSERT INTO articles (
	fingerprint, source_id, title, url, body, summary, published_at,
	discovered_at, processed_at, language, primary_topic,
	secondary_topics, importance, primary_region, countries_mentioned,
	word_count, reading_minutes, quality_score, tickers, market_sector,
	content_processed, summary_generated, classified
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		article.Fingerprint, article.SourceID, article.Title, article.URL,
		article.Body, article.Summary, article.PublishedAt,
		article.DiscoveredAt, article.ProcessedAt, article.Language,
		string(article.PrimaryTopic), pq.Array(topicsToStrings(article.SecondaryTopics)),
		string(article.Importance), article.PrimaryRegion,
		pq.Array(article.CountriesMentioned), article.WordCount,
		article.ReadingMinutes, article.QualityScore,
		pq.Array(article.Tickers), article.MarketSector,
		article.Flags.ContentProcessed, article.Flags.SummaryGenerated,
		article.Flags.Classified,
	).Scan(&article.ID, &article.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) Update(ctx context.Context, article *entity.Article) error {
	const query = `
UPDATE articles SET
	source_id = $1, title = $2, url = $3, body = $4, summary = $5,
	published_at = $6, processed_at = $7, language = $8,
	primary_topic = $9, secondary_topics = $10, importance = $11,
	primary_region = $12, countries_mentioned = $13, word_count = $14,
	reading_minutes = $15, quality_score = $16, tickers = $17,
	market_sector = $18, content_processed = $19, summary_generated = $20,
	classified = $21
WHERE id = $22`
	res, err := repo.db.ExecContext(ctx, query,
		article.SourceID, article.Title, article.URL, article.Body,
		article.Summary, article.PublishedAt, article.ProcessedAt,
		article.Language, string(article.PrimaryTopic),
		pq.Array(topicsToStrings(article.SecondaryTopics)),
		string(article.Importance), article.PrimaryRegion,
		pq.Array(article.CountriesMentioned), article.WordCount,
		article.ReadingMinutes, article.QualityScore,
		pq.Array(article.Tickers), article.MarketSector,
		article.Flags.ContentProcessed, article.Flags.SummaryGenerated,
		article.Flags.Classified, article.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *ArticleRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM articles WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *ArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`
	var existsFlag bool
	if err := repo.db.QueryRowContext(ctx, query, url).Scan(&existsFlag); err != nil {
		return false, fmt.Errorf("ExistsByURL: %w", err)
	}
	return existsFlag, nil
}

// ExistsByURLBatch checks URL existence in one round trip to avoid N+1
// queries during ingestion.
func (repo *ArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return make(map[string]bool), nil
	}

	const query = `SELECT url FROM articles WHERE url = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ExistsByURLBatch: Scan: %w", err)
		}
		result[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: rows.Err: %w", err)
	}
	return result, nil
}

// FetchFingerprintsIn returns the subset of the given fingerprints that are
// already persisted — the collector's bulk dedupe-check query.
func (repo *ArticleRepo) FetchFingerprintsIn(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	if len(fingerprints) == 0 {
		return make(map[string]bool), nil
	}

	const query = `SELECT fingerprint FROM articles WHERE fingerprint = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(fingerprints))
	if err != nil {
		return nil, fmt.Errorf("FetchFingerprintsIn: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("FetchFingerprintsIn: Scan: %w", err)
		}
		result[fp] = true
	}
	return result, rows.Err()
}

// InsertBatch inserts rows within a single transaction; on a
// unique-violation it rolls back the batch and the caller retries per-row
// via InsertOne, per §4.3's two-phase insert policy.
func (repo *ArticleRepo) InsertBatch(ctx context.Context, articles []*entity.Article) ([]repository.InsertOutcome, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InsertBatch: begin: %w", err)
	}

	outcomes := make([]repository.InsertOutcome, 0, len(articles))
	for _, a := range articles {
		if err := insertArticleTx(ctx, tx, a); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("InsertBatch: %w", err)
		}
		outcomes = append(outcomes, repository.InsertOutcome{Fingerprint: a.Fingerprint, Inserted: true})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("InsertBatch: commit: %w", err)
	}
	return outcomes, nil
}

// InsertOne inserts a single article, used for the per-row retry path after
// a batch rollback. Returns (false, nil) without error when the fingerprint
// already exists (skip, not fail).
func (repo *ArticleRepo) InsertOne(ctx context.Context, article *entity.Article) (bool, error) {
	if err := insertArticleTx(ctx, repo.db, article); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("InsertOne: %w", err)
	}
	return true, nil
}

// sqlExecer is satisfied by both *sql.DB and *sql.Tx, letting insertArticleTx
// run inside or outside a transaction.
type sqlExecer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertArticleTx(ctx context.Context, execer sqlExecer, article *entity.Article) error {
	if article.DiscoveredAt.IsZero() {
		article.DiscoveredAt = time.Now()
	}
	const query = `
INSERT INTO articles (
	fingerprint, source_id, title, url, body, summary, published_at,
	discovered_at, processed_at, language, primary_topic,
	secondary_topics, importance, primary_region, countries_mentioned,
	word_count, reading_minutes, quality_score, tickers, market_sector,
	content_processed, summary_generated, classified
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
RETURNING id, created_at`
	return execer.QueryRowContext(ctx, query,
		article.Fingerprint, article.SourceID, article.Title, article.URL,
		article.Body, article.Summary, article.PublishedAt,
		article.DiscoveredAt, article.ProcessedAt, article.Language,
		string(article.PrimaryTopic), pq.Array(topicsToStrings(article.SecondaryTopics)),
		string(article.Importance), article.PrimaryRegion,
		pq.Array(article.CountriesMentioned), article.WordCount,
		article.ReadingMinutes, article.QualityScore,
		pq.Array(article.Tickers), article.MarketSector,
		article.Flags.ContentProcessed, article.Flags.SummaryGenerated,
		article.Flags.Classified,
	).Scan(&article.ID, &article.CreatedAt)
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func topicsToStrings(topics []entity.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = string(t)
	}
	return out
}

// FetchUnprocessed returns up to limit articles with content_processed =
// false, ordered by discovered_at DESC.
func (repo *ArticleRepo) FetchUnprocessed(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := `
SELECT ` + articleColumns + `
FROM articles
WHERE content_processed = FALSE
ORDER BY discovered_at DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("FetchUnprocessed: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectArticles(rows, "FetchUnprocessed")
}

// UpdateProcessed persists the processor's enhancement of one article and
// flips content_processed = true atomically.
func (repo *ArticleRepo) UpdateProcessed(ctx context.Context, article *entity.Article) error {
	now := time.Now()
	article.ProcessedAt = &now
	article.Flags.ContentProcessed = true

	const query = `
UPDATE articles SET
	body = $1, summary = $2, language = $3, primary_topic = $4,
	secondary_topics = $5, importance = $6, primary_region = $7,
	countries_mentioned = $8, word_count = $9, reading_minutes = $10,
	quality_score = $11, tickers = $12, market_sector = $13,
	content_processed = TRUE, summary_generated = $14, classified = $15,
	processed_at = $16
WHERE id = $17`
	res, err := repo.db.ExecContext(ctx, query,
		article.Body, article.Summary, article.Language,
		string(article.PrimaryTopic), pq.Array(topicsToStrings(article.SecondaryTopics)),
		string(article.Importance), article.PrimaryRegion,
		pq.Array(article.CountriesMentioned), article.WordCount,
		article.ReadingMinutes, article.QualityScore,
		pq.Array(article.Tickers), article.MarketSector,
		article.Flags.SummaryGenerated, article.Flags.Classified,
		article.ProcessedAt, article.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateProcessed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateProcessed: no rows affected")
	}
	return nil
}

// FetchRecentForDedup returns articles discovered within the window, used by
// the deduplicator's three strategies.
func (repo *ArticleRepo) FetchRecentForDedup(ctx context.Context, since time.Time) ([]*entity.Article, error) {
	query := `
SELECT ` + articleColumns + `
FROM articles
WHERE discovered_at >= $1
ORDER BY discovered_at DESC`
	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("FetchRecentForDedup: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectArticles(rows, "FetchRecentForDedup")
}

// FetchMissingFingerprint returns rows with NULL/empty fingerprint for the
// deduplicator's hash-regeneration strategy.
func (repo *ArticleRepo) FetchMissingFingerprint(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := `
SELECT ` + articleColumns + `
FROM articles
WHERE fingerprint = '' OR fingerprint IS NULL
ORDER BY discovered_at DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("FetchMissingFingerprint: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectArticles(rows, "FetchMissingFingerprint")
}

// DeleteBatch removes the given article ids in one statement — the
// deduplicator's hard-delete policy.
func (repo *ArticleRepo) DeleteBatch(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM articles WHERE id = ANY($1)`
	res, err := repo.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("DeleteBatch: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CountByTopic returns article counts grouped by primary topic, used by
// /stats and by cache-warming's top-N active topics selection.
func (repo *ArticleRepo) CountByTopic(ctx context.Context, since time.Time) (map[entity.Topic]int64, error) {
	const query = `
SELECT primary_topic, COUNT(*)
FROM articles
WHERE discovered_at >= $1
GROUP BY primary_topic`
	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("CountByTopic: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[entity.Topic]int64)
	for rows.Next() {
		var topic string
		var count int64
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, fmt.Errorf("CountByTopic: Scan: %w", err)
		}
		result[entity.Topic(topic)] = count
	}
	return result, rows.Err()
}

// CountBySource returns article counts grouped by source name, used by
// /stats's top_sources projection.
func (repo *ArticleRepo) CountBySource(ctx context.Context, limit int) (map[string]int64, error) {
	const query = `
SELECT s.name, COUNT(*)
FROM articles a
INNER JOIN sources s ON a.source_id = s.id
GROUP BY s.name
ORDER BY COUNT(*) DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("CountBySource: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("CountBySource: Scan: %w", err)
		}
		result[name] = count
	}
	return result, rows.Err()
}

// CountRecent returns the number of articles discovered since the given
// time, used by /stats's recent_articles_24h.
func (repo *ArticleRepo) CountRecent(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM articles WHERE discovered_at >= $1`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountRecent: %w", err)
	}
	return count, nil
}
