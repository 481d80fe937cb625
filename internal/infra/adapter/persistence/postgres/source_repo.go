package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/pkg/search"
	"catchup-feed/internal/repository"
)

type SourceRepo struct{ db *sql.DB }

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

const sourceColumns = `
	id, name, feed_url, region, country, language, enabled, reliability,
	poll_interval_seconds, max_items_per_poll, topic_tags, last_poll_at,
	next_poll_at, last_successful_poll_at, etag, last_modified,
	total_polls, successful_polls, failed_polls, articles_collected,
	avg_response_ms, consecutive_failures, last_error, request_headers,
	created_at`

// scanSource is a helper function to scan a full source row, including the
// JSONB request_headers column and the poll_interval_seconds -> Duration
// conversion.
func scanSource(rows *sql.Rows) (*entity.Source, error) {
	var source entity.Source
	var pollIntervalSec int64
	var headersJSON []byte

	if err := rows.Scan(
		&source.ID, &source.Name, &source.FeedURL, &source.Region,
		&source.Country, &source.Language, &source.Enabled,
		&source.Reliability, &pollIntervalSec, &source.MaxItemsPerPoll,
		pq.Array(&source.TopicTags), &source.LastPollAt, &source.NextPollAt,
		&source.LastSuccessfulPollAt, &source.ETag, &source.LastModified,
		&source.TotalPolls, &source.SuccessfulPolls, &source.FailedPolls,
		&source.ArticlesCollected, &source.AvgResponseMs,
		&source.ConsecutiveFailures, &source.LastError, &headersJSON,
		&source.CreatedAt,
	); err != nil {
		return nil, err
	}

	source.PollInterval = time.Duration(pollIntervalSec) * time.Second
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &source.RequestHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal request_headers: %w", err)
		}
	}
	return &source, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1 LIMIT 1`
	rows, err := repo.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	source, err := scanSource(rows)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY reliability DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSources(rows, "List")
}

// ListActive returns all enabled sources ordered by reliability DESC — the
// base set the health-check job scans.
func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE enabled = TRUE ORDER BY reliability DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSources(rows, "ListActive")
}

// ListDue returns enabled sources whose next_poll_at <= now, ordered by
// reliability DESC, per §4.3 step 1.
func (repo *SourceRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error) {
	query := `
SELECT ` + sourceColumns + `
FROM sources
WHERE enabled = TRUE AND next_poll_at <= $1
ORDER BY reliability DESC`
	rows, err := repo.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("ListDue: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSources(rows, "ListDue")
}

func (repo *SourceRepo) Search(ctx context.Context, kw string) ([]*entity.Source, error) {
	ctx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	query := `
SELECT ` + sourceColumns + `
FROM sources
WHERE name ILIKE $1 ESCAPE '\' OR feed_url ILIKE $1 ESCAPE '\'
ORDER BY reliability DESC`
	param := "%" + search.EscapeILIKE(kw) + "%"
	rows, err := repo.db.QueryContext(ctx, query, param)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSources(rows, "Search")
}

func collectSources(rows *sql.Rows, op string) ([]*entity.Source, error) {
	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Create(ctx context.Context, source *entity.Source) error {
	headersJSON, err := json.Marshal(source.RequestHeaders)
	if err != nil {
		return fmt.Errorf("Create: marshal request_headers: %w", err)
	}
	if source.NextPollAt.IsZero() {
		source.NextPollAt = time.Now()
	}

	const query = `
INSERT INTO sources (
	name, feed_url, region, country, language, enabled, reliability,
	poll_interval_seconds, max_items_per_poll, topic_tags, next_poll_at,
	request_headers
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING id, created_at`
	err = repo.db.QueryRowContext(ctx, query,
		source.Name, source.FeedURL, source.Region, source.Country,
		source.Language, source.Enabled, source.Reliability,
		int64(source.PollInterval/time.Second), source.MaxItemsPerPoll,
		pq.Array(source.TopicTags), source.NextPollAt, headersJSON,
	).Scan(&source.ID, &source.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Update persists the full row, used by the collector's Recording step and
// the health-check job's disable action. Source rows are single-row
// writes — last-writer-wins on non-critical counters.
func (repo *SourceRepo) Update(ctx context.Context, source *entity.Source) error {
	headersJSON, err := json.Marshal(source.RequestHeaders)
	if err != nil {
		return fmt.Errorf("Update: marshal request_headers: %w", err)
	}

	const query = `
UPDATE sources SET
	name = $1, feed_url = $2, region = $3, country = $4, language = $5,
	enabled = $6, reliability = $7, poll_interval_seconds = $8,
	max_items_per_poll = $9, topic_tags = $10, last_poll_at = $11,
	next_poll_at = $12, last_successful_poll_at = $13, etag = $14,
	last_modified = $15, total_polls = $16, successful_polls = $17,
	failed_polls = $18, articles_collected = $19, avg_response_ms = $20,
	consecutive_failures = $21, last_error = $22, request_headers = $23
WHERE id = $24`
	res, err := repo.db.ExecContext(ctx, query,
		source.Name, source.FeedURL, source.Region, source.Country,
		source.Language, source.Enabled, source.Reliability,
		int64(source.PollInterval/time.Second), source.MaxItemsPerPoll,
		pq.Array(source.TopicTags), source.LastPollAt, source.NextPollAt,
		source.LastSuccessfulPollAt, source.ETag, source.LastModified,
		source.TotalPolls, source.SuccessfulPolls, source.FailedPolls,
		source.ArticlesCollected, source.AvgResponseMs,
		source.ConsecutiveFailures, source.LastError, headersJSON,
		source.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *SourceRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM sources WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *SourceRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE sources SET last_poll_at = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	return err
}
