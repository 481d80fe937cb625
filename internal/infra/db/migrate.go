package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/sources.sql
var seedSourcesSQL string

// MigrateUp creates the sources/articles schema and seeds the starter
// source list. Safe to call on every boot: every statement is idempotent
// (IF NOT EXISTS / ON CONFLICT DO NOTHING).
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id                      SERIAL PRIMARY KEY,
    name                    TEXT NOT NULL,
    feed_url                TEXT NOT NULL UNIQUE,
    region                  TEXT NOT NULL DEFAULT '',
    country                 TEXT NOT NULL DEFAULT '',
    language                TEXT NOT NULL DEFAULT '',
    enabled                 BOOLEAN NOT NULL DEFAULT TRUE,
    reliability             INTEGER NOT NULL DEFAULT 50,
    poll_interval_seconds   INTEGER NOT NULL DEFAULT 900,
    max_items_per_poll      INTEGER NOT NULL DEFAULT 50,
    topic_tags              TEXT[] NOT NULL DEFAULT '{}',
    last_poll_at            TIMESTAMPTZ,
    next_poll_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_successful_poll_at TIMESTAMPTZ,
    etag                    TEXT NOT NULL DEFAULT '',
    last_modified           TEXT NOT NULL DEFAULT '',
    total_polls             BIGINT NOT NULL DEFAULT 0,
    successful_polls        BIGINT NOT NULL DEFAULT 0,
    failed_polls            BIGINT NOT NULL DEFAULT 0,
    articles_collected      BIGINT NOT NULL DEFAULT 0,
    avg_response_ms         DOUBLE PRECISION NOT NULL DEFAULT 0,
    consecutive_failures    INTEGER NOT NULL DEFAULT 0,
    last_error              TEXT NOT NULL DEFAULT '',
    request_headers         JSONB NOT NULL DEFAULT '{}',
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id                  SERIAL PRIMARY KEY,
    fingerprint         VARCHAR(64) NOT NULL UNIQUE,
    source_id           INTEGER NOT NULL REFERENCES sources(id),
    title               TEXT NOT NULL,
    url                 TEXT NOT NULL UNIQUE,
    body                TEXT NOT NULL DEFAULT '',
    summary             TEXT NOT NULL DEFAULT '',
    published_at        TIMESTAMPTZ NOT NULL,
    discovered_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    processed_at        TIMESTAMPTZ,
    language            TEXT NOT NULL DEFAULT '',
    primary_topic       VARCHAR(20) NOT NULL DEFAULT 'general',
    secondary_topics    TEXT[] NOT NULL DEFAULT '{}',
    importance          VARCHAR(20) NOT NULL DEFAULT 'regular',
    primary_region      TEXT NOT NULL DEFAULT '',
    countries_mentioned TEXT[] NOT NULL DEFAULT '{}',
    word_count          INTEGER NOT NULL DEFAULT 0,
    reading_minutes     INTEGER NOT NULL DEFAULT 1,
    quality_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
    tickers             TEXT[] NOT NULL DEFAULT '{}',
    market_sector       TEXT NOT NULL DEFAULT '',
    content_processed   BOOLEAN NOT NULL DEFAULT FALSE,
    summary_generated   BOOLEAN NOT NULL DEFAULT FALSE,
    classified          BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	// 性能最適化: 頻出クエリパターンに対応するインデックス
	indexes := []string{
		// 一覧・重複排除ウィンドウで使う ORDER BY published_at DESC
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_discovered_at ON articles(discovered_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_primary_topic ON articles(primary_topic)`,
		// FetchUnprocessed が走査する未処理行の絞り込み用
		`CREATE INDEX IF NOT EXISTS idx_articles_unprocessed ON articles(content_processed) WHERE content_processed = FALSE`,
		// §4.3 step 1 の due-source クエリ用
		`CREATE INDEX IF NOT EXISTS idx_sources_enabled ON sources(enabled) WHERE enabled = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_sources_next_poll_at ON sources(next_poll_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// pg_trgm拡張を有効化(ILIKE検索高速化用)
	// エラーを無視(既に存在する場合やスーパーユーザー権限がない場合)
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)

	// ILIKE検索用GINインデックス追加(マルチキーワード検索高速化)
	searchIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_title_gin ON articles USING gin(title gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_summary_gin ON articles USING gin(summary gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_name_gin ON sources USING gin(name gin_trgm_ops)`,
	}
	for _, idx := range searchIndexes {
		// pg_trgm拡張がない場合はエラーになるため無視
		_, _ = db.Exec(idx)
	}

	// シードデータの投入(重複は自動的にスキップ)
	if _, err := db.Exec(seedSourcesSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDown drops the search-only GIN indexes, leaving the sources and
// articles tables and their data intact. There is no full teardown path:
// this schema has no optional feature layer to unwind.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_articles_title_gin`,
		`DROP INDEX IF EXISTS idx_articles_summary_gin`,
		`DROP INDEX IF EXISTS idx_sources_name_gin`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
