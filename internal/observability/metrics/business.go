package metrics

import (
	"fmt"
	"time"
)

// RecordArticlesFetched records the number of articles fetched from a source.
// This metric helps track feed crawling performance and source activity.
func RecordArticlesFetched(sourceName string, sourceID int64, count int) {
	ArticlesFetchedTotal.WithLabelValues(
		sourceName,
		fmt.Sprintf("%d", sourceID),
	).Add(float64(count))
}

// RecordFeedCrawl records metrics for a feed crawl operation.
func RecordFeedCrawl(sourceID int64, duration time.Duration, itemsFound, itemsInserted, itemsDuplicated int64) {
	FeedCrawlDuration.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
	).Observe(duration.Seconds())

	if itemsFound > 0 {
		RecordArticlesFetched("", sourceID, int(itemsFound))
	}
}

// RecordFeedCrawlError records an error during feed crawling.
func RecordFeedCrawlError(sourceID int64, errorType string) {
	FeedCrawlErrors.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
		errorType,
	).Inc()
}

// UpdateArticlesTotal updates the total count of articles in the database.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the total count of sources in the database.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}

// RecordCacheHit records a cache manager hit on the named layer
// (fingerprint, topic, recency, source_perf, digest).
func RecordCacheHit(layer string) {
	CacheHitsTotal.WithLabelValues(layer).Inc()
}

// RecordCacheMiss records a cache manager miss on the named layer.
func RecordCacheMiss(layer string) {
	CacheMissesTotal.WithLabelValues(layer).Inc()
}

// RecordCacheWarming records the duration of one layer's warm pass.
func RecordCacheWarming(layer string, duration time.Duration) {
	CacheWarmingDuration.WithLabelValues(layer).Observe(duration.Seconds())
}

// RecordCacheInvalidation records one key drop during smart invalidation.
func RecordCacheInvalidation(layer string) {
	CacheInvalidationsTotal.WithLabelValues(layer).Inc()
}

// RecordProcessorBatch records the duration of one content-processing batch.
func RecordProcessorBatch(duration time.Duration) {
	ProcessorDuration.Observe(duration.Seconds())
}

// RecordArticleProcessed records one article completing content enhancement,
// labeled by the importance level it was classified into.
func RecordArticleProcessed(importance string) {
	ArticlesProcessedTotal.WithLabelValues(importance).Inc()
}

// RecordDuplicatesRemoved records duplicates removed by the named strategy
// (hash, title_similarity, domain, hash_regen).
func RecordDuplicatesRemoved(strategy string, count int) {
	if count <= 0 {
		return
	}
	DedupDuplicatesRemovedTotal.WithLabelValues(strategy).Add(float64(count))
}

// RecordSchedulerJob records a scheduled job's run duration.
func RecordSchedulerJob(job string, duration time.Duration) {
	SchedulerJobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordSchedulerJobError records a scheduled job failure.
func RecordSchedulerJobError(job string) {
	SchedulerJobErrors.WithLabelValues(job).Inc()
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
