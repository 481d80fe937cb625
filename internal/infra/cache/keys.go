package cache

import (
	"fmt"
	"time"
)

// Fixed key shapes and TTLs from §4.2. Stable across versions — do not
// rename without a migration plan for already-cached keys.
const (
	TTLArticle     = 86400 * time.Second
	TTLTopic       = 10800 * time.Second
	TTLRecency     = 3600 * time.Second
	TTLSourcePerf  = 1800 * time.Second
	TTLDigest      = 7200 * time.Second
	TTLRSSStats    = 3600 * time.Second
)

// RecencyBucket is one of the three fixed recency windows the cache
// manager's L3 layer maintains.
type RecencyBucket string

const (
	Recency1h  RecencyBucket = "1h"
	Recency6h  RecencyBucket = "6h"
	Recency24h RecencyBucket = "24h"
)

var RecencyBuckets = []RecencyBucket{Recency1h, Recency6h, Recency24h}

func ArticleKey(fingerprint string) string {
	return "article:" + fingerprint
}

func TopicKey(topic string) string {
	return fmt.Sprintf("topic:%s:articles", topic)
}

func RecencyKey(bucket RecencyBucket) string {
	return fmt.Sprintf("recency:%s:articles", bucket)
}

func SourcePerfKey(sourceID int64) string {
	return fmt.Sprintf("source_perf:%d", sourceID)
}

func DigestKey(digestType string, hour time.Time) string {
	return fmt.Sprintf("digest:%s:%s", digestType, hour.UTC().Format("20060102_15"))
}

func RSSStatsKey(hour time.Time) string {
	return fmt.Sprintf("rss:stats:%s", hour.UTC().Format("20060102_15"))
}
