package entity

import "time"

// ArticleProjection is the read-facing view of an Article exposed by the
// HTTP API and cached under article:<fingerprint>. It truncates body
// content rather than exposing it in full.
type ArticleProjection struct {
	ID                   int64      `json:"id"`
	Title                string     `json:"title"`
	Content              string     `json:"content"`
	Summary              string     `json:"summary"`
	URL                  string     `json:"url"`
	SourceName           string     `json:"source_name"`
	PrimaryTopic         Topic      `json:"primary_topic"`
	SecondaryTopics      []Topic    `json:"secondary_topics"`
	ImportanceLevel      Importance `json:"importance_level"`
	PrimaryRegion        string     `json:"primary_region"`
	CountriesMentioned   []string   `json:"countries_mentioned"`
	QualityScore         float64    `json:"quality_score"`
	WordCount            int        `json:"word_count"`
	ReadingTimeMinutes   int        `json:"reading_time_minutes"`
	PublishedAt          time.Time  `json:"published_at"`
	DiscoveredAt         time.Time  `json:"discovered_at"`
	SourceReliability    int        `json:"source_reliability"`
}

const projectionContentTruncateLen = 500

// NewArticleProjection builds the read-facing view from a persisted
// Article, truncating body content to a fixed preview length.
func NewArticleProjection(a *Article) ArticleProjection {
	content := a.Body
	if len(content) > projectionContentTruncateLen {
		content = content[:projectionContentTruncateLen]
	}
	return ArticleProjection{
		ID:                 a.ID,
		Title:              a.Title,
		Content:            content,
		Summary:            a.Summary,
		URL:                a.URL,
		SourceName:         a.SourceName,
		PrimaryTopic:       a.PrimaryTopic,
		SecondaryTopics:    a.SecondaryTopics,
		ImportanceLevel:    a.Importance,
		PrimaryRegion:      a.PrimaryRegion,
		CountriesMentioned: a.CountriesMentioned,
		QualityScore:       a.QualityScore,
		WordCount:          a.WordCount,
		ReadingTimeMinutes: a.ReadingMinutes,
		PublishedAt:        a.PublishedAt,
		DiscoveredAt:       a.DiscoveredAt,
		SourceReliability:  a.SourceReliability,
	}
}
