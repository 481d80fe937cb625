// Package article provides HTTP handlers for article-related endpoints.
// It includes handlers for creating, listing, searching, updating, and deleting articles.
package article

import (
	"time"

	"catchup-feed/internal/domain/entity"
)

// DTO represents the JSON structure for article data transfer.
type DTO struct {
	ID                 int64          `json:"id" example:"1"`
	SourceID           int64          `json:"source_id" example:"1"`
	SourceName         string         `json:"source_name,omitempty" example:"Go Blog"`
	SourceReliability  int            `json:"source_reliability,omitempty" example:"80"`
	Title              string         `json:"title" example:"Go 1.23 リリース"`
	URL                string         `json:"url" example:"https://example.com/article/1"`
	Summary            string         `json:"summary" example:"Go 1.23 がリリースされました。新機能には..."`
	PrimaryTopic       entity.Topic   `json:"primary_topic,omitempty" example:"technology"`
	SecondaryTopics    []entity.Topic `json:"secondary_topics,omitempty"`
	ImportanceLevel    string         `json:"importance_level,omitempty" example:"regular"`
	PrimaryRegion      string         `json:"primary_region,omitempty"`
	CountriesMentioned []string       `json:"countries_mentioned,omitempty"`
	QualityScore       float64        `json:"quality_score,omitempty"`
	WordCount          int            `json:"word_count,omitempty"`
	ReadingTimeMinutes int            `json:"reading_time_minutes,omitempty"`
	PublishedAt        time.Time      `json:"published_at" example:"2025-10-26T10:00:00Z"`
	DiscoveredAt       time.Time      `json:"discovered_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at" example:"2025-10-26T12:00:00Z"`
}

// toDTO converts a persisted Article into its HTTP projection, optionally
// carrying the joined source name.
func toDTO(a *entity.Article, sourceName string) DTO {
	return DTO{
		ID:                 a.ID,
		SourceID:           a.SourceID,
		SourceName:         sourceName,
		SourceReliability:  a.SourceReliability,
		Title:              a.Title,
		URL:                a.URL,
		Summary:            a.Summary,
		PrimaryTopic:       a.PrimaryTopic,
		SecondaryTopics:    a.SecondaryTopics,
		ImportanceLevel:    string(a.Importance),
		PrimaryRegion:      a.PrimaryRegion,
		CountriesMentioned: a.CountriesMentioned,
		QualityScore:       a.QualityScore,
		WordCount:          a.WordCount,
		ReadingTimeMinutes: a.ReadingMinutes,
		PublishedAt:        a.PublishedAt,
		DiscoveredAt:       a.DiscoveredAt,
		CreatedAt:          a.CreatedAt,
	}
}
