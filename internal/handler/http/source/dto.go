package source

import (
	"time"

	"catchup-feed/internal/domain/entity"
)

// DTO is the read-facing view of a Source exposed by the HTTP API.
type DTO struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	FeedURL              string     `json:"feed_url"`
	Region               string     `json:"region"`
	Country              string     `json:"country"`
	Language             string     `json:"language"`
	Enabled              bool       `json:"enabled"`
	Reliability          int        `json:"reliability"`
	PollIntervalSeconds  int        `json:"poll_interval_seconds"`
	MaxItemsPerPoll      int        `json:"max_items_per_poll"`
	TopicTags            []string   `json:"topic_tags,omitempty"`
	LastPollAt           *time.Time `json:"last_poll_at,omitempty"`
	NextPollAt           time.Time  `json:"next_poll_at"`
	LastSuccessfulPollAt *time.Time `json:"last_successful_poll_at,omitempty"`
	SuccessRate          float64    `json:"success_rate"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	CreatedAt            time.Time  `json:"created_at"`
}

// toDTO converts a persisted Source into its HTTP projection.
func toDTO(e *entity.Source) DTO {
	return DTO{
		ID:                   e.ID,
		Name:                 e.Name,
		FeedURL:              e.FeedURL,
		Region:               e.Region,
		Country:              e.Country,
		Language:             e.Language,
		Enabled:              e.Enabled,
		Reliability:          e.Reliability,
		PollIntervalSeconds:  int(e.PollInterval.Seconds()),
		MaxItemsPerPoll:      e.MaxItemsPerPoll,
		TopicTags:            e.TopicTags,
		LastPollAt:           e.LastPollAt,
		NextPollAt:           e.NextPollAt,
		LastSuccessfulPollAt: e.LastSuccessfulPollAt,
		SuccessRate:          e.SuccessRate(),
		ConsecutiveFailures:  e.ConsecutiveFailures,
		CreatedAt:            e.CreatedAt,
	}
}
