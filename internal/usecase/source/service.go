package source

import (
	"context"
	"fmt"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

const (
	defaultReliability     = 50
	defaultPollInterval    = 30 * time.Minute
	defaultMaxItemsPerPoll = 50
)

// CreateInput represents the input parameters for registering a new source.
// Reliability starts at the collector's default and PollInterval/
// MaxItemsPerPoll fall back to sensible defaults when left zero.
type CreateInput struct {
	Name            string
	FeedURL         string
	Region          string
	Country         string
	Language        string
	PollInterval    time.Duration
	MaxItemsPerPoll int
	TopicTags       []string
}

// UpdateInput represents the input parameters for updating an existing
// source. Nil fields are left unchanged.
type UpdateInput struct {
	ID              int64
	Name            *string
	FeedURL         *string
	Region          *string
	Country         *string
	Language        *string
	Enabled         *bool
	Reliability     *int
	PollInterval    *time.Duration
	MaxItemsPerPoll *int
	TopicTags       []string
}

// Service provides source management use cases.
// It handles business logic for source operations and delegates persistence to the repository.
type Service struct {
	Repo repository.SourceRepository
}

// List retrieves all sources from the repository, ordered by reliability.
func (s *Service) List(ctx context.Context) ([]*entity.Source, error) {
	sources, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// ListActive retrieves all enabled sources, the base set the health-check
// job scans.
func (s *Service) ListActive(ctx context.Context) ([]*entity.Source, error) {
	sources, err := s.Repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	return sources, nil
}

// ListDue retrieves enabled sources whose next poll has arrived.
func (s *Service) ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error) {
	sources, err := s.Repo.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due sources: %w", err)
	}
	return sources, nil
}

// Search finds sources whose name or feed URL matches the given keyword.
func (s *Service) Search(ctx context.Context, keyword string) ([]*entity.Source, error) {
	sources, err := s.Repo.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}
	return sources, nil
}

// Create registers a new source with the provided input, applying the
// collector's default reliability and poll cadence when left unset.
func (s *Service) Create(ctx context.Context, in CreateInput) error {
	if in.Name == "" {
		return &entity.ValidationError{Field: "name", Message: "is required"}
	}
	if in.FeedURL == "" {
		return &entity.ValidationError{Field: "feedURL", Message: "is required"}
	}

	// URL形式検証
	if err := entity.ValidateURL(in.FeedURL); err != nil {
		return fmt.Errorf("validate feed URL: %w", err)
	}

	pollInterval := in.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxItems := in.MaxItemsPerPoll
	if maxItems <= 0 {
		maxItems = defaultMaxItemsPerPoll
	}

	now := time.Now()
	src := &entity.Source{
		Name:            in.Name,
		FeedURL:         in.FeedURL,
		Region:          in.Region,
		Country:         in.Country,
		Language:        in.Language,
		Enabled:         true,
		Reliability:     defaultReliability,
		PollInterval:    pollInterval,
		MaxItemsPerPoll: maxItems,
		TopicTags:       in.TopicTags,
		NextPollAt:      now,
		CreatedAt:       now,
	}

	if err := s.Repo.Create(ctx, src); err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// Update modifies an existing source with the provided input.
// Only non-nil fields in the input will be updated.
// Returns ErrSourceNotFound if the source does not exist.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	if in.ID <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	src, err := s.Repo.Get(ctx, in.ID)
	if err != nil {
		return fmt.Errorf("get source: %w", err)
	}
	if src == nil {
		return ErrSourceNotFound
	}

	if in.Name != nil {
		if *in.Name == "" {
			return &entity.ValidationError{Field: "name", Message: "cannot be empty"}
		}
		src.Name = *in.Name
	}
	if in.FeedURL != nil {
		// URL形式検証
		if err := entity.ValidateURL(*in.FeedURL); err != nil {
			return fmt.Errorf("validate feed URL: %w", err)
		}
		src.FeedURL = *in.FeedURL
	}
	if in.Region != nil {
		src.Region = *in.Region
	}
	if in.Country != nil {
		src.Country = *in.Country
	}
	if in.Language != nil {
		src.Language = *in.Language
	}
	if in.Enabled != nil {
		src.Enabled = *in.Enabled
	}
	if in.Reliability != nil {
		src.Reliability = *in.Reliability
	}
	if in.PollInterval != nil {
		src.PollInterval = *in.PollInterval
	}
	if in.MaxItemsPerPoll != nil {
		src.MaxItemsPerPoll = *in.MaxItemsPerPoll
	}
	if in.TopicTags != nil {
		src.TopicTags = in.TopicTags
	}

	if err := s.Repo.Update(ctx, src); err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// Delete removes a source by its ID.
// Returns a ValidationError if the ID is not positive.
// Returns an error if the repository operation fails.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}
