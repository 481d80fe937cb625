package repository

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
)

// SourceRepository is the persistence contract for Source rows (C8).
type SourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	// ListActive returns all enabled sources ordered by reliability DESC —
	// the base set the health-check job scans.
	ListActive(ctx context.Context) ([]*entity.Source, error)
	// ListDue returns enabled sources whose next_poll_at <= now, ordered by
	// reliability DESC, per §4.3 step 1.
	ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error)
	Search(ctx context.Context, keyword string) ([]*entity.Source, error)
	Create(ctx context.Context, source *entity.Source) error
	// Update persists the full row, used by the collector's Recording step
	// and the health-check job's disable action. Source rows are single-row
	// writes — last-writer-wins on non-critical counters.
	Update(ctx context.Context, source *entity.Source) error
	Delete(ctx context.Context, id int64) error
	TouchCrawledAt(ctx context.Context, id int64, t time.Time) error
}
