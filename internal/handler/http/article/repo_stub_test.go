package article_test

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// unimplementedArticleRepo backs the handler-package stubs with no-op
// implementations of the ArticleRepository methods each test doesn't
// exercise, so a stub only has to override what it actually needs.
type unimplementedArticleRepo struct{}

func (unimplementedArticleRepo) FetchFingerprintsIn(_ context.Context, _ []string) (map[string]bool, error) {
	return nil, nil
}

func (unimplementedArticleRepo) InsertBatch(_ context.Context, _ []*entity.Article) ([]repository.InsertOutcome, error) {
	return nil, nil
}

func (unimplementedArticleRepo) InsertOne(_ context.Context, _ *entity.Article) (bool, error) {
	return false, nil
}

func (unimplementedArticleRepo) FetchUnprocessed(_ context.Context, _ int) ([]*entity.Article, error) {
	return nil, nil
}

func (unimplementedArticleRepo) UpdateProcessed(_ context.Context, _ *entity.Article) error {
	return nil
}

func (unimplementedArticleRepo) FetchRecentForDedup(_ context.Context, _ time.Time) ([]*entity.Article, error) {
	return nil, nil
}

func (unimplementedArticleRepo) FetchMissingFingerprint(_ context.Context, _ int) ([]*entity.Article, error) {
	return nil, nil
}

func (unimplementedArticleRepo) DeleteBatch(_ context.Context, _ []int64) (int, error) {
	return 0, nil
}

func (unimplementedArticleRepo) CountByTopic(_ context.Context, _ time.Time) (map[entity.Topic]int64, error) {
	return nil, nil
}

func (unimplementedArticleRepo) CountBySource(_ context.Context, _ int) (map[string]int64, error) {
	return nil, nil
}

func (unimplementedArticleRepo) CountRecent(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
