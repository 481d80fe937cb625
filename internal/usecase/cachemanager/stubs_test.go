package cachemanager

import (
	"context"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// stubArticleRepo implements repository.ArticleRepository with only the
// methods this package's tests exercise; the rest satisfy the interface
// but are unused here.
type stubArticleRepo struct {
	byTopic map[entity.Topic]int64
	recent  []*entity.Article
}

func (s *stubArticleRepo) List(ctx context.Context) ([]*entity.Article, error) { return nil, nil }
func (s *stubArticleRepo) ListWithSource(ctx context.Context) ([]repository.ArticleWithSource, error) {
	return nil, nil
}
func (s *stubArticleRepo) ListWithSourcePaginated(ctx context.Context, offset, limit int) ([]repository.ArticleWithSource, error) {
	return nil, nil
}
func (s *stubArticleRepo) CountArticles(ctx context.Context) (int64, error) { return 0, nil }
func (s *stubArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	return nil, nil
}
func (s *stubArticleRepo) GetWithSource(ctx context.Context, id int64) (*entity.Article, string, error) {
	return nil, "", nil
}
func (s *stubArticleRepo) Search(ctx context.Context, keyword string) ([]*entity.Article, error) {
	return nil, nil
}
func (s *stubArticleRepo) SearchWithFilters(ctx context.Context, keywords []string, filters repository.ArticleSearchFilters) ([]*entity.Article, error) {
	return nil, nil
}
func (s *stubArticleRepo) Create(ctx context.Context, article *entity.Article) error { return nil }
func (s *stubArticleRepo) Update(ctx context.Context, article *entity.Article) error { return nil }
func (s *stubArticleRepo) Delete(ctx context.Context, id int64) error                { return nil }
func (s *stubArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	return false, nil
}
func (s *stubArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	return nil, nil
}
func (s *stubArticleRepo) FetchFingerprintsIn(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	return nil, nil
}
func (s *stubArticleRepo) InsertBatch(ctx context.Context, articles []*entity.Article) ([]repository.InsertOutcome, error) {
	return nil, nil
}
func (s *stubArticleRepo) InsertOne(ctx context.Context, article *entity.Article) (bool, error) {
	return false, nil
}
func (s *stubArticleRepo) FetchUnprocessed(ctx context.Context, limit int) ([]*entity.Article, error) {
	return nil, nil
}
func (s *stubArticleRepo) UpdateProcessed(ctx context.Context, article *entity.Article) error {
	return nil
}
func (s *stubArticleRepo) FetchRecentForDedup(ctx context.Context, since time.Time) ([]*entity.Article, error) {
	return s.recent, nil
}
func (s *stubArticleRepo) FetchMissingFingerprint(ctx context.Context, limit int) ([]*entity.Article, error) {
	return nil, nil
}
func (s *stubArticleRepo) DeleteBatch(ctx context.Context, ids []int64) (int, error) { return 0, nil }
func (s *stubArticleRepo) CountByTopic(ctx context.Context, since time.Time) (map[entity.Topic]int64, error) {
	return s.byTopic, nil
}
func (s *stubArticleRepo) CountBySource(ctx context.Context, limit int) (map[string]int64, error) {
	return nil, nil
}
func (s *stubArticleRepo) CountRecent(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

// stubSourceRepo implements repository.SourceRepository similarly.
type stubSourceRepo struct {
	active []*entity.Source
}

func (s *stubSourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	return nil, nil
}
func (s *stubSourceRepo) List(ctx context.Context) ([]*entity.Source, error) { return nil, nil }
func (s *stubSourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	return s.active, nil
}
func (s *stubSourceRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error) {
	return nil, nil
}
func (s *stubSourceRepo) Search(ctx context.Context, keyword string) ([]*entity.Source, error) {
	return nil, nil
}
func (s *stubSourceRepo) Create(ctx context.Context, source *entity.Source) error { return nil }
func (s *stubSourceRepo) Update(ctx context.Context, source *entity.Source) error { return nil }
func (s *stubSourceRepo) Delete(ctx context.Context, id int64) error              { return nil }
func (s *stubSourceRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	return nil
}
