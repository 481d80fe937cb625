package cache_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// fakeKV is an in-memory stand-in for cache.KV, scoped to this package's
// tests only.
type fakeKV struct {
	mu   sync.Mutex
	vals map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{vals: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[key]
	return v, ok
}
func (f *fakeKV) Set(ctx context.Context, key, value string) { f.SetEx(ctx, key, value, 0) }
func (f *fakeKV) SetEx(_ context.Context, key, value string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = value
}
func (f *fakeKV) Delete(_ context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vals, key)
}
func (f *fakeKV) Exists(ctx context.Context, key string) bool {
	_, ok := f.Get(ctx, key)
	return ok
}
func (f *fakeKV) Expire(_ context.Context, _ string, _ time.Duration) {}
func (f *fakeKV) TTL(_ context.Context, _ string) time.Duration       { return 0 }

func (f *fakeKV) GetJSON(ctx context.Context, key string, dest any) bool {
	v, ok := f.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(v), dest) == nil
}
func (f *fakeKV) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	b, _ := json.Marshal(value)
	f.SetEx(ctx, key, string(b), ttl)
}

func (f *fakeKV) LPush(_ context.Context, _ string, _ ...string) {}
func (f *fakeKV) RPush(_ context.Context, _ string, _ ...string) {}
func (f *fakeKV) LPop(_ context.Context, _ string) (string, bool) { return "", false }
func (f *fakeKV) LRange(_ context.Context, _ string, _, _ int64) []string { return nil }

func (f *fakeKV) SAdd(_ context.Context, _ string, _ ...string) {}
func (f *fakeKV) SMembers(_ context.Context, _ string) []string { return nil }

func (f *fakeKV) HSet(_ context.Context, _, _, _ string)            {}
func (f *fakeKV) HGet(_ context.Context, _, _ string) (string, bool) { return "", false }
func (f *fakeKV) HGetAll(_ context.Context, _ string) map[string]string { return nil }

// fakeArticleRepo implements repository.ArticleRepository with only the
// behavior this package's tests rely on.
type fakeArticleRepo struct{}

func (fakeArticleRepo) List(_ context.Context) ([]*entity.Article, error) { return nil, nil }
func (fakeArticleRepo) ListWithSource(_ context.Context) ([]repository.ArticleWithSource, error) {
	return nil, nil
}
func (fakeArticleRepo) ListWithSourcePaginated(_ context.Context, _, _ int) ([]repository.ArticleWithSource, error) {
	return nil, nil
}
func (fakeArticleRepo) CountArticles(_ context.Context) (int64, error) { return 0, nil }
func (fakeArticleRepo) Get(_ context.Context, _ int64) (*entity.Article, error) { return nil, nil }
func (fakeArticleRepo) GetWithSource(_ context.Context, _ int64) (*entity.Article, string, error) {
	return nil, "", nil
}
func (fakeArticleRepo) Search(_ context.Context, _ string) ([]*entity.Article, error) {
	return nil, nil
}
func (fakeArticleRepo) SearchWithFilters(_ context.Context, _ []string, _ repository.ArticleSearchFilters) ([]*entity.Article, error) {
	return nil, nil
}
func (fakeArticleRepo) Create(_ context.Context, _ *entity.Article) error { return nil }
func (fakeArticleRepo) Update(_ context.Context, _ *entity.Article) error { return nil }
func (fakeArticleRepo) Delete(_ context.Context, _ int64) error          { return nil }
func (fakeArticleRepo) ExistsByURL(_ context.Context, _ string) (bool, error) { return false, nil }
func (fakeArticleRepo) ExistsByURLBatch(_ context.Context, _ []string) (map[string]bool, error) {
	return nil, nil
}
func (fakeArticleRepo) FetchFingerprintsIn(_ context.Context, _ []string) (map[string]bool, error) {
	return nil, nil
}
func (fakeArticleRepo) InsertBatch(_ context.Context, _ []*entity.Article) ([]repository.InsertOutcome, error) {
	return nil, nil
}
func (fakeArticleRepo) InsertOne(_ context.Context, _ *entity.Article) (bool, error) {
	return false, nil
}
func (fakeArticleRepo) FetchUnprocessed(_ context.Context, _ int) ([]*entity.Article, error) {
	return nil, nil
}
func (fakeArticleRepo) UpdateProcessed(_ context.Context, _ *entity.Article) error { return nil }
func (fakeArticleRepo) FetchRecentForDedup(_ context.Context, _ time.Time) ([]*entity.Article, error) {
	return nil, nil
}
func (fakeArticleRepo) FetchMissingFingerprint(_ context.Context, _ int) ([]*entity.Article, error) {
	return nil, nil
}
func (fakeArticleRepo) DeleteBatch(_ context.Context, _ []int64) (int, error) { return 0, nil }
func (fakeArticleRepo) CountByTopic(_ context.Context, _ time.Time) (map[entity.Topic]int64, error) {
	return nil, nil
}
func (fakeArticleRepo) CountBySource(_ context.Context, _ int) (map[string]int64, error) {
	return nil, nil
}
func (fakeArticleRepo) CountRecent(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

// fakeSourceRepo implements repository.SourceRepository, serving a fixed
// active-source list.
type fakeSourceRepo struct {
	active []*entity.Source
}

func (f *fakeSourceRepo) Get(_ context.Context, _ int64) (*entity.Source, error) { return nil, nil }
func (f *fakeSourceRepo) List(_ context.Context) ([]*entity.Source, error)       { return nil, nil }
func (f *fakeSourceRepo) ListActive(_ context.Context) ([]*entity.Source, error) {
	return f.active, nil
}
func (f *fakeSourceRepo) ListDue(_ context.Context, _ time.Time) ([]*entity.Source, error) {
	return nil, nil
}
func (f *fakeSourceRepo) Search(_ context.Context, _ string) ([]*entity.Source, error) {
	return nil, nil
}
func (f *fakeSourceRepo) Create(_ context.Context, _ *entity.Source) error { return nil }
func (f *fakeSourceRepo) Update(_ context.Context, _ *entity.Source) error { return nil }
func (f *fakeSourceRepo) Delete(_ context.Context, _ int64) error          { return nil }
func (f *fakeSourceRepo) TouchCrawledAt(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

// fakeCollector, fakeProcessor, fakeDedup, fakeCacheWarmer are the minimal
// scheduler collaborators needed to construct a real *scheduler.Service.
type fakeCollector struct{}

func (fakeCollector) CollectAll(_ context.Context, _ int) (*entity.CollectionStats, error) {
	return &entity.CollectionStats{}, nil
}
func (fakeCollector) CollectSingle(_ context.Context, _ int64) (*entity.CollectionStats, error) {
	return &entity.CollectionStats{}, nil
}
func (fakeCollector) CollectSources(_ context.Context, _ []string) (*entity.CollectionStats, error) {
	return &entity.CollectionStats{}, nil
}

type fakeProcessor struct{}

func (fakeProcessor) ProcessUnprocessed(_ context.Context, _ int) (*entity.ProcessingStats, error) {
	return &entity.ProcessingStats{}, nil
}

type fakeDedup struct{}

func (fakeDedup) DedupeHash(_ context.Context, _ time.Time) (*entity.DedupStats, error) {
	return &entity.DedupStats{}, nil
}
func (fakeDedup) DedupeTitle(_ context.Context, _ time.Time) (*entity.DedupStats, error) {
	return &entity.DedupStats{}, nil
}
func (fakeDedup) DedupeDomain(_ context.Context, _ time.Time) (*entity.DedupStats, error) {
	return &entity.DedupStats{}, nil
}
