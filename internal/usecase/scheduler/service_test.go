package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"catchup-feed/internal/domain/entity"
)

type fakeCollector struct {
	collectAllCalls int32
	collectAllStats *entity.CollectionStats
	collectAllErr   error

	singleSourceID int64
	sourcesNames   []string
}

func (f *fakeCollector) CollectAll(ctx context.Context, maxConcurrent int) (*entity.CollectionStats, error) {
	atomic.AddInt32(&f.collectAllCalls, 1)
	if f.collectAllErr != nil {
		return nil, f.collectAllErr
	}
	if f.collectAllStats != nil {
		return f.collectAllStats, nil
	}
	return &entity.CollectionStats{}, nil
}

func (f *fakeCollector) CollectSingle(ctx context.Context, sourceID int64) (*entity.CollectionStats, error) {
	f.singleSourceID = sourceID
	return &entity.CollectionStats{SourcesProcessed: 1}, nil
}

func (f *fakeCollector) CollectSources(ctx context.Context, names []string) (*entity.CollectionStats, error) {
	f.sourcesNames = names
	return &entity.CollectionStats{SourcesProcessed: len(names)}, nil
}

type fakeProcessor struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeProcessor) ProcessUnprocessed(ctx context.Context, batchSize int) (*entity.ProcessingStats, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &entity.ProcessingStats{}, nil
}

type fakeDedup struct {
	hashCalled, titleCalled, domainCalled bool
}

func (f *fakeDedup) DedupeHash(ctx context.Context, since time.Time) (*entity.DedupStats, error) {
	f.hashCalled = true
	return &entity.DedupStats{}, nil
}
func (f *fakeDedup) DedupeTitle(ctx context.Context, since time.Time) (*entity.DedupStats, error) {
	f.titleCalled = true
	return &entity.DedupStats{}, nil
}
func (f *fakeDedup) DedupeDomain(ctx context.Context, since time.Time) (*entity.DedupStats, error) {
	f.domainCalled = true
	return &entity.DedupStats{}, nil
}

type fakeCache struct {
	warmAllCalled, warmTopicsCalled, warmRecencyCalled, warmSourcePerfCalled bool
	invalidatedTopic                                                        string
}

func (f *fakeCache) WarmAll(ctx context.Context)        { f.warmAllCalled = true }
func (f *fakeCache) WarmTopics(ctx context.Context)     { f.warmTopicsCalled = true }
func (f *fakeCache) WarmRecency(ctx context.Context)    { f.warmRecencyCalled = true }
func (f *fakeCache) WarmSourcePerf(ctx context.Context) { f.warmSourcePerfCalled = true }
func (f *fakeCache) InvalidateTopic(ctx context.Context, topic string) {
	f.invalidatedTopic = topic
}

type fakeSourceRepo struct {
	active  []*entity.Source
	updated []*entity.Source
}

func (r *fakeSourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) { return nil, nil }
func (r *fakeSourceRepo) List(ctx context.Context) ([]*entity.Source, error)        { return nil, nil }
func (r *fakeSourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	return r.active, nil
}
func (r *fakeSourceRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error) {
	return nil, nil
}
func (r *fakeSourceRepo) Search(ctx context.Context, keyword string) ([]*entity.Source, error) {
	return nil, nil
}
func (r *fakeSourceRepo) Create(ctx context.Context, source *entity.Source) error { return nil }
func (r *fakeSourceRepo) Update(ctx context.Context, source *entity.Source) error {
	r.updated = append(r.updated, source)
	return nil
}
func (r *fakeSourceRepo) Delete(ctx context.Context, id int64) error { return nil }
func (r *fakeSourceRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SoftDeadline = time.Minute
	cfg.HardDeadline = 2 * time.Second
	cfg.MaxRetries = 2
	return cfg
}

func TestRunJob_SuccessRecordsStatus(t *testing.T) {
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, &fakeSourceRepo{}, testConfig(), nil)

	rec := svc.runJob(context.Background(), "test-kind", func(ctx context.Context) error { return nil })
	if rec.Status != JobSuccess {
		t.Fatalf("Status = %q, want success", rec.Status)
	}
	got, ok := svc.JobStatus(rec.ID)
	if !ok {
		t.Fatal("JobStatus() not found after run")
	}
	if got.Kind != "test-kind" {
		t.Errorf("Kind = %q, want test-kind", got.Kind)
	}
}

func TestRunJob_RetriesThenSucceeds(t *testing.T) {
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, &fakeSourceRepo{}, testConfig(), nil)

	attempts := 0
	rec := svc.runJob(context.Background(), "retry-kind", func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient failure")
		}
		return nil
	})
	if rec.Status != JobSuccess {
		t.Fatalf("Status = %q, want success", rec.Status)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if rec.Attempt != 2 {
		t.Errorf("rec.Attempt = %d, want 2", rec.Attempt)
	}
}

func TestRunJob_ExhaustsRetriesAndFails(t *testing.T) {
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, &fakeSourceRepo{}, testConfig(), nil)

	rec := svc.runJob(context.Background(), "always-fails", func(ctx context.Context) error {
		return errors.New("permanent failure")
	})
	if rec.Status != JobFailed {
		t.Fatalf("Status = %q, want failed", rec.Status)
	}
	if rec.Attempt != svc.Config.MaxRetries {
		t.Errorf("Attempt = %d, want %d", rec.Attempt, svc.Config.MaxRetries)
	}
}

func TestRunJob_MutualExclusionSkipsConcurrentSameKind(t *testing.T) {
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, &fakeSourceRepo{}, testConfig(), nil)

	release := make(chan struct{})
	started := make(chan struct{})
	go svc.runJob(context.Background(), "exclusive", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	rec := svc.runJob(context.Background(), "exclusive", func(ctx context.Context) error { return nil })
	close(release)

	if rec.Error != "already running" {
		t.Errorf("Error = %q, want already running", rec.Error)
	}
}

func TestCollectSingle_DelegatesToCollector(t *testing.T) {
	collector := &fakeCollector{}
	svc := NewService(collector, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, &fakeSourceRepo{}, testConfig(), nil)

	rec := svc.CollectSingle(context.Background(), 42)
	if rec.Status != JobSuccess {
		t.Fatalf("Status = %q, want success", rec.Status)
	}
	if collector.singleSourceID != 42 {
		t.Errorf("singleSourceID = %d, want 42", collector.singleSourceID)
	}
}

func TestTriggerSources_DelegatesToCollector(t *testing.T) {
	collector := &fakeCollector{}
	svc := NewService(collector, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, &fakeSourceRepo{}, testConfig(), nil)

	svc.TriggerSources(context.Background(), []string{"bbc", "reuters"})
	if len(collector.sourcesNames) != 2 {
		t.Fatalf("sourcesNames = %v, want 2 entries", collector.sourcesNames)
	}
}

func TestWarmCacheLayers_DispatchesKnownLayers(t *testing.T) {
	cache := &fakeCache{}
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, cache, &fakeSourceRepo{}, testConfig(), nil)

	rec := svc.WarmCacheLayers(context.Background(), []string{"topic", "recency", "source_perf", "bogus"})
	if rec.Status != JobSuccess {
		t.Fatalf("Status = %q, want success", rec.Status)
	}
	if !cache.warmTopicsCalled || !cache.warmRecencyCalled || !cache.warmSourcePerfCalled {
		t.Error("expected all three recognized layers to be warmed")
	}
}

func TestInvalidateTopic_DelegatesToCache(t *testing.T) {
	cache := &fakeCache{}
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, cache, &fakeSourceRepo{}, testConfig(), nil)

	svc.InvalidateTopic(context.Background(), "technology")
	if cache.invalidatedTopic != "technology" {
		t.Errorf("invalidatedTopic = %q, want technology", cache.invalidatedTopic)
	}
}

func TestRunDeduplicate_RunsAllThreeStrategies(t *testing.T) {
	dedup := &fakeDedup{}
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, dedup, &fakeCache{}, &fakeSourceRepo{}, testConfig(), nil)

	if err := svc.runDeduplicate(context.Background()); err != nil {
		t.Fatalf("runDeduplicate() error = %v", err)
	}
	if !dedup.hashCalled || !dedup.titleCalled || !dedup.domainCalled {
		t.Error("expected hash, title, and domain strategies to all run")
	}
}

func TestRunHealthCheck_DisablesHighFailureRate(t *testing.T) {
	sources := &fakeSourceRepo{active: []*entity.Source{
		{ID: 1, Name: "flaky", Enabled: true, TotalPolls: 10, SuccessfulPolls: 2, ConsecutiveFailures: 6},
		{ID: 2, Name: "ok", Enabled: true, TotalPolls: 10, SuccessfulPolls: 9, ConsecutiveFailures: 0},
	}}
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, sources, testConfig(), nil)

	if err := svc.runHealthCheck(context.Background()); err != nil {
		t.Fatalf("runHealthCheck() error = %v", err)
	}
	if len(sources.updated) != 1 || sources.updated[0].ID != 1 {
		t.Fatalf("updated = %v, want only source 1 disabled", sources.updated)
	}
	if sources.updated[0].Enabled {
		t.Error("expected source 1 to be disabled")
	}
}

func TestRunHealthCheck_WarnsOnlyBelowDisableThreshold(t *testing.T) {
	sources := &fakeSourceRepo{active: []*entity.Source{
		{ID: 1, Name: "borderline", Enabled: true, TotalPolls: 10, SuccessfulPolls: 4, ConsecutiveFailures: 1},
	}}
	svc := NewService(&fakeCollector{}, &fakeProcessor{}, &fakeDedup{}, &fakeCache{}, sources, testConfig(), nil)

	if err := svc.runHealthCheck(context.Background()); err != nil {
		t.Fatalf("runHealthCheck() error = %v", err)
	}
	if len(sources.updated) != 0 {
		t.Errorf("updated = %v, want no updates (warn-only)", sources.updated)
	}
}

func TestRunCollectAll_SchedulesProcessAfterCollectOnNewArticles(t *testing.T) {
	collector := &fakeCollector{collectAllStats: &entity.CollectionStats{ArticlesCollected: 3}}
	processor := &fakeProcessor{}
	cfg := testConfig()
	cfg.ProcessAfterCollect = 20 * time.Millisecond
	svc := NewService(collector, processor, &fakeDedup{}, &fakeCache{}, &fakeSourceRepo{}, cfg, nil)
	svc.life = context.Background()

	if err := svc.runCollectAll(context.Background()); err != nil {
		t.Fatalf("runCollectAll() error = %v", err)
	}

	deadline := time.After(time.Second)
	for {
		processor.mu.Lock()
		calls := processor.calls
		processor.mu.Unlock()
		if calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("process-content was not triggered after collect-all found new articles")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
