package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shieldhq/threatwatch/internal/domain/classify"
	"github.com/shieldhq/threatwatch/internal/domain/news"
	"github.com/shieldhq/threatwatch/internal/domain/runs"
	domain "github.com/shieldhq/threatwatch/internal/domain/threats"
	"github.com/shieldhq/threatwatch/internal/infra/classify/rules"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeSource struct {
	articles []news.Article
	err      error
}

func (f *fakeSource) Fetch(context.Context) ([]news.Article, error) {
	return f.articles, f.err
}

// fakeClassifier counts how many items it was asked to score.
type fakeClassifier struct {
	seen    int
	verdict func(classify.Item) classify.Result
	err     error
}

func (f *fakeClassifier) Classify(_ context.Context, items []classify.Item) ([]classify.Result, error) {
	f.seen += len(items)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]classify.Result, 0, len(items))
	for _, item := range items {
		out = append(out, f.verdict(item))
	}
	return out, nil
}

func threatVerdict(level int, confidence float64) func(classify.Item) classify.Result {
	return func(item classify.Item) classify.Result {
		return classify.Result{
			ItemID:      item.ID,
			IsThreat:    true,
			ThreatLevel: level,
			Category:    "Any threat",
			Summary:     "scored",
			Keywords:    []string{},
			Confidence:  confidence,
			Title:       item.Title,
		}
	}
}

// memRepo is an in-memory threats.Repository keyed by source url.
type memRepo struct {
	mu     sync.Mutex
	nextID domain.ThreatID
	byURL  map[string]*domain.Record
}

func newMemRepo() *memRepo {
	return &memRepo{byURL: make(map[string]*domain.Record)}
}

func (m *memRepo) Insert(_ context.Context, r *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byURL[r.SourceURL]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateURL, r.SourceURL)
	}
	m.nextID++
	r.ID = m.nextID
	m.byURL[r.SourceURL] = r
	return nil
}

func (m *memRepo) Get(_ context.Context, id domain.ThreatID) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byURL {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRepo) ExistsByURL(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byURL[url]
	return ok, nil
}

func (m *memRepo) List(context.Context, domain.Filter) ([]*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Record, 0, len(m.byURL))
	for _, r := range m.byURL {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byURL)), nil
}

func (m *memRepo) ApplyReview(_ context.Context, id domain.ThreatID, o domain.Override, reviewedAt time.Time) (*domain.Record, error) {
	rec, err := m.Get(context.Background(), id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.HumanThreatLevel = o.HumanThreatLevel
	rec.HumanCategory = o.HumanCategory
	rec.HumanNotes = o.HumanNotes
	rec.ReviewedBy = &o.Reviewer
	rec.ReviewedAt = &reviewedAt
	rec.UpdatedAt = reviewedAt
	return rec, nil
}

func (m *memRepo) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for url, r := range m.byURL {
		if r.CreatedAt.Before(cutoff) {
			delete(m.byURL, url)
			purged++
		}
	}
	return purged, nil
}

type memRunRepo struct {
	mu   sync.Mutex
	runs []*runs.Run
}

func (m *memRunRepo) Save(_ context.Context, r *runs.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *memRunRepo) Latest(_ context.Context, limit int) ([]*runs.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]*runs.Run, limit)
	copy(out, m.runs[len(m.runs)-limit:])
	return out, nil
}

func articles(urls ...string) []news.Article {
	out := make([]news.Article, 0, len(urls))
	for i, u := range urls {
		out = append(out, news.Article{
			Title:  fmt.Sprintf("headline %d", i),
			Source: "test wire",
			URL:    u,
		})
	}
	return out
}

func newService(src news.Source, cls classify.Classifier, repo domain.Repository, runRepo runs.Repository) *Service {
	return &Service{
		Source:                    src,
		Classifier:                cls,
		Threats:                   repo,
		Runs:                      runRepo,
		Clock:                     fixedClock{t: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)},
		ReviewConfidenceThreshold: 0.7,
	}
}

func TestRunPersistsThreats(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	runRepo := &memRunRepo{}
	cls := &fakeClassifier{verdict: threatVerdict(8, 0.9)}
	svc := newService(
		&fakeSource{articles: articles("https://e.com/1", "https://e.com/2", "https://e.com/3")},
		cls, repo, runRepo,
	)

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Fetched != 3 || sum.New != 3 || sum.Persisted != 3 {
		t.Errorf("summary = %+v, want 3 fetched/new/persisted", sum)
	}
	if sum.Status != runs.StatusSuccess {
		t.Errorf("status = %s, want success", sum.Status)
	}

	n, _ := repo.Count(context.Background())
	if n != 3 {
		t.Errorf("stored %d records, want 3", n)
	}
	if len(runRepo.runs) != 1 {
		t.Fatalf("saved %d audit rows, want 1", len(runRepo.runs))
	}
	if runRepo.runs[0].Persisted != 3 {
		t.Errorf("audit row persisted = %d, want 3", runRepo.runs[0].Persisted)
	}
}

// end to end with the real keyword classifier: one clear threat, one safe
// article, one undecided default. Two records land.
func TestRunWithRuleClassifierPersistsOnlyThreats(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	src := &fakeSource{articles: []news.Article{
		{Title: "Ransomware attack cripples hospital", Source: "w", URL: "https://e.com/attack"},
		{Title: "Community wellness fair draws crowds", Source: "w", URL: "https://e.com/safe"},
		{Title: "Quarterly earnings flat", Source: "w", URL: "https://e.com/unclear"},
	}}
	svc := newService(src, rules.New(), repo, &memRunRepo{})

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Persisted != 2 {
		t.Fatalf("persisted = %d, want 2", sum.Persisted)
	}

	attack := repo.byURL["https://e.com/attack"]
	if attack == nil || attack.AIThreatLevel != 10 || attack.RequiresReview {
		t.Errorf("attack record = %+v, want level 10 and no review flag", attack)
	}
	unclear := repo.byURL["https://e.com/unclear"]
	if unclear == nil || unclear.AIThreatLevel != 6 || !unclear.RequiresReview {
		t.Errorf("unclear record = %+v, want level 6 flagged for review", unclear)
	}
	if _, ok := repo.byURL["https://e.com/safe"]; ok {
		t.Error("safe article was persisted")
	}
}

func TestRunSkipsKnownURLsBeforeClassification(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	cls := &fakeClassifier{verdict: threatVerdict(8, 0.9)}
	svc := newService(
		&fakeSource{articles: articles("https://e.com/a", "https://e.com/b")},
		cls, repo, &memRunRepo{},
	)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if cls.seen != 2 {
		t.Fatalf("first run classified %d items, want 2", cls.seen)
	}

	// second pass sees the same urls; nothing reaches the classifier
	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if cls.seen != 2 {
		t.Errorf("known urls were re-classified: seen = %d, want 2", cls.seen)
	}
	if sum.New != 0 || sum.Persisted != 0 {
		t.Errorf("second run summary = %+v, want nothing new", sum)
	}
}

func TestRunNonThreatsNotPersisted(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	cls := &fakeClassifier{verdict: func(item classify.Item) classify.Result {
		return classify.Result{ItemID: item.ID, IsThreat: false, ThreatLevel: 1, Confidence: 1.0}
	}}
	svc := newService(&fakeSource{articles: articles("https://e.com/safe")}, cls, repo, &memRunRepo{})

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Persisted != 0 {
		t.Errorf("persisted = %d, want 0 for safe verdicts", sum.Persisted)
	}
	n, _ := repo.Count(context.Background())
	if n != 0 {
		t.Errorf("stored %d records, want 0", n)
	}
}

func TestRunFlagsLowConfidenceForReview(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	cls := &fakeClassifier{verdict: threatVerdict(6, 0.5)}
	svc := newService(&fakeSource{articles: articles("https://e.com/unsure")}, cls, repo, &memRunRepo{})

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec := repo.byURL["https://e.com/unsure"]
	if rec == nil {
		t.Fatal("record not stored")
	}
	if !rec.RequiresReview {
		t.Error("RequiresReview = false, want true for confidence below threshold")
	}
}

func TestRunHighConfidenceNotFlagged(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	cls := &fakeClassifier{verdict: threatVerdict(8, 0.9)}
	svc := newService(&fakeSource{articles: articles("https://e.com/sure")}, cls, repo, &memRunRepo{})

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec := repo.byURL["https://e.com/sure"]; rec == nil || rec.RequiresReview {
		t.Error("high confidence record must not be flagged for review")
	}
}

func TestRunFetchFailureRecordsFailedRun(t *testing.T) {
	t.Parallel()

	runRepo := &memRunRepo{}
	svc := newService(
		&fakeSource{err: news.ErrSourceUnavailable},
		&fakeClassifier{verdict: threatVerdict(8, 0.9)},
		newMemRepo(), runRepo,
	)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, news.ErrSourceUnavailable) {
		t.Fatalf("Run err = %v, want ErrSourceUnavailable", err)
	}
	if len(runRepo.runs) != 1 {
		t.Fatalf("saved %d audit rows, want 1", len(runRepo.runs))
	}
	if runRepo.runs[0].Status != runs.StatusFailed {
		t.Errorf("audit status = %s, want failed", runRepo.runs[0].Status)
	}
	if runRepo.runs[0].Error == "" {
		t.Error("audit row error is empty")
	}
}

func TestRunClassifierFailureAbortsRun(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	svc := newService(
		&fakeSource{articles: articles("https://e.com/x")},
		&fakeClassifier{err: classify.ErrQuotaExceeded},
		repo, &memRunRepo{},
	)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, classify.ErrQuotaExceeded) {
		t.Fatalf("Run err = %v, want ErrQuotaExceeded", err)
	}
	n, _ := repo.Count(context.Background())
	if n != 0 {
		t.Errorf("stored %d records after classify failure, want 0", n)
	}
}

func TestRunUnmatchedResultSkipped(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	// classifier drops every item by answering with unknown ids
	cls := &fakeClassifier{verdict: func(item classify.Item) classify.Result {
		res := threatVerdict(8, 0.9)(item)
		res.ItemID = "unknown-" + item.ID
		return res
	}}
	svc := newService(&fakeSource{articles: articles("https://e.com/y")}, cls, repo, &memRunRepo{})

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Skipped != 1 || sum.Persisted != 0 {
		t.Errorf("summary = %+v, want 1 skipped and nothing persisted", sum)
	}
}

func TestRunDuplicateInsertCountedNotFatal(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	// two fetched articles share a url, so dedupe passes both but the
	// second insert collides
	src := &fakeSource{articles: []news.Article{
		{Title: "one", Source: "w", URL: "https://e.com/same"},
		{Title: "two", Source: "w", URL: "https://e.com/same"},
		{Title: "three", Source: "w", URL: "https://e.com/other"},
	}}
	svc := newService(src, &fakeClassifier{verdict: threatVerdict(8, 0.9)}, repo, &memRunRepo{})

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", sum.Duplicates)
	}
	if sum.Persisted != 2 {
		t.Errorf("persisted = %d, want 2 (batch continues past collision)", sum.Persisted)
	}
}

func TestRunPurgesOldRecords(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	old := &domain.Record{
		Title: "stale", Source: "w", SourceURL: "https://e.com/stale",
		AIThreatLevel: 5, CreatedAt: now.Add(-10 * 24 * time.Hour),
	}
	if err := repo.Insert(context.Background(), old); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := newService(&fakeSource{}, &fakeClassifier{verdict: threatVerdict(8, 0.9)}, repo, &memRunRepo{})
	svc.Retention = 5 * 24 * time.Hour

	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Purged != 1 {
		t.Errorf("purged = %d, want 1", sum.Purged)
	}
	n, _ := repo.Count(context.Background())
	if n != 0 {
		t.Errorf("stored %d records after purge, want 0", n)
	}
}

func TestRunConcurrentTriggerRejected(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	src := &blockingSource{release: release, started: started}
	svc := newService(src, &fakeClassifier{verdict: threatVerdict(8, 0.9)}, newMemRepo(), &memRunRepo{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()

	<-started
	_, err := svc.Run(context.Background())
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second Run err = %v, want ErrRunInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}
}

type blockingSource struct {
	release <-chan struct{}
	started chan<- struct{}
}

func (b *blockingSource) Fetch(context.Context) ([]news.Article, error) {
	b.started <- struct{}{}
	<-b.release
	return nil, nil
}

func TestStartAsyncFailsFastWhileRunning(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	svc := newService(
		&blockingSource{release: release, started: started},
		&fakeClassifier{verdict: threatVerdict(8, 0.9)},
		newMemRepo(), &memRunRepo{},
	)

	done := make(chan Summary, 1)
	if err := svc.StartAsync(func(sum Summary, err error) {
		if err != nil {
			t.Errorf("async run: %v", err)
		}
		done <- sum
	}); err != nil {
		t.Fatalf("StartAsync: %v", err)
	}

	<-started
	if err := svc.StartAsync(nil); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second StartAsync err = %v, want ErrRunInProgress", err)
	}

	close(release)
	sum := <-done
	if sum.Status != runs.StatusSuccess {
		t.Errorf("status = %s, want success", sum.Status)
	}
}
