package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shieldhq/threatwatch/internal/application"
	"github.com/shieldhq/threatwatch/internal/domain/classify"
	"github.com/shieldhq/threatwatch/internal/domain/news"
	"github.com/shieldhq/threatwatch/internal/domain/runs"
	domain "github.com/shieldhq/threatwatch/internal/domain/threats"
)

// ErrRunInProgress is returned when a trigger races an active run. The
// run-level lock keeps concurrent inserts from racing the source_url
// uniqueness check.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Service wires the full run: purge -> fetch -> dedupe -> classify ->
// persist. Steps execute strictly in sequence; fetch and classify failures
// abort the run, persistence is best-effort per record.
type Service struct {
	Source     news.Source
	Classifier classify.Classifier
	Threats    domain.Repository
	Runs       runs.Repository
	Artifacts  runs.ArtifactStore // optional, may be nil
	Clock      application.Clock

	Retention time.Duration
	// ReviewConfidenceThreshold flags persisted records for human review
	// when the AI confidence falls below it.
	ReviewConfidenceThreshold float64

	mu sync.Mutex
}

// Summary reports what one run did.
type Summary struct {
	RunID      string      `json:"run_id"`
	Status     runs.Status `json:"status"`
	Fetched    int         `json:"fetched"`
	New        int         `json:"new"`
	Persisted  int         `json:"persisted"`
	Duplicates int         `json:"duplicates"`
	Skipped    int         `json:"skipped"`
	Purged     int64       `json:"purged"`
	Error      string      `json:"error,omitempty"`
}

// RunUntilDone executes a run detached from any request context, suitable
// for firing from an HTTP trigger goroutine or the scheduler.
func (s *Service) RunUntilDone() (Summary, error) {
	return s.Run(context.Background())
}

// StartAsync launches a run in the background, failing fast with
// ErrRunInProgress when one is already active. onDone, if set, receives the
// finished summary.
func (s *Service) StartAsync(onDone func(Summary, error)) error {
	if !s.mu.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer s.mu.Unlock()
		sum, err := s.run(context.Background())
		if onDone != nil {
			onDone(sum, err)
		}
	}()
	return nil
}

// Run executes one pipeline pass. A second caller during an active run gets
// ErrRunInProgress instead of queueing.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	if !s.mu.TryLock() {
		return Summary{}, ErrRunInProgress
	}
	defer s.mu.Unlock()
	return s.run(ctx)
}

func (s *Service) run(ctx context.Context) (Summary, error) {
	started := s.Clock.Now()
	sum := Summary{RunID: uuid.New().String(), Status: runs.StatusSuccess}

	// retention purge before ingesting
	if s.Retention > 0 {
		purged, err := s.Threats.Purge(ctx, started.Add(-s.Retention))
		if err != nil {
			log.Printf("pipeline: purge failed: %v", err)
		} else {
			sum.Purged = purged
		}
	}

	articles, err := s.Source.Fetch(ctx)
	if err != nil {
		return s.finish(ctx, started, sum, fmt.Errorf("fetch: %w", err))
	}
	sum.Fetched = len(articles)

	fresh, err := s.dedupe(ctx, articles)
	if err != nil {
		return s.finish(ctx, started, sum, fmt.Errorf("dedupe: %w", err))
	}
	sum.New = len(fresh)
	if len(fresh) == 0 {
		log.Printf("pipeline: no new articles, nothing to classify")
		return s.finish(ctx, started, sum, nil)
	}

	// per-batch correlation ids so results never join on title equality
	items := make([]classify.Item, 0, len(fresh))
	byID := make(map[string]news.Article, len(fresh))
	for _, a := range fresh {
		item := classify.Item{
			ID:          uuid.New().String(),
			Title:       a.Title,
			Description: a.Description,
		}
		items = append(items, item)
		byID[item.ID] = a
	}

	results, err := s.Classifier.Classify(ctx, items)
	if err != nil {
		return s.finish(ctx, started, sum, fmt.Errorf("classify: %w", err))
	}

	resultByID := make(map[string]classify.Result, len(results))
	for _, res := range results {
		resultByID[res.ItemID] = res
	}

	for _, item := range items {
		res, ok := resultByID[item.ID]
		if !ok {
			// the classifier dropped this item; skip it, do not fault
			log.Printf("pipeline: no classification for %q, skipping", item.Title)
			sum.Skipped++
			continue
		}
		if !res.IsThreat {
			continue
		}

		article := byID[item.ID]
		rec := &domain.Record{
			Title:          article.Title,
			Description:    article.Description,
			Source:         article.Source,
			SourceURL:      article.URL,
			PublishedAt:    article.PublishedAt,
			AIThreatLevel:  res.ThreatLevel,
			AICategory:     res.Category,
			AISummary:      res.Summary,
			AIConfidence:   res.Confidence,
			AIKeywords:     res.Keywords,
			AIReason:       res.Reason,
			RequiresReview: res.Confidence < s.ReviewConfidenceThreshold,
			CreatedAt:      s.Clock.Now(),
		}
		if err := s.Threats.Insert(ctx, rec); err != nil {
			if errors.Is(err, domain.ErrDuplicateURL) {
				// one collision must not abort the rest of the batch
				log.Printf("pipeline: duplicate url %s, skipping", article.URL)
				sum.Duplicates++
				continue
			}
			log.Printf("pipeline: insert failed for %s: %v", article.URL, err)
			sum.Skipped++
			continue
		}
		sum.Persisted++
	}

	return s.finish(ctx, started, sum, nil)
}

func (s *Service) dedupe(ctx context.Context, articles []news.Article) ([]news.Article, error) {
	fresh := make([]news.Article, 0, len(articles))
	for _, a := range articles {
		seen, err := s.Threats.ExistsByURL(ctx, a.URL)
		if err != nil {
			return nil, err
		}
		if seen {
			continue
		}
		fresh = append(fresh, a)
	}
	return fresh, nil
}

// finish records the run audit row and, on success, archives the summary
// artifact. The audit write is best-effort: a failed save never fails the
// run itself.
func (s *Service) finish(ctx context.Context, started time.Time, sum Summary, runErr error) (Summary, error) {
	finished := s.Clock.Now()
	if runErr != nil {
		sum.Status = runs.StatusFailed
		sum.Error = runErr.Error()
	}

	artifactURL := s.archive(ctx, sum)

	run := &runs.Run{
		ID:          runs.RunID(sum.RunID),
		StartedAt:   started,
		FinishedAt:  finished,
		Status:      sum.Status,
		Fetched:     sum.Fetched,
		New:         sum.New,
		Persisted:   sum.Persisted,
		Duplicates:  sum.Duplicates,
		Skipped:     sum.Skipped,
		Purged:      sum.Purged,
		Error:       sum.Error,
		ArtifactURL: artifactURL,
	}
	if s.Runs != nil {
		if err := s.Runs.Save(ctx, run); err != nil {
			log.Printf("pipeline: saving run audit row failed: %v", err)
		}
	}

	log.Printf("pipeline: run %s %s fetched=%d new=%d persisted=%d duplicates=%d skipped=%d purged=%d",
		sum.RunID, sum.Status, sum.Fetched, sum.New, sum.Persisted, sum.Duplicates, sum.Skipped, sum.Purged)
	return sum, runErr
}

func (s *Service) archive(ctx context.Context, sum Summary) string {
	if s.Artifacts == nil {
		return ""
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return ""
	}
	key := fmt.Sprintf("runs/%s.json", sum.RunID)
	url, err := s.Artifacts.Upload(ctx, key, "application/json", data)
	if err != nil {
		log.Printf("pipeline: artifact upload failed: %v", err)
		return ""
	}
	return url
}
