package threats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shieldhq/threatwatch/internal/application"
	domain "github.com/shieldhq/threatwatch/internal/domain/threats"
)

// Service implements the read/review use-cases over the threat store.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

// Response is the API shape for one threat. Only effective values leave the
// system; the ai_*/human_* breakdown stays internal.
type Response struct {
	ID          domain.ThreatID `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Source      string          `json:"source"`
	SourceURL   string          `json:"source_url"`

	ThreatLevel int    `json:"threat_level"`
	Category    string `json:"category"`
	Summary     string `json:"summary"`

	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Confidence     float64 `json:"confidence"`
	HasHumanReview bool    `json:"has_human_review"`
}

func toResponse(r *domain.Record) Response {
	return Response{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Source:         r.Source,
		SourceURL:      r.SourceURL,
		ThreatLevel:    r.ThreatLevel(),
		Category:       r.Category(),
		Summary:        r.AISummary,
		Location:       r.Location,
		CreatedAt:      r.CreatedAt,
		Confidence:     r.AIConfidence,
		HasHumanReview: r.HasHumanReview(),
	}
}

func toResponses(recs []*domain.Record) []Response {
	out := make([]Response, 0, len(recs))
	for _, r := range recs {
		out = append(out, toResponse(r))
	}
	return out
}

// ListAll returns every stored threat.
func (s *Service) ListAll(ctx context.Context) ([]Response, error) {
	recs, err := s.Repo.List(ctx, domain.Filter{})
	if err != nil {
		return nil, err
	}
	return toResponses(recs), nil
}

// Count returns the total number of stored threats.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.Repo.Count(ctx)
}

// Recent returns threats created within the last N days (default 3).
func (s *Service) Recent(ctx context.Context, days int) ([]Response, error) {
	if days <= 0 {
		days = 3
	}
	since := s.Clock.Now().AddDate(0, 0, -days)
	recs, err := s.Repo.List(ctx, domain.Filter{Since: &since})
	if err != nil {
		return nil, err
	}
	return toResponses(recs), nil
}

// Search matches the query as a substring of title or AI summary.
func (s *Service) Search(ctx context.Context, query string) ([]Response, error) {
	recs, err := s.Repo.List(ctx, domain.Filter{Query: query})
	if err != nil {
		return nil, err
	}
	return toResponses(recs), nil
}

// PendingReview returns threats flagged for human attention.
func (s *Service) PendingReview(ctx context.Context) ([]Response, error) {
	flag := true
	recs, err := s.Repo.List(ctx, domain.Filter{RequiresReview: &flag})
	if err != nil {
		return nil, err
	}
	return toResponses(recs), nil
}

// ByMinLevel returns threats at or above the given effective level.
func (s *Service) ByMinLevel(ctx context.Context, minLevel int) ([]Response, error) {
	recs, err := s.Repo.List(ctx, domain.Filter{MinLevel: &minLevel})
	if err != nil {
		return nil, err
	}
	return toResponses(recs), nil
}

// Get returns a single threat; ErrNotFound surfaces to the caller.
func (s *Service) Get(ctx context.Context, id domain.ThreatID) (Response, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Response{}, err
	}
	return toResponse(rec), nil
}

// ReviewCommand carries a human override request.
type ReviewCommand struct {
	HumanThreatLevel *int
	HumanCategory    *string
	HumanNotes       *string
	Reviewer         string
}

// Review applies the human override. Every override field is optional;
// even an empty override stamps reviewer identity and time, which marks the
// record as human-reviewed from then on.
func (s *Service) Review(ctx context.Context, id domain.ThreatID, cmd ReviewCommand) (Response, error) {
	if strings.TrimSpace(cmd.Reviewer) == "" {
		return Response{}, fmt.Errorf("reviewer is required")
	}
	rec, err := s.Repo.ApplyReview(ctx, id, domain.Override{
		HumanThreatLevel: cmd.HumanThreatLevel,
		HumanCategory:    cmd.HumanCategory,
		HumanNotes:       cmd.HumanNotes,
		Reviewer:         cmd.Reviewer,
	}, s.Clock.Now())
	if err != nil {
		return Response{}, err
	}
	return toResponse(rec), nil
}

// Overview renders a plain-text operator digest of the threat picture over
// the last three days.
func (s *Service) Overview(ctx context.Context) (string, error) {
	total, err := s.Repo.Count(ctx)
	if err != nil {
		return "", err
	}

	highLevel := 7
	high, err := s.Repo.List(ctx, domain.Filter{MinLevel: &highLevel})
	if err != nil {
		return "", err
	}

	since := s.Clock.Now().AddDate(0, 0, -3)
	recent, err := s.Repo.List(ctx, domain.Filter{Since: &since})
	if err != nil {
		return "", err
	}

	titles := make([]string, 0, len(recent))
	categorySet := make(map[string]bool)
	var categories []string
	for _, r := range recent {
		titles = append(titles, r.Title)
		if cat := r.Category(); cat != "" && !categorySet[cat] {
			categorySet[cat] = true
			categories = append(categories, cat)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Threat monitoring overview\n")
	fmt.Fprintf(&b, "Threats tracked: %d\n", total)
	fmt.Fprintf(&b, "High level threats (7+): %d\n", len(high))
	fmt.Fprintf(&b, "Threats seen in the last three days: %s\n", strings.Join(titles, "; "))
	fmt.Fprintf(&b, "Recent categories: %s\n", strings.Join(categories, ", "))
	return b.String(), nil
}
