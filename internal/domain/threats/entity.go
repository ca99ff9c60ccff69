package threats

import "time"

// ThreatID identifier type, auto-assigned by the store.
type ThreatID int64

// Record is the aggregate root: one article the AI judged to be a threat.
// The ai_* fields are always present (nothing is stored without a
// classification); the human_* fields stay nil until a reviewer overrides.
type Record struct {
	ID ThreatID `json:"id"`

	// Original article fields. SourceURL is the external identity and
	// carries a unique constraint.
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
	SourceURL   string     `json:"source_url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// AI verdict.
	AIThreatLevel int      `json:"ai_threat_level"`
	AICategory    string   `json:"ai_category"`
	AISummary     string   `json:"ai_summary"`
	AIConfidence  float64  `json:"ai_confidence"`
	AIKeywords    []string `json:"ai_keywords"`
	AIReason      string   `json:"ai_reason"`

	Location string `json:"location,omitempty"`

	// Human override, all optional.
	HumanThreatLevel *int       `json:"human_threat_level,omitempty"`
	HumanCategory    *string    `json:"human_category,omitempty"`
	HumanNotes       *string    `json:"human_notes,omitempty"`
	ReviewedBy       *string    `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`

	RequiresReview bool      `json:"requires_review"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ThreatLevel returns the effective level: human override wins.
func (r *Record) ThreatLevel() int {
	if r.HumanThreatLevel != nil {
		return *r.HumanThreatLevel
	}
	return r.AIThreatLevel
}

// Category returns the effective category: human override wins.
func (r *Record) Category() string {
	if r.HumanCategory != nil {
		return *r.HumanCategory
	}
	return r.AICategory
}

// HasHumanReview reports whether a reviewer has stamped this record.
func (r *Record) HasHumanReview() bool {
	return r.ReviewedBy != nil
}

// Override carries the optional human review fields. Supplying none still
// stamps reviewer identity and time.
type Override struct {
	HumanThreatLevel *int
	HumanCategory    *string
	HumanNotes       *string
	Reviewer         string
}
