package classify

// Item is one article handed to a classifier. ID is a per-batch correlation
// id assigned by the orchestrator; results must echo it so matching never
// depends on title string equality.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Result is the verdict for a single item.
type Result struct {
	ItemID      string   `json:"id"`
	IsThreat    bool     `json:"is_threat"`
	ThreatLevel int      `json:"threat_level"`
	Category    string   `json:"category"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	Confidence  float64  `json:"confidence"`
	Title       string   `json:"title"`
	Reason      string   `json:"reason"`
}
