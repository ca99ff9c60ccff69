package news

import "time"

// Article is a normalized headline as it arrives from the aggregator.
// It is ephemeral: only articles that classify as threats are persisted.
type Article struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
