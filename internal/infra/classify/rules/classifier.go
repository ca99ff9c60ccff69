package rules

import (
	"context"
	"strings"

	"github.com/shieldhq/threatwatch/internal/domain/classify"
)

// Classifier is the deterministic keyword strategy. It exists so the
// pipeline can run end to end without a live AI call; verdicts mimic the
// shape of the LLM output.
type Classifier struct{}

var _ classify.Classifier = (*Classifier)(nil)

func New() *Classifier { return &Classifier{} }

// threatWords triggers a maximum-level verdict. Checked before safeWords,
// so a threat word always wins when both sets would match.
var threatWords = []string{
	"attack", "bomb", "threat", "murder", "war", "gun", "kill", "shoot",
	"assault", "crisis", "panic", "danger", "virus", "hack", "breach", "scam",
	"fraud", "explosion", "terror", "hostage", "toxic", "disaster", "arrest",
	"criminal", "abuse", "violence", "hate", "ransomware", "stalk", "exploit",
	"extremist",
}

// safeWords clears the article outright.
var safeWords = []string{
	"support", "help", "community", "guide", "safe", "protect", "wellness",
	"education", "success", "innovation", "clean", "peaceful", "relief",
	"improve", "solution", "health", "care", "growth", "inspire",
	"collaboration", "discovery", "progress", "celebration", "joy",
	"resilience", "unity", "trust", "transparency", "empowerment", "kindness",
}

// Classify scores every item locally. It never fails and always returns one
// result per item.
func (c *Classifier) Classify(_ context.Context, items []classify.Item) ([]classify.Result, error) {
	out := make([]classify.Result, 0, len(items))
	for _, item := range items {
		out = append(out, scoreItem(item))
	}
	return out, nil
}

func scoreItem(item classify.Item) classify.Result {
	text := strings.ToLower(item.Title)
	if item.Description != "" {
		text += " " + strings.ToLower(item.Description)
	}

	if word := firstMatch(text, threatWords); word != "" {
		return classify.Result{
			ItemID:      item.ID,
			IsThreat:    true,
			ThreatLevel: 10,
			Category:    "Any threat",
			Summary:     "this is a threat",
			Keywords:    []string{word},
			Confidence:  1.0,
			Title:       item.Title,
			Reason:      "matched threat keyword: " + word,
		}
	}

	if word := firstMatch(text, safeWords); word != "" {
		return classify.Result{
			ItemID:      item.ID,
			IsThreat:    false,
			ThreatLevel: 1,
			Keywords:    []string{},
			Confidence:  1.0,
			Title:       item.Title,
			Reason:      "matched safe keyword: " + word,
		}
	}

	// Neither set matched; stay conservative and keep the article pending
	// human review rather than silently dropping it.
	return classify.Result{
		ItemID:      item.ID,
		IsThreat:    true,
		ThreatLevel: 6,
		Category:    "Mild threat",
		Summary:     "don't know for sure, but letting it be a threat for more data.",
		Keywords:    []string{},
		Confidence:  0.5,
		Title:       item.Title,
		Reason:      "no keyword matched; defaulting to threat pending review",
	}
}

func firstMatch(text string, words []string) string {
	for _, w := range words {
		if strings.Contains(text, w) {
			return w
		}
	}
	return ""
}
