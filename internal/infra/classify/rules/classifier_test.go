package rules

import (
	"context"
	"testing"

	"github.com/shieldhq/threatwatch/internal/domain/classify"
)

func TestClassifyThreatKeyword(t *testing.T) {
	t.Parallel()

	c := New()
	results, err := c.Classify(context.Background(), []classify.Item{
		{ID: "a", Title: "Cyber attack hits major hospital network"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	res := results[0]
	if res.ItemID != "a" {
		t.Errorf("ItemID = %q, want %q", res.ItemID, "a")
	}
	if !res.IsThreat {
		t.Error("IsThreat = false, want true")
	}
	if res.ThreatLevel != 10 {
		t.Errorf("ThreatLevel = %d, want 10", res.ThreatLevel)
	}
	if res.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", res.Confidence)
	}
	if len(res.Keywords) != 1 || res.Keywords[0] != "attack" {
		t.Errorf("Keywords = %v, want [attack]", res.Keywords)
	}
}

func TestClassifySafeKeyword(t *testing.T) {
	t.Parallel()

	c := New()
	results, err := c.Classify(context.Background(), []classify.Item{
		{ID: "b", Title: "Community wellness program expands citywide"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	res := results[0]
	if res.IsThreat {
		t.Error("IsThreat = true, want false")
	}
	if res.ThreatLevel != 1 {
		t.Errorf("ThreatLevel = %d, want 1", res.ThreatLevel)
	}
	if res.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", res.Confidence)
	}
}

func TestClassifyThreatWinsOverSafe(t *testing.T) {
	t.Parallel()

	// both sets match; the threat set is checked first and must win
	c := New()
	results, err := c.Classify(context.Background(), []classify.Item{
		{ID: "c", Title: "Community support rallies after bomb scare"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	res := results[0]
	if !res.IsThreat {
		t.Error("IsThreat = false, want true when both keyword sets match")
	}
	if res.ThreatLevel != 10 {
		t.Errorf("ThreatLevel = %d, want 10", res.ThreatLevel)
	}
}

func TestClassifyNoMatchDefaultsToThreat(t *testing.T) {
	t.Parallel()

	c := New()
	results, err := c.Classify(context.Background(), []classify.Item{
		{ID: "d", Title: "Quarterly earnings report released"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	res := results[0]
	if !res.IsThreat {
		t.Error("IsThreat = false, want true for unmatched article")
	}
	if res.ThreatLevel != 6 {
		t.Errorf("ThreatLevel = %d, want 6", res.ThreatLevel)
	}
	if res.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", res.Confidence)
	}
	if res.Keywords == nil || len(res.Keywords) != 0 {
		t.Errorf("Keywords = %v, want empty non-nil slice", res.Keywords)
	}
}

func TestClassifyMatchesDescription(t *testing.T) {
	t.Parallel()

	c := New()
	results, err := c.Classify(context.Background(), []classify.Item{
		{ID: "e", Title: "Breaking news", Description: "A massive data breach exposed millions of accounts"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	res := results[0]
	if !res.IsThreat || res.ThreatLevel != 10 {
		t.Errorf("got IsThreat=%v level=%d, want threat verdict from description match", res.IsThreat, res.ThreatLevel)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	t.Parallel()

	c := New()
	results, err := c.Classify(context.Background(), []classify.Item{
		{ID: "f", Title: "RANSOMWARE Gang Strikes Again"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !results[0].IsThreat || results[0].ThreatLevel != 10 {
		t.Errorf("uppercase keyword not matched: %+v", results[0])
	}
}

func TestClassifyOneResultPerItem(t *testing.T) {
	t.Parallel()

	items := []classify.Item{
		{ID: "1", Title: "war escalates"},
		{ID: "2", Title: "peaceful resolution reached"},
		{ID: "3", Title: "markets flat today"},
	}
	c := New()
	results, err := c.Classify(context.Background(), items)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, res := range results {
		if res.ItemID != items[i].ID {
			t.Errorf("result %d: ItemID = %q, want %q", i, res.ItemID, items[i].ID)
		}
	}
}
