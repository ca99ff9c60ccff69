package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.AI.Provider != "rules" {
		t.Errorf("Provider = %q, want rules", cfg.AI.Provider)
	}
	if cfg.AI.ReviewConfidenceThreshold != 0.7 {
		t.Errorf("ReviewConfidenceThreshold = %v, want 0.7", cfg.AI.ReviewConfidenceThreshold)
	}
	if cfg.Interval() != time.Hour {
		t.Errorf("Interval = %v, want 1h", cfg.Interval())
	}
	if cfg.Retention() != 5*24*time.Hour {
		t.Errorf("Retention = %v, want 120h", cfg.Retention())
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: mysql
  host: db.internal
  port: 3306
  user: shield
  password: secret
  name: threats
ai:
  provider: openai
  model: gpt-4o
  reviewConfidenceThreshold: 0.85
pipeline:
  enabled: true
  intervalMinutes: 30
  retentionDays: 14
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.AI.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.AI.Model)
	}
	if cfg.Interval() != 30*time.Minute {
		t.Errorf("Interval = %v, want 30m", cfg.Interval())
	}
	if !cfg.Pipeline.Enabled {
		t.Error("Pipeline.Enabled = false, want true")
	}

	wantDSN := "shield:secret@tcp(db.internal:3306)/threats?parseTime=true&charset=utf8mb4&loc=UTC"
	if got := cfg.MySQLDSN(); got != wantDSN {
		t.Errorf("MySQLDSN = %q, want %q", got, wantDSN)
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "env-news-key")
	t.Setenv("OPENAI_API_KEY", "env-openai-key")

	path := writeConfig(t, `
news:
  apiKey: file-news-key
ai:
  apiKey: file-openai-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.News.APIKey != "env-news-key" {
		t.Errorf("News.APIKey = %q, want env value", cfg.News.APIKey)
	}
	if cfg.AI.APIKey != "env-openai-key" {
		t.Errorf("AI.APIKey = %q, want env value", cfg.AI.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}
