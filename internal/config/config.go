package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	newsAPIKeyEnv   = "NEWS_API_KEY"
	openAIAPIKeyEnv = "OPENAI_API_KEY"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		// Driver selects the backend: sqlite (default), mysql, postgres.
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		// Path is the sqlite database file.
		Path string `yaml:"path"`
	} `yaml:"database"`

	News struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"apiKey"`
		Country  string `yaml:"country"`
	} `yaml:"news"`

	AI struct {
		// Provider selects the classifier: rules (deterministic) or openai.
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"apiKey"`
		Model    string `yaml:"model"`
		// ReviewConfidenceThreshold flags records for human review when the
		// AI confidence falls below it.
		ReviewConfidenceThreshold float64 `yaml:"reviewConfidenceThreshold"`
	} `yaml:"ai"`

	Pipeline struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"intervalMinutes"`
		RetentionDays   int  `yaml:"retentionDays"`
	} `yaml:"pipeline"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load reads the yaml config file and applies env overrides for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.AI.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "shield.db"
	}
	if c.News.Endpoint == "" {
		c.News.Endpoint = "https://newsapi.org/v2/top-headlines"
	}
	if c.News.Country == "" {
		c.News.Country = "us"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "rules"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.ReviewConfidenceThreshold == 0 {
		c.AI.ReviewConfidenceThreshold = 0.7
	}
	if c.Pipeline.IntervalMinutes <= 0 {
		c.Pipeline.IntervalMinutes = 60
	}
	if c.Pipeline.RetentionDays <= 0 {
		c.Pipeline.RetentionDays = 5
	}
}

// Interval returns the scheduler period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Pipeline.IntervalMinutes) * time.Minute
}

// Retention returns the purge window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Pipeline.RetentionDays) * 24 * time.Hour
}

// MySQLDSN builds the DSN for the mysql driver.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the DSN for lib/pq.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
