package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Model     ModelConfig     `yaml:"model"`
	Fetch     FetchConfig     `yaml:"fetch"`
	RSS       RSSConfig       `yaml:"rss"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Retention RetentionConfig `yaml:"retention"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ModelConfig locates the classifier artifact bundle.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// FetchConfig configures the news API provider.
type FetchConfig struct {
	Enabled    bool     `yaml:"enabled"`
	BaseURL    string   `yaml:"base_url"`
	APIKey     string   `yaml:"api_key"`
	Queries    []string `yaml:"queries"`
	Language   string   `yaml:"language"`
	Country    string   `yaml:"country"`
	MaxResults int      `yaml:"max_results"`
}

// RSSConfig configures the RSS feed provider.
type RSSConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ScheduleConfig configures the daemon's ingest and prune intervals.
type ScheduleConfig struct {
	IngestInterval string `yaml:"ingest_interval"`
	PruneInterval  string `yaml:"prune_interval"`
}

// ParseIngestInterval returns the ingest interval as time.Duration.
func (s ScheduleConfig) ParseIngestInterval() time.Duration {
	d, err := time.ParseDuration(s.IngestInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// ParsePruneInterval returns the prune interval as time.Duration.
func (s ScheduleConfig) ParsePruneInterval() time.Duration {
	d, err := time.ParseDuration(s.PruneInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// RetentionConfig controls article pruning.
type RetentionConfig struct {
	Days int `yaml:"days"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./newsrec.db"},
		Model:    ModelConfig{Path: "./news_classifier_model.json"},
		Fetch: FetchConfig{
			Enabled:    true,
			BaseURL:    "https://gnews.io/api/v4",
			Queries:    []string{"technology", "sports", "finance"},
			Language:   "en",
			Country:    "us",
			MaxResults: 10,
		},
		RSS: RSSConfig{
			Enabled: false,
			Feeds: []FeedItem{
				{Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/rss.xml"},
				{Name: "Reuters Top", URL: "https://feeds.reuters.com/reuters/topNews"},
			},
		},
		Schedule: ScheduleConfig{
			IngestInterval: "1h",
			PruneInterval:  "24h",
		},
		Retention: RetentionConfig{Days: 30},
		Server:    ServerConfig{Port: 8080},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEWSREC_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("NEWSREC_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("GNEWS_API_KEY"); v != "" {
		cfg.Fetch.APIKey = v
	}
	if v := os.Getenv("NEWSREC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
