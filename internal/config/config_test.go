package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path != "./newsrec.db" {
		t.Fatalf("database path: %s", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port: %d", cfg.Server.Port)
	}
	if cfg.Retention.Days != 30 {
		t.Fatalf("retention: %d", cfg.Retention.Days)
	}
	if !cfg.Fetch.Enabled || len(cfg.Fetch.Queries) == 0 {
		t.Fatalf("fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Schedule.ParseIngestInterval() != time.Hour {
		t.Fatalf("ingest interval: %v", cfg.Schedule.ParseIngestInterval())
	}
	if cfg.Schedule.ParsePruneInterval() != 24*time.Hour {
		t.Fatalf("prune interval: %v", cfg.Schedule.ParsePruneInterval())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  path: /data/news.db
server:
  port: 9090
schedule:
  ingest_interval: 15m
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/data/news.db" {
		t.Fatalf("database path: %s", cfg.Database.Path)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port: %d", cfg.Server.Port)
	}
	if cfg.Schedule.ParseIngestInterval() != 15*time.Minute {
		t.Fatalf("ingest interval: %v", cfg.Schedule.ParseIngestInterval())
	}
	// Untouched sections keep their defaults.
	if cfg.Retention.Days != 30 {
		t.Fatalf("retention lost its default: %d", cfg.Retention.Days)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEWSREC_DB_PATH", "/env/news.db")
	t.Setenv("GNEWS_API_KEY", "env-key")
	t.Setenv("NEWSREC_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/env/news.db" {
		t.Fatalf("db path override: %s", cfg.Database.Path)
	}
	if cfg.Fetch.APIKey != "env-key" {
		t.Fatalf("api key override: %s", cfg.Fetch.APIKey)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("log level override: %s", cfg.Log.Level)
	}
}

func TestInvalidIntervalFallsBack(t *testing.T) {
	s := ScheduleConfig{IngestInterval: "soon", PruneInterval: ""}
	if s.ParseIngestInterval() != time.Hour {
		t.Fatalf("bad ingest interval fallback: %v", s.ParseIngestInterval())
	}
	if s.ParsePruneInterval() != 24*time.Hour {
		t.Fatalf("empty prune interval fallback: %v", s.ParsePruneInterval())
	}
}
