package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMergesYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regwatch.yaml")
	raw := `
logging:
  format: json
database:
  driver: Postgres
  dsn: postgres://file
generation:
  provider: anthropic
  model: file-model
  organizations:
    org-1: openai
  cache:
    ttl: 2h
pipeline:
  minRelevance: 65
  enabledSources: [eur-lex]
sources:
  - name: custom
    scanner: rss
    categories:
      - name: all
        url: https://example.org/feed.xml
scheduler:
  interval: 6h
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(anthropicAPIKeyEnv, "sk-test")
	t.Setenv(generationModelEnv, "env-model")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(generationProvEnv, "")
	t.Setenv(redisAddrEnv, "")
	t.Setenv(databaseDriverEnv, "")

	cfg := LoadFile(path)

	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Database.Driver != DriverPostgres || cfg.Database.DSN != "postgres://file" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Generation.Provider != ProviderAnthropic || cfg.Generation.APIKey != "sk-test" {
		t.Fatalf("unexpected generation provider: %+v", cfg.Generation)
	}
	if cfg.Generation.Model != "env-model" {
		t.Fatalf("env should override model, got %s", cfg.Generation.Model)
	}
	if cfg.Generation.Organizations["org-1"] != ProviderOpenAI {
		t.Fatalf("missing org override: %+v", cfg.Generation.Organizations)
	}
	if cfg.Generation.Cache.TTL != 2*time.Hour || cfg.Generation.Cache.Backend != CacheBackendMemory {
		t.Fatalf("unexpected cache config: %+v", cfg.Generation.Cache)
	}
	if cfg.Pipeline.MinRelevance == nil || *cfg.Pipeline.MinRelevance != 65 || cfg.Pipeline.HourlyRate != defaultHourlyRate {
		t.Fatalf("unexpected pipeline config: %+v", cfg.Pipeline)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name != "custom" {
		t.Fatalf("unexpected sources: %+v", cfg.Sources)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Fatalf("unexpected scheduler config: %+v", cfg.Scheduler)
	}
}

func TestLoadFileFallsBackToDefaults(t *testing.T) {
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(generationProvEnv, "")
	t.Setenv(databaseDriverEnv, "")
	t.Setenv(redisAddrEnv, "")

	cfg := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))

	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != DefaultSQLitePath() {
		t.Fatalf("unexpected default database: %+v", cfg.Database)
	}
	if cfg.Generation.Provider != ProviderNone {
		t.Fatalf("expected generation disabled by default, got %s", cfg.Generation.Provider)
	}
	if cfg.Pipeline.MinRelevance == nil || *cfg.Pipeline.MinRelevance != defaultMinRelevance || cfg.Pipeline.ExcerptChars != defaultExcerptChars {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if len(cfg.Sources) == 0 {
		t.Fatal("expected default sources")
	}
	if cfg.Scheduler.Location().String() != defaultTimezone {
		t.Fatalf("unexpected timezone: %s", cfg.Scheduler.Location())
	}
}

func TestRedisAddrSwitchesCacheBackend(t *testing.T) {
	t.Setenv(redisAddrEnv, "localhost:6379")

	cfg := LoadFile("")

	if cfg.Generation.Cache.Backend != CacheBackendRedis || cfg.Generation.Cache.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected cache config: %+v", cfg.Generation.Cache)
	}
}

func TestExplicitZeroMinRelevanceIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regwatch.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  minRelevance: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFile(path)

	if cfg.Pipeline.MinRelevance == nil || *cfg.Pipeline.MinRelevance != 0 {
		t.Fatalf("expected explicit zero threshold, got %v", cfg.Pipeline.MinRelevance)
	}
}
