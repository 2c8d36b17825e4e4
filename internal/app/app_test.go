package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abk1969/ai-act-assistant-sub000/internal/config"
	"github.com/abk1969/ai-act-assistant-sub000/internal/logging"
	"github.com/abk1969/ai-act-assistant-sub000/internal/usecase"
)

func offlineConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Database:          config.DatabaseConfig{Driver: config.DriverSQLite, DSN: filepath.Join(dir, "insights.db")},
		Generation:        config.GenerationConfig{Provider: config.ProviderNone},
		OrganizationsFile: filepath.Join(dir, "missing.yaml"),
		Report:            config.ReportConfig{Path: filepath.Join(dir, "report.md"), Title: "Weekly"},
		Scheduler:         config.SchedulerConfig{Interval: 0},
	}
}

func TestNewAndRunOffline(t *testing.T) {
	cfg := offlineConfig(t)

	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	res, err := a.Run(context.Background(), usecase.RunRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.Insights)
	assert.NotEmpty(t, res.Metrics.EarlyExitReason)

	raw, err := os.ReadFile(cfg.Report.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Weekly")

	recent, err := a.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestNewRejectsUnknownScanner(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Sources = []config.SourceConfig{{Name: "x", Scanner: "ftp"}}

	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestBuildGeneratorByProvider(t *testing.T) {
	a := &Application{logger: logging.Discard()}

	assert.Nil(t, a.buildGenerator(config.GenerationConfig{Provider: config.ProviderNone}, nil))
	assert.Nil(t, a.buildGenerator(config.GenerationConfig{Provider: config.ProviderAnthropic}, nil))
	assert.Nil(t, a.buildGenerator(config.GenerationConfig{Provider: config.ProviderInference}, nil))
	assert.Nil(t, a.buildGenerator(config.GenerationConfig{Provider: "mystery"}, nil))
	assert.NotNil(t, a.buildGenerator(config.GenerationConfig{Provider: config.ProviderOpenAI, Model: "m"}, nil))
	assert.NotNil(t, a.buildGenerator(config.GenerationConfig{Provider: config.ProviderInference, Endpoint: "http://localhost:9"}, nil))
}
