package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone      = "UTC"
	configPathEnv        = "REGWATCH_CONFIG"
	databaseDSNEnv       = "DATABASE_DSN"
	databaseDriverEnv    = "DATABASE_DRIVER"
	anthropicAPIKeyEnv   = "ANTHROPIC_API_KEY"
	openAIAPIKeyEnv      = "OPENAI_API_KEY"
	generationProvEnv    = "GENERATION_PROVIDER"
	generationModelEnv   = "GENERATION_MODEL"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	logLevelEnv          = "LOG_LEVEL"
	redisAddrEnv         = "REDIS_ADDR"
	appName              = "regwatch"
	DriverPostgres       = "postgres"
	DriverSQLite         = "sqlite"
	ProviderAnthropic    = "anthropic"
	ProviderOpenAI       = "openai"
	ProviderInference    = "inference"
	ProviderNone         = "none"
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	ScannerRSS           = "rss"
	ScannerHTML          = "html"
	defaultHourlyRate    = 150
	defaultMinRelevance  = 50
	defaultExcerptChars  = 3000
	defaultGenTimeout    = 60 * time.Second
	defaultCacheTTL      = 24 * time.Hour
	defaultSchedInterval = 24 * time.Hour
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging           LoggingConfig      `yaml:"logging"`
	Database          DatabaseConfig     `yaml:"database"`
	Scheduler         SchedulerConfig    `yaml:"scheduler"`
	Generation        GenerationConfig   `yaml:"generation"`
	Pipeline          PipelineConfig     `yaml:"pipeline"`
	Sources           []SourceConfig     `yaml:"sources"`
	OrganizationsFile string             `yaml:"organizationsFile"`
	Notifications     NotificationConfig `yaml:"notifications"`
	Report            ReportConfig       `yaml:"report"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes where insight summaries are persisted.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run in watch mode.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	OrgID    string         `yaml:"orgId"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// GenerationConfig selects and configures the text generation backend.
type GenerationConfig struct {
	Provider      string            `yaml:"provider"`
	Model         string            `yaml:"model"`
	Endpoint      string            `yaml:"endpoint"`
	APIKey        string            `yaml:"apiKey"`
	SystemPrompt  string            `yaml:"systemPrompt"`
	MaxTokens     int64             `yaml:"maxTokens"`
	Timeout       time.Duration     `yaml:"timeout"`
	Organizations map[string]string `yaml:"organizations"`
	Cache         CacheConfig       `yaml:"cache"`
}

// ForProvider returns a copy targeting another provider. The API key is taken
// from that provider's environment variable when the provider differs.
func (g GenerationConfig) ForProvider(provider string) GenerationConfig {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == g.Provider {
		return g
	}
	out := g
	out.Provider = provider
	out.APIKey = providerKey(provider)
	return out
}

func providerKey(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv(anthropicAPIKeyEnv)
	case ProviderOpenAI:
		return os.Getenv(openAIAPIKeyEnv)
	}
	return ""
}

// CacheConfig configures the generation response cache.
type CacheConfig struct {
	Backend   string        `yaml:"backend"`
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redisAddr"`
	RedisPass string        `yaml:"redisPassword"`
	RedisDB   int           `yaml:"redisDb"`
}

// PipelineConfig holds run defaults.
type PipelineConfig struct {
	DaysBack       int      `yaml:"daysBack"`
	MinRelevance   *float64 `yaml:"minRelevance"`
	ExcerptChars   int      `yaml:"excerptChars"`
	HourlyRate     float64  `yaml:"hourlyRate"`
	Currency       string   `yaml:"currency"`
	EnabledSources []string `yaml:"enabledSources"`
}

// SourceConfig describes a single publisher with its scanner strategy.
type SourceConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
	RateLimit  time.Duration     `yaml:"rateLimit"`
}

// CategoryConfig holds the concrete endpoints to read (feed or listing URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	Endpoint string `yaml:"endpoint"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ReportConfig controls the rendered run report.
type ReportConfig struct {
	Path  string `yaml:"path"`
	Title string `yaml:"title"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit path; an empty path skips the file.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if fileCfg, err := readFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}

	if v := os.Getenv(generationProvEnv); v != "" {
		c.Generation.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(generationModelEnv); v != "" {
		c.Generation.Model = v
	}
	if v := providerKey(c.Generation.Provider); v != "" {
		c.Generation.APIKey = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Generation.Cache.RedisAddr = v
		c.Generation.Cache.Backend = CacheBackendRedis
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Driver != "" {
		base.Database.Driver = strings.ToLower(override.Database.Driver)
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.OrgID != "" {
		base.Scheduler.OrgID = override.Scheduler.OrgID
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Generation = mergeGeneration(base.Generation, override.Generation)
	base.Pipeline = mergePipeline(base.Pipeline, override.Pipeline)

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	if override.OrganizationsFile != "" {
		base.OrganizationsFile = override.OrganizationsFile
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.Endpoint != "" {
		base.Notifications.Telegram.Endpoint = override.Notifications.Telegram.Endpoint
	}

	if override.Report.Path != "" {
		base.Report.Path = override.Report.Path
	}
	if override.Report.Title != "" {
		base.Report.Title = override.Report.Title
	}

	return base
}

func mergeGeneration(base, override GenerationConfig) GenerationConfig {
	if override.Provider != "" {
		base.Provider = strings.ToLower(override.Provider)
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	if override.MaxTokens > 0 {
		base.MaxTokens = override.MaxTokens
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	if len(override.Organizations) > 0 {
		base.Organizations = override.Organizations
	}
	if override.Cache.Backend != "" {
		base.Cache.Backend = strings.ToLower(override.Cache.Backend)
	}
	if override.Cache.TTL > 0 {
		base.Cache.TTL = override.Cache.TTL
	}
	if override.Cache.RedisAddr != "" {
		base.Cache.RedisAddr = override.Cache.RedisAddr
	}
	if override.Cache.RedisPass != "" {
		base.Cache.RedisPass = override.Cache.RedisPass
	}
	if override.Cache.RedisDB > 0 {
		base.Cache.RedisDB = override.Cache.RedisDB
	}
	return base
}

func mergePipeline(base, override PipelineConfig) PipelineConfig {
	if override.DaysBack > 0 {
		base.DaysBack = override.DaysBack
	}
	if override.MinRelevance != nil {
		v := *override.MinRelevance
		base.MinRelevance = &v
	}
	if override.ExcerptChars > 0 {
		base.ExcerptChars = override.ExcerptChars
	}
	if override.HourlyRate > 0 {
		base.HourlyRate = override.HourlyRate
	}
	if override.Currency != "" {
		base.Currency = override.Currency
	}
	if len(override.EnabledSources) > 0 {
		base.EnabledSources = override.EnabledSources
	}
	return base
}

func floatPtr(v float64) *float64 { return &v }

// DefaultSQLitePath is the per-user data file used when no DSN is configured.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, appName, "insights.db")
}

// DefaultOrganizationsFile is the per-user organizations directory file.
func DefaultOrganizationsFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "organizations.yaml")
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{Driver: DriverSQLite, DSN: DefaultSQLitePath()},
		Scheduler: SchedulerConfig{Interval: defaultSchedInterval, Timezone: defaultTimezone, location: tz},
		Generation: GenerationConfig{
			Provider:     ProviderNone,
			Model:        "claude-sonnet-4-5",
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			SystemPrompt: "You analyze EU AI Act regulatory publications and answer only with JSON.",
			MaxTokens:    4096,
			Timeout:      defaultGenTimeout,
			Cache:        CacheConfig{Backend: CacheBackendMemory, TTL: defaultCacheTTL},
		},
		Pipeline: PipelineConfig{
			DaysBack:     7,
			MinRelevance: floatPtr(defaultMinRelevance),
			ExcerptChars: defaultExcerptChars,
			HourlyRate:   defaultHourlyRate,
			Currency:     "EUR",
		},
		OrganizationsFile: DefaultOrganizationsFile(),
		Report:            ReportConfig{Title: "Regulatory updates"},
		Sources: []SourceConfig{
			{
				Name:    "eur-lex",
				Scanner: ScannerRSS,
				Categories: []CategoryConfig{
					{Name: "ai-act", URL: "https://eur-lex.europa.eu/EN/display-feed.rss?rssId=222"},
				},
				RateLimit: time.Second,
			},
			{
				Name:    "ai-office",
				Scanner: ScannerHTML,
				Categories: []CategoryConfig{
					{Name: "news", URL: "https://digital-strategy.ec.europa.eu/en/policies/ai-office"},
				},
				Options: map[string]string{
					"item":  "article, .ecl-content-item",
					"title": "h3, .ecl-content-block__title",
					"link":  "a",
					"body":  "p, .ecl-content-block__description",
					"date":  "time",
				},
				RateLimit: time.Second,
			},
		},
	}
}
