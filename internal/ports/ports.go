package ports

import (
	"context"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
)

// FetchParams bounds what a source adapter returns.
type FetchParams struct {
	DaysBack int
	Since    time.Time
}

// SourceAdapter pulls regulatory documents from one upstream publisher.
type SourceAdapter interface {
	ID() string
	Fetch(ctx context.Context, params FetchParams) ([]domain.RawDocument, error)
}

// TextGenerator turns a prompt into free-form generated text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ResponseCache stores generated responses keyed by prompt digest.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// GeneratorResolver picks the text generator configured for an organization.
// A nil generator means generation is unavailable for that run.
type GeneratorResolver interface {
	Resolve(ctx context.Context, orgID string) TextGenerator
}

// InsightStore persists insight summaries.
type InsightStore interface {
	Persist(ctx context.Context, summary domain.InsightSummary) error
}

// InsightReader lists persisted summaries.
type InsightReader interface {
	Recent(ctx context.Context, orgID string, limit int) ([]domain.InsightSummary, error)
}

// HealthChecker is implemented by collaborators that can report availability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// OrganizationDirectory supplies organization contexts.
type OrganizationDirectory interface {
	Organization(ctx context.Context, orgID string) (domain.OrganizationContext, error)
}

// Notifier streams selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
