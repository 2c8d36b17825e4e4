package llm

import (
	"context"

	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

// Resolver returns the organization's generator, falling back to the default one.
type Resolver struct {
	fallback  ports.TextGenerator
	overrides map[string]ports.TextGenerator
}

var _ ports.GeneratorResolver = (*Resolver)(nil)

// NewResolver builds a resolver; fallback may be nil when generation is disabled.
func NewResolver(fallback ports.TextGenerator, overrides map[string]ports.TextGenerator) *Resolver {
	copied := make(map[string]ports.TextGenerator, len(overrides))
	for org, gen := range overrides {
		if gen != nil {
			copied[org] = gen
		}
	}
	return &Resolver{fallback: fallback, overrides: copied}
}

// Resolve returns nil when no generator is configured for orgID.
func (r *Resolver) Resolve(_ context.Context, orgID string) ports.TextGenerator {
	if r == nil {
		return nil
	}
	if gen, ok := r.overrides[orgID]; ok {
		return gen
	}
	if r.fallback == nil {
		return nil
	}
	return r.fallback
}
