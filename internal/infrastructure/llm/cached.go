package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

// CachedGenerator serves repeated prompts from a response cache.
// Cache errors are logged and bypassed; they never fail a generation.
type CachedGenerator struct {
	next   ports.TextGenerator
	cache  ports.ResponseCache
	scope  string
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.TextGenerator = (*CachedGenerator)(nil)

// NewCachedGenerator wraps next. scope separates keys of different models.
func NewCachedGenerator(next ports.TextGenerator, cache ports.ResponseCache, scope string, ttl time.Duration, logger *slog.Logger) *CachedGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGenerator{next: next, cache: cache, scope: scope, ttl: ttl, logger: logger}
}

// Generate returns the cached reply or asks the wrapped generator.
// Empty replies and failures are not cached.
func (c *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := CacheKey(c.scope, prompt)
	if reply, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("response cache read failed", "error", err)
	} else if ok {
		c.logger.Debug("response cache hit", "key", key)
		return reply, nil
	}

	reply, err := c.next.Generate(ctx, prompt)
	if err != nil || reply == "" {
		return reply, err
	}
	if err := c.cache.Set(ctx, key, reply, c.ttl); err != nil {
		c.logger.Warn("response cache write failed", "error", err)
	}
	return reply, nil
}

// CacheKey is the hex SHA-256 of scope and prompt.
func CacheKey(scope, prompt string) string {
	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return "regwatch:gen:" + hex.EncodeToString(h.Sum(nil))
}
