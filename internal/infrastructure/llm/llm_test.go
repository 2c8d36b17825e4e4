package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/abk1969/ai-act-assistant-sub000/internal/config"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

type fakeMessager struct {
	params anthropic.MessageNewParams
	resp   *anthropic.Message
	err    error
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return f.resp, f.err
}

func TestAnthropicGeneratorConcatenatesText(t *testing.T) {
	t.Parallel()

	m := &fakeMessager{resp: &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: `{"relevanceScore":`},
		{Type: "thinking", Text: "ignored"},
		{Type: "text", Text: `80}`},
	}}}
	gen := NewAnthropicGeneratorWithMessager(m, config.GenerationConfig{Model: "claude-test"})

	got, err := gen.Generate(context.Background(), "analyze")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if got != `{"relevanceScore":80}` {
		t.Fatalf("unexpected reply: %s", got)
	}
	if string(m.params.Model) != "claude-test" || m.params.MaxTokens != 4096 {
		t.Fatalf("unexpected params: model=%s max=%d", m.params.Model, m.params.MaxTokens)
	}
	if len(m.params.System) != 1 || m.params.System[0].Text == "" {
		t.Fatal("expected a system prompt")
	}
}

func TestAnthropicGeneratorWrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("overloaded")
	gen := NewAnthropicGeneratorWithMessager(&fakeMessager{err: boom}, config.GenerationConfig{Model: "m", Timeout: time.Second})
	if _, err := gen.Generate(context.Background(), "p"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewAnthropicGeneratorRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewAnthropicGenerator(config.GenerationConfig{}); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) != 2 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"echo: ` + body.Messages[1]["content"] + `"}}]}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(config.GenerationConfig{Endpoint: server.URL, Model: "gpt", APIKey: "key"}, server.Client())
	got, err := gen.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if got != "echo: hello" {
		t.Fatalf("unexpected reply: %s", got)
	}

	bad := NewOpenAIGenerator(config.GenerationConfig{Endpoint: server.URL, Model: "gpt", APIKey: "wrong"}, server.Client())
	if _, err := bad.Generate(context.Background(), "hello"); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}

	if _, err := NewOpenAIGenerator(config.GenerationConfig{}, nil).Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
}

func (m *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

type countingGenerator struct {
	calls int
	reply string
	err   error
}

func (c *countingGenerator) Generate(context.Context, string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestCachedGeneratorServesRepeatedPrompts(t *testing.T) {
	t.Parallel()

	next := &countingGenerator{reply: `{"ok":true}`}
	cache := &mapCache{entries: map[string]string{}}
	gen := NewCachedGenerator(next, cache, "model-a", time.Hour, nil)

	for i := 0; i < 3; i++ {
		got, err := gen.Generate(context.Background(), "same prompt")
		if err != nil || got != `{"ok":true}` {
			t.Fatalf("unexpected reply: %q, %v", got, err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if CacheKey("model-a", "p") == CacheKey("model-b", "p") {
		t.Fatal("cache keys must be scoped")
	}
}

func TestCachedGeneratorSkipsFailuresAndCacheErrors(t *testing.T) {
	t.Parallel()

	next := &countingGenerator{err: errors.New("down")}
	cache := &mapCache{entries: map[string]string{}}
	gen := NewCachedGenerator(next, cache, "", time.Hour, nil)
	if _, err := gen.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected upstream error")
	}
	if len(cache.entries) != 0 {
		t.Fatal("failures must not be cached")
	}

	next.err, next.reply = nil, "fresh"
	cache.getErr = errors.New("redis down")
	if got, err := gen.Generate(context.Background(), "p"); err != nil || got != "fresh" {
		t.Fatalf("cache read errors should be bypassed: %q, %v", got, err)
	}
}

func TestResolver(t *testing.T) {
	t.Parallel()

	def := &countingGenerator{reply: "default"}
	special := &countingGenerator{reply: "special"}
	r := NewResolver(def, map[string]ports.TextGenerator{"org-1": special, "org-2": nil})

	if r.Resolve(context.Background(), "org-1") != special {
		t.Fatal("expected override")
	}
	if r.Resolve(context.Background(), "org-2") != def {
		t.Fatal("nil override should fall back")
	}
	if r.Resolve(context.Background(), "") != def {
		t.Fatal("expected default")
	}
	if NewResolver(nil, nil).Resolve(context.Background(), "x") != nil {
		t.Fatal("expected nil generator")
	}
	var missing *Resolver
	if missing.Resolve(context.Background(), "x") != nil {
		t.Fatal("nil resolver should resolve to nil")
	}
}
