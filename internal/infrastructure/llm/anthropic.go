package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/abk1969/ai-act-assistant-sub000/internal/config"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

// Messager is the slice of the Anthropic SDK the generator needs.
type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicGenerator implements TextGenerator on the Anthropic Messages API.
type AnthropicGenerator struct {
	messages     Messager
	model        string
	systemPrompt string
	maxTokens    int64
	timeout      time.Duration
}

var _ ports.TextGenerator = (*AnthropicGenerator)(nil)

// NewAnthropicGenerator builds a generator from configuration.
func NewAnthropicGenerator(cfg config.GenerationConfig) (*AnthropicGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic api key is not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return NewAnthropicGeneratorWithMessager(&c.Messages, cfg), nil
}

// NewAnthropicGeneratorWithMessager wires an explicit messages client.
func NewAnthropicGeneratorWithMessager(m Messager, cfg config.GenerationConfig) *AnthropicGenerator {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicGenerator{
		messages:     m,
		model:        cfg.Model,
		systemPrompt: safePrompt(cfg.SystemPrompt),
		maxTokens:    maxTokens,
		timeout:      cfg.Timeout,
	}
}

// Generate sends prompt as a single user turn and concatenates the text blocks.
func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if a == nil || a.messages == nil {
		return "", fmt.Errorf("anthropic generator is nil")
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: a.systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You analyze regulatory publications. Return strict JSON only."
	}
	return prompt
}
