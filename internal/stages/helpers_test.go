package stages

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("provider timeout")
}

// scriptedGenerator answers by matching a substring of the prompt.
type scriptedGenerator struct {
	replies []scriptedReply
}

type scriptedReply struct {
	contains string
	reply    string
}

func (s scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	for _, r := range s.replies {
		if containsAny(prompt, r.contains) {
			return r.reply, nil
		}
	}
	return "I cannot help with that.", nil
}

type fakeSource struct {
	id    string
	docs  []domain.RawDocument
	err   error
	panic bool
	calls int
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) Fetch(context.Context, ports.FetchParams) ([]domain.RawDocument, error) {
	f.calls++
	if f.panic {
		panic("adapter exploded")
	}
	return f.docs, f.err
}

func doc(url, title, content string) domain.RawDocument {
	return domain.RawDocument{
		URL:           url,
		Title:         title,
		RawContent:    content,
		Source:        "test",
		PublishedDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		DocumentType:  "news",
		Language:      "en",
	}
}
