package parser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/scanner"
)

// RSSScanner reads RSS/Atom feeds published by regulators.
type RSSScanner struct {
	parser *gofeed.Parser
	now    func() time.Time
}

// NewRSSScanner wires a feed parser on top of the given HTTP client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = userAgent
	return &RSSScanner{parser: p, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan parses every category feed and keeps items published since req.Since.
// Items without a date are kept and stamped with the scan time.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawDocument, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no feeds provided for site %s", req.SiteName)
	}

	docType := req.Option("documentType", "feed_item")
	language := req.Option("language", "en")
	var results []domain.RawDocument

	for _, cat := range req.Categories {
		if err := req.Wait(ctx); err != nil {
			return nil, fmt.Errorf("feed %s: %w", cat.Name, err)
		}
		feed, err := r.parser.ParseURLWithContext(cat.URL, ctx)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", cat.Name, err)
		}

		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			published := r.now().UTC()
			if item.PublishedParsed != nil {
				published = *item.PublishedParsed
			} else if item.UpdatedParsed != nil {
				published = *item.UpdatedParsed
			}
			if !req.Since.IsZero() && published.Before(req.Since) {
				continue
			}

			body := item.Content
			if body == "" {
				body = item.Description
			}
			lang := language
			if feed.Language != "" {
				lang = feed.Language
			}

			results = append(results, domain.RawDocument{
				SourceID:      req.SiteName,
				Source:        sourceLabel(req.SiteName, cat.Name),
				URL:           item.Link,
				Title:         collapse(item.Title),
				RawContent:    plainText(body),
				PublishedDate: published.UTC(),
				DocumentType:  docType,
				Language:      lang,
				Metadata:      map[string]string{"category": cat.Name, "guid": item.GUID},
			})
		}
	}

	return results, nil
}
