package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/scanner"
)

var (
	isoDateExpr  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	longDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]+ \d{4}`)
)

// Selector option keys and their defaults.
const (
	optItem  = "item"
	optTitle = "title"
	optLink  = "link"
	optBody  = "body"
	optDate  = "date"
)

var defaultSelectors = map[string]string{
	optItem:  "article",
	optTitle: "h2, h3",
	optLink:  "a[href]",
	optBody:  "p",
	optDate:  "time",
}

// HTMLScanner reads publication listings rendered as HTML pages.
type HTMLScanner struct {
	client *http.Client
	now    func() time.Time
}

// NewHTMLScanner wires an HTTP client.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan walks through each listing URL and returns entries published since req.Since.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawDocument, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no listings provided for site %s", req.SiteName)
	}

	selectors := map[string]string{}
	for key, fallback := range defaultSelectors {
		selectors[key] = req.Option(key, fallback)
	}

	var results []domain.RawDocument
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		base, err := url.Parse(cat.URL)
		if err != nil {
			return nil, fmt.Errorf("listing %s: invalid url %s: %w", cat.Name, cat.URL, err)
		}
		if err := req.Wait(ctx); err != nil {
			return nil, fmt.Errorf("listing %s: %w", cat.Name, err)
		}
		doc, err := h.fetchDocument(ctx, cat.URL)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", cat.Name, err)
		}

		doc.Find(selectors[optItem]).Each(func(_ int, item *goquery.Selection) {
			entry, ok := h.parseEntry(item, base, selectors, req, cat.Name)
			if !ok {
				return
			}
			if !req.Since.IsZero() && entry.PublishedDate.Before(req.Since) {
				return
			}
			if _, dup := seen[entry.URL]; dup {
				return
			}
			seen[entry.URL] = struct{}{}
			results = append(results, entry)
		})
	}

	return results, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// parseEntry maps one listing item; entries without a link are skipped.
func (h *HTMLScanner) parseEntry(item *goquery.Selection, base *url.URL, selectors map[string]string, req scanner.Request, category string) (domain.RawDocument, bool) {
	link := item.Find(selectors[optLink]).First()
	if item.Is(selectors[optLink]) {
		link = item
	}
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return domain.RawDocument{}, false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return domain.RawDocument{}, false
	}
	resolved := base.ResolveReference(ref).String()

	title := collapse(item.Find(selectors[optTitle]).First().Text())
	if title == "" {
		title = collapse(link.Text())
	}

	var body []string
	item.Find(selectors[optBody]).Each(func(_ int, p *goquery.Selection) {
		if text := collapse(p.Text()); text != "" {
			body = append(body, text)
		}
	})

	published := h.now().UTC()
	if parsed, ok := parseListingDate(item.Find(selectors[optDate]).First()); ok {
		published = parsed
	}

	return domain.RawDocument{
		SourceID:      req.SiteName,
		Source:        sourceLabel(req.SiteName, category),
		URL:           resolved,
		Title:         title,
		RawContent:    strings.Join(body, "\n"),
		PublishedDate: published,
		DocumentType:  req.Option("documentType", "publication"),
		Language:      req.Option("language", "en"),
		Metadata:      map[string]string{"category": category},
	}, true
}

func parseListingDate(sel *goquery.Selection) (time.Time, bool) {
	candidates := []string{}
	if v, ok := sel.Attr("datetime"); ok {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, sel.Text())

	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), true
		}
		if m := isoDateExpr.FindString(raw); m != "" {
			if t, err := time.Parse("2006-01-02", m); err == nil {
				return t, true
			}
		}
		if m := longDateExpr.FindString(raw); m != "" {
			for _, layout := range []string{"2 January 2006", "2 Jan 2006"} {
				if t, err := time.Parse(layout, m); err == nil {
					return t, true
				}
			}
		}
	}
	return time.Time{}, false
}
