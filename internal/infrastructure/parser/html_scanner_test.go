package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abk1969/ai-act-assistant-sub000/internal/scanner"
)

const listingPage = `
<html><body>
  <article>
    <h3><a href="/news/guidelines-gpai">Guidelines for general-purpose AI providers</a></h3>
    <time datetime="2025-07-18T09:00:00Z">18 July 2025</time>
    <p>The AI Office publishes guidelines for providers.</p>
    <p>Obligations apply from 2 August 2025.</p>
  </article>
  <article>
    <h3><a href="https://example.org/news/old">Old consultation</a></h3>
    <time>3 March 2024</time>
    <p>Closed.</p>
  </article>
  <article>
    <h3>No link at all</h3>
  </article>
  <article>
    <h3><a href="/news/guidelines-gpai">Guidelines repeated</a></h3>
    <time datetime="2025-07-18">18 July 2025</time>
  </article>
</body></html>`

func TestHTMLScannerScan(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(listingPage))
	}))
	defer server.Close()

	sc := NewHTMLScanner(server.Client())
	throttled := 0
	req := scanner.Request{
		Since:    time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		SiteName: "ai-office",
		Categories: []scanner.Category{
			{Name: "news", URL: server.URL + "/news"},
		},
		Throttle: func(context.Context) error {
			throttled++
			return nil
		},
	}

	docs, err := sc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	got := docs[0]
	if got.URL != server.URL+"/news/guidelines-gpai" {
		t.Fatalf("unexpected url: %s", got.URL)
	}
	if got.Title != "Guidelines for general-purpose AI providers" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
	if !strings.Contains(got.RawContent, "2 August 2025") {
		t.Fatalf("body paragraphs missing: %q", got.RawContent)
	}
	if got.Source != "ai-office/news" || got.SourceID != "ai-office" {
		t.Fatalf("unexpected source: %s / %s", got.Source, got.SourceID)
	}
	if !got.PublishedDate.Equal(time.Date(2025, time.July, 18, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published date: %v", got.PublishedDate)
	}
	if throttled != 1 || len(agents) != 1 {
		t.Fatalf("unexpected request accounting: throttled=%d requests=%d", throttled, len(agents))
	}
	if agent := <-agents; agent != userAgent {
		t.Fatalf("unexpected user agent: %s", agent)
	}
}

func TestHTMLScannerRejectsBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	sc := NewHTMLScanner(server.Client())
	_, err := sc.Scan(context.Background(), scanner.Request{
		SiteName:   "x",
		Categories: []scanner.Category{{Name: "news", URL: server.URL}},
	})
	if err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHTMLScannerRequiresCategories(t *testing.T) {
	t.Parallel()

	if _, err := NewHTMLScanner(nil).Scan(context.Background(), scanner.Request{SiteName: "x"}); err == nil {
		t.Fatal("expected error without categories")
	}
}

func TestParseListingDate(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		`<time datetime="2025-02-02T10:00:00+01:00">x</time>`: time.Date(2025, time.February, 2, 9, 0, 0, 0, time.UTC),
		`<time>Published 2024-12-05</time>`:                    time.Date(2024, time.December, 5, 0, 0, 0, 0, time.UTC),
		`<time>8 Nov 2025</time>`:                              time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC),
		`<span class="date">12 March 2025</span>`:              time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
	}
	for html, want := range cases {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			t.Fatalf("new document: %v", err)
		}
		got, ok := parseListingDate(doc.Find("time, span").First())
		if !ok || !got.Equal(want) {
			t.Fatalf("parseListingDate(%s) = %v, %v; want %v", html, got, ok, want)
		}
	}

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(`<time>soon</time>`))
	if _, ok := parseListingDate(doc.Find("time")); ok {
		t.Fatal("expected no date")
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	if got := plainText("<p>High-risk <b>systems</b></p>\n<p>must log</p>"); got != "High-risk systems must log" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := plainText("  already   plain "); got != "already plain" {
		t.Fatalf("unexpected text: %q", got)
	}
}
