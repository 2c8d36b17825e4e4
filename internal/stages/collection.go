package stages

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

const defaultDaysBack = 7

var errUnknownSource = errors.New("source is not configured")

// CollectParams selects which sources to query and how far back.
type CollectParams struct {
	DaysBack       int
	EnabledSources []string
}

// SourceStatus is the outcome of querying one source.
type SourceStatus struct {
	Success  bool          `json:"success"`
	Count    int           `json:"count"`
	Dropped  int           `json:"dropped,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CollectionResult is the deduplicated batch plus per-source status.
type CollectionResult struct {
	Documents    []domain.RawDocument
	SourceStatus map[string]SourceStatus
	Duplicates   int
}

// Collector merges documents from source adapters.
type Collector struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewCollector builds a collection stage.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger, now: time.Now}
}

// Collect fetches every enabled source in order; source failures are recorded, never returned.
func (c *Collector) Collect(ctx context.Context, adapters []ports.SourceAdapter, params CollectParams) CollectionResult {
	daysBack := params.DaysBack
	if daysBack <= 0 {
		daysBack = defaultDaysBack
	}
	fetch := ports.FetchParams{
		DaysBack: daysBack,
		Since:    c.now().UTC().AddDate(0, 0, -daysBack),
	}

	enabled := map[string]bool{}
	for _, name := range params.EnabledSources {
		if name = strings.TrimSpace(name); name != "" {
			enabled[name] = false
		}
	}

	result := CollectionResult{SourceStatus: map[string]SourceStatus{}}
	var batch []domain.RawDocument

	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		id := adapter.ID()
		if len(enabled) > 0 {
			if _, ok := enabled[id]; !ok {
				continue
			}
			enabled[id] = true
		}

		started := c.now()
		var docs []domain.RawDocument
		err := guard(func() error {
			var fetchErr error
			docs, fetchErr = adapter.Fetch(ctx, fetch)
			return fetchErr
		})
		elapsed := c.now().Sub(started)

		if err != nil {
			c.logger.Warn("source failed", "source", id, "error", err)
			result.SourceStatus[id] = SourceStatus{Success: false, Count: 0, Error: err.Error(), Duration: elapsed}
			continue
		}

		kept, dropped := 0, 0
		for _, doc := range docs {
			if strings.TrimSpace(doc.URL) == "" {
				dropped++
				continue
			}
			if doc.SourceID == "" {
				doc.SourceID = id
			}
			batch = append(batch, doc)
			kept++
		}
		result.SourceStatus[id] = SourceStatus{Success: true, Count: kept, Dropped: dropped, Duration: elapsed}
		c.logger.Info("source collected", "source", id, "documents", kept, "dropped", dropped)
	}

	for name, seen := range enabled {
		if !seen {
			result.SourceStatus[name] = SourceStatus{Success: false, Error: errUnknownSource.Error()}
		}
	}

	result.Documents, result.Duplicates = Deduplicate(batch)
	return result
}

// Deduplicate keeps one document per canonical URL. A later document replaces an
// earlier one but keeps the earlier one's position.
func Deduplicate(docs []domain.RawDocument) ([]domain.RawDocument, int) {
	index := make(map[string]int, len(docs))
	out := make([]domain.RawDocument, 0, len(docs))
	duplicates := 0
	for _, doc := range docs {
		key := CanonicalURL(doc.URL)
		if i, ok := index[key]; ok {
			out[i] = doc
			duplicates++
			continue
		}
		index[key] = len(out)
		out = append(out, doc)
	}
	return out, duplicates
}

// CanonicalURL normalizes scheme/host case, fragments and trailing slashes.
func CanonicalURL(raw string) string {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.RawPath = ""
	if u.Path == "/" {
		u.Path = ""
	} else {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}
