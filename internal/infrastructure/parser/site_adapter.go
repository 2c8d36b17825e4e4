package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/abk1969/ai-act-assistant-sub000/internal/config"
	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
	"github.com/abk1969/ai-act-assistant-sub000/internal/scanner"
)

// SiteAdapter implements SourceAdapter for one configured site via its scanner strategy.
type SiteAdapter struct {
	site     config.SourceConfig
	strategy scanner.Scanner
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ ports.SourceAdapter = (*SiteAdapter)(nil)

// NewSiteAdapter binds a site to its strategy. A zero rate limit disables throttling.
func NewSiteAdapter(site config.SourceConfig, strategy scanner.Scanner, log *slog.Logger) *SiteAdapter {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if site.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(site.RateLimit), 1)
	}
	return &SiteAdapter{
		site:     site,
		strategy: strategy,
		limiter:  limiter,
		logger:   log,
	}
}

// ID is the configured site name.
func (s *SiteAdapter) ID() string {
	return s.site.Name
}

// Fetch executes the site's scanner for the requested window.
func (s *SiteAdapter) Fetch(ctx context.Context, params ports.FetchParams) ([]domain.RawDocument, error) {
	s.debug("process site", "site", s.site.Name, "scanner", s.strategy.Name(), "categories", len(s.site.Categories))

	req := scanner.Request{
		Since:      params.Since,
		SiteName:   s.site.Name,
		Options:    s.site.Options,
		Categories: toScannerCategories(s.site.Categories),
		Throttle:   s.limiter.Wait,
	}

	results, err := s.strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", s.site.Name, err)
	}

	for i := range results {
		if results[i].Source == "" {
			results[i].Source = s.site.Name
		}
		if results[i].SourceID == "" {
			results[i].SourceID = s.site.Name
		}
	}
	s.debug("site produced documents", "site", s.site.Name, "count", len(results))
	return results, nil
}

// DefaultRegistry registers the built-in scanner strategies.
func DefaultRegistry(client *http.Client) *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(NewRSSScanner(client))
	reg.Register(NewHTMLScanner(client))
	return reg
}

// BuildAdapters resolves every configured site to an adapter.
func BuildAdapters(reg *scanner.Registry, sites []config.SourceConfig, log *slog.Logger) ([]ports.SourceAdapter, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	adapters := make([]ports.SourceAdapter, 0, len(sites))
	for _, site := range sites {
		strategy, err := reg.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}
		adapters = append(adapters, NewSiteAdapter(site, strategy, log))
	}
	return adapters, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *SiteAdapter) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
