package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
)

// Category describes a concrete feed or listing endpoint provided by config.
type Category struct {
	Name string
	URL  string
}

// Request carries all parameters required to execute a scan.
type Request struct {
	Since      time.Time
	SiteName   string
	Categories []Category
	Options    map[string]string
	// Throttle, when set, is called before every outbound request.
	Throttle func(ctx context.Context) error
}

// Wait blocks on the request throttle, if any.
func (r Request) Wait(ctx context.Context) error {
	if r.Throttle == nil {
		return nil
	}
	return r.Throttle(ctx)
}

// Option returns a configured option or the fallback when it is absent.
func (r Request) Option(key, fallback string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Scanner captures a single strategy implementation (RSS, HTML listing, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawDocument, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
