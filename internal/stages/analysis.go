package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/generation"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

const (
	defaultExcerptChars = 3000
	fallbackConfidence  = 60
)

var errInvalidDocument = errors.New("document has no url or text")

var analysisContract = generation.MustContract("analysis", `{
  "type": "object",
  "required": ["relevanceScore", "impactLevel"],
  "properties": {
    "relevanceScore": {"type": "number"},
    "aiActRelevance": {"type": "boolean"},
    "impactLevel": {"type": "string", "enum": ["critical", "high", "medium", "low", "CRITICAL", "HIGH", "MEDIUM", "LOW"]},
    "affectedStakeholders": {"type": "array", "items": {"type": "string"}},
    "keyTopics": {"type": "array", "items": {"type": "string"}},
    "deadlines": {"type": "array", "items": {"type": "string"}},
    "actionRequired": {"type": "boolean"},
    "confidenceScore": {"type": "number"}
  }
}`)

const analysisPrompt = `You assess regulatory publications for their relevance to the EU Artificial Intelligence Act (Regulation (EU) 2024/1689).

Title: %s
Source: %s
Document type: %s
Published: %s

Content:
%s

Reply with a single JSON object:
{"relevanceScore": 0-100, "aiActRelevance": bool, "impactLevel": "critical|high|medium|low",
 "affectedStakeholders": [string], "keyTopics": [string], "deadlines": ["YYYY-MM-DD"],
 "actionRequired": bool, "confidenceScore": 0-100}`

type analysisReply struct {
	RelevanceScore       float64  `json:"relevanceScore"`
	AIActRelevance       bool     `json:"aiActRelevance"`
	ImpactLevel          string   `json:"impactLevel"`
	AffectedStakeholders []string `json:"affectedStakeholders"`
	KeyTopics            []string `json:"keyTopics"`
	Deadlines            []string `json:"deadlines"`
	ActionRequired       *bool    `json:"actionRequired"`
	ConfidenceScore      *float64 `json:"confidenceScore"`
}

// AnalysisOptions tunes prompt size.
type AnalysisOptions struct {
	ExcerptChars int
}

// AnalysisResult is the scored batch sorted by relevance.
type AnalysisResult struct {
	Updates      []domain.AnalyzedUpdate
	Generation   generation.Stats
	Conservative int
}

// Analyzer scores documents for regulatory relevance and impact.
type Analyzer struct {
	logger  *slog.Logger
	excerpt int
}

// NewAnalyzer builds an analysis stage.
func NewAnalyzer(logger *slog.Logger, opts AnalysisOptions) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = defaultExcerptChars
	}
	return &Analyzer{logger: logger, excerpt: opts.ExcerptChars}
}

// Analyze returns exactly one AnalyzedUpdate per input document.
func (a *Analyzer) Analyze(ctx context.Context, gen ports.TextGenerator, docs []domain.RawDocument) AnalysisResult {
	result := AnalysisResult{Updates: make([]domain.AnalyzedUpdate, 0, len(docs))}

	for _, doc := range docs {
		var update domain.AnalyzedUpdate
		err := guard(func() error {
			if err := validateDocument(doc); err != nil {
				return err
			}
			out := generation.Attempt[analysisReply](ctx, gen, analysisContract, a.prompt(doc))
			result.Generation.Record(out.Status)
			update = a.resolve(doc, out)
			return nil
		})
		if err != nil {
			a.logger.Warn("analysis failed, using conservative default", "url", doc.URL, "error", err)
			update = domain.AnalyzedUpdate{
				Document:       doc,
				Analysis:       ConservativeAnalysis(),
				AnalysisSource: domain.SourceConservative,
			}
			result.Conservative++
		}
		result.Updates = append(result.Updates, update)
	}

	sort.SliceStable(result.Updates, func(i, j int) bool {
		return result.Updates[i].Analysis.RelevanceScore > result.Updates[j].Analysis.RelevanceScore
	})

	a.logger.Info("analysis complete",
		"documents", len(result.Updates),
		"generated", result.Generation.Generated,
		"fallbacks", result.Generation.Fallbacks(),
		"conservative", result.Conservative)
	return result
}

func (a *Analyzer) resolve(doc domain.RawDocument, out generation.Outcome[analysisReply]) domain.AnalyzedUpdate {
	if out.OK() {
		return domain.AnalyzedUpdate{Document: doc, Analysis: out.Value.toAnalysis(), AnalysisSource: domain.SourceGenerated}
	}
	a.logger.Debug("analysis fallback", "url", doc.URL, "status", out.Status, "error", out.Err)
	return domain.AnalyzedUpdate{Document: doc, Analysis: FallbackAnalysis(doc), AnalysisSource: domain.SourceFallback}
}

func (a *Analyzer) prompt(doc domain.RawDocument) string {
	published := "unknown"
	if !doc.PublishedDate.IsZero() {
		published = doc.PublishedDate.Format("2006-01-02")
	}
	return fmt.Sprintf(analysisPrompt,
		doc.Title, doc.Source, doc.DocumentType, published,
		truncateRunes(doc.RawContent, a.excerpt))
}

func validateDocument(doc domain.RawDocument) error {
	if strings.TrimSpace(doc.URL) == "" {
		return errInvalidDocument
	}
	if strings.TrimSpace(doc.Title) == "" && strings.TrimSpace(doc.RawContent) == "" {
		return errInvalidDocument
	}
	return nil
}

// FallbackAnalysis scores a document with keyword rules. It is total.
func FallbackAnalysis(doc domain.RawDocument) domain.Analysis {
	text := strings.ToLower(doc.Text())
	score, regulation := keywordRelevance(text)
	impact := domain.ImpactLevel(keywordImpact(text))
	return domain.Analysis{
		RelevanceScore:       domain.ClampScore(score),
		AIActRelevance:       regulation,
		ImpactLevel:          impact,
		AffectedStakeholders: keywordStakeholders(text),
		KeyTopics:            keywordTopics(text),
		Deadlines:            extractDeadlines(doc.Text()),
		ActionRequired:       impact == domain.ImpactCritical || impact == domain.ImpactHigh,
		ConfidenceScore:      fallbackConfidence,
	}
}

// ConservativeAnalysis is used for documents that cannot be processed at all.
func ConservativeAnalysis() domain.Analysis {
	return domain.Analysis{
		RelevanceScore:       50,
		ImpactLevel:          domain.ImpactMedium,
		AffectedStakeholders: []string{domain.StakeholderAll},
		KeyTopics:            []string{"manual review"},
		ActionRequired:       true,
		ConfidenceScore:      0,
	}
}

func (r analysisReply) toAnalysis() domain.Analysis {
	impact := domain.ImpactLevel(strings.ToLower(strings.TrimSpace(r.ImpactLevel)))
	if !impact.Valid() {
		impact = domain.ImpactLow
	}

	stakeholders := appendUnique(nil, r.AffectedStakeholders...)
	if len(stakeholders) == 0 {
		stakeholders = []string{domain.StakeholderAll}
	}

	var deadlines []time.Time
	for _, raw := range r.Deadlines {
		if t, ok := parseDate(raw); ok {
			deadlines = append(deadlines, t)
		}
	}

	actionRequired := impact == domain.ImpactCritical || impact == domain.ImpactHigh
	if r.ActionRequired != nil {
		actionRequired = *r.ActionRequired
	}

	confidence := 80.0
	if r.ConfidenceScore != nil {
		confidence = *r.ConfidenceScore
	}

	return domain.Analysis{
		RelevanceScore:       domain.ClampScore(r.RelevanceScore),
		AIActRelevance:       r.AIActRelevance,
		ImpactLevel:          impact,
		AffectedStakeholders: stakeholders,
		KeyTopics:            appendUnique(nil, r.KeyTopics...),
		Deadlines:            deadlines,
		ActionRequired:       actionRequired,
		ConfidenceScore:      domain.ClampScore(confidence),
	}
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2 January 2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
