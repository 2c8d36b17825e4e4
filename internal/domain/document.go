package domain

import "time"

// RawDocument is a regulatory publication as returned by a source adapter.
type RawDocument struct {
	SourceID      string            `json:"sourceId"`
	Source        string            `json:"source"`
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	RawContent    string            `json:"rawContent"`
	PublishedDate time.Time         `json:"publishedDate"`
	DocumentType  string            `json:"documentType"`
	Language      string            `json:"language"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Text joins the title and body used by keyword rules.
func (d RawDocument) Text() string {
	return d.Title + "\n" + d.RawContent
}

// ImpactLevel is the coarse severity bucket of an update.
type ImpactLevel string

const (
	ImpactCritical ImpactLevel = "critical"
	ImpactHigh     ImpactLevel = "high"
	ImpactMedium   ImpactLevel = "medium"
	ImpactLow      ImpactLevel = "low"
)

// Valid reports whether the level is one of the known buckets.
func (l ImpactLevel) Valid() bool {
	switch l {
	case ImpactCritical, ImpactHigh, ImpactMedium, ImpactLow:
		return true
	}
	return false
}

// StakeholderAll is the catch-all stakeholder used when no role matches.
const StakeholderAll = "all"

// Analysis is the relevance/impact assessment of one document.
type Analysis struct {
	RelevanceScore       float64     `json:"relevanceScore"`
	AIActRelevance       bool        `json:"aiActRelevance"`
	ImpactLevel          ImpactLevel `json:"impactLevel"`
	AffectedStakeholders []string    `json:"affectedStakeholders"`
	KeyTopics            []string    `json:"keyTopics"`
	Deadlines            []time.Time `json:"deadlines"`
	ActionRequired       bool        `json:"actionRequired"`
	ConfidenceScore      float64     `json:"confidenceScore"`
}

// AnalysisSource records which path produced an analysis.
type AnalysisSource string

const (
	SourceGenerated    AnalysisSource = "generated"
	SourceFallback     AnalysisSource = "fallback"
	SourceConservative AnalysisSource = "conservative"
)

// AnalyzedUpdate wraps a collected document with its analysis.
type AnalyzedUpdate struct {
	Document       RawDocument    `json:"document"`
	Analysis       Analysis       `json:"analysis"`
	AnalysisSource AnalysisSource `json:"analysisSource"`
}
