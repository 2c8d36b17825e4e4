package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/generation"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ids"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

var classificationContract = generation.MustContract("classification", `{
  "type": "object",
  "required": ["updateType", "temporalUrgency"],
  "properties": {
    "updateType": {"type": "string", "enum": ["new_regulation", "amendment", "delegated_act", "implementing_act", "guidance", "sanction", "standard"]},
    "impactedDomains": {"type": "array", "items": {"type": "string"}},
    "concernedActors": {"type": "array", "items": {"type": "string"}},
    "temporalUrgency": {"type": "string", "enum": ["immediate", "3_months", "6_months", "1_year", "future"]},
    "relatedArticles": {"type": "array", "items": {"type": ["string", "integer"]}},
    "detectsContradiction": {"type": "boolean"},
    "contradictionDetails": {"type": "string"}
  }
}`)

const classificationPrompt = `Classify this regulatory update under the EU AI Act.

Title: %s
Source: %s
Impact level: %s
Key topics: %s

Content:
%s

Reply with a single JSON object:
{"updateType": "new_regulation|amendment|delegated_act|implementing_act|guidance|sanction|standard",
 "impactedDomains": [string], "concernedActors": [string],
 "temporalUrgency": "immediate|3_months|6_months|1_year|future",
 "relatedArticles": ["Article N"], "detectsContradiction": bool, "contradictionDetails": string}`

// articleRef accepts "Article 9", "Art. 9" or the bare number 9.
type articleRef string

func (a *articleRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = articleRef(normalizeArticle(s))
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("article reference: %w", err)
	}
	*a = articleRef("Article " + strconv.Itoa(n))
	return nil
}

type classificationReply struct {
	UpdateType           string       `json:"updateType"`
	ImpactedDomains      []string     `json:"impactedDomains"`
	ConcernedActors      []string     `json:"concernedActors"`
	TemporalUrgency      string       `json:"temporalUrgency"`
	RelatedArticles      []articleRef `json:"relatedArticles"`
	DetectsContradiction bool         `json:"detectsContradiction"`
	ContradictionDetails string       `json:"contradictionDetails"`
}

// SynthesisOptions tunes prompt size.
type SynthesisOptions struct {
	ExcerptChars int
}

// SynthesisResult carries one insight per qualifying update.
type SynthesisResult struct {
	Insights       []domain.RegulatoryInsight
	Classification generation.Stats
	Synthesis      generation.Stats
}

// Synthesizer classifies analyzed updates and writes their human-readable synthesis.
type Synthesizer struct {
	logger  *slog.Logger
	ids     ids.Generator
	excerpt int
}

// NewSynthesizer builds the classification and synthesis stage.
func NewSynthesizer(logger *slog.Logger, idgen ids.Generator, opts SynthesisOptions) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if idgen == nil {
		idgen = ids.UUID{}
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = defaultExcerptChars
	}
	return &Synthesizer{logger: logger, ids: idgen, excerpt: opts.ExcerptChars}
}

// ClassifyAndSynthesize runs both generate-or-fallback steps for every update.
func (s *Synthesizer) ClassifyAndSynthesize(ctx context.Context, gen ports.TextGenerator, updates []domain.AnalyzedUpdate) SynthesisResult {
	result := SynthesisResult{Insights: make([]domain.RegulatoryInsight, 0, len(updates))}

	for _, update := range updates {
		var insight domain.RegulatoryInsight
		err := guard(func() error {
			classified := s.classify(ctx, gen, update, &result.Classification)
			insight = domain.RegulatoryInsight{
				ID:               s.ids.NewID("ins"),
				ClassifiedUpdate: classified,
			}
			insight.Synthesis = s.synthesize(ctx, gen, classified, &result.Synthesis)
			return nil
		})
		if err != nil {
			s.logger.Warn("classification failed, using fallbacks", "url", update.Document.URL, "error", err)
			classified := domain.ClassifiedUpdate{
				AnalyzedUpdate: update,
				Classification: FallbackClassification(update),
			}
			classified.Enrichment = Enrich(classified)
			insight = domain.RegulatoryInsight{
				ID:               s.ids.NewID("ins"),
				ClassifiedUpdate: classified,
				Synthesis:        FallbackSynthesis(classified, s.ids),
			}
		}
		result.Insights = append(result.Insights, insight)
	}

	s.logger.Info("classification and synthesis complete",
		"insights", len(result.Insights),
		"classification_fallbacks", result.Classification.Fallbacks(),
		"synthesis_fallbacks", result.Synthesis.Fallbacks())
	return result
}

func (s *Synthesizer) classify(ctx context.Context, gen ports.TextGenerator, update domain.AnalyzedUpdate, stats *generation.Stats) domain.ClassifiedUpdate {
	prompt := fmt.Sprintf(classificationPrompt,
		update.Document.Title, update.Document.Source, update.Analysis.ImpactLevel,
		strings.Join(update.Analysis.KeyTopics, ", "),
		truncateRunes(update.Document.RawContent, s.excerpt))

	out := generation.Attempt[classificationReply](ctx, gen, classificationContract, prompt)
	stats.Record(out.Status)

	classified := domain.ClassifiedUpdate{AnalyzedUpdate: update}
	if out.OK() {
		classified.Classification = out.Value.toClassification(update)
	} else {
		s.logger.Debug("classification fallback", "url", update.Document.URL, "status", out.Status, "error", out.Err)
		classified.Classification = FallbackClassification(update)
	}
	classified.Enrichment = Enrich(classified)
	return classified
}

// FallbackClassification derives a classification from keyword rules.
func FallbackClassification(update domain.AnalyzedUpdate) domain.Classification {
	text := strings.ToLower(update.Document.Text())

	updateType := domain.UpdateGuidance
	switch {
	case strings.Contains(text, "amendment") || strings.Contains(text, "amending"):
		updateType = domain.UpdateAmendment
	case strings.Contains(text, "delegated act") || strings.Contains(text, "delegated regulation"):
		updateType = domain.UpdateDelegatedAct
	case strings.Contains(text, "implementing act") || strings.Contains(text, "implementing regulation"):
		updateType = domain.UpdateImplementingAct
	case strings.Contains(text, "sanction") || strings.Contains(text, "penalt"):
		updateType = domain.UpdateSanction
	}

	return domain.Classification{
		UpdateType:      updateType,
		ImpactedDomains: []string{"General"},
		ConcernedActors: append([]string(nil), update.Analysis.AffectedStakeholders...),
		TemporalUrgency: urgencyFromImpact(update.Analysis.ImpactLevel),
		RelatedArticles: extractArticles(update.Document.Text()),
	}
}

func urgencyFromImpact(level domain.ImpactLevel) domain.TemporalUrgency {
	switch level {
	case domain.ImpactCritical:
		return domain.UrgencyImmediate
	case domain.ImpactHigh:
		return domain.Urgency3Months
	}
	return domain.Urgency6Months
}

func (r classificationReply) toClassification(update domain.AnalyzedUpdate) domain.Classification {
	actors := appendUnique(nil, r.ConcernedActors...)
	if len(actors) == 0 {
		actors = append([]string(nil), update.Analysis.AffectedStakeholders...)
	}
	domains := appendUnique(nil, r.ImpactedDomains...)
	if len(domains) == 0 {
		domains = []string{"General"}
	}
	var articles []string
	for _, ref := range r.RelatedArticles {
		articles = appendUnique(articles, string(ref))
	}
	c := domain.Classification{
		UpdateType:           domain.UpdateType(r.UpdateType),
		ImpactedDomains:      domains,
		ConcernedActors:      actors,
		TemporalUrgency:      domain.TemporalUrgency(r.TemporalUrgency),
		RelatedArticles:      articles,
		DetectsContradiction: r.DetectsContradiction,
	}
	if c.DetectsContradiction {
		c.ContradictionDetails = strings.TrimSpace(r.ContradictionDetails)
	}
	return c
}

// Enrich extracts entities, article links and normative changes deterministically.
func Enrich(c domain.ClassifiedUpdate) domain.Enrichment {
	text := c.Document.Text()
	lower := strings.ToLower(text)

	var entities []string
	for _, st := range c.Analysis.AffectedStakeholders {
		if st != domain.StakeholderAll {
			entities = appendUnique(entities, st)
		}
	}
	if strings.Contains(lower, "2024/1689") || strings.Contains(lower, "ai act") || strings.Contains(lower, "artificial intelligence act") {
		entities = appendUnique(entities, "Regulation (EU) 2024/1689")
	}
	if strings.Contains(lower, "ai office") {
		entities = appendUnique(entities, "AI Office")
	}
	if strings.Contains(lower, "european commission") || strings.Contains(lower, "the commission") {
		entities = appendUnique(entities, "European Commission")
	}

	linked := appendUnique(extractArticles(text), c.Classification.RelatedArticles...)

	return domain.Enrichment{
		ExtractedEntities: entities,
		LinkedArticles:    linked,
		NormativeChanges:  normativeChanges(text),
	}
}

const maxNormativeChanges = 5

func normativeChanges(text string) []string {
	var out []string
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		if containsAny(lower, " shall ", "is amended", "are amended", "is replaced", "is inserted", "is deleted", "shall apply") {
			out = append(out, sentence)
			if len(out) == maxNormativeChanges {
				break
			}
		}
	}
	return out
}

func splitSentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '\n' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
