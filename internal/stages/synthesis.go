package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/generation"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ids"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
)

var synthesisContract = generation.MustContract("synthesis", `{
  "type": "object",
  "required": ["executiveSummary", "recommendedActions", "complianceChecklist"],
  "properties": {
    "executiveSummary": {"type": "string", "pattern": "\\S"},
    "keyPoints": {"type": "array", "items": {"type": "string"}},
    "practicalImplications": {"type": "array", "items": {"type": "string"}},
    "recommendedActions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string", "pattern": "\\S"},
          "description": {"type": "string"},
          "priority": {"type": "string"},
          "deadline": {"type": "string"}
        }
      }
    },
    "complianceChecklist": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["task"],
        "properties": {
          "task": {"type": "string", "pattern": "\\S"},
          "required": {"type": "boolean"},
          "deadline": {"type": "string"},
          "relatedArticle": {"type": ["string", "integer"]}
        }
      }
    },
    "estimatedImpactScore": {"type": "number"}
  }
}`)

const synthesisPrompt = `Write a compliance briefing for this EU AI Act update.

Title: %s
Source: %s
Update type: %s
Temporal urgency: %s
Impacted domains: %s
Concerned actors: %s
Linked articles: %s

Content:
%s

Reply with a single JSON object:
{"executiveSummary": string, "keyPoints": [string], "practicalImplications": [string],
 "recommendedActions": [{"title": string, "description": string, "priority": "urgent|high|medium|low", "deadline": "YYYY-MM-DD"}],
 "complianceChecklist": [{"task": string, "required": bool, "deadline": "YYYY-MM-DD", "relatedArticle": "Article N"}],
 "estimatedImpactScore": 0-100}`

type synthesisReply struct {
	ExecutiveSummary      string   `json:"executiveSummary"`
	KeyPoints             []string `json:"keyPoints"`
	PracticalImplications []string `json:"practicalImplications"`
	RecommendedActions    []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		Deadline    string `json:"deadline"`
	} `json:"recommendedActions"`
	ComplianceChecklist []struct {
		Task           string     `json:"task"`
		Required       *bool      `json:"required"`
		Deadline       string     `json:"deadline"`
		RelatedArticle articleRef `json:"relatedArticle"`
	} `json:"complianceChecklist"`
	EstimatedImpactScore *float64 `json:"estimatedImpactScore"`
}

func (s *Synthesizer) synthesize(ctx context.Context, gen ports.TextGenerator, c domain.ClassifiedUpdate, stats *generation.Stats) domain.Synthesis {
	prompt := fmt.Sprintf(synthesisPrompt,
		c.Document.Title, c.Document.Source,
		c.Classification.UpdateType, c.Classification.TemporalUrgency,
		strings.Join(c.Classification.ImpactedDomains, ", "),
		strings.Join(c.Classification.ConcernedActors, ", "),
		strings.Join(c.Enrichment.LinkedArticles, ", "),
		truncateRunes(c.Document.RawContent, s.excerpt))

	out := generation.Attempt[synthesisReply](ctx, gen, synthesisContract, prompt)
	stats.Record(out.Status)
	if out.OK() {
		return out.Value.toSynthesis(c, s.ids)
	}
	s.logger.Debug("synthesis fallback", "url", c.Document.URL, "status", out.Status, "error", out.Err)
	return FallbackSynthesis(c, s.ids)
}

// FallbackSynthesis builds a templated synthesis with one review action and one checklist item.
func FallbackSynthesis(c domain.ClassifiedUpdate, idgen ids.Generator) domain.Synthesis {
	doc := c.Document
	analysis := c.Analysis
	priority := priorityFromImpact(analysis.ImpactLevel)

	var deadline *time.Time
	if len(analysis.Deadlines) > 0 {
		d := analysis.Deadlines[0]
		deadline = &d
	}

	var related string
	if len(c.Enrichment.LinkedArticles) > 0 {
		related = c.Enrichment.LinkedArticles[0]
	}

	keyPoints := append([]string(nil), analysis.KeyTopics...)
	if len(keyPoints) == 0 {
		keyPoints = []string{"Applicability to the organization has not been assessed"}
	}

	return domain.Synthesis{
		ExecutiveSummary: fmt.Sprintf("%s (%s): %s-impact regulatory update with relevance %.0f/100; review required.",
			doc.Title, doc.Source, analysis.ImpactLevel, analysis.RelevanceScore),
		KeyPoints: keyPoints,
		PracticalImplications: []string{
			fmt.Sprintf("Assess whether the update affects %s.", strings.Join(c.Classification.ConcernedActors, ", ")),
		},
		RecommendedActions: []domain.Action{{
			ID:          idgen.NewID("act"),
			Title:       "Review the document",
			Description: fmt.Sprintf("Review %q and determine its applicability to the organization's AI systems.", doc.Title),
			Priority:    priority,
			Deadline:    deadline,
			Status:      domain.StatusPending,
		}},
		ComplianceChecklist: []domain.ChecklistItem{{
			ID:             idgen.NewID("chk"),
			Task:           fmt.Sprintf("Assess applicability of %q", doc.Title),
			Required:       true,
			Deadline:       deadline,
			RelatedArticle: related,
			Priority:       priority,
			Status:         domain.StatusPending,
		}},
		EstimatedImpactScore: domain.ClampScore(analysis.RelevanceScore),
	}
}

func priorityFromImpact(level domain.ImpactLevel) domain.Priority {
	switch level {
	case domain.ImpactCritical:
		return domain.PriorityUrgent
	case domain.ImpactHigh:
		return domain.PriorityHigh
	case domain.ImpactMedium:
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}

func parsePriority(raw string, fallback domain.Priority) domain.Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "urgent", "critical", "immediate":
		return domain.PriorityUrgent
	case "high":
		return domain.PriorityHigh
	case "medium":
		return domain.PriorityMedium
	case "low":
		return domain.PriorityLow
	}
	return fallback
}

func (r synthesisReply) toSynthesis(c domain.ClassifiedUpdate, idgen ids.Generator) domain.Synthesis {
	defaultPriority := priorityFromImpact(c.Analysis.ImpactLevel)

	actions := make([]domain.Action, 0, len(r.RecommendedActions))
	for _, a := range r.RecommendedActions {
		action := domain.Action{
			ID:          idgen.NewID("act"),
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Priority:    parsePriority(a.Priority, defaultPriority),
			Status:      domain.StatusPending,
		}
		if t, ok := parseDate(a.Deadline); ok {
			action.Deadline = &t
		}
		actions = append(actions, action)
	}

	checklist := make([]domain.ChecklistItem, 0, len(r.ComplianceChecklist))
	for _, item := range r.ComplianceChecklist {
		required := true
		if item.Required != nil {
			required = *item.Required
		}
		entry := domain.ChecklistItem{
			ID:             idgen.NewID("chk"),
			Task:           strings.TrimSpace(item.Task),
			Required:       required,
			RelatedArticle: string(item.RelatedArticle),
			Priority:       defaultPriority,
			Status:         domain.StatusPending,
		}
		if t, ok := parseDate(item.Deadline); ok {
			entry.Deadline = &t
		}
		checklist = append(checklist, entry)
	}

	impact := c.Analysis.RelevanceScore
	if r.EstimatedImpactScore != nil {
		impact = *r.EstimatedImpactScore
	}

	return domain.Synthesis{
		ExecutiveSummary:      strings.TrimSpace(r.ExecutiveSummary),
		KeyPoints:             appendUnique(nil, r.KeyPoints...),
		PracticalImplications: appendUnique(nil, r.PracticalImplications...),
		RecommendedActions:    actions,
		ComplianceChecklist:   checklist,
		EstimatedImpactScore:  domain.ClampScore(impact),
	}
}
