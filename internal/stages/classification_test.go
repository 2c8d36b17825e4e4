package stages

import (
	"context"
	"strings"
	"testing"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ids"
)

func analyzed(d domain.RawDocument) domain.AnalyzedUpdate {
	return domain.AnalyzedUpdate{Document: d, Analysis: FallbackAnalysis(d), AnalysisSource: domain.SourceFallback}
}

func TestFallbackClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		content string
		want    domain.UpdateType
		urgency domain.TemporalUrgency
	}{
		{"Commission proposes an amendment to Annex III.", domain.UpdateAmendment, domain.Urgency6Months},
		{"A delegated act on thresholds was adopted.", domain.UpdateDelegatedAct, domain.Urgency6Months},
		{"An implementing act sets out the template.", domain.UpdateImplementingAct, domain.Urgency6Months},
		{"The authority applied a sanction.", domain.UpdateSanction, domain.UrgencyImmediate},
		{"High-risk obligation clarified.", domain.UpdateGuidance, domain.Urgency3Months},
	}

	for _, tc := range cases {
		c := FallbackClassification(analyzed(doc("https://example.org/x", "Update", tc.content)))
		if c.UpdateType != tc.want {
			t.Fatalf("%q: got type %s, want %s", tc.content, c.UpdateType, tc.want)
		}
		if c.TemporalUrgency != tc.urgency {
			t.Fatalf("%q: got urgency %s, want %s", tc.content, c.TemporalUrgency, tc.urgency)
		}
		if len(c.ImpactedDomains) != 1 || c.ImpactedDomains[0] != "General" {
			t.Fatalf("unexpected domains %v", c.ImpactedDomains)
		}
		if c.DetectsContradiction {
			t.Fatal("fallback must not detect contradictions")
		}
	}
}

func TestClassifyAndSynthesizeFallback(t *testing.T) {
	t.Parallel()

	update := analyzed(doc("https://example.org/x", "AI Act guidance", "Providers shall keep logs under Article 12 and Art. 19."))
	s := NewSynthesizer(discardLogger(), &ids.Sequence{}, SynthesisOptions{})

	res := s.ClassifyAndSynthesize(context.Background(), failingGenerator{}, []domain.AnalyzedUpdate{update})
	if len(res.Insights) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(res.Insights))
	}
	ins := res.Insights[0]
	if ins.ID == "" {
		t.Fatal("insight id must be set")
	}
	if ins.Analysis.RelevanceScore != update.Analysis.RelevanceScore || ins.Document.URL != update.Document.URL {
		t.Fatal("analyzed update must be carried unchanged")
	}
	if got := ins.Enrichment.LinkedArticles; len(got) != 2 || got[0] != "Article 12" || got[1] != "Article 19" {
		t.Fatalf("unexpected linked articles %v", got)
	}
	if len(ins.Enrichment.NormativeChanges) != 1 {
		t.Fatalf("expected one normative change, got %v", ins.Enrichment.NormativeChanges)
	}
	syn := ins.Synthesis
	if len(syn.RecommendedActions) != 1 || syn.RecommendedActions[0].ID == "" {
		t.Fatalf("unexpected fallback actions %+v", syn.RecommendedActions)
	}
	if len(syn.ComplianceChecklist) != 1 || syn.ComplianceChecklist[0].RelatedArticle != "Article 12" {
		t.Fatalf("unexpected fallback checklist %+v", syn.ComplianceChecklist)
	}
	if syn.EstimatedImpactScore != update.Analysis.RelevanceScore {
		t.Fatalf("impact score should copy relevance, got %v", syn.EstimatedImpactScore)
	}
	if res.Classification.Unavailable != 1 || res.Synthesis.Unavailable != 1 {
		t.Fatalf("unexpected stats %+v %+v", res.Classification, res.Synthesis)
	}
}

func TestClassifyAndSynthesizeGenerated(t *testing.T) {
	t.Parallel()

	gen := scriptedGenerator{replies: []scriptedReply{
		{contains: "Classify this regulatory update", reply: `{"updateType":"amendment","impactedDomains":["Healthcare"],"concernedActors":["providers"],"temporalUrgency":"3_months","relatedArticles":[9, "Art. 10"],"detectsContradiction":true,"contradictionDetails":"conflicts with MDR"}`},
		{contains: "Write a compliance briefing", reply: `Here is the briefing {"executiveSummary":"Annex III changes.","keyPoints":["k"],"practicalImplications":["p"],"recommendedActions":[{"id":"model-id","title":"Update risk file","priority":"critical","deadline":"2026-01-31"},{"title":"Brief staff","priority":"weird"}],"complianceChecklist":[{"task":"Check Annex III","required":false,"relatedArticle":6}],"estimatedImpactScore":-5}`},
	}}

	update := analyzed(doc("https://example.org/x", "Annex III amendment", "Amending act for healthcare."))
	res := NewSynthesizer(discardLogger(), &ids.Sequence{}, SynthesisOptions{}).
		ClassifyAndSynthesize(context.Background(), gen, []domain.AnalyzedUpdate{update})

	ins := res.Insights[0]
	c := ins.Classification
	if c.UpdateType != domain.UpdateAmendment || c.TemporalUrgency != domain.Urgency3Months {
		t.Fatalf("unexpected classification %+v", c)
	}
	if len(c.RelatedArticles) != 2 || c.RelatedArticles[0] != "Article 9" || c.RelatedArticles[1] != "Article 10" {
		t.Fatalf("unexpected related articles %v", c.RelatedArticles)
	}
	if !c.DetectsContradiction || c.ContradictionDetails == "" {
		t.Fatalf("expected contradiction details, got %+v", c)
	}

	syn := ins.Synthesis
	if len(syn.RecommendedActions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(syn.RecommendedActions))
	}
	first := syn.RecommendedActions[0]
	if first.ID == "model-id" || first.ID == "" {
		t.Fatalf("action id must be freshly assigned, got %q", first.ID)
	}
	if first.Priority != domain.PriorityUrgent || first.Deadline == nil {
		t.Fatalf("unexpected first action %+v", first)
	}
	if syn.RecommendedActions[1].ID == first.ID {
		t.Fatal("action ids must be unique")
	}
	if syn.ComplianceChecklist[0].Required || syn.ComplianceChecklist[0].RelatedArticle != "Article 6" {
		t.Fatalf("unexpected checklist %+v", syn.ComplianceChecklist[0])
	}
	if syn.EstimatedImpactScore != 0 {
		t.Fatalf("expected clamped impact, got %v", syn.EstimatedImpactScore)
	}
	if res.Classification.Generated != 1 || res.Synthesis.Generated != 1 {
		t.Fatalf("unexpected stats %+v %+v", res.Classification, res.Synthesis)
	}
}

func TestClassificationRejectsUnknownType(t *testing.T) {
	t.Parallel()

	gen := scriptedGenerator{replies: []scriptedReply{
		{contains: "Classify this regulatory update", reply: `{"updateType":"rumour","temporalUrgency":"immediate"}`},
	}}
	update := analyzed(doc("https://example.org/x", "Guidance", "Guidance on transparency."))
	res := NewSynthesizer(discardLogger(), &ids.Sequence{}, SynthesisOptions{}).
		ClassifyAndSynthesize(context.Background(), gen, []domain.AnalyzedUpdate{update})

	if res.Classification.Malformed != 1 {
		t.Fatalf("expected malformed outcome, got %+v", res.Classification)
	}
	if res.Insights[0].Classification.UpdateType != domain.UpdateGuidance {
		t.Fatalf("expected fallback type, got %s", res.Insights[0].Classification.UpdateType)
	}
}

func TestSynthesisRejectsBlankSummary(t *testing.T) {
	t.Parallel()

	gen := scriptedGenerator{replies: []scriptedReply{
		{contains: "Write a compliance briefing", reply: `{"executiveSummary":"   ","recommendedActions":[{"title":" "}],"complianceChecklist":[]}`},
	}}
	update := analyzed(doc("https://example.org/x", "Guidance on logging", "Guidance on record-keeping."))
	res := NewSynthesizer(discardLogger(), &ids.Sequence{}, SynthesisOptions{}).
		ClassifyAndSynthesize(context.Background(), gen, []domain.AnalyzedUpdate{update})

	if res.Synthesis.Malformed != 1 {
		t.Fatalf("expected malformed synthesis, got %+v", res.Synthesis)
	}
	if summary := res.Insights[0].Synthesis.ExecutiveSummary; strings.TrimSpace(summary) == "" {
		t.Fatal("expected fallback summary")
	}
}
