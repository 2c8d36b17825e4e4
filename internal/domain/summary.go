package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Summarize projects an actionable insight into its persisted form.
func (a ActionableInsight) Summarize(orgID string, now time.Time) (InsightSummary, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return InsightSummary{}, fmt.Errorf("marshal insight %s: %w", a.ID, err)
	}

	systems := make([]string, 0, len(a.UserContext.ImpactedSystems))
	for _, sys := range a.UserContext.ImpactedSystems {
		systems = append(systems, sys.ID)
	}

	actions := len(a.ActionPlan.PriorityActions)
	for _, list := range a.ActionPlan.SystemSpecificActions {
		actions += len(list)
	}

	return InsightSummary{
		InsightID:         a.ID,
		OrgID:             orgID,
		DocumentURL:       a.Document.URL,
		Title:             a.Document.Title,
		Source:            a.Document.Source,
		UpdateType:        a.Classification.UpdateType,
		ImpactLevel:       a.Analysis.ImpactLevel,
		UrgencyLevel:      a.UserContext.UrgencyLevel,
		RelevanceScore:    ClampScore(a.UserContext.RelevanceScore),
		EstimatedImpact:   ClampScore(a.UserContext.EstimatedImpact),
		RiskAmplification: a.UserContext.RiskAmplification,
		ActionCount:       actions,
		ImpactedSystems:   systems,
		ExecutiveSummary:  a.Synthesis.ExecutiveSummary,
		Payload:           payload,
		CreatedAt:         now.UTC(),
	}, nil
}
