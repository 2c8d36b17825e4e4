package domain

import "time"

// TimelineBucket names a planning horizon.
type TimelineBucket string

const (
	BucketImmediate  TimelineBucket = "immediate"
	BucketShortTerm  TimelineBucket = "short_term"
	BucketMediumTerm TimelineBucket = "medium_term"
	BucketLongTerm   TimelineBucket = "long_term"
)

// TimelineEntry references an action placed in a bucket.
type TimelineEntry struct {
	ActionID string   `json:"actionId"`
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`
}

// Timeline partitions the actions of a plan by horizon.
type Timeline struct {
	Immediate  []TimelineEntry `json:"immediate"`
	ShortTerm  []TimelineEntry `json:"shortTerm"`
	MediumTerm []TimelineEntry `json:"mediumTerm"`
	LongTerm   []TimelineEntry `json:"longTerm"`
}

// Add appends an entry to the given bucket.
func (t *Timeline) Add(bucket TimelineBucket, entry TimelineEntry) {
	switch bucket {
	case BucketImmediate:
		t.Immediate = append(t.Immediate, entry)
	case BucketShortTerm:
		t.ShortTerm = append(t.ShortTerm, entry)
	case BucketMediumTerm:
		t.MediumTerm = append(t.MediumTerm, entry)
	default:
		t.LongTerm = append(t.LongTerm, entry)
	}
}

// Entries returns all entries across buckets.
func (t Timeline) Entries() []TimelineEntry {
	out := make([]TimelineEntry, 0, len(t.Immediate)+len(t.ShortTerm)+len(t.MediumTerm)+len(t.LongTerm))
	out = append(out, t.Immediate...)
	out = append(out, t.ShortTerm...)
	out = append(out, t.MediumTerm...)
	return append(out, t.LongTerm...)
}

// Effort is the aggregate work estimate of a plan.
type Effort struct {
	TotalHours  float64 `json:"totalHours"`
	PersonDays  float64 `json:"personDays"`
	PersonWeeks float64 `json:"personWeeks"`
	Band        string  `json:"band"`
}

// BudgetBand is a qualitative cost bucket.
type BudgetBand string

const (
	BudgetLow      BudgetBand = "low"
	BudgetModerate BudgetBand = "moderate"
	BudgetHigh     BudgetBand = "high"
	BudgetVeryHigh BudgetBand = "very_high"
)

// BudgetImpact is the cost estimate of a plan.
type BudgetImpact struct {
	EstimatedCost        float64    `json:"estimatedCost"`
	Currency             string     `json:"currency"`
	HourlyRate           float64    `json:"hourlyRate"`
	ComplexityMultiplier float64    `json:"complexityMultiplier"`
	UrgencyMultiplier    float64    `json:"urgencyMultiplier"`
	Band                 BudgetBand `json:"band"`
}

// RiskMitigation collects identified risks and how they are watched.
type RiskMitigation struct {
	IdentifiedRisks   []string `json:"identifiedRisks"`
	MitigationActions []string `json:"mitigationActions"`
	ContingencyPlan   string   `json:"contingencyPlan"`
	MonitoringPlan    string   `json:"monitoringPlan"`
}

// ActionPlan is the concrete, timed plan derived from a personalized insight.
type ActionPlan struct {
	PriorityActions       []Action            `json:"priorityActions"`
	SystemSpecificActions map[string][]Action `json:"systemSpecificActions"`
	ComplianceChecklist   []ChecklistItem     `json:"complianceChecklist"`
	Timeline              Timeline            `json:"timeline"`
	EstimatedEffort       Effort              `json:"estimatedEffort"`
	BudgetImpact          BudgetImpact        `json:"budgetImpact"`
	RiskMitigation        RiskMitigation      `json:"riskMitigation"`
	Fallback              bool                `json:"fallback,omitempty"`
}

// AllActions returns priority actions followed by per-system actions in system order.
// A system id listed more than once contributes its actions once.
func (p ActionPlan) AllActions(systemOrder []string) []Action {
	out := append([]Action(nil), p.PriorityActions...)
	seen := make(map[string]bool, len(systemOrder))
	for _, id := range systemOrder {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p.SystemSpecificActions[id]...)
	}
	return out
}

// ActionableInsight is the final pipeline output.
type ActionableInsight struct {
	PersonalizedInsight
	ActionPlan ActionPlan `json:"actionPlan"`
}

// InsightSummary is the persisted projection of an actionable insight.
type InsightSummary struct {
	InsightID         string       `json:"insightId" db:"insight_id"`
	OrgID             string       `json:"orgId" db:"org_id"`
	DocumentURL       string       `json:"documentUrl" db:"document_url"`
	Title             string       `json:"title" db:"title"`
	Source            string       `json:"source" db:"source"`
	UpdateType        UpdateType   `json:"updateType" db:"update_type"`
	ImpactLevel       ImpactLevel  `json:"impactLevel" db:"impact_level"`
	UrgencyLevel      UrgencyLevel `json:"urgencyLevel" db:"urgency_level"`
	RelevanceScore    float64      `json:"relevanceScore" db:"relevance_score"`
	EstimatedImpact   float64      `json:"estimatedImpact" db:"estimated_impact"`
	RiskAmplification float64      `json:"riskAmplification" db:"risk_amplification"`
	ActionCount       int          `json:"actionCount" db:"action_count"`
	ImpactedSystems   []string     `json:"impactedSystems" db:"-"`
	ExecutiveSummary  string       `json:"executiveSummary" db:"executive_summary"`
	Payload           []byte       `json:"-" db:"payload"`
	CreatedAt         time.Time    `json:"createdAt" db:"created_at"`
}
