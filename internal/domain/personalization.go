package domain

// UrgencyLevel is the personalized urgency of an insight.
type UrgencyLevel string

const (
	UrgencyLevelImmediate UrgencyLevel = "immediate"
	UrgencyLevelHigh      UrgencyLevel = "high"
	UrgencyLevelMedium    UrgencyLevel = "medium"
	UrgencyLevelLow       UrgencyLevel = "low"
)

// Valid reports whether u is a known level.
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyLevelImmediate, UrgencyLevelHigh, UrgencyLevelMedium, UrgencyLevelLow:
		return true
	}
	return false
}

// Priority maps an urgency level onto the action priority scale.
func (u UrgencyLevel) Priority() Priority {
	switch u {
	case UrgencyLevelImmediate:
		return PriorityUrgent
	case UrgencyLevelHigh:
		return PriorityHigh
	case UrgencyLevelMedium:
		return PriorityMedium
	}
	return PriorityLow
}

// UserContext is the organization-specific view of an insight.
type UserContext struct {
	ImpactedSystems   []AISystem   `json:"impactedSystems"`
	RelevanceScore    float64      `json:"relevanceScore"`
	UrgencyLevel      UrgencyLevel `json:"urgencyLevel"`
	MaturityGaps      []string     `json:"maturityGaps"`
	ComplianceGaps    []string     `json:"complianceGaps"`
	EstimatedImpact   float64      `json:"estimatedImpact"`
	RiskAmplification float64      `json:"riskAmplification"`
	Fallback          bool         `json:"fallback,omitempty"`
}

// PersonalizedInsight is an insight scored against one organization.
type PersonalizedInsight struct {
	RegulatoryInsight
	UserContext UserContext `json:"userContext"`
}
