package domain

import "time"

// UpdateType names the legal nature of a regulatory update.
type UpdateType string

const (
	UpdateNewRegulation   UpdateType = "new_regulation"
	UpdateAmendment       UpdateType = "amendment"
	UpdateDelegatedAct    UpdateType = "delegated_act"
	UpdateImplementingAct UpdateType = "implementing_act"
	UpdateGuidance        UpdateType = "guidance"
	UpdateSanction        UpdateType = "sanction"
	UpdateStandard        UpdateType = "standard"
)

// Valid reports whether t is a known update type.
func (t UpdateType) Valid() bool {
	switch t {
	case UpdateNewRegulation, UpdateAmendment, UpdateDelegatedAct, UpdateImplementingAct,
		UpdateGuidance, UpdateSanction, UpdateStandard:
		return true
	}
	return false
}

// TemporalUrgency is the compliance deadline bucket.
type TemporalUrgency string

const (
	UrgencyImmediate TemporalUrgency = "immediate"
	Urgency3Months   TemporalUrgency = "3_months"
	Urgency6Months   TemporalUrgency = "6_months"
	Urgency1Year     TemporalUrgency = "1_year"
	UrgencyFuture    TemporalUrgency = "future"
)

// Valid reports whether u is a known bucket.
func (u TemporalUrgency) Valid() bool {
	switch u {
	case UrgencyImmediate, Urgency3Months, Urgency6Months, Urgency1Year, UrgencyFuture:
		return true
	}
	return false
}

// Classification describes what kind of update a document is and whom it concerns.
type Classification struct {
	UpdateType           UpdateType      `json:"updateType"`
	ImpactedDomains      []string        `json:"impactedDomains"`
	ConcernedActors      []string        `json:"concernedActors"`
	TemporalUrgency      TemporalUrgency `json:"temporalUrgency"`
	RelatedArticles      []string        `json:"relatedArticles"`
	DetectsContradiction bool            `json:"detectsContradiction"`
	ContradictionDetails string          `json:"contradictionDetails,omitempty"`
}

// Enrichment holds deterministic cross references extracted from the text.
type Enrichment struct {
	ExtractedEntities []string `json:"extractedEntities"`
	LinkedArticles    []string `json:"linkedArticles"`
	NormativeChanges  []string `json:"normativeChanges"`
}

// ClassifiedUpdate wraps an analyzed update with classification and enrichment.
type ClassifiedUpdate struct {
	AnalyzedUpdate
	Classification Classification `json:"classification"`
	Enrichment     Enrichment     `json:"enrichment"`
}

// Priority of an action or checklist item.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities; unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

// WorkStatus is the progress state of an action or checklist item.
type WorkStatus string

const (
	StatusPending    WorkStatus = "pending"
	StatusInProgress WorkStatus = "in_progress"
	StatusDone       WorkStatus = "done"
)

// ActionCategory tags the kind of work an action needs.
type ActionCategory string

const (
	CategoryCompliance    ActionCategory = "compliance"
	CategoryDocumentation ActionCategory = "documentation"
	CategoryTechnical     ActionCategory = "technical"
	CategoryGovernance    ActionCategory = "governance"
	CategoryTraining      ActionCategory = "training"
)

// Action is an atomic unit of work.
type Action struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Priority       Priority       `json:"priority"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
	Status         WorkStatus     `json:"status"`
	Category       ActionCategory `json:"category,omitempty"`
	EstimatedHours float64        `json:"estimatedHours,omitempty"`
	RequiredSkills []string       `json:"requiredSkills,omitempty"`
	Dependencies   []string       `json:"dependencies,omitempty"`
	SystemID       string         `json:"systemId,omitempty"`
}

// ChecklistItem is a verifiable compliance task.
type ChecklistItem struct {
	ID                 string         `json:"id"`
	Task               string         `json:"task"`
	Required           bool           `json:"required"`
	Completed          bool           `json:"completed"`
	Deadline           *time.Time     `json:"deadline,omitempty"`
	RelatedArticle     string         `json:"relatedArticle,omitempty"`
	Priority           Priority       `json:"priority"`
	Status             WorkStatus     `json:"status"`
	Category           ActionCategory `json:"category,omitempty"`
	EstimatedHours     float64        `json:"estimatedHours,omitempty"`
	Prerequisites      []string       `json:"prerequisites,omitempty"`
	ValidationCriteria []string       `json:"validationCriteria,omitempty"`
}

// Synthesis is the human-readable digest of a classified update.
type Synthesis struct {
	ExecutiveSummary      string          `json:"executiveSummary"`
	KeyPoints             []string        `json:"keyPoints"`
	PracticalImplications []string        `json:"practicalImplications"`
	RecommendedActions    []Action        `json:"recommendedActions"`
	ComplianceChecklist   []ChecklistItem `json:"complianceChecklist"`
	EstimatedImpactScore  float64         `json:"estimatedImpactScore"`
}

// RegulatoryInsight is a classified update with its synthesis.
type RegulatoryInsight struct {
	ID string `json:"id"`
	ClassifiedUpdate
	Synthesis Synthesis `json:"synthesis"`
}
