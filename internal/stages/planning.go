package stages

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ids"
)

const (
	defaultHourlyRate   = 150.0
	defaultCurrency     = "EUR"
	maturityGapHours    = 16.0
	fullReviewHours     = 24.0
	docUpdateHours      = 12.0
	complianceTestHours = 16.0
	verificationHours   = 4.0
	manualReviewHours   = 8.0
	maxActionHours      = 40.0
	hoursPerDay         = 8.0
	daysPerWeek         = 5.0
)

const (
	contingencyTemplate = "If a deadline cannot be met, document the gap, notify the compliance owner and agree an interim risk treatment with legal counsel."
	monitoringTemplate  = "Review progress on open actions weekly and re-run the pipeline when new guidance or delegated acts are published."
)

var categoryRules = []struct {
	category domain.ActionCategory
	terms    []string
}{
	{domain.CategoryTraining, []string{"train", "awareness", "literacy", "educat"}},
	{domain.CategoryDocumentation, []string{"document", "record", "register", "report", "notice", "instructions for use"}},
	{domain.CategoryGovernance, []string{"governance", "policy", "committee", "oversight", "responsib", "accountab", "board"}},
	{domain.CategoryTechnical, []string{"technical", "test", "monitor", "logging", "accuracy", "robustness", "security", "data", "model"}},
}

var categorySkills = map[domain.ActionCategory][]string{
	domain.CategoryCompliance:    {"regulatory compliance", "legal analysis"},
	domain.CategoryDocumentation: {"technical writing", "regulatory compliance"},
	domain.CategoryTechnical:     {"ml engineering", "quality assurance"},
	domain.CategoryGovernance:    {"ai governance", "risk management"},
	domain.CategoryTraining:      {"training design", "change management"},
}

var categoryDependencies = map[domain.ActionCategory][]string{
	domain.CategoryCompliance:    {"legal interpretation of the update"},
	domain.CategoryDocumentation: {"up-to-date AI system inventory"},
	domain.CategoryTechnical:     {"access to system documentation", "test environment"},
	domain.CategoryGovernance:    nil,
	domain.CategoryTraining:      {"approved internal policy baseline"},
}

var categoryValidation = map[domain.ActionCategory][]string{
	domain.CategoryCompliance:    {"Compliance owner sign-off recorded"},
	domain.CategoryDocumentation: {"Document versioned and approved"},
	domain.CategoryTechnical:     {"Test evidence attached"},
	domain.CategoryGovernance:    {"Decision minuted by governance body"},
	domain.CategoryTraining:      {"Attendance and assessment recorded"},
}

var urgencyHourFactor = map[domain.Priority]float64{
	domain.PriorityUrgent: 1.5,
	domain.PriorityHigh:   1.25,
	domain.PriorityMedium: 1.0,
	domain.PriorityLow:    0.75,
}

// PlanningOptions sets the budget parameters.
type PlanningOptions struct {
	HourlyRate float64
	Currency   string
}

// PlanningResult carries one actionable insight per input.
type PlanningResult struct {
	Insights  []domain.ActionableInsight
	Fallbacks int
}

// Planner turns personalized insights into timed action plans.
type Planner struct {
	logger   *slog.Logger
	ids      ids.Generator
	rate     float64
	currency string
}

// NewPlanner builds an action planning stage.
func NewPlanner(logger *slog.Logger, idgen ids.Generator, opts PlanningOptions) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if idgen == nil {
		idgen = ids.UUID{}
	}
	if opts.HourlyRate <= 0 {
		opts.HourlyRate = defaultHourlyRate
	}
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	return &Planner{logger: logger, ids: idgen, rate: opts.HourlyRate, currency: opts.Currency}
}

// Plan derives an ActionPlan for every insight; failures yield a minimal fallback plan.
func (p *Planner) Plan(_ context.Context, insights []domain.PersonalizedInsight) PlanningResult {
	result := PlanningResult{Insights: make([]domain.ActionableInsight, 0, len(insights))}

	for _, insight := range insights {
		var plan domain.ActionPlan
		err := guard(func() error {
			var err error
			plan, err = p.plan(insight)
			return err
		})
		if err != nil {
			p.logger.Warn("planning failed, using fallback plan", "insight", insight.ID, "url", insight.Document.URL, "error", err)
			plan = p.FallbackPlan(insight)
			result.Fallbacks++
		}
		result.Insights = append(result.Insights, domain.ActionableInsight{PersonalizedInsight: insight, ActionPlan: plan})
	}

	p.logger.Info("planning complete", "insights", len(result.Insights), "fallbacks", result.Fallbacks)
	return result
}

func (p *Planner) plan(insight domain.PersonalizedInsight) (domain.ActionPlan, error) {
	uc := insight.UserContext
	if !uc.UrgencyLevel.Valid() {
		return domain.ActionPlan{}, fmt.Errorf("unknown urgency level %q", uc.UrgencyLevel)
	}
	urgencyPriority := uc.UrgencyLevel.Priority()

	var priority []domain.Action
	for _, rec := range insight.Synthesis.RecommendedActions {
		a := p.newAction(rec.Title, rec.Description, urgencyPriority, urgencyPriority)
		a.Deadline = rec.Deadline
		priority = append(priority, a)
	}
	for _, gap := range uc.MaturityGaps {
		a := p.newAction("Close maturity gap", gap, domain.PriorityMedium, urgencyPriority)
		a.EstimatedHours = maturityGapHours
		priority = append(priority, a)
	}
	for _, gap := range uc.ComplianceGaps {
		priority = append(priority, p.newAction("Remediate compliance gap", gap, domain.PriorityHigh, urgencyPriority))
	}

	perSystem := map[string][]domain.Action{}
	systemOrder := make([]string, 0, len(uc.ImpactedSystems))
	for _, sys := range uc.ImpactedSystems {
		actions := p.systemActions(insight, sys)
		if len(actions) == 0 {
			continue
		}
		if _, ok := perSystem[sys.ID]; !ok {
			systemOrder = append(systemOrder, sys.ID)
		}
		perSystem[sys.ID] = append(perSystem[sys.ID], actions...)
	}

	plan := domain.ActionPlan{
		PriorityActions:       priority,
		SystemSpecificActions: perSystem,
		ComplianceChecklist:   p.checklist(insight),
	}

	all := plan.AllActions(systemOrder)
	for _, a := range all {
		plan.Timeline.Add(bucketFor(a.Priority, uc.UrgencyLevel), domain.TimelineEntry{ActionID: a.ID, Title: a.Title, Priority: a.Priority})
	}
	plan.EstimatedEffort = effortFor(all)
	plan.BudgetImpact = p.budgetFor(plan.EstimatedEffort.TotalHours, uc)
	plan.RiskMitigation = riskMitigation(insight)
	return plan, nil
}

func (p *Planner) newAction(title, description string, priority, urgency domain.Priority) domain.Action {
	category := categorize(title + " " + description)
	return domain.Action{
		ID:             p.ids.NewID("act"),
		Title:          title,
		Description:    description,
		Priority:       priority,
		Status:         domain.StatusPending,
		Category:       category,
		EstimatedHours: estimateHours(title+" "+description, urgency),
		RequiredSkills: append([]string(nil), categorySkills[category]...),
		Dependencies:   append([]string(nil), categoryDependencies[category]...),
	}
}

func (p *Planner) systemActions(insight domain.PersonalizedInsight, sys domain.AISystem) []domain.Action {
	var out []domain.Action
	add := func(title, desc string, prio domain.Priority, category domain.ActionCategory, hours float64) {
		out = append(out, domain.Action{
			ID:             p.ids.NewID("act"),
			Title:          title,
			Description:    desc,
			Priority:       prio,
			Status:         domain.StatusPending,
			Category:       category,
			EstimatedHours: hours,
			RequiredSkills: append([]string(nil), categorySkills[category]...),
			Dependencies:   append([]string(nil), categoryDependencies[category]...),
			SystemID:       sys.ID,
		})
	}

	if sys.RiskTier.Elevated() {
		add("Full compliance review of "+sys.Name,
			fmt.Sprintf("Review %s (%s risk) against %q.", sys.Name, sys.RiskTier, insight.Document.Title),
			domain.PriorityUrgent, domain.CategoryCompliance, fullReviewHours)
	}
	if insight.Classification.UpdateType == domain.UpdateImplementingAct {
		add("Update documentation of "+sys.Name,
			fmt.Sprintf("Align the technical documentation of %s with the implementing act.", sys.Name),
			domain.PriorityHigh, domain.CategoryDocumentation, docUpdateHours)
	}
	for _, gap := range insight.UserContext.ComplianceGaps {
		if sys.ID != "" && strings.HasPrefix(gap, systemTag(sys)) {
			add("Compliance test of "+sys.Name,
				fmt.Sprintf("Test %s against the requirements flagged in: %s", sys.Name, gap),
				domain.PriorityHigh, domain.CategoryTechnical, complianceTestHours)
			break
		}
	}
	return out
}

func (p *Planner) checklist(insight domain.PersonalizedInsight) []domain.ChecklistItem {
	uc := insight.UserContext
	out := make([]domain.ChecklistItem, 0, len(insight.Synthesis.ComplianceChecklist)+len(uc.ImpactedSystems))

	for _, item := range insight.Synthesis.ComplianceChecklist {
		enriched := item
		enriched.Category = categorize(item.Task)
		enriched.EstimatedHours = estimateHours(item.Task, uc.UrgencyLevel.Priority())
		enriched.Prerequisites = append([]string(nil), categoryDependencies[enriched.Category]...)
		enriched.ValidationCriteria = append([]string(nil), categoryValidation[enriched.Category]...)
		if item.RelatedArticle != "" {
			enriched.ValidationCriteria = append(enriched.ValidationCriteria, "Evidence mapped to "+item.RelatedArticle)
		}
		if enriched.Status == "" {
			enriched.Status = domain.StatusPending
		}
		out = append(out, enriched)
	}

	for _, sys := range uc.ImpactedSystems {
		out = append(out, domain.ChecklistItem{
			ID:                 p.ids.NewID("chk"),
			Task:               fmt.Sprintf("Verify %s against %q", sys.Name, insight.Document.Title),
			Required:           sys.RiskTier.Elevated(),
			Priority:           uc.UrgencyLevel.Priority(),
			Status:             domain.StatusPending,
			Category:           domain.CategoryCompliance,
			EstimatedHours:     verificationHours,
			Prerequisites:      []string{"System owner identified for " + sys.Name},
			ValidationCriteria: append([]string(nil), categoryValidation[domain.CategoryCompliance]...),
		})
	}
	return out
}

// FallbackPlan is the minimal plan used when planning an insight fails.
func (p *Planner) FallbackPlan(insight domain.PersonalizedInsight) domain.ActionPlan {
	priority := domain.PriorityHigh
	if insight.UserContext.UrgencyLevel.Valid() {
		priority = insight.UserContext.UrgencyLevel.Priority()
	}

	action := domain.Action{
		ID:             p.ids.NewID("act"),
		Title:          "Manual review",
		Description:    fmt.Sprintf("Automated planning failed for %q; review the update manually.", insight.Document.Title),
		Priority:       priority,
		Status:         domain.StatusPending,
		Category:       domain.CategoryCompliance,
		EstimatedHours: manualReviewHours,
		RequiredSkills: append([]string(nil), categorySkills[domain.CategoryCompliance]...),
	}

	plan := domain.ActionPlan{
		PriorityActions:       []domain.Action{action},
		SystemSpecificActions: map[string][]domain.Action{},
		ComplianceChecklist: []domain.ChecklistItem{{
			ID:       p.ids.NewID("chk"),
			Task:     "Manually review the regulatory update and record applicability",
			Required: true,
			Priority: priority,
			Status:   domain.StatusPending,
			Category: domain.CategoryCompliance,
		}},
		RiskMitigation: domain.RiskMitigation{
			IdentifiedRisks:   []string{manualReviewPrefix + ": automated planning failed"},
			MitigationActions: []string{monitoringAction(insight)},
			ContingencyPlan:   contingencyTemplate,
			MonitoringPlan:    monitoringTemplate,
		},
		Fallback: true,
	}
	plan.Timeline.Add(bucketFor(priority, domain.UrgencyLevelLow), domain.TimelineEntry{ActionID: action.ID, Title: action.Title, Priority: action.Priority})
	plan.EstimatedEffort = effortFor(plan.PriorityActions)
	plan.BudgetImpact = p.budgetFor(plan.EstimatedEffort.TotalHours, insight.UserContext)
	return plan
}

func categorize(text string) domain.ActionCategory {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		if containsAny(lower, rule.terms...) {
			return rule.category
		}
	}
	return domain.CategoryCompliance
}

// estimateHours grows with the length of the action text and scales with urgency.
func estimateHours(text string, urgency domain.Priority) float64 {
	words := float64(len(strings.Fields(text)))
	hours := math.Min(maxActionHours, 4+words/4)
	factor, ok := urgencyHourFactor[urgency]
	if !ok {
		factor = 1
	}
	return math.Round(hours*factor*2) / 2
}

func bucketFor(priority domain.Priority, urgency domain.UrgencyLevel) domain.TimelineBucket {
	rank := priority.Rank()
	if u := urgency.Priority().Rank(); u > rank {
		rank = u
	}
	switch rank {
	case 3:
		return domain.BucketImmediate
	case 2:
		return domain.BucketShortTerm
	case 1:
		return domain.BucketMediumTerm
	}
	return domain.BucketLongTerm
}

func effortFor(actions []domain.Action) domain.Effort {
	total := 0.0
	for _, a := range actions {
		total += a.EstimatedHours
	}
	days := total / hoursPerDay
	weeks := days / daysPerWeek

	band := "days"
	switch {
	case weeks > 4:
		band = "months"
	case days > daysPerWeek:
		band = "weeks"
	}

	return domain.Effort{
		TotalHours:  total,
		PersonDays:  domain.Round2(days),
		PersonWeeks: domain.Round2(weeks),
		Band:        band,
	}
}

func (p *Planner) budgetFor(hours float64, uc domain.UserContext) domain.BudgetImpact {
	complexity := 1.2
	if uc.EstimatedImpact > 70 {
		complexity = 1.5
	}
	urgency := 1.0
	if uc.UrgencyLevel == domain.UrgencyLevelImmediate {
		urgency = 1.3
	}
	cost := domain.Round2(hours * p.rate * complexity * urgency)

	band := domain.BudgetVeryHigh
	switch {
	case cost < 5000:
		band = domain.BudgetLow
	case cost < 20000:
		band = domain.BudgetModerate
	case cost < 50000:
		band = domain.BudgetHigh
	}

	return domain.BudgetImpact{
		EstimatedCost:        cost,
		Currency:             p.currency,
		HourlyRate:           p.rate,
		ComplexityMultiplier: complexity,
		UrgencyMultiplier:    urgency,
		Band:                 band,
	}
}

func riskMitigation(insight domain.PersonalizedInsight) domain.RiskMitigation {
	risks := append([]string{}, insight.UserContext.ComplianceGaps...)
	risks = append(risks, insight.UserContext.MaturityGaps...)
	return domain.RiskMitigation{
		IdentifiedRisks:   risks,
		MitigationActions: []string{monitoringAction(insight)},
		ContingencyPlan:   contingencyTemplate,
		MonitoringPlan:    monitoringTemplate,
	}
}

func monitoringAction(insight domain.PersonalizedInsight) string {
	return fmt.Sprintf("Monitor official publications and guidance related to %q", insight.Document.Title)
}
