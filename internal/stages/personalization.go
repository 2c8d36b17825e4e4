package stages

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
)

const (
	systemImpactWeight   = 30.0
	sectorMatchBonus     = 20.0
	maxComplianceBonus   = 15.0
	lowComplianceScore   = 60.0
	maxSystemMultiplier  = 2.0
	systemMultiplierStep = 0.2
	elevatedRiskStep     = 0.3
	minOverlapTokenRunes = 4
)

var (
	toleranceBonus = map[domain.RiskTolerance]float64{
		domain.ToleranceHigh:   20,
		domain.ToleranceMedium: 10,
		domain.ToleranceLow:    0,
	}
	maturityPenalty = map[domain.MaturityLevel]float64{
		domain.MaturityInitial:    -15,
		domain.MaturityDeveloping: -10,
		domain.MaturityDefined:    -5,
		domain.MaturityManaged:    -2,
		domain.MaturityOptimizing: 0,
	}
	maturityMultiplier = map[domain.MaturityLevel]float64{
		domain.MaturityInitial:    1.5,
		domain.MaturityDeveloping: 1.3,
		domain.MaturityDefined:    1.15,
		domain.MaturityManaged:    1.05,
		domain.MaturityOptimizing: 1.0,
	}
	maturityAmplification = map[domain.MaturityLevel]float64{
		domain.MaturityInitial:    0.5,
		domain.MaturityDeveloping: 0.35,
		domain.MaturityDefined:    0.2,
		domain.MaturityManaged:    0.1,
		domain.MaturityOptimizing: 0,
	}
	toleranceAmplification = map[domain.RiskTolerance]float64{
		domain.ToleranceLow:    0.4,
		domain.ToleranceMedium: 0.2,
		domain.ToleranceHigh:   0,
	}

	// Frequent words in system descriptions that would match almost any topic.
	overlapStopwords = map[string]bool{
		"system": true, "systems": true, "model": true, "models": true, "based": true,
		"with": true, "that": true, "this": true, "from": true, "using": true,
		"tool": true, "tools": true, "platform": true, "general": true, "service": true,
		"services": true, "automated": true, "intelligence": true, "artificial": true,
	}
)

const manualReviewPrefix = "Manual review required"

// PersonalizationResult is the batch sorted by personalized relevance.
type PersonalizationResult struct {
	Insights  []domain.PersonalizedInsight
	Fallbacks int
}

// Personalizer scores insights against one organization's inventory and maturity.
type Personalizer struct {
	logger *slog.Logger
}

// NewPersonalizer builds a personalization stage.
func NewPersonalizer(logger *slog.Logger) *Personalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Personalizer{logger: logger}
}

// Personalize returns one personalized insight per input. A nil org yields generic contexts.
func (p *Personalizer) Personalize(_ context.Context, insights []domain.RegulatoryInsight, org *domain.OrganizationContext) PersonalizationResult {
	result := PersonalizationResult{Insights: make([]domain.PersonalizedInsight, 0, len(insights))}

	for _, insight := range insights {
		var uc domain.UserContext
		if org == nil {
			uc = GenericContext(insight)
		} else {
			err := guard(func() error {
				var err error
				uc, err = personalize(insight, *org)
				return err
			})
			if err != nil {
				p.logger.Warn("personalization failed, using conservative context",
					"insight", insight.ID, "url", insight.Document.URL, "error", err)
				uc = ConservativeContext(insight, *org)
				result.Fallbacks++
			}
		}
		result.Insights = append(result.Insights, domain.PersonalizedInsight{RegulatoryInsight: insight, UserContext: uc})
	}

	sort.SliceStable(result.Insights, func(i, j int) bool {
		return result.Insights[i].UserContext.RelevanceScore > result.Insights[j].UserContext.RelevanceScore
	})

	p.logger.Info("personalization complete", "insights", len(result.Insights), "fallbacks", result.Fallbacks)
	return result
}

// GenericContext is used when no organization context is available.
func GenericContext(insight domain.RegulatoryInsight) domain.UserContext {
	return domain.UserContext{
		ImpactedSystems:   []domain.AISystem{},
		RelevanceScore:    domain.ClampScore(insight.Analysis.RelevanceScore),
		UrgencyLevel:      domain.UrgencyLevelMedium,
		MaturityGaps:      []string{},
		ComplianceGaps:    []string{},
		EstimatedImpact:   domain.ClampScore(insight.Synthesis.EstimatedImpactScore),
		RiskAmplification: 1.0,
	}
}

// ConservativeContext treats every system as impacted and flags gaps for manual review.
func ConservativeContext(insight domain.RegulatoryInsight, org domain.OrganizationContext) domain.UserContext {
	systems := append([]domain.AISystem{}, org.AISystems...)
	elevated := 0
	for _, sys := range systems {
		if sys.RiskTier.Elevated() {
			elevated++
		}
	}
	return domain.UserContext{
		ImpactedSystems:   systems,
		RelevanceScore:    domain.ClampScore(insight.Analysis.RelevanceScore),
		UrgencyLevel:      domain.UrgencyLevelHigh,
		MaturityGaps:      []string{manualReviewPrefix + ": maturity gaps could not be assessed"},
		ComplianceGaps:    []string{manualReviewPrefix + ": compliance gaps could not be assessed"},
		EstimatedImpact:   domain.ClampScore(insight.Synthesis.EstimatedImpactScore),
		RiskAmplification: domain.Round2(1.0 + elevatedRiskStep*float64(elevated)),
		Fallback:          true,
	}
}

func personalize(insight domain.RegulatoryInsight, org domain.OrganizationContext) (domain.UserContext, error) {
	if err := org.Validate(); err != nil {
		return domain.UserContext{}, err
	}

	impacted := impactedSystems(insight, org)
	level := org.MaturityProfile.Level
	compliance := complianceScore(impacted, org.AISystems)

	return domain.UserContext{
		ImpactedSystems:   impacted,
		RelevanceScore:    relevanceScore(insight, org, impacted, compliance),
		UrgencyLevel:      urgencyLevel(insight, org, impacted),
		MaturityGaps:      maturityGaps(insight, org, impacted),
		ComplianceGaps:    complianceGaps(insight, org, impacted),
		EstimatedImpact:   estimatedImpact(insight, level, impacted, compliance),
		RiskAmplification: riskAmplification(org, impacted),
	}, nil
}

func impactedSystems(insight domain.RegulatoryInsight, org domain.OrganizationContext) []domain.AISystem {
	concernsProviders := false
	for _, actor := range insight.Classification.ConcernedActors {
		a := strings.ToLower(actor)
		if strings.Contains(a, "provider") || a == domain.StakeholderAll {
			concernsProviders = true
			break
		}
	}
	linksArticles := len(insight.Enrichment.LinkedArticles) > 0
	keywords := insightKeywords(insight)

	out := []domain.AISystem{}
	for _, sys := range org.AISystems {
		impacted := (sys.RiskTier.Elevated() && concernsProviders) ||
			sectorOverlaps(sys.Sector, insight.Classification.ImpactedDomains) ||
			(linksArticles && sys.RiskTier != domain.RiskMinimal) ||
			tokensOverlap(systemTokens(sys), keywords)
		if impacted {
			out = append(out, sys)
		}
	}
	return out
}

func insightKeywords(insight domain.RegulatoryInsight) []string {
	var out []string
	for _, k := range insight.Analysis.KeyTopics {
		out = append(out, strings.ToLower(k))
	}
	for _, d := range insight.Classification.ImpactedDomains {
		out = append(out, strings.ToLower(d))
	}
	return out
}

func systemTokens(sys domain.AISystem) []string {
	fields := strings.FieldsFunc(strings.ToLower(sys.Name+" "+sys.Description+" "+sys.Sector), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	var out []string
	for _, f := range fields {
		if len([]rune(f)) >= minOverlapTokenRunes && !overlapStopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

func tokensOverlap(tokens, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if len([]rune(kw)) < minOverlapTokenRunes {
				continue
			}
			if strings.Contains(kw, tok) || strings.Contains(tok, kw) {
				return true
			}
		}
	}
	return false
}

func sectorOverlaps(sector string, domains []string) bool {
	s := strings.ToLower(strings.TrimSpace(sector))
	if s == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if strings.Contains(d, s) || strings.Contains(s, d) {
			return true
		}
	}
	return false
}

// complianceScore averages impacted systems, or all systems when none is impacted.
// With no systems at all there is nothing to remediate.
func complianceScore(impacted, all []domain.AISystem) float64 {
	pool := impacted
	if len(pool) == 0 {
		pool = all
	}
	if len(pool) == 0 {
		return 100
	}
	sum := 0.0
	for _, sys := range pool {
		sum += domain.ClampScore(sys.ComplianceScore)
	}
	return sum / float64(len(pool))
}

func relevanceScore(insight domain.RegulatoryInsight, org domain.OrganizationContext, impacted []domain.AISystem, compliance float64) float64 {
	score := insight.Analysis.RelevanceScore

	if total := len(org.AISystems); total > 0 {
		score += float64(len(impacted)) / float64(total) * systemImpactWeight
	}

	sectors := org.SectorProfile.Sectors()
	if len(sectors) == 0 {
		for _, sys := range org.AISystems {
			sectors = append(sectors, sys.Sector)
		}
	}
	for _, sector := range sectors {
		if sectorOverlaps(sector, insight.Classification.ImpactedDomains) {
			score += sectorMatchBonus
			break
		}
	}

	score += toleranceBonus[org.RiskTolerance]
	score += maturityPenalty[org.MaturityProfile.Level]
	score += (100 - compliance) / 100 * maxComplianceBonus

	return domain.ClampScore(score)
}

func urgencyLevel(insight domain.RegulatoryInsight, org domain.OrganizationContext, impacted []domain.AISystem) domain.UrgencyLevel {
	temporal := insight.Classification.TemporalUrgency

	if temporal == domain.UrgencyImmediate {
		return domain.UrgencyLevelImmediate
	}
	if insight.Classification.UpdateType == domain.UpdateAmendment {
		for _, sys := range impacted {
			if sys.RiskTier == domain.RiskUnacceptable {
				return domain.UrgencyLevelImmediate
			}
		}
	}

	if temporal == domain.Urgency3Months {
		return domain.UrgencyLevelHigh
	}
	if len(impacted) > 0 && org.MaturityProfile.Level.Immature() {
		return domain.UrgencyLevelHigh
	}
	for _, sys := range impacted {
		if sys.RiskTier == domain.RiskHigh && sys.ComplianceScore < lowComplianceScore {
			return domain.UrgencyLevelHigh
		}
	}

	if temporal == domain.Urgency6Months || len(impacted) > 0 {
		return domain.UrgencyLevelMedium
	}
	return domain.UrgencyLevelLow
}

func maturityGaps(insight domain.RegulatoryInsight, org domain.OrganizationContext, impacted []domain.AISystem) []string {
	text := strings.ToLower(strings.Join(append(insightKeywords(insight), insight.Document.Title), " "))
	levelFor := func(area string) domain.MaturityLevel {
		if lvl, ok := org.MaturityProfile.Domains[area]; ok && lvl.Valid() {
			return lvl
		}
		return org.MaturityProfile.Level
	}

	gaps := []string{}
	if strings.Contains(text, "governance") && levelFor("governance") == domain.MaturityInitial {
		gaps = append(gaps, "Governance: no AI governance framework is in place")
	}
	if strings.Contains(text, "risk") && levelFor("risk_management").Immature() {
		gaps = append(gaps, "Risk management: no established AI risk management process")
	}
	if containsAny(text, "documentation", "record", "transparency") && levelFor("documentation").Immature() {
		gaps = append(gaps, "Documentation: technical documentation and transparency practices are immature")
	}
	if strings.Contains(text, "data") && levelFor("data_governance").Immature() {
		gaps = append(gaps, "Data governance: training and input data controls are immature")
	}
	if containsAny(text, "literacy", "training") && levelFor("ai_literacy") == domain.MaturityInitial {
		gaps = append(gaps, "AI literacy: no staff AI literacy programme")
	}
	for _, sys := range impacted {
		if sys.RiskTier.Elevated() && levelFor("conformity_assessment").Immature() {
			gaps = append(gaps, "Conformity assessment: readiness for high-risk obligations is not demonstrated")
			break
		}
	}
	return gaps
}

func complianceGaps(insight domain.RegulatoryInsight, org domain.OrganizationContext, impacted []domain.AISystem) []string {
	gaps := []string{}
	for _, article := range insight.Enrichment.LinkedArticles {
		for _, sys := range impacted {
			if !sys.RiskTier.Elevated() {
				continue
			}
			rec, ok := org.Record(sys.ID, article)
			switch {
			case !ok:
				gaps = append(gaps, fmt.Sprintf("%s no compliance record for %s", systemTag(sys), article))
			case rec.Status != domain.ComplianceMet:
				gaps = append(gaps, fmt.Sprintf("%s %s is %s", systemTag(sys), article, rec.Status))
			}
		}
	}
	return gaps
}

// systemTag is the prefix of every compliance gap raised for sys.
func systemTag(sys domain.AISystem) string {
	return fmt.Sprintf("%s (%s):", sys.Name, sys.ID)
}

func estimatedImpact(insight domain.RegulatoryInsight, level domain.MaturityLevel, impacted []domain.AISystem, compliance float64) float64 {
	systems := math.Min(maxSystemMultiplier, 1+systemMultiplierStep*float64(len(impacted)))
	maturity, ok := maturityMultiplier[level]
	if !ok {
		maturity = 1
	}
	complianceFactor := 1 + 0.4*(100-compliance)/100
	return domain.ClampScore(insight.Synthesis.EstimatedImpactScore * systems * maturity * complianceFactor)
}

func riskAmplification(org domain.OrganizationContext, impacted []domain.AISystem) float64 {
	amp := 1.0
	for _, sys := range impacted {
		if sys.RiskTier.Elevated() {
			amp += elevatedRiskStep
		}
	}
	amp += maturityAmplification[org.MaturityProfile.Level]
	amp += toleranceAmplification[org.RiskTolerance]
	return domain.Round2(amp)
}
