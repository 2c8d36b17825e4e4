package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/generation"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ids"
	"github.com/abk1969/ai-act-assistant-sub000/internal/observability"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
	"github.com/abk1969/ai-act-assistant-sub000/internal/stages"
)

// ErrStoreUnavailable is returned when the insight store is missing or fails its health check.
var ErrStoreUnavailable = errors.New("insight store unavailable")

const defaultMinRelevance = 50

// Stage names used in metrics and logs.
const (
	StageCollection      = "collection"
	StageAnalysis        = "analysis"
	StageClassification  = "classification"
	StageSynthesis       = "synthesis"
	StagePersonalization = "personalization"
	StagePlanning        = "planning"
)

var stageOrder = []string{StageCollection, StageAnalysis, StageSynthesis, StagePersonalization, StagePlanning}

// Options are per-process defaults; RunRequest fields override them.
// A nil MinRelevanceScore means the default threshold of 50.
type Options struct {
	DaysBack          int
	Sources           []string
	MinRelevanceScore *float64
	ExcerptChars      int
	HourlyRate        float64
	Currency          string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Adapters   []ports.SourceAdapter
	Generators ports.GeneratorResolver
	Store      ports.InsightStore
	Directory  ports.OrganizationDirectory
	Notifier   ports.Notifier
	IDs        ids.Generator
	Metrics    *observability.Metrics
	Logger     *slog.Logger
	Options    Options
}

// RunRequest parameterizes one invocation. Zero values fall back to Options.
type RunRequest struct {
	DaysBack          int
	Sources           []string
	MinRelevanceScore *float64
	OrgID             string
}

// PersonalizationSummary aggregates the personalized view of a run.
type PersonalizationSummary struct {
	AverageRelevance float64 `json:"averageRelevance"`
	HighUrgencyCount int     `json:"highUrgencyCount"`
	TotalActions     int     `json:"totalActions"`
}

// RunMetrics describes what happened at every stage boundary.
type RunMetrics struct {
	Collected        int                            `json:"collected"`
	Duplicates       int                            `json:"duplicates"`
	Analyzed         int                            `json:"analyzed"`
	AboveThreshold   int                            `json:"aboveThreshold"`
	Classified       int                            `json:"classified"`
	Personalized     int                            `json:"personalized"`
	Actionable       int                            `json:"actionable"`
	Persisted        int                            `json:"persisted"`
	PersistFailures  int                            `json:"persistFailures"`
	Fallbacks        map[string]int                 `json:"fallbacks"`
	SourceStatus     map[string]stages.SourceStatus `json:"sourceStatus"`
	Generation       map[string]generation.Stats    `json:"generation"`
	StagesExecuted   []string                       `json:"stagesExecuted"`
	StagesSkipped    []string                       `json:"stagesSkipped,omitempty"`
	EarlyExitReason  string                         `json:"earlyExitReason,omitempty"`
	OrgContextLoaded bool                           `json:"orgContextLoaded"`
	DigestSent       bool                           `json:"digestSent"`
	StartedAt        time.Time                      `json:"startedAt"`
	CompletedAt      time.Time                      `json:"completedAt"`
	ExecutionTime    time.Duration                  `json:"executionTime"`
	Personalization  PersonalizationSummary         `json:"personalization"`
}

// RunResult is the final output of one invocation.
type RunResult struct {
	Insights []domain.ActionableInsight `json:"insights"`
	Metrics  RunMetrics                 `json:"metrics"`
}

// Pipeline implements the regulatory update workflow.
type Pipeline struct {
	adapters   []ports.SourceAdapter
	generators ports.GeneratorResolver
	store      ports.InsightStore
	directory  ports.OrganizationDirectory
	notifier   ports.Notifier
	metrics    *observability.Metrics
	logger     *slog.Logger
	opts       Options
	minScore   float64
	now        func() time.Time

	collector    *stages.Collector
	analyzer     *stages.Analyzer
	synthesizer  *stages.Synthesizer
	personalizer *stages.Personalizer
	planner      *stages.Planner
}

// NewPipeline constructs the orchestration component and its stages.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idgen := deps.IDs
	if idgen == nil {
		idgen = ids.UUID{}
	}
	opts := deps.Options
	minRelevance := float64(defaultMinRelevance)
	if opts.MinRelevanceScore != nil {
		minRelevance = *opts.MinRelevanceScore
	}

	return &Pipeline{
		adapters:   deps.Adapters,
		generators: deps.Generators,
		store:      deps.Store,
		directory:  deps.Directory,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     logger.With("component", "pipeline"),
		opts:       opts,
		minScore:   minRelevance,
		now:        time.Now,

		collector:    stages.NewCollector(logger.With("component", "collection")),
		analyzer:     stages.NewAnalyzer(logger.With("component", "analysis"), stages.AnalysisOptions{ExcerptChars: opts.ExcerptChars}),
		synthesizer:  stages.NewSynthesizer(logger.With("component", "synthesis"), idgen, stages.SynthesisOptions{ExcerptChars: opts.ExcerptChars}),
		personalizer: stages.NewPersonalizer(logger.With("component", "personalization")),
		planner:      stages.NewPlanner(logger.With("component", "planning"), idgen, stages.PlanningOptions{HourlyRate: opts.HourlyRate, Currency: opts.Currency}),
	}
}

// Run executes the five stages once. It fails only when the insight store is unavailable;
// every other failure is absorbed by the stages and reported through metrics.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if err := p.checkStore(ctx); err != nil {
		return RunResult{}, err
	}

	started := p.now()
	result := RunResult{Metrics: RunMetrics{
		StartedAt:    started,
		Fallbacks:    map[string]int{},
		SourceStatus: map[string]stages.SourceStatus{},
		Generation:   map[string]generation.Stats{},
	}}
	m := &result.Metrics

	gen := p.resolveGenerator(ctx, req.OrgID)
	minRelevance := p.minScore
	if req.MinRelevanceScore != nil {
		minRelevance = *req.MinRelevanceScore
	}

	p.logger.Info("pipeline started", "org", req.OrgID, "generation", gen != nil, "min_relevance", minRelevance)

	collected := p.collector.Collect(ctx, p.adapters, stages.CollectParams{
		DaysBack:       firstPositive(req.DaysBack, p.opts.DaysBack),
		EnabledSources: firstNonEmpty(req.Sources, p.opts.Sources),
	})
	m.StagesExecuted = append(m.StagesExecuted, StageCollection)
	m.SourceStatus = collected.SourceStatus
	m.Collected = len(collected.Documents)
	m.Duplicates = collected.Duplicates
	for source, status := range collected.SourceStatus {
		p.metrics.RecordSource(ctx, source, status.Success, status.Count)
	}
	if len(collected.Documents) == 0 {
		return p.finish(ctx, result, "no documents collected"), nil
	}

	analyzed := p.analyzer.Analyze(ctx, gen, collected.Documents)
	m.StagesExecuted = append(m.StagesExecuted, StageAnalysis)
	m.Analyzed = len(analyzed.Updates)
	p.recordStage(ctx, m, StageAnalysis, analyzed.Generation, analyzed.Conservative)

	relevant := make([]domain.AnalyzedUpdate, 0, len(analyzed.Updates))
	for _, u := range analyzed.Updates {
		if u.Analysis.RelevanceScore >= minRelevance {
			relevant = append(relevant, u)
		}
	}
	m.AboveThreshold = len(relevant)
	if len(relevant) == 0 {
		return p.finish(ctx, result, fmt.Sprintf("no updates at or above relevance %.0f", minRelevance)), nil
	}

	synthesized := p.synthesizer.ClassifyAndSynthesize(ctx, gen, relevant)
	m.StagesExecuted = append(m.StagesExecuted, StageSynthesis)
	m.Classified = len(synthesized.Insights)
	p.recordStage(ctx, m, StageClassification, synthesized.Classification, 0)
	p.recordStage(ctx, m, StageSynthesis, synthesized.Synthesis, 0)

	org := p.loadOrganization(ctx, req.OrgID)
	m.OrgContextLoaded = org != nil
	personalized := p.personalizer.Personalize(ctx, synthesized.Insights, org)
	m.StagesExecuted = append(m.StagesExecuted, StagePersonalization)
	m.Personalized = len(personalized.Insights)
	p.recordStage(ctx, m, StagePersonalization, generation.Stats{}, personalized.Fallbacks)

	planned := p.planner.Plan(ctx, personalized.Insights)
	m.StagesExecuted = append(m.StagesExecuted, StagePlanning)
	m.Actionable = len(planned.Insights)
	p.recordStage(ctx, m, StagePlanning, generation.Stats{}, planned.Fallbacks)

	result.Insights = planned.Insights
	m.Personalization = summarize(planned.Insights)

	p.persist(ctx, req.OrgID, planned.Insights, m)
	m.DigestSent = p.notify(ctx, planned.Insights)

	return p.finish(ctx, result, ""), nil
}

func (p *Pipeline) checkStore(ctx context.Context) error {
	if p.store == nil {
		return ErrStoreUnavailable
	}
	if hc, ok := p.store.(ports.HealthChecker); ok {
		if err := hc.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

func (p *Pipeline) resolveGenerator(ctx context.Context, orgID string) ports.TextGenerator {
	if p.generators == nil {
		return nil
	}
	return p.generators.Resolve(ctx, orgID)
}

// loadOrganization returns nil when no organization context can be used.
func (p *Pipeline) loadOrganization(ctx context.Context, orgID string) *domain.OrganizationContext {
	if orgID == "" || p.directory == nil {
		return nil
	}
	org, err := p.directory.Organization(ctx, orgID)
	if err != nil {
		p.logger.Warn("organization context unavailable, using generic personalization", "org", orgID, "error", err)
		return nil
	}
	return &org
}

func (p *Pipeline) recordStage(ctx context.Context, m *RunMetrics, stage string, stats generation.Stats, fallbacks int) {
	if stats != (generation.Stats{}) {
		m.Generation[stage] = stats
		p.metrics.RecordGeneration(ctx, stage, stats)
	}
	if n := stats.Fallbacks() + fallbacks; n > 0 {
		m.Fallbacks[stage] += n
		p.metrics.RecordFallbacks(ctx, stage, n)
	}
}

func (p *Pipeline) persist(ctx context.Context, orgID string, insights []domain.ActionableInsight, m *RunMetrics) {
	now := p.now()
	for _, ins := range insights {
		summary, err := ins.Summarize(orgID, now)
		if err == nil {
			err = p.store.Persist(ctx, summary)
		}
		p.metrics.RecordPersist(ctx, err)
		if err != nil {
			m.PersistFailures++
			p.logger.Error("persist insight failed", "insight", ins.ID, "url", ins.Document.URL, "error", err)
			continue
		}
		m.Persisted++
	}
}

// notify publishes a digest of immediate and high urgency insights. Failures are logged.
func (p *Pipeline) notify(ctx context.Context, insights []domain.ActionableInsight) bool {
	if p.notifier == nil {
		return false
	}
	message := buildDigestMessage(insights)
	if message == "" {
		return false
	}
	if err := p.notifier.PublishDigest(ctx, message); err != nil {
		p.logger.Warn("publish digest failed", "error", err)
		return false
	}
	return true
}

func (p *Pipeline) finish(ctx context.Context, result RunResult, earlyExit string) RunResult {
	m := &result.Metrics
	if earlyExit != "" {
		m.EarlyExitReason = earlyExit
		executed := map[string]bool{}
		for _, s := range m.StagesExecuted {
			executed[s] = true
		}
		for _, s := range stageOrder {
			if !executed[s] {
				m.StagesSkipped = append(m.StagesSkipped, s)
			}
		}
	}
	if result.Insights == nil {
		result.Insights = []domain.ActionableInsight{}
	}
	m.CompletedAt = p.now()
	m.ExecutionTime = m.CompletedAt.Sub(m.StartedAt)
	p.metrics.RecordRun(ctx, m.ExecutionTime, len(result.Insights))

	p.logger.Info("pipeline finished",
		"collected", m.Collected,
		"analyzed", m.Analyzed,
		"above_threshold", m.AboveThreshold,
		"actionable", m.Actionable,
		"persisted", m.Persisted,
		"persist_failures", m.PersistFailures,
		"early_exit", m.EarlyExitReason,
		"duration", m.ExecutionTime,
	)
	return result
}

func summarize(insights []domain.ActionableInsight) PersonalizationSummary {
	var s PersonalizationSummary
	if len(insights) == 0 {
		return s
	}
	total := 0.0
	for _, ins := range insights {
		total += ins.UserContext.RelevanceScore
		switch ins.UserContext.UrgencyLevel {
		case domain.UrgencyLevelImmediate, domain.UrgencyLevelHigh:
			s.HighUrgencyCount++
		}
		s.TotalActions += len(ins.ActionPlan.AllActions(systemIDs(ins)))
	}
	s.AverageRelevance = domain.Round2(total / float64(len(insights)))
	return s
}

func buildDigestMessage(insights []domain.ActionableInsight) string {
	var b strings.Builder
	count := 0
	for _, ins := range insights {
		urgency := ins.UserContext.UrgencyLevel
		if urgency != domain.UrgencyLevelImmediate && urgency != domain.UrgencyLevelHigh {
			continue
		}
		count++
		fmt.Fprintf(&b, "- %s\nUrgency: %s, relevance %.0f\n%s\n%s\n\n",
			ins.Document.Title,
			urgency,
			ins.UserContext.RelevanceScore,
			ins.Synthesis.ExecutiveSummary,
			ins.Document.URL)
	}
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("*Regulatory digest*: %d update(s) need attention\n\n", count) + b.String()
}

func systemIDs(ins domain.ActionableInsight) []string {
	out := make([]string, 0, len(ins.UserContext.ImpactedSystems))
	for _, sys := range ins.UserContext.ImpactedSystems {
		out = append(out, sys.ID)
	}
	return out
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
