package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skizzehq/skizze/internal/util"
	"github.com/skizzehq/skizze/pkg/assess"
	"github.com/skizzehq/skizze/pkg/cache"
	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/extract"
	"github.com/skizzehq/skizze/pkg/fusion"
	"github.com/skizzehq/skizze/pkg/logger"
	"github.com/skizzehq/skizze/pkg/ontology"
	"github.com/skizzehq/skizze/pkg/refine"
	"github.com/skizzehq/skizze/pkg/scene"
	"github.com/skizzehq/skizze/pkg/solver"
)

// Planner drives the full planning pipeline for problem statements: extract
// barrier, fusion, enrichment, assessment, solving, scene realization, and
// the refinement loop, in that order. Each run owns its graph exclusively;
// the only state shared between runs is the optional result cache and it
// only ever hands out deep copies.
//
// Degradable failures (a broken adapter, a failed back-end, an exhausted
// refinement loop) surface as findings on the result. The only hard
// failures are an empty statement, a statement that fuses to zero nodes
// (both ErrFatalInput) and request cancellation.
type Planner struct {
	runner       *extract.Runner
	orchestrator *solver.Orchestrator
	loop         *refine.Loop
	cache        *cache.Cache[*Result]
	sink         TraceSink
	extractors   []string
}

// NewPlannerParams contains configuration options for creating a Planner.
// Zero values fall back to defaults; a nil Cache disables caching and a nil
// Extractors list runs the lexical adapter only.
type NewPlannerParams struct {
	Runner       *extract.Runner
	Orchestrator *solver.Orchestrator
	Loop         *refine.Loop
	Cache        *cache.Cache[*Result]
	Sink         TraceSink
	Extractors   []string
}

// NewPlanner creates a Planner.
func NewPlanner(params NewPlannerParams) *Planner {
	runner := params.Runner
	if runner == nil {
		runner = extract.NewRunner(extract.NewRunnerParams{})
	}
	orchestrator := params.Orchestrator
	if orchestrator == nil {
		orchestrator = solver.NewOrchestrator(solver.NewOrchestratorParams{})
	}
	loop := params.Loop
	if loop == nil {
		loop = refine.NewLoop(refine.NewLoopParams{})
	}
	sink := params.Sink
	if sink == nil {
		sink = LoggerSink{}
	}
	extractors := params.Extractors
	if len(extractors) == 0 {
		extractors = []string{extract.LexicalName}
	}
	return &Planner{
		runner:       runner,
		orchestrator: orchestrator,
		loop:         loop,
		cache:        params.Cache,
		sink:         sink,
		extractors:   extractors,
	}
}

// Extractors returns the active extractor set the planner runs and caches
// under.
func (p *Planner) Extractors() []string {
	return append([]string(nil), p.extractors...)
}

// Plan runs the pipeline for one statement. Identical statements under the
// same active extractor set share a cache entry; concurrent identical
// requests collapse into one run. A compute aborted by cancellation caches
// nothing.
func (p *Planner) Plan(ctx context.Context, statement string) (*Result, error) {
	trimmed := strings.TrimSpace(statement)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty problem statement", common.ErrFatalInput)
	}

	if p.cache == nil {
		return p.run(ctx, trimmed)
	}
	return p.cache.Do(cache.Key(trimmed, p.extractors), func() (*Result, error) {
		return p.run(ctx, trimmed)
	})
}

func (p *Planner) run(ctx context.Context, statement string) (*Result, error) {
	planID, err := util.NewPlanID()
	if err != nil {
		return nil, fmt.Errorf("pipeline: generate plan id: %w", err)
	}

	logger.Info("[Pipeline] Planning started", "plan", planID, "extractors", strings.Join(p.extractors, ","))
	trace := &tracer{sink: p.sink, planID: planID}
	result := &Result{}

	// extract: adapters fan out and meet at the barrier
	started := time.Now()
	extractions, findings, err := p.runner.Run(ctx, statement, p.extractors)
	if err != nil {
		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}
	result.Findings = append(result.Findings, findings...)
	trace.record(ctx, StageExtract, started, map[string]string{
		"requested": strconv.Itoa(len(p.extractors)),
		"succeeded": strconv.Itoa(len(extractions)),
	}, findings)

	// fuse: single writer; the scanner ingests first so its facts hold the
	// first-seen position in every confidence tie
	started = time.Now()
	engine := fusion.NewEngine()
	if err := engine.ScanText(statement); err != nil {
		return nil, fmt.Errorf("pipeline: fuse scanner: %w", err)
	}
	for _, extraction := range extractions {
		if err := engine.IngestSource(extraction.Source, extraction.Extraction); err != nil {
			return nil, fmt.Errorf("pipeline: fuse %s: %w", extraction.Source, err)
		}
	}
	trace.record(ctx, StageFuse, started, map[string]string{
		"sources": strconv.Itoa(len(engine.Sources())),
		"nodes":   strconv.Itoa(engine.NodeCount()),
		"edges":   strconv.Itoa(engine.EdgeCount()),
	}, nil)

	// enrich: tags attach before the freeze, analysis reads the snapshot after
	started = time.Now()
	tags, err := ontology.Enrich(engine.Graph())
	if err != nil {
		return nil, fmt.Errorf("pipeline: enrich: %w", err)
	}
	snapshot := engine.Finalize()
	if len(snapshot.Nodes) == 0 {
		return nil, fmt.Errorf("%w: statement fused to zero nodes", common.ErrFatalInput)
	}
	gaps := ontology.Analyze(snapshot)
	domain := ontology.DetectDomain(snapshot)
	trace.record(ctx, StageEnrich, started, map[string]string{
		"tags":   strconv.Itoa(tags),
		"gaps":   strconv.Itoa(gaps.Total()),
		"domain": string(domain),
	}, nil)

	// assess
	started = time.Now()
	constraints := DeriveConstraints(snapshot)
	score := assess.Score(assess.SnapshotInputs(snapshot, len(constraints)))
	selection := assess.Select(assess.Input{
		Score:          score,
		Domain:         domain,
		HasConstraints: len(constraints) > 0,
	})
	trace.record(ctx, StageAssess, started, map[string]string{
		"score":       strconv.FormatFloat(score, 'f', 3, 64),
		"strategy":    string(selection.Strategy),
		"constraints": strconv.Itoa(len(constraints)),
		"reason":      selection.Reason,
	}, nil)

	plan := &common.DiagramPlan{
		ID:                planID,
		ComplexityScore:   score,
		Strategy:          selection.Strategy,
		Domain:            domain,
		Entities:          snapshot.Nodes,
		Relations:         snapshot.Edges,
		GlobalConstraints: constraints,
		LayoutHints: common.LayoutHints{
			Positions: map[string]common.Position{},
			Styles:    map[string]string{},
		},
		Metadata: common.PlanMetadata{
			Statement: statement,
			Sources:   engine.Sources(),
			CreatedAt: time.Now().UTC(),
		},
	}

	// solve
	started = time.Now()
	solved := p.orchestrator.Solve(ctx, plan)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: solve: %w", err)
	}
	result.Findings = append(result.Findings, solved.Findings...)
	trace.record(ctx, StageSolve, started, solveSummary(plan.Strategy, solved), solved.Findings)

	// a chain that contributed nothing gets one re-assessment with the
	// failure on record, which forces the ordered fallback chain
	if solved.Failed() && plan.Strategy != common.StrategyHybrid {
		selection = assess.Select(assess.Input{
			Score:             score,
			Domain:            domain,
			HasConstraints:    len(constraints) > 0,
			PriorSolverFailed: true,
		})
		plan.Strategy = selection.Strategy

		started = time.Now()
		solved = p.orchestrator.Solve(ctx, plan)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: solve: %w", err)
		}
		result.Findings = append(result.Findings, solved.Findings...)
		trace.record(ctx, StageSolve, started, solveSummary(plan.Strategy, solved), solved.Findings)
	}
	for id, position := range solved.Positions {
		plan.LayoutHints.Positions[id] = position
	}

	// realize
	started = time.Now()
	realized := scene.Realize(plan)
	trace.record(ctx, StageRealize, started, map[string]string{
		"entities":    strconv.Itoa(len(realized.Entities)),
		"connections": strconv.Itoa(len(realized.Connections)),
		"solved":      strconv.Itoa(len(solved.Positions)),
	}, nil)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: realize: %w", err)
	}

	// refine
	started = time.Now()
	outcome := p.loop.Run(plan, realized)
	trace.record(ctx, StageRefine, started, map[string]string{
		"state":      string(outcome.State),
		"confidence": strconv.FormatFloat(outcome.Confidence, 'f', 2, 64),
		"checks":     strconv.Itoa(outcome.Checks),
	}, outcome.Findings)

	result.Plan = plan
	result.Scene = realized
	result.Snapshot = snapshot
	result.Gaps = gaps
	result.Outcome = outcome
	result.Trace = trace.entries

	logger.Info("[Pipeline] Planning finished",
		"plan", planID,
		"strategy", plan.Strategy,
		"state", outcome.State,
		"confidence", fmt.Sprintf("%.2f", outcome.Confidence),
	)
	return result, nil
}

func solveSummary(strategy common.Strategy, solved solver.Result) map[string]string {
	return map[string]string{
		"strategy":  string(strategy),
		"attempted": strconv.Itoa(solved.Attempted),
		"succeeded": strconv.Itoa(solved.Succeeded),
		"positions": strconv.Itoa(len(solved.Positions)),
	}
}
