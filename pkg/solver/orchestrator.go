package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"
)

// DefaultBackendTimeout bounds a single back-end invocation.
const DefaultBackendTimeout = 2 * time.Second

// Result is the outcome of running a strategy chain: the merged positions,
// one warning finding per failed back-end, and the invocation counts the
// pipeline uses to decide on a re-assessment.
type Result struct {
	Positions map[string]common.Position
	Findings  []common.Finding
	Attempted int
	Succeeded int
}

// Failed reports whether every attempted back-end failed to contribute.
func (r Result) Failed() bool {
	return r.Attempted > 0 && r.Succeeded == 0
}

// Orchestrator runs the back-end chain a plan's strategy dictates. Each
// invocation runs in a cancellable worker under an enforced timeout; a
// back-end that errors, times out, or reports unsatisfiable contributes
// nothing. The chain proceeds past a failure only under HYBRID.
type Orchestrator struct {
	registry *Registry
	timeout  time.Duration
}

type NewOrchestratorParams struct {
	Registry *Registry
	Timeout  time.Duration
}

func NewOrchestrator(params NewOrchestratorParams) *Orchestrator {
	if params.Registry == nil {
		params.Registry = DefaultRegistry()
	}
	if params.Timeout <= 0 {
		params.Timeout = DefaultBackendTimeout
	}
	return &Orchestrator{
		registry: params.Registry,
		timeout:  params.Timeout,
	}
}

// Solve runs the chain for the plan's strategy and merges back-end results.
// Positions produced by an earlier back-end are pinned for later ones, and a
// position returned for an already-pinned id is discarded. Entities still
// unpositioned after the chain are left for the heuristic layout stage.
func (o *Orchestrator) Solve(ctx context.Context, plan *common.DiagramPlan) Result {
	chain := Chain(plan.Strategy)
	result := Result{Positions: make(map[string]common.Position)}

	known := make(map[string]bool, len(plan.Entities))
	for _, entity := range plan.Entities {
		known[entity.ID] = true
	}

	// fixed constraints seed the pinned set before any back-end runs
	pinned := make(map[string]common.Position)
	for _, constraint := range plan.GlobalConstraints {
		if constraint.Kind != common.ConstraintFixed {
			continue
		}
		position := common.Position{X: constraint.Parameters["x"], Y: constraint.Parameters["y"]}
		for _, id := range constraint.ParticipantIDs {
			if known[id] {
				pinned[id] = position
				result.Positions[id] = position
			}
		}
	}

	for _, name := range chain {
		backend, ok := o.registry.Get(name)
		if !ok {
			result.Attempted++
			result.Findings = append(result.Findings, backendFailure(name, ErrUnknownBackend.Error()))
			if plan.Strategy != common.StrategyHybrid {
				return Result{Positions: map[string]common.Position{}, Findings: result.Findings, Attempted: result.Attempted}
			}
			continue
		}

		request := Request{
			Entities:    plan.Entities,
			Constraints: plan.GlobalConstraints,
			Fixed:       clonePositions(pinned),
			Domain:      plan.Domain,
		}

		result.Attempted++
		started := time.Now()
		positions, satisfiable, err := o.invoke(ctx, backend, request)
		elapsed := time.Since(started)

		switch {
		case err != nil:
			logger.Warn("[Solver] Back-end failed", "backend", name, "duration", elapsed, "error", err)
			result.Findings = append(result.Findings, backendFailure(name, err.Error()))
		case !satisfiable:
			logger.Warn("[Solver] Back-end unsatisfiable", "backend", name, "duration", elapsed)
			result.Findings = append(result.Findings, backendFailure(name, "unsatisfiable"))
		default:
			placed := 0
			for id, position := range positions {
				if !known[id] {
					continue
				}
				if _, exists := pinned[id]; exists {
					continue
				}
				pinned[id] = position
				result.Positions[id] = position
				placed++
			}
			result.Succeeded++
			logger.Info("[Solver] Back-end placed entities", "backend", name, "placed", placed, "duration", elapsed)
			continue
		}

		if plan.Strategy != common.StrategyHybrid {
			return Result{Positions: map[string]common.Position{}, Findings: result.Findings, Attempted: result.Attempted}
		}
	}

	return result
}

// invoke runs one back-end in a worker goroutine under the per-call budget.
// The result channel is buffered so a worker that misses the deadline can
// still send and exit; its late result is discarded here.
func (o *Orchestrator) invoke(ctx context.Context, backend Backend, req Request) (map[string]common.Position, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type solveResult struct {
		positions   map[string]common.Position
		satisfiable bool
		err         error
	}

	results := make(chan solveResult, 1)
	go func() {
		positions, satisfiable, err := backend.Solve(ctx, req)
		results <- solveResult{positions, satisfiable, err}
	}()

	select {
	case res := <-results:
		return res.positions, res.satisfiable, res.err
	case <-ctx.Done():
		return nil, false, fmt.Errorf("back-end %s: %w", backend.Name(), ctx.Err())
	}
}

func backendFailure(name, reason string) common.Finding {
	return common.Finding{
		Severity: common.SeverityWarning,
		Code:     common.CodeSourceFailure,
		Message:  fmt.Sprintf("back-end %s contributed nothing: %s", name, reason),
	}
}

func clonePositions(positions map[string]common.Position) map[string]common.Position {
	clone := make(map[string]common.Position, len(positions))
	for id, position := range positions {
		clone[id] = position
	}
	return clone
}
