package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skizzehq/skizze/pkg/common"
)

// fakeBackend is a scriptable back-end that records the requests it saw.
type fakeBackend struct {
	name        string
	delay       time.Duration
	cooperative bool
	positions   map[string]common.Position
	satisfiable bool
	err         error

	calls    int
	lastSeen Request
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Solve(ctx context.Context, req Request) (map[string]common.Position, bool, error) {
	f.calls++
	f.lastSeen = req
	if f.delay > 0 {
		if f.cooperative {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		} else {
			time.Sleep(f.delay)
		}
	}
	return f.positions, f.satisfiable, f.err
}

func registryWith(t *testing.T, backends ...Backend) *Registry {
	t.Helper()
	registry := NewRegistry()
	for _, backend := range backends {
		if err := registry.Register(backend); err != nil {
			t.Fatalf("Register(%s): %v", backend.Name(), err)
		}
	}
	return registry
}

func testPlan(strategy common.Strategy, domain common.Domain, ids ...string) *common.DiagramPlan {
	plan := &common.DiagramPlan{
		ID:       "plan_test",
		Strategy: strategy,
		Domain:   domain,
	}
	for _, id := range ids {
		plan.Entities = append(plan.Entities, common.Node{
			ID:         id,
			Type:       common.NodeObject,
			Label:      id,
			Properties: map[string]string{},
		})
	}
	return plan
}

func TestSolve_TimeoutReturnsPromptlyAndHybridContinues(t *testing.T) {
	slow := &fakeBackend{name: BackendSymbolic, delay: 400 * time.Millisecond, satisfiable: true}
	next := &fakeBackend{
		name:        BackendRelax,
		satisfiable: true,
		positions:   map[string]common.Position{"a": {X: 10, Y: 20}},
	}
	last := &fakeBackend{name: BackendTemplate, satisfiable: true}

	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, slow, next, last),
		Timeout:  25 * time.Millisecond,
	})
	plan := testPlan(common.StrategyHybrid, common.DomainGeneric, "a")

	started := time.Now()
	result := orchestrator.Solve(context.Background(), plan)
	elapsed := time.Since(started)

	if elapsed > 200*time.Millisecond {
		t.Errorf("Solve took %v, want control back within the budget", elapsed)
	}
	if next.calls != 1 {
		t.Errorf("next back-end ran %d times, want 1", next.calls)
	}
	if got := result.Positions["a"]; got != (common.Position{X: 10, Y: 20}) {
		t.Errorf("position a = %+v, want contribution from the next back-end", got)
	}
	if len(result.Findings) != 1 || result.Findings[0].Code != common.CodeSourceFailure {
		t.Errorf("findings = %+v, want one source_failure", result.Findings)
	}
	if result.Attempted != 3 || result.Succeeded != 2 {
		t.Errorf("attempted/succeeded = %d/%d, want 3/2", result.Attempted, result.Succeeded)
	}
}

func TestSolve_NonHybridFailureSurfacesZeroPositions(t *testing.T) {
	failing := &fakeBackend{name: BackendRelax, satisfiable: false}
	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, failing),
	})
	plan := testPlan(common.StrategyConstraintSolver, common.DomainGeneric, "a", "b")

	result := orchestrator.Solve(context.Background(), plan)

	if len(result.Positions) != 0 {
		t.Errorf("positions = %+v, want none", result.Positions)
	}
	if !result.Failed() {
		t.Error("Failed() = false, want true")
	}
	if len(result.Findings) != 1 {
		t.Errorf("findings = %+v, want one", result.Findings)
	}
}

func TestSolve_ErroringBackendBecomesFinding(t *testing.T) {
	failing := &fakeBackend{name: BackendRelax, err: errors.New("no solution space")}
	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, failing),
	})
	plan := testPlan(common.StrategyConstraintSolver, common.DomainGeneric, "a")

	result := orchestrator.Solve(context.Background(), plan)

	if len(result.Positions) != 0 {
		t.Errorf("positions = %+v, want none", result.Positions)
	}
	if len(result.Findings) != 1 || result.Findings[0].Severity != common.SeverityWarning {
		t.Errorf("findings = %+v, want one warning", result.Findings)
	}
}

func TestSolve_EarlierPositionsArePinned(t *testing.T) {
	first := &fakeBackend{
		name:        BackendSymbolic,
		satisfiable: true,
		positions: map[string]common.Position{
			"a": {X: 1, Y: 2},
			"b": {X: 3, Y: 4},
		},
	}
	second := &fakeBackend{
		name:        BackendRelax,
		satisfiable: true,
		positions: map[string]common.Position{
			"b": {X: 99, Y: 99},
			"c": {X: 5, Y: 6},
		},
	}
	third := &fakeBackend{name: BackendTemplate, satisfiable: true}

	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, first, second, third),
	})
	plan := testPlan(common.StrategyHybrid, common.DomainGeneric, "a", "b", "c")

	result := orchestrator.Solve(context.Background(), plan)

	if got := result.Positions["b"]; got != (common.Position{X: 3, Y: 4}) {
		t.Errorf("pinned b was moved to %+v", got)
	}
	if got := result.Positions["c"]; got != (common.Position{X: 5, Y: 6}) {
		t.Errorf("c = %+v, want contribution from the second back-end", got)
	}
	if _, ok := second.lastSeen.Fixed["a"]; !ok {
		t.Error("second back-end did not receive a as fixed")
	}
	if _, ok := second.lastSeen.Fixed["b"]; !ok {
		t.Error("second back-end did not receive b as fixed")
	}
}

func TestSolve_FixedConstraintSeedsPinning(t *testing.T) {
	recorder := &fakeBackend{name: BackendTemplate, satisfiable: true,
		positions: map[string]common.Position{"a": {X: 500, Y: 500}}}
	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, recorder),
	})

	plan := testPlan(common.StrategyDirect, common.DomainGeneric, "a", "b")
	constraint, err := common.NewConstraint(common.ConstraintFixed, []string{"a"}, 0)
	if err != nil {
		t.Fatalf("NewConstraint: %v", err)
	}
	constraint.Parameters["x"] = 100
	constraint.Parameters["y"] = 200
	plan.GlobalConstraints = []common.Constraint{constraint}

	result := orchestrator.Solve(context.Background(), plan)

	if got := result.Positions["a"]; got != (common.Position{X: 100, Y: 200}) {
		t.Errorf("a = %+v, want the fixed constraint position", got)
	}
	if _, ok := recorder.lastSeen.Fixed["a"]; !ok {
		t.Error("back-end did not receive the fixed constraint as pinned")
	}
}

func TestSolve_UnknownEntityIDsAreDiscarded(t *testing.T) {
	inventing := &fakeBackend{
		name:        BackendTemplate,
		satisfiable: true,
		positions: map[string]common.Position{
			"a":        {X: 1, Y: 1},
			"phantom":  {X: 2, Y: 2},
			"phantom2": {X: 3, Y: 3},
		},
	}
	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, inventing),
	})
	plan := testPlan(common.StrategyDirect, common.DomainGeneric, "a")

	result := orchestrator.Solve(context.Background(), plan)

	if len(result.Positions) != 1 {
		t.Errorf("positions = %+v, want only known entity ids", result.Positions)
	}
}

func TestSolve_HeuristicRunsNoBackend(t *testing.T) {
	recorder := &fakeBackend{name: BackendTemplate, satisfiable: true}
	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, recorder),
	})
	plan := testPlan(common.StrategyHeuristic, common.DomainGeneric, "a")

	result := orchestrator.Solve(context.Background(), plan)

	if recorder.calls != 0 {
		t.Errorf("back-end ran %d times under HEURISTIC, want 0", recorder.calls)
	}
	if result.Attempted != 0 || result.Failed() {
		t.Errorf("result = %+v, want no attempts and no failure", result)
	}
}

func TestSolve_CancelledRequestPropagates(t *testing.T) {
	slow := &fakeBackend{name: BackendRelax, delay: 300 * time.Millisecond, cooperative: true, satisfiable: true}
	orchestrator := NewOrchestrator(NewOrchestratorParams{
		Registry: registryWith(t, slow),
		Timeout:  5 * time.Second,
	})
	plan := testPlan(common.StrategyConstraintSolver, common.DomainGeneric, "a")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	result := orchestrator.Solve(ctx, plan)
	if elapsed := time.Since(started); elapsed > 200*time.Millisecond {
		t.Errorf("Solve took %v after cancellation", elapsed)
	}
	if len(result.Positions) != 0 {
		t.Errorf("positions = %+v, want none after cancellation", result.Positions)
	}
}

func TestChain(t *testing.T) {
	tests := []struct {
		strategy common.Strategy
		want     []string
	}{
		{common.StrategyDirect, []string{BackendTemplate}},
		{common.StrategyConstraintSolver, []string{BackendRelax}},
		{common.StrategySymbolicPhysics, []string{BackendSymbolic}},
		{common.StrategyHybrid, []string{BackendSymbolic, BackendRelax, BackendTemplate}},
		{common.StrategyHeuristic, nil},
	}
	for _, tt := range tests {
		got := Chain(tt.strategy)
		if len(got) != len(tt.want) {
			t.Errorf("Chain(%s) = %v, want %v", tt.strategy, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Chain(%s)[%d] = %s, want %s", tt.strategy, i, got[i], tt.want[i])
			}
		}
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(NewTemplateBackend()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(NewTemplateBackend()); !errors.Is(err, ErrDuplicateBackend) {
		t.Errorf("duplicate Register err = %v, want ErrDuplicateBackend", err)
	}
	if _, ok := registry.Get("nope"); ok {
		t.Error("Get(nope) = ok, want miss")
	}
	names := DefaultRegistry().Names()
	want := []string{BackendRelax, BackendSymbolic, BackendTemplate}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range names {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
