package refine

import (
	"testing"

	"github.com/skizzehq/skizze/pkg/common"
)

func TestRun_RepairsMissingEntityAndConverges(t *testing.T) {
	plan := &common.DiagramPlan{
		ID: "plan_d",
		Entities: []common.Node{
			{ID: "node_a", Type: common.NodeObject, Label: "a"},
			{ID: "node_b", Type: common.NodeObject, Label: "b"},
		},
		Relations: []common.Edge{
			{ID: "edge_1", SourceID: "node_a", TargetID: "node_b", Relation: common.RelConnectedTo},
		},
	}
	realized := &common.Scene{
		Entities:    []*common.SceneEntity{positioned("node_a", 200, 300)},
		Connections: []common.SceneConnection{{SourceID: "node_a", TargetID: "node_b"}},
		Width:       common.CanvasWidth,
		Height:      common.CanvasHeight,
	}

	outcome := NewLoop(NewLoopParams{}).Run(plan, realized)

	if outcome.State != StateConverged {
		t.Fatalf("state = %s, want CONVERGED", outcome.State)
	}
	if outcome.Checks != 2 {
		t.Errorf("checks = %d, want 2", outcome.Checks)
	}

	first := outcome.Iterations[0]
	if len(first.Findings) != 1 {
		t.Fatalf("first iteration findings = %+v, want exactly one", first.Findings)
	}
	if first.Findings[0].Code != common.CodeStructuralMissing || first.Findings[0].OffendingIDs[0] != "node_b" {
		t.Errorf("first finding = %+v, want missing node_b", first.Findings[0])
	}
	if first.Repairs != 1 {
		t.Errorf("first iteration repairs = %d, want 1", first.Repairs)
	}

	if outcome.Confidence < first.Confidence {
		t.Errorf("confidence %f decreased below the first iteration's %f", outcome.Confidence, first.Confidence)
	}
	if entity, ok := realized.Entity("node_b"); !ok || entity.Position == nil {
		t.Error("placeholder for node_b was not inserted")
	} else if entity.Style["variant"] != "placeholder" {
		t.Errorf("placeholder style = %+v", entity.Style)
	}
}

func TestRun_ExhaustsAtIterationCap(t *testing.T) {
	// both entities sit exactly on the clamp corner, so the offset repair
	// can never separate them
	corner := common.Position{
		X: common.CanvasWidth - common.EntityWidth/2,
		Y: common.CanvasHeight - common.EntityHeight/2,
	}
	plan := &common.DiagramPlan{ID: "plan_stuck", Domain: common.DomainGeneric}
	realized := &common.Scene{
		Entities: []*common.SceneEntity{
			positioned("node_a", corner.X, corner.Y),
			positioned("node_b", corner.X, corner.Y),
		},
		Width:  common.CanvasWidth,
		Height: common.CanvasHeight,
	}

	loop := NewLoop(NewLoopParams{MaxIterations: 3, ConfidenceThreshold: 0.95})
	outcome := loop.Run(plan, realized)

	if outcome.State != StateExhausted {
		t.Fatalf("state = %s, want EXHAUSTED", outcome.State)
	}
	if outcome.Checks != 4 {
		t.Errorf("checks = %d, want max iterations + 1", outcome.Checks)
	}
	if outcome.Confidence < 0.919 || outcome.Confidence > 0.921 {
		t.Errorf("confidence = %f, want best observed ~0.92", outcome.Confidence)
	}

	exhaustedFinding := false
	for _, f := range outcome.Findings {
		if f.Code == common.CodeConvergenceExhausted {
			exhaustedFinding = true
		}
	}
	if !exhaustedFinding {
		t.Error("outcome carries no convergence_exhausted finding")
	}
}

func TestRun_ZeroRepairIterationConverges(t *testing.T) {
	// an unanchored force has no known repair
	plan := &common.DiagramPlan{
		ID:     "plan_force",
		Domain: common.DomainMechanics,
		Entities: []common.Node{
			{ID: "node_f", Type: common.NodeForce, Label: "gravity"},
		},
	}
	realized := &common.Scene{
		Entities: []*common.SceneEntity{positioned("node_f", 300, 200)},
		Width:    common.CanvasWidth,
		Height:   common.CanvasHeight,
	}

	loop := NewLoop(NewLoopParams{ConfidenceThreshold: 0.95})
	outcome := loop.Run(plan, realized)

	if outcome.State != StateConverged {
		t.Fatalf("state = %s, want CONVERGED via zero-repair iteration", outcome.State)
	}
	if outcome.Checks != 1 {
		t.Errorf("checks = %d, want 1", outcome.Checks)
	}
	if outcome.Iterations[0].Repairs != 0 {
		t.Errorf("repairs = %d, want 0", outcome.Iterations[0].Repairs)
	}
	if len(outcome.Findings) != 1 || outcome.Findings[0].Code != common.CodeDomainUnanchored {
		t.Errorf("findings = %+v, want the unresolved warning passed through", outcome.Findings)
	}
}

type panicChecker struct{}

func (panicChecker) Name() string { return "panicky" }

func (panicChecker) Check(*common.DiagramPlan, *common.Scene) []common.Finding {
	panic("boom")
}

func TestRun_CheckerPanicBecomesWarning(t *testing.T) {
	plan := &common.DiagramPlan{ID: "plan_panic"}
	realized := &common.Scene{Width: common.CanvasWidth, Height: common.CanvasHeight}

	loop := NewLoop(NewLoopParams{Checkers: []Checker{panicChecker{}}})
	outcome := loop.Run(plan, realized)

	if outcome.State != StateConverged {
		t.Fatalf("state = %s, want CONVERGED despite the panic", outcome.State)
	}
	if len(outcome.Findings) != 1 || outcome.Findings[0].Code != common.CodeCheckerFailure {
		t.Errorf("findings = %+v, want one checker_failure warning", outcome.Findings)
	}
	if outcome.Findings[0].Severity != common.SeverityWarning {
		t.Errorf("severity = %s, want warning", outcome.Findings[0].Severity)
	}
}

func TestRun_CleanSceneConvergesImmediately(t *testing.T) {
	plan := &common.DiagramPlan{
		ID:       "plan_clean",
		Entities: []common.Node{{ID: "node_a", Type: common.NodeObject, Label: "a"}},
	}
	realized := &common.Scene{
		Entities: []*common.SceneEntity{positioned("node_a", 300, 300)},
		Width:    common.CanvasWidth,
		Height:   common.CanvasHeight,
	}

	outcome := NewLoop(NewLoopParams{}).Run(plan, realized)

	if outcome.State != StateConverged || outcome.Checks != 1 {
		t.Errorf("outcome = %+v, want immediate convergence", outcome)
	}
	if outcome.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0", outcome.Confidence)
	}
}
