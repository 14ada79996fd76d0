package refine

import (
	"fmt"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"
)

// State names a stage of the refinement loop.
type State string

const (
	StatePlanningComplete State = "PLANNING_COMPLETE"
	StateChecking         State = "CHECKING"
	StateRepairing        State = "REPAIRING"
	StateConverged        State = "CONVERGED"
	StateExhausted        State = "EXHAUSTED"
)

const (
	DefaultMaxIterations       = 3
	DefaultConfidenceThreshold = 0.90
)

// Loop reconciles a realized scene with its plan: check, repair, repeat
// until convergence or the iteration cap. No error escapes Run; checker
// failures degrade to warning findings.
type Loop struct {
	checkers      []Checker
	maxIterations int
	threshold     float64
}

type NewLoopParams struct {
	Checkers            []Checker
	MaxIterations       int
	ConfidenceThreshold float64
}

func NewLoop(params NewLoopParams) *Loop {
	if params.Checkers == nil {
		params.Checkers = DefaultCheckers()
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = DefaultMaxIterations
	}
	if params.ConfidenceThreshold <= 0 {
		params.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	return &Loop{
		checkers:      params.Checkers,
		maxIterations: params.MaxIterations,
		threshold:     params.ConfidenceThreshold,
	}
}

// Iteration records one checking round and the repairs that followed it.
type Iteration struct {
	Index      int              `json:"index"`
	Findings   []common.Finding `json:"findings,omitempty"`
	Confidence float64          `json:"confidence"`
	Repairs    int              `json:"repairs"`
}

// Outcome is the terminal loop result. Confidence and Findings come from the
// best iteration observed, which is not necessarily the last one.
type Outcome struct {
	State      State            `json:"state"`
	Confidence float64          `json:"confidence"`
	Findings   []common.Finding `json:"findings,omitempty"`
	Iterations []Iteration      `json:"iterations"`
	Checks     int              `json:"checks"`
}

// Run drives the loop from PLANNING_COMPLETE to CONVERGED or EXHAUSTED. The
// scene is repaired in place; the plan is read-only. At most
// maxIterations+1 checking rounds run.
func (l *Loop) Run(plan *common.DiagramPlan, realized *common.Scene) Outcome {
	logger.Debug("[Refine] Starting loop", "plan", plan.ID, "state", StatePlanningComplete)

	outcome := Outcome{}
	bestConfidence := -1.0
	var bestFindings []common.Finding

	for iteration := 0; ; iteration++ {
		logger.Debug("[Refine] Iteration", "index", iteration, "state", StateChecking)
		findings := l.check(plan, realized)
		confidence := Confidence(findings)
		outcome.Checks++

		record := Iteration{Index: iteration, Findings: findings, Confidence: confidence}

		if confidence > bestConfidence {
			bestConfidence = confidence
			bestFindings = findings
		}

		if len(findings) == 0 || confidence >= l.threshold {
			outcome.Iterations = append(outcome.Iterations, record)
			return l.finish(outcome, StateConverged, bestConfidence, bestFindings)
		}
		if iteration >= l.maxIterations {
			outcome.Iterations = append(outcome.Iterations, record)
			findings := append([]common.Finding(nil), bestFindings...)
			findings = append(findings, common.Finding{
				Severity: common.SeverityWarning,
				Code:     common.CodeConvergenceExhausted,
				Message:  fmt.Sprintf("iteration cap %d reached, reporting best observed result", l.maxIterations),
			})
			return l.finish(outcome, StateExhausted, bestConfidence, findings)
		}

		logger.Debug("[Refine] Iteration", "index", iteration, "state", StateRepairing)
		record.Repairs = applyRepairs(plan, realized, findings)
		outcome.Iterations = append(outcome.Iterations, record)

		if record.Repairs == 0 {
			// nothing left to try; more checking cannot make progress
			return l.finish(outcome, StateConverged, bestConfidence, bestFindings)
		}
	}
}

func (l *Loop) check(plan *common.DiagramPlan, realized *common.Scene) []common.Finding {
	var findings []common.Finding
	for _, checker := range l.checkers {
		findings = append(findings, l.runChecker(checker, plan, realized)...)
	}
	return findings
}

// runChecker isolates one checker invocation. A panicking checker yields a
// single warning finding instead of aborting the loop.
func (l *Loop) runChecker(checker Checker, plan *common.DiagramPlan, realized *common.Scene) (findings []common.Finding) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("[Refine] Checker failed", "checker", checker.Name(), "panic", r)
			findings = []common.Finding{{
				Severity: common.SeverityWarning,
				Code:     common.CodeCheckerFailure,
				Message:  fmt.Sprintf("checker %s failed, no information: %v", checker.Name(), r),
			}}
		}
	}()
	return checker.Check(plan, realized)
}

func (l *Loop) finish(outcome Outcome, state State, confidence float64, findings []common.Finding) Outcome {
	outcome.State = state
	outcome.Confidence = confidence
	outcome.Findings = findings
	logger.Info("[Refine] Loop finished",
		"state", state,
		"confidence", fmt.Sprintf("%.2f", confidence),
		"checks", outcome.Checks,
	)
	return outcome
}
