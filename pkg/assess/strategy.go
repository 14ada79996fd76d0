package assess

import (
	"fmt"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"
)

// Score thresholds splitting the strategy bands.
const (
	ThresholdLow  = 0.30
	ThresholdMid  = 0.55
	ThresholdHigh = 0.75
)

// Input is the full selection record. Selection is a pure function of this
// record; identical inputs always yield the identical strategy.
type Input struct {
	Score             float64
	Domain            common.Domain
	HasConstraints    bool
	PriorSolverFailed bool
}

// Result carries the chosen strategy and the rule that produced it.
type Result struct {
	Strategy common.Strategy `json:"strategy"`
	Reason   string          `json:"reason"`
}

// HasClosedForm reports whether a domain has known closed-form relations the
// symbolic back-end can place from.
func HasClosedForm(domain common.Domain) bool {
	return domain == common.DomainElectrical || domain == common.DomainMechanics
}

// Select walks the decision table in order and returns at the first matching
// rule. Tiny graphs go DIRECT before the constraint check so a trivial
// statement never pays for a solver, with or without constraints.
func Select(in Input) Result {
	result := selectStrategy(in)
	logger.Debug("[Assess] Selected strategy",
		"strategy", result.Strategy,
		"score", fmt.Sprintf("%.3f", in.Score),
		"domain", in.Domain,
		"reason", result.Reason,
	)
	return result
}

func selectStrategy(in Input) Result {
	if in.PriorSolverFailed {
		return Result{
			Strategy: common.StrategyHybrid,
			Reason:   "prior_solver_failure: retrying with ordered fallback chain",
		}
	}

	if in.Score < ThresholdLow {
		return Result{
			Strategy: common.StrategyDirect,
			Reason:   fmt.Sprintf("score_below_low: %.3f < %.2f", in.Score, ThresholdLow),
		}
	}

	if !in.HasConstraints {
		return Result{
			Strategy: common.StrategyHeuristic,
			Reason:   "no_constraints: heuristic placement regardless of score",
		}
	}

	if in.Score < ThresholdMid {
		return Result{
			Strategy: common.StrategyConstraintSolver,
			Reason:   fmt.Sprintf("score_below_mid: %.3f < %.2f", in.Score, ThresholdMid),
		}
	}

	if in.Score < ThresholdHigh {
		if HasClosedForm(in.Domain) {
			return Result{
				Strategy: common.StrategySymbolicPhysics,
				Reason:   fmt.Sprintf("closed_form_domain: %s", in.Domain),
			}
		}
		return Result{
			Strategy: common.StrategyConstraintSolver,
			Reason:   fmt.Sprintf("no_closed_form: %s", in.Domain),
		}
	}

	return Result{
		Strategy: common.StrategyHybrid,
		Reason:   fmt.Sprintf("score_at_high: %.3f >= %.2f", in.Score, ThresholdHigh),
	}
}
