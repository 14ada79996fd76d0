package common

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding codes group by the failure class they report. Structural codes come
// from plan/scene comparison, domain codes from domain-rule checkers, and
// source/convergence codes from the pipeline itself.
const (
	CodeSourceFailure        = "source_failure"
	CodeStructuralMissing    = "structural_missing_entity"
	CodeStructuralConnection = "structural_missing_connection"
	CodeDomainOverlap        = "domain_overlap"
	CodeDomainOutOfBounds    = "domain_out_of_bounds"
	CodeDomainUnanchored     = "domain_unanchored_force"
	CodeCheckerFailure       = "checker_failure"
	CodeConvergenceExhausted = "convergence_exhausted"
)

// Finding is a structured validation result produced by a checker and
// consumed by the repair step and the audit sink.
type Finding struct {
	Severity     Severity `json:"severity"`
	Code         string   `json:"code"`
	Message      string   `json:"message"`
	OffendingIDs []string `json:"offending_ids,omitempty"`
}

// HasErrors reports whether any finding in the list is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of error and warning findings.
func CountBySeverity(findings []Finding) (errors int, warnings int) {
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}
