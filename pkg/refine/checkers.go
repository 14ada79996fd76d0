package refine

import (
	"fmt"

	"github.com/skizzehq/skizze/pkg/common"
)

// Checker inspects the realized scene against its plan and reports findings.
// Checkers never mutate; repairs happen in the repairing step.
type Checker interface {
	Name() string
	Check(plan *common.DiagramPlan, scene *common.Scene) []common.Finding
}

// DefaultCheckers returns the production checker sequence: structural
// comparison first, then domain rules.
func DefaultCheckers() []Checker {
	return []Checker{
		NewStructuralChecker(),
		NewDomainChecker(),
	}
}

type structuralChecker struct{}

// NewStructuralChecker compares plan and scene: every plan entity id must
// appear in the scene, and every plan relation should have a rendered
// connection.
func NewStructuralChecker() Checker {
	return structuralChecker{}
}

func (structuralChecker) Name() string {
	return "structural"
}

func (structuralChecker) Check(plan *common.DiagramPlan, scene *common.Scene) []common.Finding {
	var findings []common.Finding

	for _, entity := range plan.Entities {
		if _, ok := scene.Entity(entity.ID); !ok {
			findings = append(findings, common.Finding{
				Severity:     common.SeverityError,
				Code:         common.CodeStructuralMissing,
				Message:      fmt.Sprintf("plan entity %s is missing from the scene", entity.ID),
				OffendingIDs: []string{entity.ID},
			})
		}
	}

	for _, relation := range plan.Relations {
		if !scene.HasConnection(relation.SourceID, relation.TargetID) {
			findings = append(findings, common.Finding{
				Severity:     common.SeverityWarning,
				Code:         common.CodeStructuralConnection,
				Message:      fmt.Sprintf("relation %s has no rendered connection", relation.ID),
				OffendingIDs: []string{relation.SourceID, relation.TargetID},
			})
		}
	}

	return findings
}

type domainChecker struct{}

// NewDomainChecker validates physical and geometric invariants of the
// realized layout: no overlapping entities, nothing outside the canvas, and
// in mechanics every force anchored to a connection.
func NewDomainChecker() Checker {
	return domainChecker{}
}

func (domainChecker) Name() string {
	return "domain"
}

func (domainChecker) Check(plan *common.DiagramPlan, scene *common.Scene) []common.Finding {
	var findings []common.Finding
	findings = append(findings, overlapFindings(scene)...)
	findings = append(findings, boundsFindings(scene)...)
	if plan.Domain == common.DomainMechanics {
		findings = append(findings, unanchoredForceFindings(plan, scene)...)
	}
	return findings
}

func overlapFindings(scene *common.Scene) []common.Finding {
	var findings []common.Finding
	for i, first := range scene.Entities {
		if first.Position == nil {
			continue
		}
		for _, second := range scene.Entities[i+1:] {
			if second.Position == nil {
				continue
			}
			if !boxesOverlap(first, second) {
				continue
			}
			findings = append(findings, common.Finding{
				Severity:     common.SeverityWarning,
				Code:         common.CodeDomainOverlap,
				Message:      fmt.Sprintf("entities %s and %s overlap", first.ID, second.ID),
				OffendingIDs: []string{first.ID, second.ID},
			})
		}
	}
	return findings
}

func boxesOverlap(a, b *common.SceneEntity) bool {
	dx := a.Position.X - b.Position.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Position.Y - b.Position.Y
	if dy < 0 {
		dy = -dy
	}
	return dx < (a.Dimensions.Width+b.Dimensions.Width)/2 &&
		dy < (a.Dimensions.Height+b.Dimensions.Height)/2
}

func boundsFindings(scene *common.Scene) []common.Finding {
	var findings []common.Finding
	for _, entity := range scene.Entities {
		if entity.Position == nil {
			continue
		}
		halfW := entity.Dimensions.Width / 2
		halfH := entity.Dimensions.Height / 2
		if entity.Position.X-halfW < 0 || entity.Position.X+halfW > scene.Width ||
			entity.Position.Y-halfH < 0 || entity.Position.Y+halfH > scene.Height {
			findings = append(findings, common.Finding{
				Severity:     common.SeverityWarning,
				Code:         common.CodeDomainOutOfBounds,
				Message:      fmt.Sprintf("entity %s extends outside the canvas", entity.ID),
				OffendingIDs: []string{entity.ID},
			})
		}
	}
	return findings
}

// unanchoredForceFindings flags force entities with no connection at all; a
// free-floating force arrow has nothing to act on.
func unanchoredForceFindings(plan *common.DiagramPlan, scene *common.Scene) []common.Finding {
	connected := make(map[string]bool)
	for _, connection := range scene.Connections {
		connected[connection.SourceID] = true
		connected[connection.TargetID] = true
	}

	var findings []common.Finding
	for _, entity := range plan.Entities {
		if entity.Type != common.NodeForce {
			continue
		}
		if connected[entity.ID] {
			continue
		}
		if _, inScene := scene.Entity(entity.ID); !inScene {
			continue
		}
		findings = append(findings, common.Finding{
			Severity:     common.SeverityWarning,
			Code:         common.CodeDomainUnanchored,
			Message:      fmt.Sprintf("force %s is not anchored to any entity", entity.ID),
			OffendingIDs: []string{entity.ID},
		})
	}
	return findings
}

// Confidence folds findings into a composite score in [0,1]. An empty list is
// full confidence; errors weigh three times a warning.
func Confidence(findings []common.Finding) float64 {
	errors, warnings := common.CountBySeverity(findings)
	confidence := 1.0 - 0.24*float64(errors) - 0.08*float64(warnings)
	if confidence < 0 {
		return 0
	}
	return confidence
}
