package refine

import (
	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"
	"github.com/skizzehq/skizze/pkg/scene"
)

// applyRepairs walks the findings and applies the known repair for each in
// place, returning the repair count. Findings with no known repair are left
// unresolved; they stay in the audit trail.
func applyRepairs(plan *common.DiagramPlan, realized *common.Scene, findings []common.Finding) int {
	repairs := 0
	for _, finding := range findings {
		switch finding.Code {
		case common.CodeStructuralMissing:
			if insertPlaceholder(plan, realized, finding) {
				repairs++
			}
		case common.CodeStructuralConnection:
			if renderConnection(realized, finding) {
				repairs++
			}
		case common.CodeDomainOverlap:
			if offsetEntity(realized, finding) {
				repairs++
			}
		case common.CodeDomainOutOfBounds:
			if clampEntity(realized, finding) {
				repairs++
			}
		}
	}
	if repairs > 0 {
		logger.Debug("[Refine] Applied repairs", "count", repairs)
	}
	return repairs
}

// insertPlaceholder adds a scene entity for a plan entity the scene lost,
// placed on the first free grid spot.
func insertPlaceholder(plan *common.DiagramPlan, realized *common.Scene, finding common.Finding) bool {
	if len(finding.OffendingIDs) == 0 {
		return false
	}
	id := finding.OffendingIDs[0]
	if _, exists := realized.Entity(id); exists {
		return false
	}

	dimensions := common.Dimensions{Width: common.EntityWidth, Height: common.EntityHeight}
	if entity, ok := plan.Entity(id); ok {
		switch entity.Type {
		case common.NodeQuantity, common.NodeParameter:
			dimensions = common.Dimensions{Width: common.EntityWidth * 0.75, Height: common.EntityHeight * 0.66}
		case common.NodeForce:
			dimensions = common.Dimensions{Width: common.EntityWidth * 0.66, Height: common.EntityHeight * 0.66}
		}
	}

	position := scene.NextFreePosition(realized)
	realized.Entities = append(realized.Entities, &common.SceneEntity{
		ID:         id,
		Position:   &position,
		Dimensions: dimensions,
		Style:      map[string]string{"shape": "box", "variant": "placeholder"},
	})
	return true
}

func renderConnection(realized *common.Scene, finding common.Finding) bool {
	if len(finding.OffendingIDs) < 2 {
		return false
	}
	source, target := finding.OffendingIDs[0], finding.OffendingIDs[1]
	if realized.HasConnection(source, target) {
		return false
	}
	realized.Connections = append(realized.Connections, common.SceneConnection{
		SourceID: source,
		TargetID: target,
	})
	return true
}

// offsetEntity nudges the second offender of an overlapping pair down-right
// and clamps it back onto the canvas.
func offsetEntity(realized *common.Scene, finding common.Finding) bool {
	if len(finding.OffendingIDs) < 2 {
		return false
	}
	entity, ok := realized.Entity(finding.OffendingIDs[1])
	if !ok || entity.Position == nil {
		return false
	}

	entity.Position.X += entity.Dimensions.Width
	entity.Position.Y += entity.Dimensions.Height
	clampIntoScene(realized, entity)
	return true
}

func clampEntity(realized *common.Scene, finding common.Finding) bool {
	if len(finding.OffendingIDs) == 0 {
		return false
	}
	entity, ok := realized.Entity(finding.OffendingIDs[0])
	if !ok || entity.Position == nil {
		return false
	}
	clampIntoScene(realized, entity)
	return true
}

func clampIntoScene(realized *common.Scene, entity *common.SceneEntity) {
	halfW := entity.Dimensions.Width / 2
	halfH := entity.Dimensions.Height / 2
	if entity.Position.X < halfW {
		entity.Position.X = halfW
	}
	if entity.Position.X > realized.Width-halfW {
		entity.Position.X = realized.Width - halfW
	}
	if entity.Position.Y < halfH {
		entity.Position.Y = halfH
	}
	if entity.Position.Y > realized.Height-halfH {
		entity.Position.Y = realized.Height - halfH
	}
}
