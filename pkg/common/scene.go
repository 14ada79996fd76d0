package common

// Default canvas geometry shared by the solver back-ends, the heuristic
// layout stage, and the domain checkers.
const (
	CanvasWidth  = 960.0
	CanvasHeight = 600.0
	CanvasMargin = 60.0

	EntityWidth  = 120.0
	EntityHeight = 60.0
)

// Dimensions is the rendered width and height of a scene entity.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SceneEntity is the realized counterpart of a plan entity. Position is nil
// until a solver or the heuristic layout stage places it. Scene entities are
// mutated only by the solver orchestrator and the refinement loop.
type SceneEntity struct {
	ID         string            `json:"id"`
	Position   *Position         `json:"position,omitempty"`
	Dimensions Dimensions        `json:"dimensions"`
	Style      map[string]string `json:"style,omitempty"`
}

// SceneConnection is a rendered connection between two scene entities,
// realized from a plan relation.
type SceneConnection struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label,omitempty"`
}

// Scene is the externally realized layout the refinement loop reconciles
// against the plan.
type Scene struct {
	Entities    []*SceneEntity    `json:"entities"`
	Connections []SceneConnection `json:"connections,omitempty"`
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
}

// Entity returns the scene entity with the given id, if present.
func (s *Scene) Entity(id string) (*SceneEntity, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// HasConnection reports whether the scene renders a connection between the
// two ids in either direction.
func (s *Scene) HasConnection(sourceID, targetID string) bool {
	for _, c := range s.Connections {
		if (c.SourceID == sourceID && c.TargetID == targetID) ||
			(c.SourceID == targetID && c.TargetID == sourceID) {
			return true
		}
	}
	return false
}
