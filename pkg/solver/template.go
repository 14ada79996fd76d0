package solver

import (
	"context"
	"math"

	"github.com/skizzehq/skizze/pkg/common"
)

// rowCapacity is the largest entity count the row template holds before the
// placement switches to a ring.
const rowCapacity = 6

type templateBackend struct{}

// NewTemplateBackend returns the template back-end: free entities go on a
// centered row, or on a ring once the row would overflow. It always
// satisfies, which makes it the terminal link of the HYBRID chain.
func NewTemplateBackend() Backend {
	return templateBackend{}
}

func (templateBackend) Name() string {
	return BackendTemplate
}

func (templateBackend) Solve(ctx context.Context, req Request) (map[string]common.Position, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	free := req.Free()
	positions := make(map[string]common.Position, len(free))
	if len(free) == 0 {
		return positions, true, nil
	}

	if len(free) <= rowCapacity {
		spacing := (common.CanvasWidth - 2*common.CanvasMargin) / float64(len(free)+1)
		for i, entity := range free {
			positions[entity.ID] = common.Position{
				X: common.CanvasMargin + spacing*float64(i+1),
				Y: common.CanvasHeight / 2,
			}
		}
		return positions, true, nil
	}

	centerX := common.CanvasWidth / 2
	centerY := common.CanvasHeight / 2
	radius := math.Min(centerX, centerY) - common.CanvasMargin
	for i, entity := range free {
		angle := 2 * math.Pi * float64(i) / float64(len(free))
		positions[entity.ID] = common.Position{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		}
	}
	return positions, true, nil
}
