package timing

import (
	"math"
	"testing"

	"github.com/skizzehq/skizze/pkg/pipeline"
)

func TestProgress_NoStagesCompleted(t *testing.T) {
	progress, remaining := Progress(nil, nil)

	if progress != 0 {
		t.Fatalf("expected progress 0, got %f", progress)
	}
	expected := defaultStageMs * int64(len(pipeline.Stages()))
	if remaining != expected {
		t.Fatalf("expected remaining %d, got %d", expected, remaining)
	}
}

func TestProgress_UsesPredictionsOverDefaults(t *testing.T) {
	predictions := make(map[string]int64)
	for _, stage := range pipeline.Stages() {
		predictions[stage] = 1000
	}

	progress, remaining := Progress(pipeline.Stages()[:3], predictions)

	want := 3.0 / float64(len(pipeline.Stages()))
	if math.Abs(progress-want) > 1e-9 {
		t.Fatalf("expected progress %f, got %f", want, progress)
	}
	if remaining != 4000 {
		t.Fatalf("expected remaining 4000, got %d", remaining)
	}
}

func TestProgress_RepeatedStageCountsTwice(t *testing.T) {
	predictions := map[string]int64{"solve": 5000}

	once, _ := Progress([]string{"solve"}, predictions)
	twice, _ := Progress([]string{"solve", "solve"}, predictions)

	if twice <= once {
		t.Fatalf("expected repeated stage to advance progress, got %f then %f", once, twice)
	}
}

func TestProgress_CapsBelowComplete(t *testing.T) {
	completed := append(pipeline.Stages(), "solve")

	progress, remaining := Progress(completed, nil)

	if progress != maxProgress {
		t.Fatalf("expected capped progress %f, got %f", maxProgress, progress)
	}
	if remaining != 0 {
		t.Fatalf("expected no remaining time, got %d", remaining)
	}
}

func TestStageEstimate_IgnoresNonPositiveHistory(t *testing.T) {
	if got := stageEstimate("fuse", map[string]int64{"fuse": 0}); got != defaultStageMs {
		t.Fatalf("expected default estimate, got %d", got)
	}
	if got := stageEstimate("fuse", map[string]int64{"fuse": 350}); got != 350 {
		t.Fatalf("expected recorded estimate, got %d", got)
	}
}
