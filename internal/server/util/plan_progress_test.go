package util

import (
	"reflect"
	"testing"

	"github.com/skizzehq/skizze/pkg/pipeline"
)

func TestCompletedStages(t *testing.T) {
	t.Parallel()

	entries := []pipeline.TraceEntry{
		{Stage: pipeline.StageExtract},
		{Stage: pipeline.StageFuse},
		{Stage: pipeline.StageRefine},
		{Stage: pipeline.StageRefine},
	}

	got := CompletedStages(entries)
	want := []string{"extract", "fuse", "refine", "refine"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCompletedStages_EmptyAudit(t *testing.T) {
	t.Parallel()

	if got := CompletedStages(nil); len(got) != 0 {
		t.Fatalf("expected no stages, got %v", got)
	}
}
