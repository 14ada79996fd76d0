package util

import "github.com/skizzehq/skizze/pkg/pipeline"

// CompletedStages lists the stage names recorded in a plan's audit trail, in
// order. Repeats stay repeated so extra refinement or solve passes count
// toward progress individually.
func CompletedStages(entries []pipeline.TraceEntry) []string {
	stages := make([]string, 0, len(entries))
	for _, entry := range entries {
		stages = append(stages, entry.Stage)
	}

	return stages
}
