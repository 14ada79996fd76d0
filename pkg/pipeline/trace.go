package pipeline

import (
	"context"
	"time"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"
)

// Stage names used in trace entries, in pipeline order.
const (
	StageExtract = "extract"
	StageFuse    = "fuse"
	StageEnrich  = "enrich"
	StageAssess  = "assess"
	StageSolve   = "solve"
	StageRealize = "realize"
	StageRefine  = "refine"
)

// Stages returns the canonical stage sequence of a full run. A run that
// re-assesses after a dead solver chain repeats the solve stage, so traces
// may hold more entries than this.
func Stages() []string {
	return []string{
		StageExtract,
		StageFuse,
		StageEnrich,
		StageAssess,
		StageSolve,
		StageRealize,
		StageRefine,
	}
}

// TraceEntry is one structured audit record for one pipeline stage: plain
// data only, so sinks can log it, store it, or ship it without knowing the
// stage internals.
type TraceEntry struct {
	Stage      string            `json:"stage"`
	DurationMs int64             `json:"duration_ms"`
	Summary    map[string]string `json:"summary,omitempty"`
	Findings   []common.Finding  `json:"findings,omitempty"`
}

// TraceSink receives trace entries as stages finish. Implementations must not
// block the pipeline on slow transports; Record has no error return because a
// failed audit write never fails the request.
type TraceSink interface {
	Record(ctx context.Context, planID string, entry TraceEntry)
}

// LoggerSink writes trace entries to the application log.
type LoggerSink struct{}

func (LoggerSink) Record(_ context.Context, planID string, entry TraceEntry) {
	logger.Debug("[Pipeline] Stage finished",
		"plan", planID,
		"stage", entry.Stage,
		"duration_ms", entry.DurationMs,
		"findings", len(entry.Findings),
	)
}

// tracer accumulates entries for the result and forwards each to the sink as
// it happens.
type tracer struct {
	sink    TraceSink
	planID  string
	entries []TraceEntry
}

func (t *tracer) record(ctx context.Context, stage string, started time.Time, summary map[string]string, findings []common.Finding) {
	entry := TraceEntry{
		Stage:      stage,
		DurationMs: time.Since(started).Milliseconds(),
		Summary:    summary,
		Findings:   findings,
	}
	t.entries = append(t.entries, entry)
	if t.sink != nil {
		t.sink.Record(ctx, t.planID, entry)
	}
}
