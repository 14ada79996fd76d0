package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultExtractorTimeout bounds a single adapter call.
	DefaultExtractorTimeout = 30 * time.Second
	// DefaultMaxParallel bounds how many adapters run at once.
	DefaultMaxParallel = 4
)

// SourceExtraction pairs an adapter's output with its name so fusion can
// record provenance per source.
type SourceExtraction struct {
	Source     string
	Extraction common.Extraction
}

// Runner fans extraction adapters out concurrently and collects their
// results at a barrier. A failing or timed-out adapter contributes nothing
// except a source_failure finding; the run itself only fails when the
// request context is done or the active set names an unknown extractor.
type Runner struct {
	registry    *Registry
	timeout     time.Duration
	maxParallel int
}

// NewRunnerParams contains configuration options for creating a Runner.
// Zero values fall back to defaults.
type NewRunnerParams struct {
	Registry    *Registry
	Timeout     time.Duration
	MaxParallel int
}

// NewRunner creates a Runner over the given registry.
func NewRunner(params NewRunnerParams) *Runner {
	registry := params.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultExtractorTimeout
	}
	maxParallel := params.MaxParallel
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &Runner{registry: registry, timeout: timeout, maxParallel: maxParallel}
}

// Run executes the named extractors against text. Results come back in the
// order of names, skipping failed adapters, so downstream fusion stays
// deterministic for a fixed active set.
func (r *Runner) Run(
	ctx context.Context,
	text string,
	names []string,
) ([]SourceExtraction, []common.Finding, error) {
	extractors, err := r.registry.Resolve(names)
	if err != nil {
		return nil, nil, err
	}

	results := make([]*common.Extraction, len(extractors))
	failures := make([]error, len(extractors))

	var eg errgroup.Group
	eg.SetLimit(r.maxParallel)

	start := time.Now()
	for i, ex := range extractors {
		eg.Go(func() error {
			eCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			extraction, err := safeExtract(eCtx, ex, text)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = &extraction
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]SourceExtraction, 0, len(extractors))
	var findings []common.Finding
	for i, ex := range extractors {
		if failures[i] != nil {
			logger.Warn("[Extract] adapter failed", "extractor", ex.Name(), "err", failures[i])
			findings = append(findings, common.Finding{
				Severity: common.SeverityWarning,
				Code:     common.CodeSourceFailure,
				Message:  fmt.Sprintf("extractor %s failed: %v", ex.Name(), failures[i]),
			})
			continue
		}
		out = append(out, SourceExtraction{Source: ex.Name(), Extraction: *results[i]})
	}

	logger.Debug("[Extract] barrier reached",
		"requested", len(extractors),
		"succeeded", len(out),
		"duration", time.Since(start),
	)
	return out, findings, nil
}

// safeExtract isolates adapter panics so one broken adapter cannot take the
// whole barrier down.
func safeExtract(ctx context.Context, ex Extractor, text string) (extraction common.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			extraction = common.Extraction{}
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()
	return ex.Extract(ctx, text)
}
