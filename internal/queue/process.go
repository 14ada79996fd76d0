package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skizzehq/skizze/internal/storage"
	"github.com/skizzehq/skizze/internal/store"
	"github.com/skizzehq/skizze/internal/timing"
	"github.com/skizzehq/skizze/internal/util"
	"github.com/skizzehq/skizze/pkg/ai"
	"github.com/skizzehq/skizze/pkg/cache"
	"github.com/skizzehq/skizze/pkg/extract"
	"github.com/skizzehq/skizze/pkg/extract/llm"
	"github.com/skizzehq/skizze/pkg/leaselock"
	"github.com/skizzehq/skizze/pkg/logger"
	"github.com/skizzehq/skizze/pkg/pipeline"
	"github.com/skizzehq/skizze/pkg/refine"
	"github.com/skizzehq/skizze/pkg/solver"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// Processor turns queued plan jobs into finished plans. The extractor
// runner, solver chain, refinement loop and result cache are shared across
// jobs; each job gets its own planner bound to an audit sink for its row.
type Processor struct {
	conn  *pgxpool.Pool
	ch    *amqp091.Channel
	s3    *awss3.Client
	model ai.ModelClient

	store        *store.Store
	locks        *leaselock.Client
	runner       *extract.Runner
	orchestrator *solver.Orchestrator
	loop         *refine.Loop
	cache        *cache.Cache[*pipeline.Result]
	extractors   []string
}

// NewProcessorParams contains the shared clients a Processor works with.
// Model may be nil, which drops the model-backed extractor, titles and
// embeddings but still produces plans.
type NewProcessorParams struct {
	Conn      *pgxpool.Pool
	Channel   *amqp091.Channel
	S3        *awss3.Client
	Model     ai.ModelClient
	CacheSize int
}

func NewProcessor(params NewProcessorParams) (*Processor, error) {
	registry := extract.DefaultRegistry()
	extractors := []string{extract.LexicalName}
	if params.Model != nil {
		if err := registry.Register(llm.NewExtractor(llm.NewExtractorParams{Client: params.Model})); err != nil {
			return nil, err
		}
		extractors = append(extractors, llm.ExtractorName)
	}

	resultCache, err := pipeline.NewResultCache(params.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Processor{
		conn:         params.Conn,
		ch:           params.Channel,
		s3:           params.S3,
		model:        params.Model,
		store:        store.New(params.Conn),
		locks:        leaselock.New(params.Conn),
		runner:       extract.NewRunner(extract.NewRunnerParams{Registry: registry}),
		orchestrator: solver.NewOrchestrator(solver.NewOrchestratorParams{
			Timeout: util.GetEnvDuration("SOLVER_TIMEOUT", solver.DefaultBackendTimeout),
		}),
		loop:       refine.NewLoop(refine.NewLoopParams{}),
		cache:      resultCache,
		extractors: extractors,
	}, nil
}

// planSink writes stage audit rows, stage timing stats and progress events
// for one job. The pipeline stamps entries with its own run id, audit rows
// key on the submission row instead.
type planSink struct {
	planID      string
	conn        *pgxpool.Pool
	store       *store.Store
	ch          *amqp091.Channel
	predictions map[string]int64
	completed   []string
}

func (s *planSink) Record(ctx context.Context, _ string, entry pipeline.TraceEntry) {
	if err := s.store.AppendAudit(ctx, s.planID, entry); err != nil {
		logger.Warn("[Queue] Failed to append audit record", "plan", s.planID, "stage", entry.Stage, "err", err)
	}
	if err := timing.AddStageTime(ctx, s.conn, entry.Stage, entry.DurationMs); err != nil {
		logger.Warn("[Queue] Failed to record stage time", "plan", s.planID, "stage", entry.Stage, "err", err)
	}

	s.completed = append(s.completed, entry.Stage)
	progress, remaining := timing.Progress(s.completed, s.predictions)
	PublishPlanStatus(s.ch, PlanStatusMsg{
		PlanID:      s.planID,
		Status:      string(store.StatusProcessing),
		Progress:    progress,
		RemainingMs: remaining,
	})
}

func (p *Processor) ProcessPlanMessage(ctx context.Context, msg string) (err error) {
	data := new(PlanJobMsg)
	if err = json.Unmarshal([]byte(msg), &data); err != nil {
		return err
	}
	planID := data.PlanID

	defer func() {
		if err == nil {
			return
		}
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if updateErr := p.store.MarkFailed(updateCtx, planID, err.Error()); updateErr != nil {
			logger.Warn("[Queue] Failed to mark plan as failed", "plan", planID, "err", updateErr)
		}
		PublishPlanStatus(p.ch, PlanStatusMsg{
			PlanID: planID,
			Status: string(store.StatusFailed),
			Error:  err.Error(),
		})
	}()

	lease, err := p.locks.Acquire(ctx, leaselock.PlanKey(planID), leaselock.Options{
		HolderPrefix: fmt.Sprintf("plan-worker/%s/", planID),
	})
	if err != nil {
		if errors.Is(err, leaselock.ErrBusy) {
			logger.Info("[Queue] Skipping plan: already claimed by another worker", "plan", planID)
			return nil
		}
		return err
	}
	defer func() {
		if releaseErr := lease.Release(context.Background()); releaseErr != nil {
			logger.Warn("[Queue] Failed to release plan lease", "plan", planID, "err", releaseErr)
		}
	}()

	if err = p.store.MarkProcessing(ctx, planID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Info("[Queue] Skipping plan: deleted while queued", "plan", planID)
			return nil
		}
		return err
	}

	predictions, predErr := timing.PredictStageTimes(ctx, p.conn)
	if predErr != nil {
		logger.Warn("[Queue] Failed to predict stage times", "plan", planID, "err", predErr)
		predictions = nil
	}
	_, remaining := timing.Progress(nil, predictions)
	logger.Info("[Queue] Starting plan run", "plan", planID, "estimated_ms", remaining)
	PublishPlanStatus(p.ch, PlanStatusMsg{
		PlanID:      planID,
		Status:      string(store.StatusProcessing),
		RemainingMs: remaining,
	})

	sink := &planSink{
		planID:      planID,
		conn:        p.conn,
		store:       p.store,
		ch:          p.ch,
		predictions: predictions,
	}
	planner := pipeline.NewPlanner(pipeline.NewPlannerParams{
		Runner:       p.runner,
		Orchestrator: p.orchestrator,
		Loop:         p.loop,
		Cache:        p.cache,
		Sink:         sink,
		Extractors:   p.extractors,
	})

	res, err := planner.Plan(lease.Context, data.Statement)
	if err != nil {
		return err
	}
	// The cache hands out deep copies, so re-stamping with the submission id
	// never leaks into other requests for the same statement.
	res.Plan.ID = planID

	title := p.generateTitle(ctx, data.Statement)

	if err = p.store.SaveResult(ctx, planID, title, res); err != nil {
		return err
	}

	if p.model != nil {
		embedding, embedErr := p.model.GenerateEmbedding(ctx, []byte(data.Statement))
		if embedErr != nil {
			logger.Warn("[Queue] Failed to embed statement", "plan", planID, "err", embedErr)
		} else if embedErr := p.store.UpdateEmbedding(ctx, planID, embedding); embedErr != nil {
			logger.Warn("[Queue] Failed to store statement embedding", "plan", planID, "err", embedErr)
		}
	}

	p.archiveResult(ctx, planID, res)

	PublishPlanStatus(p.ch, PlanStatusMsg{
		PlanID:     planID,
		Status:     string(store.StatusComplete),
		Progress:   1,
		Confidence: res.Outcome.Confidence,
	})
	logger.Info("[Queue] Plan run finished",
		"plan", planID,
		"strategy", res.Plan.Strategy,
		"state", res.Outcome.State,
		"confidence", res.Outcome.Confidence,
	)

	return nil
}

func (p *Processor) generateTitle(ctx context.Context, statement string) string {
	if p.model == nil {
		return ""
	}
	title, err := p.model.GenerateCompletion(ctx, fmt.Sprintf(ai.PlanTitlePrompt, statement))
	if err != nil {
		logger.Warn("[Queue] Failed to generate plan title", "err", err)
		return ""
	}
	return strings.Trim(strings.TrimSpace(title), `"`)
}

// archiveResult writes the result document to object storage. Archival is
// best effort, the row already holds the canonical result.
func (p *Processor) archiveResult(ctx context.Context, planID string, res *pipeline.Result) {
	if p.s3 == nil {
		return
	}
	doc, err := json.Marshal(res)
	if err != nil {
		logger.Warn("[Queue] Failed to encode result for archival", "plan", planID, "err", err)
		return
	}
	if err := storage.PutPlanResult(ctx, p.s3, planID, doc); err != nil {
		logger.Warn("[Queue] Failed to archive plan result", "plan", planID, "err", err)
		return
	}
	if err := p.store.MarkArchived(ctx, planID); err != nil {
		logger.Warn("[Queue] Failed to mark plan as archived", "plan", planID, "err", err)
	}
}
