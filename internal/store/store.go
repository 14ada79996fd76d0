// Package store persists plans, their stage audit trail, and statement
// embeddings in Postgres. Rows move queued -> processing -> complete or
// failed; the heavy planning artifacts (plan, scene, snapshot, gap report,
// refinement outcome, findings) are kept as jsonb documents on the row and
// the per-stage audit lives in plan_audit.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/skizzehq/skizze/pkg/pipeline"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrNotFound is returned when a plan id has no row.
var ErrNotFound = errors.New("plan not found")

// Status is the lifecycle state of a plan row.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Plan is one plans row. The jsonb documents stay raw so handlers can embed
// them in responses without a decode-encode round trip.
type Plan struct {
	ID           string  `json:"id"`
	Statement    string  `json:"statement"`
	Status       Status  `json:"status"`
	Title        string  `json:"title,omitempty"`
	Strategy     string  `json:"strategy,omitempty"`
	Domain       string  `json:"domain,omitempty"`
	Score        float64 `json:"complexity_score"`
	Confidence   float64 `json:"confidence"`
	RefineState  string  `json:"refine_state,omitempty"`
	ErrorMessage string  `json:"error,omitempty"`
	Archived     bool    `json:"archived"`

	Plan     json.RawMessage `json:"plan,omitempty"`
	Scene    json.RawMessage `json:"scene,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Gaps     json.RawMessage `json:"gaps,omitempty"`
	Outcome  json.RawMessage `json:"outcome,omitempty"`
	Findings json.RawMessage `json:"findings,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PlanSummary is the list-view projection of a plan row, without the jsonb
// documents.
type PlanSummary struct {
	ID         string    `json:"id"`
	Statement  string    `json:"statement"`
	Status     Status    `json:"status"`
	Title      string    `json:"title,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	Score      float64   `json:"complexity_score"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SimilarPlan is one similarity-search hit over statement embeddings.
type SimilarPlan struct {
	ID         string  `json:"id"`
	Statement  string  `json:"statement"`
	Title      string  `json:"title,omitempty"`
	Status     Status  `json:"status"`
	Similarity float64 `json:"similarity"`
}

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store reads and writes plan rows against a shared Postgres pool.
type Store struct {
	db dbConn
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// CreatePlan inserts a queued row for a new submission. The title is the
// caller's initial display title; SaveResult may replace it later.
func (s *Store) CreatePlan(ctx context.Context, id, statement, title string) (Plan, error) {
	return scanPlan(s.db.QueryRow(ctx, createPlanSQL, id, statement, StatusQueued, title))
}

// GetPlan loads one row by id.
func (s *Store) GetPlan(ctx context.Context, id string) (Plan, error) {
	plan, err := scanPlan(s.db.QueryRow(ctx, getPlanSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	return plan, err
}

// ListPlans returns recent plans, newest first.
func (s *Store) ListPlans(ctx context.Context, limit, offset int) ([]PlanSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, listPlansSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]PlanSummary, 0)
	for rows.Next() {
		var p PlanSummary
		err := rows.Scan(
			&p.ID, &p.Statement, &p.Status, &p.Title, &p.Strategy, &p.Domain,
			&p.Score, &p.Confidence, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// MarkProcessing moves a row to processing. Returns ErrNotFound when the
// plan was deleted while queued.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	var returned string
	err := s.db.QueryRow(ctx, markProcessingSQL, id, StatusProcessing).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// MarkFailed records a terminal failure with its message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	_, err := s.db.Exec(ctx, markFailedSQL, id, StatusFailed, message)
	return err
}

// SaveResult stores a finished run: the scalar projection, the jsonb
// documents, and the canonical audit trail, atomically. Audit rows written
// during the run are replaced so retried or cache-served runs end with
// exactly the trace the result carries. An empty title keeps whatever title
// the row already has.
func (s *Store) SaveResult(ctx context.Context, id, title string, res *pipeline.Result) error {
	if res == nil || res.Plan == nil {
		return fmt.Errorf("store: result has no plan")
	}

	planJSON, err := json.Marshal(res.Plan)
	if err != nil {
		return fmt.Errorf("store: marshal plan: %w", err)
	}
	sceneJSON, err := json.Marshal(res.Scene)
	if err != nil {
		return fmt.Errorf("store: marshal scene: %w", err)
	}
	snapshotJSON, err := json.Marshal(res.Snapshot)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	gapsJSON, err := json.Marshal(res.Gaps)
	if err != nil {
		return fmt.Errorf("store: marshal gaps: %w", err)
	}
	outcomeJSON, err := json.Marshal(res.Outcome)
	if err != nil {
		return fmt.Errorf("store: marshal outcome: %w", err)
	}
	findingsJSON, err := json.Marshal(res.Findings)
	if err != nil {
		return fmt.Errorf("store: marshal findings: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, saveResultSQL,
		id,
		StatusComplete,
		title,
		string(res.Plan.Strategy),
		string(res.Plan.Domain),
		res.Plan.ComplexityScore,
		res.Outcome.Confidence,
		string(res.Outcome.State),
		planJSON,
		sceneJSON,
		snapshotJSON,
		gapsJSON,
		outcomeJSON,
		findingsJSON,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, deleteAuditSQL, id); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, entry := range res.Trace {
		summaryJSON, err := json.Marshal(entry.Summary)
		if err != nil {
			return fmt.Errorf("store: marshal audit summary: %w", err)
		}
		entryFindingsJSON, err := json.Marshal(entry.Findings)
		if err != nil {
			return fmt.Errorf("store: marshal audit findings: %w", err)
		}
		batch.Queue(insertAuditSQL, id, entry.Stage, entry.DurationMs, summaryJSON, entryFindingsJSON)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpdateEmbedding stores the statement embedding used by similarity search.
func (s *Store) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := s.db.Exec(ctx, updateEmbeddingSQL, id, pgvector.NewVector(embedding))
	return err
}

// MarkArchived records that the result document was written to object
// storage.
func (s *Store) MarkArchived(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, markArchivedSQL, id)
	return err
}

// SimilarPlans returns the plans whose statement embeddings sit closest to
// the given one, by cosine similarity.
func (s *Store) SimilarPlans(ctx context.Context, embedding []float32, limit int) ([]SimilarPlan, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(ctx, similarPlansSQL, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]SimilarPlan, 0, limit)
	for rows.Next() {
		var p SimilarPlan
		if err := rows.Scan(&p.ID, &p.Statement, &p.Title, &p.Status, &p.Similarity); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// AppendAudit writes one stage record as a run progresses. SaveResult later
// replaces these with the canonical trace.
func (s *Store) AppendAudit(ctx context.Context, id string, entry pipeline.TraceEntry) error {
	summaryJSON, err := json.Marshal(entry.Summary)
	if err != nil {
		return fmt.Errorf("store: marshal audit summary: %w", err)
	}
	findingsJSON, err := json.Marshal(entry.Findings)
	if err != nil {
		return fmt.Errorf("store: marshal audit findings: %w", err)
	}
	_, err = s.db.Exec(ctx, insertAuditSQL, id, entry.Stage, entry.DurationMs, summaryJSON, findingsJSON)
	return err
}

// ListAudit returns the stage trail of a plan in write order.
func (s *Store) ListAudit(ctx context.Context, id string) ([]pipeline.TraceEntry, error) {
	rows, err := s.db.Query(ctx, listAuditSQL, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]pipeline.TraceEntry, 0)
	for rows.Next() {
		var (
			entry        pipeline.TraceEntry
			summaryJSON  []byte
			findingsJSON []byte
		)
		if err := rows.Scan(&entry.Stage, &entry.DurationMs, &summaryJSON, &findingsJSON); err != nil {
			return nil, err
		}
		if len(summaryJSON) > 0 {
			if err := json.Unmarshal(summaryJSON, &entry.Summary); err != nil {
				return nil, fmt.Errorf("store: unmarshal audit summary: %w", err)
			}
		}
		if len(findingsJSON) > 0 {
			if err := json.Unmarshal(findingsJSON, &entry.Findings); err != nil {
				return nil, fmt.Errorf("store: unmarshal audit findings: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// StalePlan identifies a processing row whose worker died before finishing.
type StalePlan struct {
	ID        string
	Statement string
}

// ResetStalePlans moves processing plans with no live lease back to queued
// and returns them so callers can requeue the jobs.
func (s *Store) ResetStalePlans(ctx context.Context) ([]StalePlan, error) {
	rows, err := s.db.Query(ctx, resetStalePlansSQL, StatusProcessing, StatusQueued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stale := make([]StalePlan, 0)
	for rows.Next() {
		var p StalePlan
		if err := rows.Scan(&p.ID, &p.Statement); err != nil {
			return nil, err
		}
		stale = append(stale, p)
	}
	return stale, rows.Err()
}

// DeletePlan removes the row and, via cascade, its audit trail.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	var returned string
	err := s.db.QueryRow(ctx, deletePlanSQL, id).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const planColumns = `
	id, statement, status, title, strategy, domain, complexity_score,
	confidence, refine_state, error_message, archived,
	plan, scene, snapshot, gaps, outcome, findings,
	created_at, updated_at, completed_at`

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	err := row.Scan(
		&p.ID, &p.Statement, &p.Status, &p.Title, &p.Strategy, &p.Domain, &p.Score,
		&p.Confidence, &p.RefineState, &p.ErrorMessage, &p.Archived,
		&p.Plan, &p.Scene, &p.Snapshot, &p.Gaps, &p.Outcome, &p.Findings,
		&p.CreatedAt, &p.UpdatedAt, &p.CompletedAt,
	)
	return p, err
}

const createPlanSQL = `
INSERT INTO plans (id, statement, status, title)
VALUES ($1, $2, $3, $4)
RETURNING` + planColumns + `;
`

const getPlanSQL = `
SELECT` + planColumns + `
FROM plans
WHERE id = $1;
`

const listPlansSQL = `
SELECT id, statement, status, title, strategy, domain, complexity_score,
       confidence, created_at, updated_at
FROM plans
ORDER BY created_at DESC
LIMIT $1 OFFSET $2;
`

const markProcessingSQL = `
UPDATE plans
SET status = $2, error_message = '', updated_at = now()
WHERE id = $1
RETURNING id;
`

const markFailedSQL = `
UPDATE plans
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1;
`

const saveResultSQL = `
UPDATE plans
SET status           = $2,
    title            = COALESCE(NULLIF($3, ''), title),
    strategy         = $4,
    domain           = $5,
    complexity_score = $6,
    confidence       = $7,
    refine_state     = $8,
    error_message    = '',
    plan             = $9,
    scene            = $10,
    snapshot         = $11,
    gaps             = $12,
    outcome          = $13,
    findings         = $14,
    completed_at     = now(),
    updated_at       = now()
WHERE id = $1;
`

const updateEmbeddingSQL = `
UPDATE plans
SET embedding = $2, updated_at = now()
WHERE id = $1;
`

const markArchivedSQL = `
UPDATE plans
SET archived = TRUE, updated_at = now()
WHERE id = $1;
`

const similarPlansSQL = `
SELECT id, statement, title, status, 1 - (embedding <=> $1) AS similarity
FROM plans
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $2;
`

const deleteAuditSQL = `
DELETE FROM plan_audit
WHERE plan_id = $1;
`

const insertAuditSQL = `
INSERT INTO plan_audit (plan_id, stage, duration_ms, summary, findings)
VALUES ($1, $2, $3, $4, $5);
`

const listAuditSQL = `
SELECT stage, duration_ms, summary, findings
FROM plan_audit
WHERE plan_id = $1
ORDER BY id;
`

const resetStalePlansSQL = `
UPDATE plans
SET status = $2, updated_at = now()
WHERE id IN (
    SELECT p.id
    FROM plans p
    LEFT JOIN plan_locks l ON l.plan_key = 'plan:' || p.id
    WHERE p.status = $1 AND (l.plan_key IS NULL OR l.expires_at < now())
)
RETURNING id, statement;
`

const deletePlanSQL = `
DELETE FROM plans
WHERE id = $1
RETURNING id;
`
