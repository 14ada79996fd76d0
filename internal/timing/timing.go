// Package timing records how long pipeline stages take and estimates the
// progress and remaining time of in-flight runs from recent history.
package timing

import (
	"context"

	"github.com/skizzehq/skizze/pkg/pipeline"

	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultStageMs stands in for stages with no recorded history yet.
const defaultStageMs int64 = 2000

// maxProgress caps estimates below 1.0; only the final status message
// reports a finished run.
const maxProgress = 0.99

// recentSamples bounds how much history feeds each stage average.
const recentSamples = 50

// AddStageTime records one finished stage duration.
func AddStageTime(ctx context.Context, conn *pgxpool.Pool, stage string, durationMs int64) error {
	_, err := conn.Exec(ctx, addStageTimeSQL, stage, durationMs)
	return err
}

// PredictStageTimes averages the most recent samples per stage.
func PredictStageTimes(ctx context.Context, conn *pgxpool.Pool) (map[string]int64, error) {
	rows, err := conn.Query(ctx, predictStageTimesSQL, recentSamples)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make(map[string]int64)
	for rows.Next() {
		var (
			stage string
			avg   int64
		)
		if err := rows.Scan(&stage, &avg); err != nil {
			return nil, err
		}
		predictions[stage] = avg
	}
	return predictions, rows.Err()
}

// Progress estimates how far a run has come from the stages it already
// finished. Completed stage names may repeat when a run re-assesses, so each
// occurrence counts. Returns a fraction in [0, 0.99] and the estimated
// remaining milliseconds.
func Progress(completed []string, predictions map[string]int64) (float64, int64) {
	var total int64
	for _, stage := range pipeline.Stages() {
		total += stageEstimate(stage, predictions)
	}
	if total <= 0 {
		return 0, 0
	}

	var done int64
	for _, stage := range completed {
		done += stageEstimate(stage, predictions)
	}
	if done >= total {
		return maxProgress, 0
	}
	return float64(done) / float64(total), total - done
}

func stageEstimate(stage string, predictions map[string]int64) int64 {
	if ms, ok := predictions[stage]; ok && ms > 0 {
		return ms
	}
	return defaultStageMs
}

const addStageTimeSQL = `
INSERT INTO plan_stage_stats (stage, duration_ms)
VALUES ($1, $2);
`

const predictStageTimesSQL = `
SELECT stage, AVG(duration_ms)::bigint
FROM (
    SELECT stage, duration_ms,
           row_number() OVER (PARTITION BY stage ORDER BY id DESC) AS rn
    FROM plan_stage_stats
) recent
WHERE rn <= $1
GROUP BY stage;
`
