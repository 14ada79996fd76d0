package queue

import (
	"context"
	"fmt"

	"github.com/skizzehq/skizze/internal/store"
	"github.com/skizzehq/skizze/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// RecoverStalePlans requeues plans a dead worker left behind: rows still in
// processing whose lease expired or vanished. Run at worker startup, before
// consuming.
func RecoverStalePlans(ctx context.Context, ch *amqp091.Channel, conn *pgxpool.Pool) error {
	s := store.New(conn)

	stale, err := s.ResetStalePlans(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset stale plans: %w", err)
	}

	if len(stale) == 0 {
		logger.Debug("[Queue] No stale plans found")
		return nil
	}

	logger.Info("[Queue] Requeueing stale plans", "count", len(stale))

	for _, plan := range stale {
		if err := PublishPlanJob(ch, plan.ID, plan.Statement); err != nil {
			logger.Error("[Queue] Failed to requeue stale plan", "plan", plan.ID, "err", err)
			continue
		}
		logger.Info("[Queue] Requeued stale plan", "plan", plan.ID)
	}

	return nil
}
