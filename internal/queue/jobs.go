package queue

import (
	"encoding/json"

	"github.com/skizzehq/skizze/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// PlanJobMsg is the work order a queued plan submission places on PlanQueue.
type PlanJobMsg struct {
	PlanID    string `json:"plan_id"`
	Statement string `json:"statement"`
}

// PlanStatusMsg is one progress event on the plan events exchange, published
// under the routing key plans.<plan_id>.
type PlanStatusMsg struct {
	PlanID      string  `json:"plan_id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	RemainingMs int64   `json:"remaining_ms,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Error       string  `json:"error,omitempty"`
}

func PublishPlanJob(ch *amqp091.Channel, planID, statement string) error {
	body, err := json.Marshal(PlanJobMsg{PlanID: planID, Statement: statement})
	if err != nil {
		return err
	}
	return PublishFIFO(ch, PlanQueue, body)
}

// PublishPlanStatus pushes a status event to subscribers. Status delivery is
// best effort, a lost event never fails the run itself.
func PublishPlanStatus(ch *amqp091.Channel, msg PlanStatusMsg) {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("[Queue] Failed to encode status event", "plan", msg.PlanID, "err", err)
		return
	}
	if err := PublishTopic(ch, "plans."+msg.PlanID, body); err != nil {
		logger.Warn("[Queue] Failed to publish status event", "plan", msg.PlanID, "err", err)
	}
}
