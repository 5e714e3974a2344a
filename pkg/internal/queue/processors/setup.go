package processors

import (
	"context"

	"github.com/fernwood-social/fernwood/pkg/internal/queue"
	"github.com/spf13/viper"
)

// Setup binds the job handlers to their queues. Rates are jobs per second.
func Setup() {
	queue.Deliver = queue.NewQueue("deliver", viper.GetInt("queues.deliver_rate"), ProcessDeliver)
	queue.Inbox = queue.NewQueue("inbox", viper.GetInt("queues.inbox_rate"), ProcessInbox)
}

// Run starts both queue workers until the context is cancelled.
func Run(ctx context.Context) {
	go queue.Deliver.Run(ctx)
	go queue.Inbox.Run(ctx)
}

// PumpRetries re-queues due retries of both queues; invoked by the scheduler.
func PumpRetries(ctx context.Context) {
	queue.Deliver.PumpRetries(ctx)
	queue.Inbox.PumpRetries(ctx)
}
