// Package events publishes job lifecycle events to RabbitMQ for downstream
// consumers.
package events

import (
	"context"
	"time"
)

// JobStatusEvent is published on every job status transition.
type JobStatusEvent struct {
	JobID      string    `json:"job_id"`
	Reference  string    `json:"reference"`
	CustomerID string    `json:"customer_id"`
	WorkerID   string    `json:"worker_id,omitempty"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoutingKey is job.status.<to>, e.g. job.status.in-progress.
func (e JobStatusEvent) RoutingKey() string {
	return "job.status." + e.To
}

// Publisher sends job events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishJobStatus(ctx context.Context, e JobStatusEvent) error
}

// Nop drops events. Used when RABBITMQ_URL is unset and in tests.
type Nop struct{}

func (Nop) PublishJobStatus(context.Context, JobStatusEvent) error { return nil }
