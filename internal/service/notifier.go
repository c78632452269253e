package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-results/internal/models"
	"github.com/noah-isme/sma-exam-results/pkg/jobs"
)

const publicationEventJob = "publication_event"

type eventPublisher interface {
	Publish(ctx context.Context, payload interface{}) (int64, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Notifier hands publication events to a background queue that fans them out to subscribers.
type Notifier struct {
	queue  jobEnqueuer
	logger *zap.Logger
}

// NewNotifier wraps the queue. A nil queue makes Notify a no-op.
func NewNotifier(queue jobEnqueuer, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{queue: queue, logger: logger}
}

// Notify enqueues the event. Delivery happens asynchronously.
func (n *Notifier) Notify(ctx context.Context, event models.PublicationEvent) error {
	if n == nil || n.queue == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.queue.Enqueue(jobs.Job{Type: publicationEventJob, Payload: event}); err != nil {
		return fmt.Errorf("enqueue publication event: %w", err)
	}
	n.logger.Debug("publication event queued",
		zap.String("examination_id", event.ExaminationID),
		zap.String("action", string(event.Action)))
	return nil
}

// PublicationEventHandler returns the queue handler that publishes events through the publisher.
func PublicationEventHandler(publisher eventPublisher, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.PublicationEvent)
		if !ok {
			logger.Error("unexpected job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
			return nil
		}
		receivers, err := publisher.Publish(ctx, event)
		if err != nil {
			return err
		}
		logger.Info("publication event delivered",
			zap.String("examination_id", event.ExaminationID),
			zap.String("action", string(event.Action)),
			zap.Int64("receivers", receivers))
		return nil
	}
}
