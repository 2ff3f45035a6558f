package worker

import (
	"context"
	"time"

	"newsboard/internal/model"

	"go.uber.org/zap"
)

// Queue is where prefetch jobs come from.
type Queue interface {
	PopJob(ctx context.Context) (model.Job, error)
}

// Refresher re-fetches a filter and stores the result.
// This allows us to mock the upstream step in tests.
type Refresher interface {
	Refresh(ctx context.Context, f model.Filter) (*model.Entry, error)
}

type Worker struct {
	queue     Queue
	refresher Refresher
	logger    *zap.Logger
}

func NewWorker(queue Queue, refresher Refresher, logger *zap.Logger) *Worker {
	return &Worker{
		queue:     queue,
		refresher: refresher,
		logger:    logger,
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Prefetch worker started. Waiting for jobs...")

	for {
		job, err := w.queue.PopJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker shutting down")
				return
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				w.logger.Info("Worker shutting down")
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job model.Job) {
	logger := w.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.Stringer("filter", job.Filter))
	logger.Info("Prefetch started", zap.Duration("queued_for", time.Since(job.QueuedAt)))

	entry, err := w.refresher.Refresh(ctx, job.Filter)
	if err != nil {
		logger.Error("Prefetch failed", zap.Error(err))
		return
	}

	logger.Info("Prefetch complete", zap.Int("articles", len(entry.Headlines.Articles)))
}
