// Package worker relays audit events from the postgres outbox to Kafka.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"janani/pkg/platform/audit/store/postgres"
)

const defaultBatchSize = 100

// Sink is where relayed events go. Satisfied by the kafka producer.
type Sink interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Worker polls the outbox and ships unpublished entries to the sink. Entries
// are only marked published after the sink confirms, so a crash re-delivers
// rather than drops; consumers must tolerate duplicates.
type Worker struct {
	outbox   *postgres.Store
	sink     Sink
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(outbox *postgres.Store, sink Sink, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{outbox: outbox, sink: sink, interval: interval, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				// Transient broker or database trouble: log and retry on the
				// next tick instead of killing the process.
				w.logger.Error("audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		entries, err := w.outbox.FetchUnpublished(ctx, defaultBatchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		published := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			if err := w.sink.Publish(ctx, []byte(entry.ID.String()), entry.Payload); err != nil {
				// Keep ordering: stop at the first failure and mark only what
				// made it out.
				if markErr := w.outbox.MarkPublished(ctx, published); markErr != nil {
					w.logger.Error("mark published failed", "error", markErr)
				}
				return err
			}
			published = append(published, entry.ID)
		}
		if err := w.outbox.MarkPublished(ctx, published); err != nil {
			return err
		}
		if len(entries) < defaultBatchSize {
			return nil
		}
	}
}
