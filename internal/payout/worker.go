// Package payout runs withdrawal settlement as background jobs.
package payout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type ProcessPayoutArgs struct {
	RequestID uuid.UUID `json:"request_id"`
}

func (ProcessPayoutArgs) Kind() string { return "process_payout" }

// Settler is the contract the worker needs: settle one withdraw request.
// Settlement must be idempotent, since River retries failed jobs.
type Settler interface {
	Settle(ctx context.Context, requestID uuid.UUID) error
}

type PayoutWorker struct {
	river.WorkerDefaults[ProcessPayoutArgs]
	settler Settler
	log     *slog.Logger
}

func NewPayoutWorker(settler Settler, log *slog.Logger) *PayoutWorker {
	if log == nil {
		log = slog.Default()
	}
	return &PayoutWorker{settler: settler, log: log}
}

func (w *PayoutWorker) Work(ctx context.Context, job *river.Job[ProcessPayoutArgs]) error {
	if err := w.settler.Settle(ctx, job.Args.RequestID); err != nil {
		return fmt.Errorf("settle withdraw request %s: %w", job.Args.RequestID, err)
	}
	w.log.Info("withdraw request settled", "request_id", job.Args.RequestID)
	return nil
}
