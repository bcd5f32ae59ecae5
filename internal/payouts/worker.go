package payouts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// ProcessPendingArgs is the river job enqueued by the admin "process all
// payouts" action. The work itself promotes every pending payout to
// processing; the actual rail transfer is confirmed per-payout by the admin.
type ProcessPendingArgs struct {
	RequestedBy uuid.UUID `json:"requested_by"`
}

func (ProcessPendingArgs) Kind() string { return "payouts_process_pending" }

// Promoter is the contract the worker needs from the payout service.
type Promoter interface {
	PromotePending(ctx context.Context) (int, error)
}

type ProcessPendingWorker struct {
	river.WorkerDefaults[ProcessPendingArgs]
	svc Promoter
	log *slog.Logger
}

func NewProcessPendingWorker(svc Promoter, log *slog.Logger) *ProcessPendingWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessPendingWorker{svc: svc, log: log}
}

func (w *ProcessPendingWorker) Work(ctx context.Context, job *river.Job[ProcessPendingArgs]) error {
	promoted, err := w.svc.PromotePending(ctx)
	if err != nil {
		return fmt.Errorf("promote pending payouts: %w", err)
	}
	w.log.Info("pending payouts promoted", "count", promoted, "requested_by", job.Args.RequestedBy)
	return nil
}
