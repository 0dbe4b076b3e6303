package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/entry"
)

// inFlightChecker is implemented by queuers that know which entries this
// process is already working on.
type inFlightChecker interface {
	IsInFlight(id uuid.UUID) bool
}

// RecoveryReport lists what a recovery pass touched.
type RecoveryReport struct {
	Reset    []uuid.UUID `json:"reset"`
	Requeued []uuid.UUID `json:"requeued"`
	Failed   []uuid.UUID `json:"failed"`
}

// Recovery reconciles entries left behind by a previous process: anything
// still Processing is reset to Pending, and every Pending entry is queued.
type Recovery struct {
	entries entry.EntryRepository
	queuer  entry.Queuer
	logger  *slog.Logger
	metrics *Metrics
}

func NewRecovery(entries entry.EntryRepository, queuer entry.Queuer, logger *slog.Logger, metrics *Metrics) *Recovery {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Recovery{entries: entries, queuer: queuer, logger: logger, metrics: metrics}
}

// RecoverStaleEntries may run while new work is being accepted: entries this
// process is working on are skipped, and each stale row is re-read before it is
// reset. Per-entry failures are logged and reported; only listing failures are
// returned as errors.
func (r *Recovery) RecoverStaleEntries(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport

	stale, err := r.entries.ListByStatus(ctx, entities.StatusProcessing)
	if err != nil {
		return report, fmt.Errorf("list processing entries: %w", err)
	}
	for _, listed := range stale {
		e, err := r.entries.GetByID(ctx, listed.ID)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to reload stale entry", "entry_id", listed.ID, "error", err)
			report.Failed = append(report.Failed, listed.ID)
			r.metrics.RecoveredEntries.WithLabelValues("failed").Inc()
			continue
		}
		if e.Status != entities.StatusProcessing || r.inFlight(e.ID) {
			continue
		}
		e.Status = entities.StatusPending
		if err := r.entries.UpdateStatus(ctx, e); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset stale entry", "entry_id", e.ID, "error", err)
			report.Failed = append(report.Failed, e.ID)
			r.metrics.RecoveredEntries.WithLabelValues("failed").Inc()
			continue
		}
		report.Reset = append(report.Reset, e.ID)
		r.metrics.RecoveredEntries.WithLabelValues("reset").Inc()
	}

	pending, err := r.entries.ListByStatus(ctx, entities.StatusPending)
	if err != nil {
		return report, fmt.Errorf("list pending entries: %w", err)
	}
	for _, e := range pending {
		if err := r.queuer.QueueEntry(ctx, e.ID); err != nil {
			r.logger.ErrorContext(ctx, "failed to requeue entry", "entry_id", e.ID, "error", err)
			report.Failed = append(report.Failed, e.ID)
			r.metrics.RecoveredEntries.WithLabelValues("failed").Inc()
			continue
		}
		report.Requeued = append(report.Requeued, e.ID)
		r.metrics.RecoveredEntries.WithLabelValues("requeued").Inc()
	}

	r.logger.InfoContext(ctx, "stale entry recovery finished",
		"reset", len(report.Reset), "requeued", len(report.Requeued), "failed", len(report.Failed))
	return report, nil
}

func (r *Recovery) inFlight(id uuid.UUID) bool {
	checker, ok := r.queuer.(inFlightChecker)
	return ok && checker.IsInFlight(id)
}

// RunInBackground runs recovery on its own goroutine. The channel yields the
// report once and is then closed.
func (r *Recovery) RunInBackground(ctx context.Context) <-chan RecoveryReport {
	out := make(chan RecoveryReport, 1)
	go func() {
		defer close(out)
		report, err := r.RecoverStaleEntries(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "stale entry recovery failed", "error", err)
		}
		out <- report
	}()
	return out
}
