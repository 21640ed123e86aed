// Package worker turns cash count events into rows in the export ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"cashcount/internal/amqp"
	"cashcount/internal/ports"
)

// ExportLog remembers which cash counts were already exported so that
// redelivered events do not write duplicate rows.
type ExportLog interface {
	ExportRef(ctx context.Context, cashCountID int64) (ref string, ok bool, err error)
	MarkExported(ctx context.Context, cashCountID int64, ref string) error
}

type ExportWorker struct {
	exporter ports.CashCountExporter
	log      ExportLog
}

// NewExportWorker creates a worker. log may be nil, in which case every
// delivery is exported.
func NewExportWorker(exporter ports.CashCountExporter, log ExportLog) *ExportWorker {
	return &ExportWorker{exporter: exporter, log: log}
}

// HandleCashCountCreated is an amqp.Handler.
func (w *ExportWorker) HandleCashCountCreated(ctx context.Context, msg *amqp.CashCountCreated) error {
	slog.InfoContext(ctx, "Processing cash count event",
		"cash_count_id", msg.ID,
		"registry_id", msg.RegistryID,
		"counted_by", msg.CountedBy)

	if w.log != nil {
		ref, ok, err := w.log.ExportRef(ctx, msg.ID)
		if err != nil {
			return fmt.Errorf("check export log: %w", err)
		}
		if ok {
			slog.InfoContext(ctx, "Cash count already exported, skipping",
				"cash_count_id", msg.ID,
				"range", ref)
			return nil
		}
	}

	ref, err := w.exporter.Export(ctx, msg.CashCount())
	if err != nil {
		return fmt.Errorf("export cash count %d: %w", msg.ID, err)
	}

	if w.log != nil {
		if err := w.log.MarkExported(ctx, msg.ID, ref); err != nil {
			// row is already written; do not requeue
			slog.ErrorContext(ctx, "Failed to record export",
				"cash_count_id", msg.ID,
				"error", err)
		}
	}
	return nil
}

// Run consumes events until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer *amqp.Client) error {
	return consumer.ConsumeCashCountCreated(ctx, w.HandleCashCountCreated)
}
