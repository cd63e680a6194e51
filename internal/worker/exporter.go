// Package worker exports submitted bills to the archive spreadsheet.
package worker

import (
	"context"
	"fmt"
	"time"

	"billed/internal/amqp"
	"billed/internal/cache"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/sheets"
	"billed/internal/store"
)

// Archived-id cache bounds. Append does not deduplicate, so without
// this a redelivered message would produce a duplicate archive row.
const (
	archivedCacheSize = 4096
	archivedCacheTTL  = time.Hour
)

// Exporter copies bills from the bills API into the archive. It is
// driven by bill.created events, with a periodic sweep as a backup for
// lost messages.
type Exporter struct {
	bills    store.BillLister
	archive  sheets.BillWriter
	reader   sheets.ArchiveReader
	archived *cache.LRU[string]
	logger   *log.Logger
}

func NewExporter(bills store.BillLister, archive sheets.BillWriter, reader sheets.ArchiveReader, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Exporter{
		bills:    bills,
		archive:  archive,
		reader:   reader,
		archived: cache.NewLRU[string](archivedCacheSize, archivedCacheTTL),
		logger:   logger.WithComponent(log.ComponentExporter),
	}
}

// HandleBillCreated processes a single bill.created event. An unknown
// bill id is an error so the message is requeued and retried once the
// API catches up.
func (e *Exporter) HandleBillCreated(ctx context.Context, msg *amqp.BillCreatedMessage) error {
	if ref, ok := e.archived.Get(msg.BillID); ok {
		e.logger.InfoContext(ctx, "bill already archived, skipping",
			log.FieldOperation, log.OpExport,
			log.FieldBillID, msg.BillID,
			log.FieldSheetsRef, ref)
		return nil
	}

	e.logger.InfoContext(ctx, "processing bill.created",
		log.FieldOperation, log.OpExport,
		log.FieldBillID, msg.BillID)

	bills, err := e.bills.List(ctx)
	if err != nil {
		return fmt.Errorf("list bills: %w", err)
	}

	for _, bill := range bills {
		if bill.ID == msg.BillID {
			return e.export(ctx, bill)
		}
	}
	return fmt.Errorf("bill %s not found in store", msg.BillID)
}

// Sweep archives every bill the archive does not know yet. It is the
// backup path for missed events and also runs once at startup.
func (e *Exporter) Sweep(ctx context.Context) error {
	archived, err := e.reader.ArchivedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list archived ids: %w", err)
	}
	seen := make(map[string]bool, len(archived))
	for _, id := range archived {
		seen[id] = true
		e.archived.Set(id, "")
	}
	e.archived.CleanExpired()

	bills, err := e.bills.List(ctx)
	if err != nil {
		return fmt.Errorf("list bills: %w", err)
	}

	exported := 0
	failed := 0
	for _, bill := range bills {
		if bill.ID == "" || seen[bill.ID] {
			continue
		}
		if err := e.export(ctx, bill); err != nil {
			e.logger.ErrorContext(ctx, "export failed",
				log.FieldBillID, bill.ID,
				log.FieldError, err)
			failed++
			continue
		}
		exported++
	}

	if exported > 0 || failed > 0 {
		e.logger.InfoContext(ctx, "sweep completed",
			log.FieldOperation, log.OpExport,
			"exported", exported,
			"failed", failed)
	}
	return nil
}

// RunPeriodic sweeps on the given interval until the context ends.
func (e *Exporter) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.InfoContext(ctx, "stopping periodic export", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := e.Sweep(ctx); err != nil {
				e.logger.ErrorContext(ctx, "periodic sweep failed", log.FieldError, err)
			}
		}
	}
}

func (e *Exporter) export(ctx context.Context, bill core.Bill) error {
	ref, err := e.archive.Append(ctx, bill)
	if err != nil {
		return fmt.Errorf("append to archive: %w", err)
	}
	e.archived.Set(bill.ID, ref)

	e.logger.InfoContext(ctx, "bill archived",
		log.FieldOperation, log.OpExport,
		log.FieldBillID, bill.ID,
		log.FieldSheetsRef, ref)
	return nil
}
