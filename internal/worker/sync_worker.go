package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fornitori/internal/amqp"
	"fornitori/internal/cache"
	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/sheets"
	"fornitori/internal/storage"
	"fornitori/internal/store"
)

const supplierNamesTTL = time.Minute

// EntrySource is the part of the SQLite repository the worker reads from.
type EntrySource interface {
	GetSyncEntry(ctx context.Context, id string) (core.Entry, int64, error)
	ListEntries(ctx context.Context, f store.EntryFilter) ([]core.Entry, error)
	ListSuppliers(ctx context.Context) ([]core.Supplier, error)
	GetPendingSyncEntries(ctx context.Context, limit int) ([]storage.PendingSyncEntry, error)
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker copies entries from the store to the spreadsheet replica.
type SyncWorker struct {
	source    EntrySource
	replica   sheets.Replica
	batchSize int
	names     *cache.LRUCache[string]
	logger    *applog.Logger
}

func NewSyncWorker(source EntrySource, replica sheets.Replica, batchSize int, logger *applog.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		source:    source,
		replica:   replica,
		batchSize: batchSize,
		names:     cache.NewLRUCache[string](1000, supplierNamesTTL),
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// SupplierNames exposes the supplier name cache so it can be registered for cleanup.
func (w *SyncWorker) SupplierNames() cache.Cleaner { return w.names }

// HandleMessage applies one queue message to the replica.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		applog.FieldEntryID, msg.ID, "action", msg.Action, "version", msg.Version)

	switch msg.Action {
	case amqp.ActionDelete:
		if err := w.replica.Delete(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete replica row: %w", err)
		}
		w.logger.InfoContext(ctx, "Replica row deleted", applog.FieldEntryID, msg.ID)
		return nil
	default:
		return w.syncEntry(ctx, msg.ID)
	}
}

// syncEntry writes the current version of an entry to the replica. An entry
// that no longer exists is removed from it instead.
func (w *SyncWorker) syncEntry(ctx context.Context, id string) error {
	e, version, err := w.source.GetSyncEntry(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.InfoContext(ctx, "Entry gone, removing replica row", applog.FieldEntryID, id)
		return w.replica.Delete(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}

	name, err := w.supplierName(ctx, e.SupplierID)
	if err != nil {
		return err
	}
	if err := w.replica.Upsert(ctx, sheets.RowFromEntry(e, name)); err != nil {
		if markErr := w.source.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", applog.FieldEntryID, id, applog.FieldError, markErr)
		}
		return fmt.Errorf("upsert replica row: %w", err)
	}

	current, err := w.source.MarkSynced(ctx, id, version)
	if err != nil {
		// the row is written; the entry stays pending and is retried later
		w.logger.ErrorContext(ctx, "Failed to mark as synced", applog.FieldEntryID, id, applog.FieldError, err)
		return nil
	}
	if !current {
		w.logger.DebugContext(ctx, "Entry changed during sync, left pending", applog.FieldEntryID, id, "version", version)
	}
	w.logger.InfoContext(ctx, "Entry synced",
		applog.NewFields().WithEntry(e.ID, e.SupplierID, e.Amount.Cents, string(e.PaymentMethod)).ToSlice()...)
	return nil
}

// supplierName resolves a supplier ID, refreshing the whole name table on a miss.
// Unknown IDs resolve to "".
func (w *SyncWorker) supplierName(ctx context.Context, id string) (string, error) {
	if name, ok := w.names.Get(id); ok {
		return name, nil
	}
	suppliers, err := w.source.ListSuppliers(ctx)
	if err != nil {
		return "", fmt.Errorf("list suppliers: %w", err)
	}
	for _, s := range suppliers {
		w.names.Set(s.ID, s.Name)
	}
	name, _ := w.names.Get(id)
	return name, nil
}

// ProcessPending syncs entries whose queue message may have been lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck drains a larger batch of pending entries when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", synced, "errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.source.GetPendingSyncEntries(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}
	w.logger.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.syncEntry(ctx, p.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync entry", applog.FieldEntryID, p.ID, applog.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// Reconcile compares the replica with the store: rows whose entry no longer
// exists are cleared, entries missing from the replica are written and rows
// that no longer match their entry (an edited amount, a renamed supplier) are
// rewritten.
func (w *SyncWorker) Reconcile(ctx context.Context) error {
	rows, err := w.replica.Rows(ctx)
	if err != nil {
		return fmt.Errorf("read replica: %w", err)
	}
	entries, err := w.source.ListEntries(ctx, store.EntryFilter{})
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	suppliers, err := w.source.ListSuppliers(ctx)
	if err != nil {
		return fmt.Errorf("list suppliers: %w", err)
	}
	names := make(map[string]string, len(suppliers))
	for _, s := range suppliers {
		names[s.ID] = s.Name
		w.names.Set(s.ID, s.Name)
	}

	inStore := make(map[string]bool, len(entries))
	for _, e := range entries {
		inStore[e.ID] = true
	}
	inReplica := make(map[string]sheets.Row, len(rows))
	removed := 0
	for _, r := range rows {
		inReplica[r.ID] = r
		if inStore[r.ID] {
			continue
		}
		if err := w.replica.Delete(ctx, r.ID); err != nil {
			return fmt.Errorf("delete orphan row %s: %w", r.ID, err)
		}
		removed++
	}

	added, rewritten := 0, 0
	for _, e := range entries {
		got, present := inReplica[e.ID]
		if present && got.Equal(sheets.RowFromEntry(e, names[e.SupplierID])) {
			continue
		}
		if err := w.syncEntry(ctx, e.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to reconcile entry", applog.FieldEntryID, e.ID, applog.FieldError, err)
			continue
		}
		if present {
			rewritten++
		} else {
			added++
		}
	}

	if removed+added+rewritten > 0 {
		w.logger.InfoContext(ctx, "Replica reconciled", "removed", removed, "added", added, "rewritten", rewritten)
	}
	return nil
}

// Run processes pending entries and reconciles the replica every interval
// until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", applog.FieldError, err)
			}
			if err := w.Reconcile(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Reconcile failed", applog.FieldError, err)
			}
		}
	}
}
