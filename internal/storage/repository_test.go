package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fornitori/internal/core"
	"fornitori/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "fornitori.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositorySuppliers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.UpsertSuppliers(ctx, []core.Supplier{
		{ID: "S2", Name: "beta", DefaultPaymentMethod: core.Transfer},
		{ID: "S1", Name: "Acme", DefaultPaymentMethod: core.Cash},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.UpsertSuppliers(ctx, []core.Supplier{{ID: "S2", Name: "Beta", DefaultPaymentMethod: core.Cash}}); err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	list, err := repo.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Acme" || list[1].Name != "Beta" || list[1].DefaultPaymentMethod != core.Cash {
		t.Fatalf("unexpected suppliers %+v", list)
	}

	err = repo.UpsertSuppliers(ctx, []core.Supplier{{ID: "S3", Name: "ACME", DefaultPaymentMethod: core.Cash}})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for case-insensitive name clash, got %v", err)
	}

	if err := repo.DeleteSupplier(ctx, "S1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteSupplier(ctx, "S1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	inputs := []core.Entry{
		{Date: "2024-03-01", SupplierID: "S1", Amount: core.Money{Cents: 10000}, PaymentMethod: core.Cash, Description: "farina"},
		{Date: "2024-04-01", SupplierID: "S2", Amount: core.Money{Cents: 2550}, PaymentMethod: core.Transfer},
		{Date: "2023-12-31", SupplierID: "S2", Amount: core.Money{Cents: 0}, PaymentMethod: core.Cash},
	}
	var ids []string
	for _, in := range inputs {
		e, err := repo.InsertEntry(ctx, in)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if e.ID == "" || e.Amount != in.Amount || e.Date != in.Date {
			t.Fatalf("unexpected inserted entry %+v", e)
		}
		ids = append(ids, e.ID)
	}

	all, err := repo.ListEntries(ctx, store.EntryFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %d %v", len(all), err)
	}
	if all[0].Date != "2024-04-01" {
		t.Fatalf("expected newest first, got %s", all[0].Date)
	}
	y2024, _ := repo.ListEntries(ctx, store.EntryFilter{Year: 2024})
	if len(y2024) != 2 {
		t.Fatalf("year filter: got %d", len(y2024))
	}

	pm := core.Transfer
	desc := "farina 00"
	if err := repo.UpdateEntry(ctx, ids[0], store.EntryUpdate{PaymentMethod: &pm, Description: &desc}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetEntry(ctx, ids[0])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PaymentMethod != core.Transfer || got.Description != desc || got.Amount.Cents != 10000 {
		t.Fatalf("unexpected updated entry %+v", got)
	}

	if err := repo.UpdateEntry(ctx, "missing", store.EntryUpdate{Description: &desc}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetEntry(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.InsertEntry(ctx, core.Entry{ID: ids[1], Date: "2024-01-01", SupplierID: "S1", PaymentMethod: core.Cash}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if err := repo.DeleteEntry(ctx, ids[2]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteEntry(ctx, ids[2]); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositorySyncStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e, err := repo.InsertEntry(ctx, core.Entry{Date: "2024-03-01", SupplierID: "S1", Amount: core.Money{Cents: 1}, PaymentMethod: core.Cash})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	pending, err := repo.GetPendingSyncEntries(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != e.ID || pending[0].Version != 1 {
		t.Fatalf("unexpected pending %+v %v", pending, err)
	}
	if ok, err := repo.MarkSynced(ctx, e.ID, 1); err != nil || !ok {
		t.Fatalf("mark synced: %v %v", ok, err)
	}
	pending, _ = repo.GetPendingSyncEntries(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending entries, got %d", len(pending))
	}

	// an update puts the entry back in the queue with a new version
	desc := "x"
	if err := repo.UpdateEntry(ctx, e.ID, store.EntryUpdate{Description: &desc}); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, _ = repo.GetPendingSyncEntries(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("expected re-queued entry at version 2, got %+v", pending)
	}

	// acknowledging an outdated version leaves the entry queued
	if ok, err := repo.MarkSynced(ctx, e.ID, 1); err != nil || ok {
		t.Fatalf("stale ack should not match: %v %v", ok, err)
	}
	got, version, err := repo.GetSyncEntry(ctx, e.ID)
	if err != nil || version != 2 || got.Description != "x" {
		t.Fatalf("GetSyncEntry() = %+v, %d, %v", got, version, err)
	}

	// failed attempts are retried
	if err := repo.MarkSyncError(ctx, e.ID); err != nil {
		t.Fatalf("mark sync error: %v", err)
	}
	pending, _ = repo.GetPendingSyncEntries(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("entries in error should be returned for retry, got %+v", pending)
	}
}

func TestRepositoryUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u, err := repo.FindUser(ctx, "edoardo")
	if u != nil || err != nil {
		t.Fatalf("expected nil, nil for missing user, got %v %v", u, err)
	}
	created, err := repo.InsertUser(ctx, core.User{Username: "edoardo", PasswordHash: "hash", IsAdmin: true})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.InsertUser(ctx, core.User{Username: "edoardo", PasswordHash: "x"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := repo.UpdateUserPassword(ctx, "edoardo", "hash2"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	u, err = repo.FindUser(ctx, "edoardo")
	if err != nil || u == nil || u.PasswordHash != "hash2" || !u.IsAdmin {
		t.Fatalf("unexpected user %+v %v", u, err)
	}
	users, _ := repo.ListUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
	if err := repo.DeleteUser(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.UpdateUserPassword(ctx, "edoardo", "h"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
