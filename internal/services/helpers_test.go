package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/mirror"
	"fornitori/internal/store"
	"fornitori/internal/store/memory"
)

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

var errDown = errors.New("connection refused")

// downStore fails every write while down is set.
type downStore struct {
	store.Store
	down bool
}

func (d *downStore) InsertEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if d.down {
		return core.Entry{}, errDown
	}
	return d.Store.InsertEntry(ctx, e)
}

func newStore(t *testing.T) (*store.Tiered, *downStore) {
	t.Helper()
	m, err := mirror.New(t.TempDir())
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	remote := &downStore{Store: memory.New([]core.Supplier{
		{ID: "S1", Name: "Acme", DefaultPaymentMethod: core.Transfer},
		{ID: "S2", Name: "Beta", DefaultPaymentMethod: core.Cash},
	})}
	return store.NewTiered(remote, m, time.Second, testLogger()), remote
}

// recorder is a Publisher that remembers what it was asked to send.
type recorder struct {
	synced  []string
	deleted []string
	err     error
}

func (r *recorder) PublishEntrySync(_ context.Context, id string, _ int64) error {
	r.synced = append(r.synced, id)
	return r.err
}

func (r *recorder) PublishEntryDelete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return r.err
}
