package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/mirror"
)

// Source tells where the data of a read came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceMirror Source = "mirror"
)

// ReadMeta describes how a read was served.
type ReadMeta struct {
	Source  Source
	Stale   bool
	SavedAt time.Time
}

// Tiered fronts a remote Store with the local mirror.
//
// Reads go to the remote store first and refresh the mirror on success; when
// the remote call fails the mirrored copy is returned and flagged stale.
// Writes only ever go to the remote store. A successful write refreshes the
// affected mirror slot, a failed one marks it stale and returns the error.
type Tiered struct {
	remote  Store
	mirror  *mirror.Mirror
	timeout time.Duration
	logger  *applog.Logger
}

func NewTiered(remote Store, m *mirror.Mirror, timeout time.Duration, logger *applog.Logger) *Tiered {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Tiered{
		remote:  remote,
		mirror:  m,
		timeout: timeout,
		logger:  logger.WithComponent(applog.ComponentMirror),
	}
}

// Remote returns the wrapped store.
func (t *Tiered) Remote() Store { return t.remote }

func (t *Tiered) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *Tiered) Ping(ctx context.Context) error {
	ctx, cancel := t.remoteCtx(ctx)
	defer cancel()
	return t.remote.Ping(ctx)
}

func (t *Tiered) Suppliers(ctx context.Context) ([]core.Supplier, ReadMeta, error) {
	rctx, cancel := t.remoteCtx(ctx)
	items, err := t.remote.ListSuppliers(rctx)
	cancel()
	if err == nil {
		t.refresh(ctx, mirror.SlotSuppliers, func() error { return t.mirror.SaveSuppliers(items) })
		return items, ReadMeta{Source: SourceRemote}, nil
	}
	cached, info, merr := t.mirror.Suppliers()
	return fallback(ctx, t, mirror.SlotSuppliers, err, cached, info, merr)
}

// Entries lists entries, optionally restricted to one year. A year-scoped
// read only replaces that year inside the mirrored entries.
func (t *Tiered) Entries(ctx context.Context, f EntryFilter) ([]core.Entry, ReadMeta, error) {
	rctx, cancel := t.remoteCtx(ctx)
	items, err := t.remote.ListEntries(rctx, f)
	cancel()
	if err == nil {
		t.refresh(ctx, mirror.SlotEntries, func() error { return t.saveEntries(f, items) })
		return items, ReadMeta{Source: SourceRemote}, nil
	}
	cached, info, merr := t.mirror.Entries()
	if merr == nil && f.Year != 0 {
		cached = filterYear(cached, f.Year)
	}
	return fallback(ctx, t, mirror.SlotEntries, err, cached, info, merr)
}

func (t *Tiered) Users(ctx context.Context) ([]core.User, ReadMeta, error) {
	rctx, cancel := t.remoteCtx(ctx)
	items, err := t.remote.ListUsers(rctx)
	cancel()
	if err == nil {
		t.refresh(ctx, mirror.SlotUsers, func() error { return t.mirror.SaveUsers(items) })
		return items, ReadMeta{Source: SourceRemote}, nil
	}
	cached, info, merr := t.mirror.Users()
	return fallback(ctx, t, mirror.SlotUsers, err, cached, info, merr)
}

// FindUser is never served from the mirror: mirrored users carry no
// password hash, so credentials can only be checked against the store.
func (t *Tiered) FindUser(ctx context.Context, username string) (*core.User, error) {
	ctx, cancel := t.remoteCtx(ctx)
	defer cancel()
	u, err := t.remote.FindUser(ctx, username)
	if err != nil {
		return nil, unavailable(err)
	}
	return u, nil
}

func (t *Tiered) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	rctx, cancel := t.remoteCtx(ctx)
	e, err := t.remote.GetEntry(rctx, id)
	cancel()
	if err == nil || errors.Is(err, ErrNotFound) {
		return e, err
	}
	cached, _, merr := t.mirror.Entries()
	if merr == nil {
		for _, c := range cached {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return core.Entry{}, unavailable(err)
}

func (t *Tiered) UpsertSuppliers(ctx context.Context, suppliers []core.Supplier) error {
	return t.write(ctx, mirror.SlotSuppliers, func(ctx context.Context) error {
		return t.remote.UpsertSuppliers(ctx, suppliers)
	})
}

func (t *Tiered) DeleteSupplier(ctx context.Context, id string) error {
	return t.write(ctx, mirror.SlotSuppliers, func(ctx context.Context) error {
		return t.remote.DeleteSupplier(ctx, id)
	})
}

func (t *Tiered) InsertEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	var out core.Entry
	err := t.write(ctx, mirror.SlotEntries, func(ctx context.Context) error {
		var err error
		out, err = t.remote.InsertEntry(ctx, e)
		return err
	})
	return out, err
}

func (t *Tiered) UpdateEntry(ctx context.Context, id string, u EntryUpdate) error {
	return t.write(ctx, mirror.SlotEntries, func(ctx context.Context) error {
		return t.remote.UpdateEntry(ctx, id, u)
	})
}

func (t *Tiered) DeleteEntry(ctx context.Context, id string) error {
	return t.write(ctx, mirror.SlotEntries, func(ctx context.Context) error {
		return t.remote.DeleteEntry(ctx, id)
	})
}

func (t *Tiered) InsertUser(ctx context.Context, u core.User) (core.User, error) {
	var out core.User
	err := t.write(ctx, mirror.SlotUsers, func(ctx context.Context) error {
		var err error
		out, err = t.remote.InsertUser(ctx, u)
		return err
	})
	return out, err
}

func (t *Tiered) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	return t.write(ctx, mirror.SlotUsers, func(ctx context.Context) error {
		return t.remote.UpdateUserPassword(ctx, username, passwordHash)
	})
}

func (t *Tiered) DeleteUser(ctx context.Context, id string) error {
	return t.write(ctx, mirror.SlotUsers, func(ctx context.Context) error {
		return t.remote.DeleteUser(ctx, id)
	})
}

// write runs op against the remote store and keeps the mirror slot in step.
func (t *Tiered) write(ctx context.Context, slot mirror.Slot, op func(context.Context) error) error {
	rctx, cancel := t.remoteCtx(ctx)
	err := op(rctx)
	cancel()
	if err != nil {
		if isRecordError(err) {
			return err
		}
		if merr := t.mirror.MarkStale(slot); merr != nil {
			t.logger.WarnContext(ctx, "Failed to mark mirror slot stale", applog.FieldSlot, slot, applog.FieldError, merr)
		}
		t.logger.ErrorContext(ctx, "Remote write failed", applog.FieldSlot, slot, applog.FieldError, err)
		return unavailable(err)
	}
	t.resync(ctx, slot)
	return nil
}

// resync reloads a whole slot from the store after a write.
func (t *Tiered) resync(ctx context.Context, slot mirror.Slot) {
	rctx, cancel := t.remoteCtx(ctx)
	defer cancel()
	var err error
	switch slot {
	case mirror.SlotSuppliers:
		var items []core.Supplier
		if items, err = t.remote.ListSuppliers(rctx); err == nil {
			err = t.mirror.SaveSuppliers(items)
		}
	case mirror.SlotEntries:
		var items []core.Entry
		if items, err = t.remote.ListEntries(rctx, EntryFilter{}); err == nil {
			err = t.mirror.SaveEntries(items)
		}
	case mirror.SlotUsers:
		var items []core.User
		if items, err = t.remote.ListUsers(rctx); err == nil {
			err = t.mirror.SaveUsers(items)
		}
	}
	if err != nil {
		t.logger.WarnContext(ctx, "Mirror refresh after write failed", applog.FieldSlot, slot, applog.FieldError, err)
		_ = t.mirror.MarkStale(slot)
	}
}

func (t *Tiered) refresh(ctx context.Context, slot mirror.Slot, save func() error) {
	if err := save(); err != nil {
		t.logger.WarnContext(ctx, "Mirror refresh failed", applog.FieldSlot, slot, applog.FieldError, err)
	}
}

func (t *Tiered) saveEntries(f EntryFilter, fresh []core.Entry) error {
	if f.Year == 0 {
		return t.mirror.SaveEntries(fresh)
	}
	cached, _, err := t.mirror.Entries()
	if err != nil && !errors.Is(err, mirror.ErrEmpty) {
		return err
	}
	prefix := strconv.Itoa(f.Year) + "-"
	merged := make([]core.Entry, 0, len(cached)+len(fresh))
	for _, e := range cached {
		if !strings.HasPrefix(e.Date, prefix) {
			merged = append(merged, e)
		}
	}
	return t.mirror.SaveEntries(append(merged, fresh...))
}

func fallback[T any](ctx context.Context, t *Tiered, slot mirror.Slot, remoteErr error, cached []T, info mirror.SlotInfo, mirrorErr error) ([]T, ReadMeta, error) {
	if mirrorErr != nil {
		t.logger.ErrorContext(ctx, "Remote read failed and mirror is empty",
			applog.FieldSlot, slot, applog.FieldError, remoteErr, "mirror_error", mirrorErr)
		return nil, ReadMeta{}, unavailable(remoteErr)
	}
	t.logger.WarnContext(ctx, "Remote read failed, serving mirror",
		applog.FieldSlot, slot, applog.FieldError, remoteErr, applog.FieldSource, SourceMirror)
	if cached == nil {
		cached = []T{}
	}
	return cached, ReadMeta{Source: SourceMirror, Stale: true, SavedAt: info.SavedAt}, nil
}

func filterYear(entries []core.Entry, year int) []core.Entry {
	prefix := strconv.Itoa(year) + "-"
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Date, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// isRecordError reports errors caused by the request itself rather than by
// the store being unreachable.
func isRecordError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidPaymentMethod) ||
		errors.Is(err, core.ErrMissingSupplier) ||
		errors.Is(err, core.ErrEmptySupplierName) ||
		errors.Is(err, core.ErrEmptyUsername)
}

func unavailable(err error) error {
	if errors.Is(err, ErrUnavailable) || isRecordError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
