package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fornitori/internal/core"
	"fornitori/internal/store"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	rows, err := r.queries.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	out := make([]core.Supplier, len(rows))
	for i, s := range rows {
		out[i] = core.Supplier{
			ID:                   s.ID,
			Name:                 s.Name,
			DefaultPaymentMethod: core.PaymentMethod(s.DefaultPaymentMethod),
		}
	}
	return out, nil
}

// UpsertSuppliers writes all suppliers in one transaction.
func (r *SQLiteRepository) UpsertSuppliers(ctx context.Context, suppliers []core.Supplier) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, s := range suppliers {
		if s.ID == "" {
			return fmt.Errorf("upsert supplier %q: missing id", s.Name)
		}
		err := q.UpsertSupplier(ctx, UpsertSupplierParams{
			ID:                   s.ID,
			Name:                 s.Name,
			DefaultPaymentMethod: string(s.DefaultPaymentMethod),
		})
		if err != nil {
			return fmt.Errorf("upsert supplier %s: %w", s.ID, mapErr(err))
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteSupplier(ctx context.Context, id string) error {
	n, err := r.queries.DeleteSupplier(ctx, id)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, f store.EntryFilter) ([]core.Entry, error) {
	var (
		rows []Entry
		err  error
	)
	if f.Year != 0 {
		rows, err = r.queries.ListEntriesByYear(ctx, fmt.Sprintf("%04d", f.Year))
	} else {
		rows, err = r.queries.ListEntries(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]core.Entry, len(rows))
	for i, e := range rows {
		out[i] = toCoreEntry(e)
	}
	return out, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	e, err := r.queries.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %s: %w", id, mapErr(err))
	}
	return toCoreEntry(e), nil
}

func (r *SQLiteRepository) InsertEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row, err := r.queries.CreateEntry(ctx, CreateEntryParams{
		ID:            e.ID,
		Date:          e.Date,
		SupplierID:    e.SupplierID,
		AmountCents:   e.Amount.Cents,
		Description:   e.Description,
		PaymentMethod: string(e.PaymentMethod),
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", mapErr(err))
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", row.ID,
		"date", row.Date,
		"supplier_id", row.SupplierID,
		"amount_cents", row.AmountCents)

	return toCoreEntry(row), nil
}

// UpdateEntry applies u inside a transaction so concurrent partial updates do
// not interleave.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, id string, u store.EntryUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := q.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("get entry %s: %w", id, mapErr(err))
	}
	updated := u.Apply(toCoreEntry(row))
	if err := updated.Validate(); err != nil {
		return err
	}
	n, err := q.UpdateEntry(ctx, UpdateEntryParams{
		Date:          updated.Date,
		SupplierID:    updated.SupplierID,
		AmountCents:   updated.Amount.Cents,
		Description:   updated.Description,
		PaymentMethod: string(updated.PaymentMethod),
		ID:            id,
	})
	if err != nil {
		return fmt.Errorf("update entry %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) error {
	n, err := r.queries.DeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) FindUser(ctx context.Context, username string) (*core.User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	out := toCoreUser(u)
	return &out, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]core.User, len(rows))
	for i, u := range rows {
		out[i] = toCoreUser(u)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	n, err := r.queries.UpdateUserPassword(ctx, UpdateUserPasswordParams{
		PasswordHash: passwordHash,
		Username:     username,
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) InsertUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapErr(err))
	}
	return u, nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	n, err := r.queries.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PendingSyncEntry represents minimal data needed for sync queue messages
type PendingSyncEntry struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncEntries returns entries that still need to reach the replica,
// including those whose last attempt failed.
func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingSyncEntry, error) {
	rows, err := r.queries.GetPendingSyncEntries(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	out := make([]PendingSyncEntry, len(rows))
	for i, e := range rows {
		out[i] = PendingSyncEntry{ID: e.ID, Version: e.Version, CreatedAt: time.Unix(e.CreatedUnix, 0).UTC()}
	}
	return out, nil
}

// GetSyncEntry returns the entry together with the version the replica
// should acknowledge.
func (r *SQLiteRepository) GetSyncEntry(ctx context.Context, id string) (core.Entry, int64, error) {
	e, err := r.queries.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, 0, fmt.Errorf("get entry %s: %w", id, mapErr(err))
	}
	return toCoreEntry(e), e.Version, nil
}

// MarkSynced marks version of an entry as written to the replica. It reports
// false when the entry has moved on to a newer version (or is gone).
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	n, err := r.queries.MarkEntrySynced(ctx, MarkEntrySyncedParams{ID: id, Version: version})
	if err != nil {
		return false, fmt.Errorf("mark entry synced: %w", err)
	}
	slog.DebugContext(ctx, "Entry marked as synced", "id", id, "version", version, "matched", n > 0)
	return n > 0, nil
}

// MarkSyncError marks an entry as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.queries.MarkEntrySyncError(ctx, id); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "id", id)
	return nil
}

func toCoreEntry(e Entry) core.Entry {
	return core.Entry{
		ID:            e.ID,
		Date:          e.Date,
		SupplierID:    e.SupplierID,
		Amount:        core.Money{Cents: e.AmountCents},
		Description:   e.Description,
		PaymentMethod: core.PaymentMethod(e.PaymentMethod),
	}
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
	}
}

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		}
	}
	return err
}
