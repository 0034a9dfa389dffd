package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const listSuppliers = `-- name: ListSuppliers :many
SELECT id, name, default_payment_method FROM suppliers
ORDER BY name COLLATE NOCASE, id
`

func (q *Queries) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := q.db.QueryContext(ctx, listSuppliers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Supplier
	for rows.Next() {
		var i Supplier
		if err := rows.Scan(&i.ID, &i.Name, &i.DefaultPaymentMethod); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertSupplier = `-- name: UpsertSupplier :exec
INSERT INTO suppliers (id, name, default_payment_method)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    default_payment_method = excluded.default_payment_method
`

func (q *Queries) UpsertSupplier(ctx context.Context, arg UpsertSupplierParams) error {
	_, err := q.db.ExecContext(ctx, upsertSupplier, arg.ID, arg.Name, arg.DefaultPaymentMethod)
	return err
}

const deleteSupplier = `-- name: DeleteSupplier :execrows
DELETE FROM suppliers WHERE id = ?
`

func (q *Queries) DeleteSupplier(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSupplier, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const entryColumns = `id, date, supplier_id, amount_cents, description, payment_method, version, sync_status`

const listEntries = `-- name: ListEntries :many
SELECT ` + entryColumns + ` FROM entries
ORDER BY date DESC, created_at DESC
`

func (q *Queries) ListEntries(ctx context.Context) ([]Entry, error) {
	return q.queryEntries(ctx, listEntries)
}

const listEntriesByYear = `-- name: ListEntriesByYear :many
SELECT ` + entryColumns + ` FROM entries
WHERE substr(date, 1, 4) = ?
ORDER BY date DESC, created_at DESC
`

// ListEntriesByYear matches on the yyyy prefix of the ISO date column.
func (q *Queries) ListEntriesByYear(ctx context.Context, year string) ([]Entry, error) {
	return q.queryEntries(ctx, listEntriesByYear, year)
}

func (q *Queries) queryEntries(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entry
	for rows.Next() {
		var i Entry
		if err := scanEntry(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner, i *Entry) error {
	return s.Scan(
		&i.ID,
		&i.Date,
		&i.SupplierID,
		&i.AmountCents,
		&i.Description,
		&i.PaymentMethod,
		&i.Version,
		&i.SyncStatus,
	)
}

const getEntry = `-- name: GetEntry :one
SELECT ` + entryColumns + ` FROM entries WHERE id = ?
`

func (q *Queries) GetEntry(ctx context.Context, id string) (Entry, error) {
	var i Entry
	err := scanEntry(q.db.QueryRowContext(ctx, getEntry, id), &i)
	return i, err
}

const createEntry = `-- name: CreateEntry :one
INSERT INTO entries (id, date, supplier_id, amount_cents, description, payment_method)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + entryColumns

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (Entry, error) {
	row := q.db.QueryRowContext(ctx, createEntry,
		arg.ID,
		arg.Date,
		arg.SupplierID,
		arg.AmountCents,
		arg.Description,
		arg.PaymentMethod,
	)
	var i Entry
	err := scanEntry(row, &i)
	return i, err
}

const updateEntry = `-- name: UpdateEntry :execrows
UPDATE entries SET
    date = ?,
    supplier_id = ?,
    amount_cents = ?,
    description = ?,
    payment_method = ?,
    updated_at = CURRENT_TIMESTAMP,
    version = version + 1,
    sync_status = 'pending'
WHERE id = ?
`

func (q *Queries) UpdateEntry(ctx context.Context, arg UpdateEntryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateEntry,
		arg.Date,
		arg.SupplierID,
		arg.AmountCents,
		arg.Description,
		arg.PaymentMethod,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEntry = `-- name: DeleteEntry :execrows
DELETE FROM entries WHERE id = ?
`

func (q *Queries) DeleteEntry(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getPendingSyncEntries = `-- name: GetPendingSyncEntries :many
SELECT id, version, CAST(strftime('%s', created_at) AS INTEGER) AS created_unix FROM entries
WHERE sync_status IN ('pending', 'error')
ORDER BY created_at ASC
LIMIT ?
`

func (q *Queries) GetPendingSyncEntries(ctx context.Context, limit int64) ([]GetPendingSyncEntriesRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncEntries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPendingSyncEntriesRow
	for rows.Next() {
		var i GetPendingSyncEntriesRow
		if err := rows.Scan(&i.ID, &i.Version, &i.CreatedUnix); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markEntrySynced = `-- name: MarkEntrySynced :execrows
UPDATE entries SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
WHERE id = ? AND version = ?
`

type MarkEntrySyncedParams struct {
	ID      string
	Version int64
}

// MarkEntrySynced only matches the version that was written to the replica,
// so an edit made during the sync keeps the row pending.
func (q *Queries) MarkEntrySynced(ctx context.Context, arg MarkEntrySyncedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markEntrySynced, arg.ID, arg.Version)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markEntrySyncError = `-- name: MarkEntrySyncError :exec
UPDATE entries SET sync_status = 'error' WHERE id = ?
`

func (q *Queries) MarkEntrySyncError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markEntrySyncError, id)
	return err
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, password_hash, is_admin FROM users WHERE username = ?
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.IsAdmin)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT id, username, password_hash, is_admin FROM users ORDER BY username
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Username, &i.PasswordHash, &i.IsAdmin); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, username, password_hash, is_admin) VALUES (?, ?, ?, ?)
`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.Username, arg.PasswordHash, arg.IsAdmin)
	return err
}

const updateUserPassword = `-- name: UpdateUserPassword :execrows
UPDATE users SET password_hash = ? WHERE username = ?
`

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.Username)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE id = ?
`

func (q *Queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
