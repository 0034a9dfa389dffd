// Package store defines the contract of the remote table store holding
// suppliers, entries and users.
package store

import (
	"context"
	"errors"

	"fornitori/internal/core"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate")
	ErrUnavailable = errors.New("store unavailable")
)

type (
	// EntryFilter restricts ListEntries. Zero Year lists everything.
	EntryFilter struct {
		Year int
	}

	// EntryUpdate carries the fields of a partial entry update; nil fields
	// are left unchanged.
	EntryUpdate struct {
		Date          *string
		SupplierID    *string
		Amount        *core.Money
		Description   *string
		PaymentMethod *core.PaymentMethod
	}

	SupplierStore interface {
		ListSuppliers(ctx context.Context) ([]core.Supplier, error)
		// UpsertSuppliers inserts or replaces suppliers by ID.
		UpsertSuppliers(ctx context.Context, suppliers []core.Supplier) error
		DeleteSupplier(ctx context.Context, id string) error
	}

	EntryStore interface {
		ListEntries(ctx context.Context, f EntryFilter) ([]core.Entry, error)
		GetEntry(ctx context.Context, id string) (core.Entry, error)
		// InsertEntry stores e, assigning an ID when e.ID is empty.
		InsertEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		UpdateEntry(ctx context.Context, id string, u EntryUpdate) error
		DeleteEntry(ctx context.Context, id string) error
	}

	UserStore interface {
		// FindUser returns nil and no error when the user does not exist.
		FindUser(ctx context.Context, username string) (*core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		UpdateUserPassword(ctx context.Context, username, passwordHash string) error
		InsertUser(ctx context.Context, u core.User) (core.User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	Store interface {
		SupplierStore
		EntryStore
		UserStore
		Ping(ctx context.Context) error
	}
)

// Apply returns e with the non-nil fields of u applied.
func (u EntryUpdate) Apply(e core.Entry) core.Entry {
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.SupplierID != nil {
		e.SupplierID = *u.SupplierID
	}
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.PaymentMethod != nil {
		e.PaymentMethod = *u.PaymentMethod
	}
	return e
}

// IsEmpty reports whether u changes nothing.
func (u EntryUpdate) IsEmpty() bool {
	return u == EntryUpdate{}
}
