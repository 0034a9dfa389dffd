package services

import (
	"context"
	"fmt"
	"strings"

	"fornitori/internal/auth"
	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/store"
)

// Publisher announces entry changes to the replica worker.
type Publisher interface {
	PublishEntrySync(ctx context.Context, id string, version int64) error
	PublishEntryDelete(ctx context.Context, id string) error
}

// EntryService records expenses and notifies the replica worker of each write.
type EntryService struct {
	store     *store.Tiered
	publisher Publisher
	logger    *applog.Logger
}

// NewEntryService builds the service. publisher may be nil, in which case no
// sync messages are sent.
func NewEntryService(s *store.Tiered, publisher Publisher, logger *applog.Logger) *EntryService {
	return &EntryService{store: s, publisher: publisher, logger: logger.WithComponent(applog.ComponentEntry)}
}

// List returns the entries of year, or all of them when year is zero.
func (s *EntryService) List(ctx context.Context, year int) ([]core.Entry, store.ReadMeta, error) {
	return s.store.Entries(ctx, store.EntryFilter{Year: year})
}

// Create stores a new entry. The supplier must exist; an empty payment
// method is taken from the supplier's default.
func (s *EntryService) Create(ctx context.Context, e core.Entry) (core.Entry, error) {
	e.ID = ""
	e.Description = strings.TrimSpace(e.Description)
	sup, err := s.supplier(ctx, e.SupplierID)
	if err != nil {
		return core.Entry{}, err
	}
	if e.PaymentMethod == "" {
		e.PaymentMethod = sup.DefaultPaymentMethod
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	created, err := s.store.InsertEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	var username string
	if sess, ok := auth.FromContext(ctx); ok {
		username = sess.Username
	}
	applog.NewStructuredLogger(s.logger).LogEntryCreated(ctx,
		created.ID, created.SupplierID, created.Amount.Cents, string(created.PaymentMethod), username)

	s.publishSync(ctx, created.ID)
	return created, nil
}

// Update applies u to the entry with the given id.
func (s *EntryService) Update(ctx context.Context, id string, u store.EntryUpdate) (core.Entry, error) {
	if u.IsEmpty() {
		return s.store.GetEntry(ctx, id)
	}
	current, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		u.Description = &d
	}
	next := u.Apply(current)
	if u.SupplierID != nil && *u.SupplierID != current.SupplierID {
		if _, err := s.supplier(ctx, next.SupplierID); err != nil {
			return core.Entry{}, err
		}
	}
	if err := next.Validate(); err != nil {
		return core.Entry{}, err
	}

	if err := s.store.UpdateEntry(ctx, id, u); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	s.logger.InfoContext(ctx, "Entry updated", applog.NewFields().
		WithOperation(applog.OpUpdate).
		WithEntry(next.ID, next.SupplierID, next.Amount.Cents, string(next.PaymentMethod)).
		ToSlice()...)

	s.publishSync(ctx, id)
	return next, nil
}

func (s *EntryService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.logger.InfoContext(ctx, "Entry deleted", applog.FieldEntryID, id)

	if s.publisher == nil {
		return nil
	}
	// the entry is gone locally; a lost message is repaired by the worker's reconcile pass
	if err := s.publisher.PublishEntryDelete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish delete message", applog.FieldEntryID, id, applog.FieldError, err)
	}
	return nil
}

func (s *EntryService) supplier(ctx context.Context, id string) (core.Supplier, error) {
	if strings.TrimSpace(id) == "" {
		return core.Supplier{}, core.ErrMissingSupplier
	}
	suppliers, _, err := s.store.Suppliers(ctx)
	if err != nil {
		return core.Supplier{}, err
	}
	sup, ok := findSupplier(suppliers, id)
	if !ok {
		return core.Supplier{}, fmt.Errorf("%w: %s", ErrUnknownSupplier, id)
	}
	return sup, nil
}

func (s *EntryService) publishSync(ctx context.Context, id string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping sync message", applog.FieldEntryID, id)
		return
	}
	// the worker reads the current version from the store, so none is sent
	if err := s.publisher.PublishEntrySync(ctx, id, 0); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message", applog.FieldEntryID, id, applog.FieldError, err)
	}
}
