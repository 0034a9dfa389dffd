package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"fornitori/internal/core"
	applog "fornitori/internal/log"
	"fornitori/internal/store"
)

// SupplierService manages the supplier list. Names are unique regardless of case.
type SupplierService struct {
	store  *store.Tiered
	logger *applog.Logger
}

func NewSupplierService(s *store.Tiered, logger *applog.Logger) *SupplierService {
	return &SupplierService{store: s, logger: logger.WithComponent(applog.ComponentSupplier)}
}

// List returns the suppliers ordered by name.
func (s *SupplierService) List(ctx context.Context) ([]core.Supplier, store.ReadMeta, error) {
	items, meta, err := s.store.Suppliers(ctx)
	if err != nil {
		return nil, meta, err
	}
	sortSuppliers(items)
	return items, meta, nil
}

func (s *SupplierService) Create(ctx context.Context, name string, pm core.PaymentMethod) (core.Supplier, error) {
	sup := core.Supplier{ID: uuid.NewString(), Name: strings.TrimSpace(name), DefaultPaymentMethod: pm}
	if err := sup.Validate(); err != nil {
		return core.Supplier{}, err
	}
	existing, _, err := s.store.Suppliers(ctx)
	if err != nil {
		return core.Supplier{}, err
	}
	if nameTaken(existing, sup.Name, "") {
		return core.Supplier{}, ErrSupplierExists
	}
	if err := s.upsert(ctx, sup); err != nil {
		return core.Supplier{}, err
	}
	s.logger.InfoContext(ctx, "Supplier created",
		applog.NewFields().WithOperation(applog.OpCreate).ToSlice()...)
	return sup, nil
}

func (s *SupplierService) Update(ctx context.Context, id, name string, pm core.PaymentMethod) (core.Supplier, error) {
	sup := core.Supplier{ID: id, Name: strings.TrimSpace(name), DefaultPaymentMethod: pm}
	if err := sup.Validate(); err != nil {
		return core.Supplier{}, err
	}
	existing, _, err := s.store.Suppliers(ctx)
	if err != nil {
		return core.Supplier{}, err
	}
	if !hasSupplier(existing, id) {
		return core.Supplier{}, fmt.Errorf("supplier %s: %w", id, store.ErrNotFound)
	}
	if nameTaken(existing, sup.Name, id) {
		return core.Supplier{}, ErrSupplierExists
	}
	if err := s.upsert(ctx, sup); err != nil {
		return core.Supplier{}, err
	}
	s.logger.InfoContext(ctx, "Supplier updated", applog.FieldSupplierID, id)
	return sup, nil
}

// Delete removes a supplier. Entries referring to it are kept and shown
// with the unknown-supplier placeholder.
func (s *SupplierService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Supplier deleted", applog.FieldSupplierID, id)
	return nil
}

func (s *SupplierService) upsert(ctx context.Context, sup core.Supplier) error {
	err := s.store.UpsertSuppliers(ctx, []core.Supplier{sup})
	if errors.Is(err, store.ErrDuplicate) {
		return ErrSupplierExists
	}
	return err
}

func nameTaken(suppliers []core.Supplier, name, exceptID string) bool {
	for _, s := range suppliers {
		if s.ID != exceptID && strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return true
		}
	}
	return false
}

func hasSupplier(suppliers []core.Supplier, id string) bool {
	_, ok := findSupplier(suppliers, id)
	return ok
}

func findSupplier(suppliers []core.Supplier, id string) (core.Supplier, bool) {
	for _, s := range suppliers {
		if s.ID == id {
			return s, true
		}
	}
	return core.Supplier{}, false
}

func sortSuppliers(items []core.Supplier) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if a != b {
			return a < b
		}
		return items[i].ID < items[j].ID
	})
}
