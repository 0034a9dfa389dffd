package services

import (
	"context"
	"errors"
	"testing"

	"fornitori/internal/core"
	"fornitori/internal/store"
)

func TestSupplierService_Create(t *testing.T) {
	tiered, _ := newStore(t)
	svc := NewSupplierService(tiered, testLogger())

	tests := []struct {
		name    string
		input   string
		method  core.PaymentMethod
		wantErr error
	}{
		{name: "new supplier", input: "  Gamma  ", method: core.Cash},
		{name: "same name other case", input: "ACME", method: core.Cash, wantErr: ErrSupplierExists},
		{name: "blank name", input: "   ", method: core.Cash, wantErr: core.ErrEmptySupplierName},
		{name: "bad method", input: "Delta", method: "assegno", wantErr: core.ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Create(context.Background(), tt.input, tt.method)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() unexpected error: %v", err)
			}
			if got.ID == "" || got.Name != "Gamma" {
				t.Fatalf("Create() = %+v", got)
			}
		})
	}

	list, _, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Name != "Acme" || list[2].Name != "Gamma" {
		t.Fatalf("List() = %+v", list)
	}
}

func TestSupplierService_Update(t *testing.T) {
	tiered, _ := newStore(t)
	svc := NewSupplierService(tiered, testLogger())
	ctx := context.Background()

	if _, err := svc.Update(ctx, "S1", "acme", core.Cash); err != nil {
		t.Fatalf("renaming to own name in another case should work: %v", err)
	}
	if _, err := svc.Update(ctx, "S1", "beta", core.Cash); !errors.Is(err, ErrSupplierExists) {
		t.Fatalf("expected ErrSupplierExists, got %v", err)
	}
	if _, err := svc.Update(ctx, "S9", "Nuovo", core.Cash); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSupplierService_Delete(t *testing.T) {
	tiered, _ := newStore(t)
	svc := NewSupplierService(tiered, testLogger())
	ctx := context.Background()

	if err := svc.Delete(ctx, "S2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "S2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
