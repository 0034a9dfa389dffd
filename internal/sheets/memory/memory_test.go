package memory

import (
	"context"
	"testing"

	"fornitori/internal/core"
	"fornitori/internal/sheets"
)

func TestReplicaUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	r := New()

	_ = r.Upsert(ctx, sheets.Row{ID: "a", Amount: core.Money{Cents: 100}})
	_ = r.Upsert(ctx, sheets.Row{ID: "b"})
	_ = r.Upsert(ctx, sheets.Row{ID: "a", Amount: core.Money{Cents: 250}})

	rows, _ := r.Rows(ctx)
	if len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "b" {
		t.Fatalf("Rows() = %+v, want [a b]", rows)
	}
	if row, _ := r.Row("a"); row.Amount.Cents != 250 {
		t.Fatalf("upsert should replace in place, got %+v", row)
	}

	if err := r.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete of a missing id should be a no-op, got %v", err)
	}
	if rows, _ := r.Rows(ctx); len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("Rows() = %+v", rows)
	}
}
