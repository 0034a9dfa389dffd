package backend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"fornitori/internal/config"
	applog "fornitori/internal/log"
)

const seed = `[{"id":"S1","name":"Acme","defaultPaymentMethod":"bonifico"},{"id":"S2","name":"Beta"}]`

func writeSeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_suppliers.json"), []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return dir
}

func newFactory() Factory {
	return NewFactory(applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)}))
}

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{name: "memory", backend: "memory"},
		{name: "sqlite", backend: "sqlite"},
		{name: "retired sheets backend", backend: "sheets", wantErr: true},
		{name: "empty", backend: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromAppConfig(&config.Config{DataBackend: tt.backend, SQLiteDBPath: "x.db", SeedDir: "seed"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (cfg.SeedDir != "seed" || cfg.SQLiteDBPath != "x.db") {
				t.Fatalf("FromAppConfig() = %+v", cfg)
			}
		})
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("nil config should be rejected")
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := newFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedDir: writeSeed(t)})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	suppliers, err := res.Store.ListSuppliers(context.Background())
	if err != nil || len(suppliers) != 2 {
		t.Fatalf("ListSuppliers() = %+v, %v", suppliers, err)
	}
}

func TestCreateSQLiteBackendSeedsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "fornitori.db"), SeedDir: writeSeed(t)}

	res, err := newFactory().CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if err := res.Store.DeleteSupplier(ctx, "S2"); err != nil {
		t.Fatalf("DeleteSupplier: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	// a non-empty table is left alone on restart
	res, err = newFactory().CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer res.Cleanup()
	suppliers, _ := res.Store.ListSuppliers(ctx)
	if len(suppliers) != 1 || suppliers[0].Name != "Acme" {
		t.Fatalf("suppliers after restart = %+v", suppliers)
	}
}

func TestCreateBackendInvalid(t *testing.T) {
	if _, err := newFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Fatalf("sqlite without a path should fail")
	}
}
