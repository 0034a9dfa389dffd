package backend

import (
	"context"
	"fmt"

	applog "fornitori/internal/log"
	"fornitori/internal/storage"
	"fornitori/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if err := f.seedSQLite(ctx, repo, config.SeedDir); err != nil {
		_ = repo.Close()
		return nil, err
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

// seedSQLite loads the seed suppliers into an empty database.
func (f *DefaultFactory) seedSQLite(ctx context.Context, repo *storage.SQLiteRepository, seedDir string) error {
	if seedDir == "" {
		return nil
	}
	existing, err := repo.ListSuppliers(ctx)
	if err != nil {
		return fmt.Errorf("check suppliers: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	seed := memory.SeedSuppliers(seedDir)
	if len(seed) == 0 {
		return nil
	}
	if err := repo.UpsertSuppliers(ctx, seed); err != nil {
		return fmt.Errorf("seed suppliers: %w", err)
	}
	f.logger.Info("Seeded suppliers", "count", len(seed), "seed_dir", seedDir)
	return nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	seedDir := config.SeedDir
	if seedDir == "" {
		seedDir = "data"
	}
	s := memory.NewFromFiles(seedDir)
	f.logger.Info("Initialized memory backend", "seed_dir", seedDir)
	return &BackendResult{Store: s}, nil
}
