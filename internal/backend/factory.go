package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/ledger"
	"ledger/internal/storage"
	"ledger/internal/storage/memory"
)

// DefaultFactory opens the snapshot source named by a Config and probes it
// with one snapshot before handing it out.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.openSQLite(config.SQLiteDBPath)
	case MemoryBackend:
		res, err = f.openMemory(config.SnapshotFile)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := f.probe(ctx, config.Type, res.Source); err != nil {
		res.Close()
		return nil, err
	}
	return res, nil
}

func (f *DefaultFactory) openSQLite(path string) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	return &BackendResult{Source: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) openMemory(snapshotFile string) (*BackendResult, error) {
	store, err := memory.NewFromFile(snapshotFile)
	if err != nil {
		return nil, fmt.Errorf("load memory ledger: %w", err)
	}
	return &BackendResult{Source: store}, nil
}

// probe reads one snapshot so schema or data problems surface at startup
// instead of on the first report.
func (f *DefaultFactory) probe(ctx context.Context, kind BackendType, src ledger.Snapshotter) error {
	snap, err := ledger.Capture(ctx, src)
	if err != nil {
		return fmt.Errorf("probe %s ledger: %w", kind, err)
	}

	f.logger.InfoContext(ctx, "Ledger backend ready",
		"backend", kind,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions),
		"expenses", len(snap.Expenses),
		"settings", len(snap.Settings),
		"warnings", len(snap.Check()))
	return nil
}
