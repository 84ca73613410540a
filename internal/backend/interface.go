// Package backend selects the ledger snapshot source the report engines
// read from.
package backend

import (
	"context"

	"ledger/internal/ledger"
)

type CleanupFunc func() error

// BackendResult is an opened snapshot source and the function releasing it.
type BackendResult struct {
	Source  ledger.Snapshotter
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config names the source and where its data lives.
type Config struct {
	Type BackendType

	// Read-only ledger database, sqlite only.
	SQLiteDBPath string

	// JSON ledger snapshot, memory only. Empty starts an empty ledger.
	SnapshotFile string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}
