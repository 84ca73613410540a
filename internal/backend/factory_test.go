package backend

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledger/internal/config"
	"ledger/internal/ledger"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    Config
		wantErr bool
	}{
		{
			name: "sqlite",
			cfg:  &config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/l.db"},
			want: Config{Type: SQLiteBackend, SQLiteDBPath: "/tmp/l.db"},
		},
		{
			name: "memory",
			cfg:  &config.Config{DataBackend: "memory", MemorySnapshotFile: "snap.json"},
			want: Config{Type: MemoryBackend, SnapshotFile: "snap.json"},
		},
		{name: "unknown type", cfg: &config.Config{DataBackend: "postgres"}, wantErr: true},
		{name: "nil config", cfg: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FromAppConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"memory without file", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateMemoryBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	snapshot := `{"accounts": [{"id": "chk", "name": "Main", "type": "CHECKING"}]}`
	if err := os.WriteFile(path, []byte(snapshot), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SnapshotFile: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	snap, err := ledger.Capture(context.Background(), res.Source)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if len(snap.Accounts) != 1 || snap.Accounts[0].ID != "chk" {
		t.Errorf("Accounts = %+v, want [chk]", snap.Accounts)
	}
}

func TestFactory_CreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE account (id TEXT PRIMARY KEY, name TEXT, type TEXT);
		CREATE TABLE account_transaction (id TEXT PRIMARY KEY, description TEXT, date TEXT,
			value TEXT, type TEXT, account_id TEXT, from_account_id TEXT);
		CREATE TABLE expense (id TEXT PRIMARY KEY, description TEXT, category TEXT, date TEXT, value TEXT);
		CREATE TABLE setting (id TEXT PRIMARY KEY, key TEXT UNIQUE, value TEXT);`); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	db.Close()

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if _, err := ledger.Capture(context.Background(), res.Source); err != nil {
		t.Errorf("Capture() error = %v", err)
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFactory_CreateBackendErrors(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	if _, err := f.CreateBackend(ctx, Config{Type: "csv"}); err == nil {
		t.Error("CreateBackend() accepted an unknown type")
	}
	missing := filepath.Join(t.TempDir(), "missing.db")
	if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: missing}); err == nil {
		t.Error("CreateBackend() opened a missing database")
	}
}

func TestFactory_ProbeRejectsBrokenLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// no account table
	if _, err := db.Exec(`CREATE TABLE setting (id TEXT PRIMARY KEY, key TEXT UNIQUE, value TEXT)`); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	db.Close()

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err == nil || !strings.Contains(err.Error(), "probe sqlite ledger") {
		t.Errorf("CreateBackend() error = %v, want probe failure", err)
	}
}

func TestFactory_LogsLedgerSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	snapshot := `{
		"accounts": [{"id": "chk", "name": "Main", "type": "CHECKING"}],
		"transactions": [
			{"id": "1", "date": "2024-01-01", "value": "10", "type": "BALANCE", "accountId": "chk"},
			{"id": "2", "date": "2024-01-01", "value": "12", "type": "BALANCE", "accountId": "chk"}
		]
	}`
	if err := os.WriteFile(path, []byte(snapshot), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	res, err := NewFactory(logger).CreateBackend(context.Background(), Config{Type: MemoryBackend, SnapshotFile: path})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	out := buf.String()
	for _, want := range []string{"Ledger backend ready", "backend=memory", "accounts=1", "transactions=2", "warnings=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output = %q, missing %s", out, want)
		}
	}
}
