// Package storage reads ledger snapshots from a SQLite database.
//
// The database is opened read-only; the schema is owned by the ledger
// application that writes it:
//
//	account(id TEXT PRIMARY KEY, name TEXT, type TEXT)
//	account_transaction(id TEXT PRIMARY KEY, description TEXT, date TEXT,
//	    value TEXT, type TEXT, account_id TEXT, from_account_id TEXT NULL)
//	expense(id TEXT PRIMARY KEY, description TEXT, category TEXT, date TEXT, value TEXT)
//	setting(id TEXT PRIMARY KEY, key TEXT UNIQUE, value TEXT)
//
// Dates are ISO-8601 calendar dates and amounts are decimal strings.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"

	_ "modernc.org/sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Snapshotter = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens an existing ledger database read-only.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("ledger database %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite ledger opened", log.FieldComponent, log.ComponentStorage, "path", dbPath)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Snapshot starts a read-only transaction. Every read through the returned
// store sees the same database state until release is called.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (ledger.Store, func() error, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("begin read transaction: %w", err)
	}
	release := func() error {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return err
		}
		return nil
	}
	return &reader{q: tx}, release, nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// reader implements ledger.Store over a querier.
type reader struct {
	q querier
}

func (r *reader) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, type FROM account ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var id, name, rawType string
		if err := rows.Scan(&id, &name, &rawType); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		t, err := core.ParseAccountType(rawType)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", id, err)
		}
		accounts = append(accounts, core.Account{ID: id, Name: name, Type: t})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *reader) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, description, date, value, type, account_id, from_account_id
		FROM account_transaction
		ORDER BY date, type, account_id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			id, description, rawDate, rawValue, rawType, accountID string
			fromAccountID                                          sql.NullString
		)
		if err := rows.Scan(&id, &description, &rawDate, &rawValue, &rawType, &accountID, &fromAccountID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx := core.Transaction{
			ID:            id,
			Description:   description,
			AccountID:     accountID,
			FromAccountID: fromAccountID.String,
		}
		if tx.Date, err = core.ParseDate(rawDate); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", id, err)
		}
		if tx.Value, err = core.ParseAmount(rawValue); err != nil {
			return nil, fmt.Errorf("transaction %s value %q: %w", id, rawValue, err)
		}
		if tx.Type, err = core.ParseTransactionType(rawType); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", id, err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *reader) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, description, category, date, value
		FROM expense
		ORDER BY date, category, description, id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var id, description, rawCategory, rawDate, rawValue string
		if err := rows.Scan(&id, &description, &rawCategory, &rawDate, &rawValue); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e := core.Expense{ID: id, Description: description}
		if e.Category, err = core.ParseExpenseCategory(rawCategory); err != nil {
			return nil, fmt.Errorf("expense %s: %w", id, err)
		}
		if e.Date, err = core.ParseDate(rawDate); err != nil {
			return nil, fmt.Errorf("expense %s: %w", id, err)
		}
		if e.Value, err = core.ParseAmount(rawValue); err != nil {
			return nil, fmt.Errorf("expense %s value %q: %w", id, rawValue, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *reader) GetSettingByKey(ctx context.Context, key core.SettingKey) (core.Setting, bool, error) {
	var id, value string
	err := r.q.QueryRowContext(ctx, `SELECT id, value FROM setting WHERE key = ?`, string(key)).Scan(&id, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Setting{}, false, nil
	}
	if err != nil {
		return core.Setting{}, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return core.Setting{ID: id, Key: key, Value: value}, true, nil
}
