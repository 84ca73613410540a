package ledger

import (
	"context"

	"ledger/internal/core"
)

// Ports for the ledger store the engine reads from.
type (
	AccountLister interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	TransactionLister interface {
		// ListTransactions returns every transaction, in any order.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	ExpenseLister interface {
		// ListExpenses returns every expense, in any order.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	SettingReader interface {
		// GetSettingByKey returns the setting stored under key. The boolean
		// is false when no such setting exists.
		GetSettingByKey(ctx context.Context, key core.SettingKey) (core.Setting, bool, error)
	}

	// Store is a read view over one consistent state of the ledger.
	Store interface {
		AccountLister
		TransactionLister
		ExpenseLister
		SettingReader
	}

	// Snapshotter opens a Store bound to a single consistent read. Calling
	// release ends the read.
	Snapshotter interface {
		Snapshot(ctx context.Context) (store Store, release func() error, err error)
	}
)
