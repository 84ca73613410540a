// Package ledger defines the read ports of the ledger store and the
// immutable Snapshot that the report engines operate on.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/core"
)

var (
	ErrDuplicateBalance  = errors.New("duplicate balance")
	ErrDuplicateTransfer = errors.New("duplicate transfer")
)

// Snapshot is everything the engines read, captured once per request.
// Engines treat it as read-only so one snapshot may be shared by
// concurrent computations.
type Snapshot struct {
	Accounts     []core.Account                   `json:"accounts"`
	Transactions []core.Transaction               `json:"transactions"`
	Expenses     []core.Expense                   `json:"expenses"`
	Settings     map[core.SettingKey]core.Setting `json:"settings,omitempty"`
}

// Setting returns the setting stored under key.
func (s *Snapshot) Setting(key core.SettingKey) (core.Setting, bool) {
	v, ok := s.Settings[key]
	return v, ok
}

// AccountsByID indexes the accounts of the snapshot.
func (s *Snapshot) AccountsByID() map[string]core.Account {
	byID := make(map[string]core.Account, len(s.Accounts))
	for _, a := range s.Accounts {
		byID[a.ID] = a
	}
	return byID
}

// Read loads a snapshot from a store. Every known setting key is looked up.
func Read(ctx context.Context, store Store) (*Snapshot, error) {
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	expenses, err := store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	settings := make(map[core.SettingKey]core.Setting)
	for _, key := range core.SettingKeys() {
		setting, ok, err := store.GetSettingByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get setting %s: %w", key, err)
		}
		if ok {
			settings[key] = setting
		}
	}

	return &Snapshot{
		Accounts:     accounts,
		Transactions: txs,
		Expenses:     expenses,
		Settings:     settings,
	}, nil
}

// Capture opens a consistent read on src and loads a snapshot from it.
func Capture(ctx context.Context, src Snapshotter) (snap *Snapshot, err error) {
	store, release, err := src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = fmt.Errorf("release snapshot: %w", rerr)
		}
	}()
	return Read(ctx, store)
}

// Check reports records that break the ledger invariants: invalid
// transactions, more than one balance per account and day, more than one
// transfer per account pair and day. The engines tolerate these, so the
// findings are meant to be logged rather than returned as failures.
func (s *Snapshot) Check() []error {
	type balanceKey struct {
		account string
		date    core.Date
	}
	type transferKey struct {
		account, from string
		date          core.Date
	}

	var (
		problems  []error
		balances  = make(map[balanceKey]int)
		transfers = make(map[transferKey]int)
	)
	for _, tx := range s.Transactions {
		if err := tx.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("transaction %s: %w", tx.ID, err))
			continue
		}
		switch tx.Type {
		case core.Balance:
			k := balanceKey{tx.AccountID, tx.Date}
			balances[k]++
			if balances[k] == 2 {
				problems = append(problems, fmt.Errorf("%w for account %s on %s", ErrDuplicateBalance, k.account, k.date))
			}
		case core.Transfer:
			k := transferKey{tx.AccountID, tx.FromAccountID, tx.Date}
			transfers[k]++
			if transfers[k] == 2 {
				problems = append(problems, fmt.Errorf("%w from %s to %s on %s", ErrDuplicateTransfer, k.from, k.account, k.date))
			}
		}
	}
	for _, e := range s.Expenses {
		if err := e.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("expense %s: %w", e.ID, err))
		}
	}
	return problems
}
