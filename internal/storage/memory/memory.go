// Package memory is an in-process ledger store. It backs the memory data
// backend and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

type Store struct {
	mu       sync.RWMutex
	accounts []core.Account
	txs      []core.Transaction
	expenses []core.Expense
	settings map[core.SettingKey]core.Setting
}

var (
	_ ledger.Store       = (*Store)(nil)
	_ ledger.Snapshotter = (*Store)(nil)
)

func New() *Store {
	return &Store{settings: make(map[core.SettingKey]core.Setting)}
}

// NewFromSnapshot seeds a store with the records of snap. Every record is
// validated; setting keys must be known.
func NewFromSnapshot(snap *ledger.Snapshot) (*Store, error) {
	s := New()
	for _, a := range snap.Accounts {
		if err := s.AddAccount(a); err != nil {
			return nil, err
		}
	}
	for _, tx := range snap.Transactions {
		if err := s.AddTransaction(tx); err != nil {
			return nil, err
		}
	}
	for _, e := range snap.Expenses {
		if err := s.AddExpense(e); err != nil {
			return nil, err
		}
	}
	for key, setting := range snap.Settings {
		if _, err := core.ParseSettingKey(string(key)); err != nil {
			return nil, fmt.Errorf("setting %s: %w", setting.ID, err)
		}
		setting.Key = key
		s.PutSetting(setting)
	}
	return s, nil
}

// NewFromFile loads a JSON encoded ledger.Snapshot. An empty path yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot file %s: %w", path, err)
	}
	return NewFromSnapshot(&snap)
}

func (s *Store) AddAccount(a core.Account) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("account %q: %w", a.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
	return nil
}

func (s *Store) AddTransaction(tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("transaction %q: %w", tx.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

func (s *Store) AddExpense(e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("expense %q: %w", e.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return nil
}

// PutSetting stores a setting, replacing any previous value for its key.
func (s *Store) PutSetting(setting core.Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[setting.Key] = setting
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts), nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.txs), nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenses), nil
}

func (s *Store) GetSettingByKey(_ context.Context, key core.SettingKey) (core.Setting, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[key]
	return setting, ok, nil
}

// Snapshot returns a frozen copy of the store. Writes made after the call
// are not visible through it.
func (s *Store) Snapshot(_ context.Context) (ledger.Store, func() error, error) {
	s.mu.RLock()
	frozen := &Store{
		accounts: slices.Clone(s.accounts),
		txs:      slices.Clone(s.txs),
		expenses: slices.Clone(s.expenses),
		settings: make(map[core.SettingKey]core.Setting, len(s.settings)),
	}
	for k, v := range s.settings {
		frozen.settings[k] = v
	}
	s.mu.RUnlock()
	return frozen, func() error { return nil }, nil
}
