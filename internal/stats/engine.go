package stats

import (
	"errors"
	"fmt"
	"strings"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// Category selects what a report measures.
type Category int

const (
	AccountBalances Category = iota + 1
	AccountTransfers
	TotalBalances
	TotalTransfers
	Flow
	FlowGrouping
	Expenses
)

var ErrUnknownCategory = errors.New("unknown category")

type categoryName struct {
	token string
	name  string
}

var categoryNames = map[Category]categoryName{
	AccountBalances:  {"account_balance", "AccountBalances"},
	AccountTransfers: {"account_transfer", "AccountTransfers"},
	TotalBalances:    {"total_balance", "TotalBalances"},
	TotalTransfers:   {"total_transfer", "TotalTransfers"},
	Flow:             {"flow", "Flow"},
	FlowGrouping:     {"flow_grouping", "FlowGrouping"},
	Expenses:         {"expenses", "Expenses"},
}

// Categories returns every report category.
func Categories() []Category {
	return []Category{AccountBalances, AccountTransfers, TotalBalances, TotalTransfers, Flow, FlowGrouping, Expenses}
}

// ParseCategory accepts either the token (total_balance) or the name
// (TotalBalances) of a category, case-insensitively.
func ParseCategory(s string) (Category, error) {
	raw := strings.TrimSpace(s)
	for c, n := range categoryNames {
		if strings.EqualFold(raw, n.token) || strings.EqualFold(raw, n.name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownCategory, s)
}

func (c Category) IsValid() bool {
	_, ok := categoryNames[c]
	return ok
}

// String returns the category token.
func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n.token
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Name returns the display name of the category.
func (c Category) Name() string {
	return categoryNames[c].name
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Options tune a computation.
type Options struct {
	// Today is the reference date the last bucket is derived from.
	// Defaults to the current UTC date.
	Today core.Date
	// External decides how External accounts enter totals.
	External ExternalPolicy
}

func (o Options) today() core.Date {
	if o.Today.IsZero() {
		return core.Today(nil)
	}
	return o.Today
}

// ComputeStatistics builds the report of one category over a snapshot.
//
// A snapshot without transactions yields an empty report. Transactions
// referencing accounts missing from the snapshot are an error wrapping
// core.ErrUnknownAccount.
func ComputeStatistics(period Period, category Category, snap *ledger.Snapshot, opts Options) ([]core.Statistic, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPeriod, int(period))
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(category))
	}
	if snap == nil || len(snap.Transactions) == 0 {
		return []core.Statistic{}, nil
	}

	txs := SortTransactions(snap.Transactions)
	earliest := txs[0].Date

	var expenses []core.Expense
	if category == Expenses {
		expenses = SortExpenses(snap.Expenses)
		if len(expenses) > 0 && expenses[0].Date.Before(earliest) {
			earliest = expenses[0].Date
		}
	}

	buckets := Buckets(period, opts.today(), earliest)
	reducer := NewReducer(snap.Accounts, opts.External)

	var (
		rows []core.Statistic
		err  error
	)
	switch category {
	case AccountBalances:
		rows, err = Aggregate(txs, buckets, BalancesOnly, NewAccountAccumulator(snap.Accounts, ApplyBalance))
	case AccountTransfers:
		rows, err = Aggregate(txs, buckets, TransfersOnly, NewAccountAccumulator(snap.Accounts, ApplyTransfer))
	case TotalBalances:
		rows, err = Aggregate(txs, buckets, BalancesOnly, NewTotalsAccumulator(snap.Accounts, ApplyBalance, reducer))
	case TotalTransfers:
		rows, err = Aggregate(txs, buckets, TransfersOnly, NewTotalsAccumulator(snap.Accounts, ApplyTransfer, reducer))
	case Flow:
		rows, err = Aggregate(txs, buckets, AllTransactions, NewFlowAccumulator(snap.Accounts, reducer, false))
	case FlowGrouping:
		rows, err = Aggregate(txs, buckets, AllTransactions, NewFlowAccumulator(snap.Accounts, reducer, true))
	case Expenses:
		rows, err = computeExpenses(txs, expenses, buckets, snap.Accounts, reducer)
	}
	if err != nil {
		return nil, fmt.Errorf("compute %s %s statistics: %w", period, category, err)
	}
	return rows, nil
}

func computeExpenses(txs []core.Transaction, expenses []core.Expense, buckets []core.Date, accounts []core.Account, r *Reducer) ([]core.Statistic, error) {
	grouping, err := Aggregate(txs, buckets, AllTransactions, NewFlowAccumulator(accounts, r, true))
	if err != nil {
		return nil, err
	}
	return RollupExpenses(expenses, CashMovement(grouping), buckets)
}
