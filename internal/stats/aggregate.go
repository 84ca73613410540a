package stats

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Filter selects the transactions taking part in a report.
type Filter func(core.Transaction) bool

// ApplyFunc folds one transaction into per-account running values.
type ApplyFunc func(running map[string]decimal.Decimal, tx core.Transaction) error

// Accumulator holds the running state of one report while transactions are
// merged with buckets.
type Accumulator interface {
	// Apply folds one transaction into the state.
	Apply(tx core.Transaction) error
	// Values returns the named values of the current state. The returned
	// map is owned by the caller.
	Values() (map[string]decimal.Decimal, error)
}

func BalancesOnly(tx core.Transaction) bool  { return tx.IsBalance() }
func TransfersOnly(tx core.Transaction) bool { return tx.IsTransfer() }
func AllTransactions(core.Transaction) bool  { return true }

// ApplyBalance overwrites the running value of the account.
func ApplyBalance(running map[string]decimal.Decimal, tx core.Transaction) error {
	if _, ok := running[tx.AccountID]; !ok {
		return unknownAccount(tx, tx.AccountID)
	}
	running[tx.AccountID] = tx.Value
	return nil
}

// ApplyTransfer moves the value from the source account to the destination.
func ApplyTransfer(running map[string]decimal.Decimal, tx core.Transaction) error {
	to, ok := running[tx.AccountID]
	if !ok {
		return unknownAccount(tx, tx.AccountID)
	}
	from, ok := running[tx.FromAccountID]
	if !ok {
		return unknownAccount(tx, tx.FromAccountID)
	}
	running[tx.AccountID] = to.Add(tx.Value)
	running[tx.FromAccountID] = from.Sub(tx.Value)
	return nil
}

func unknownAccount(tx core.Transaction, accountID string) error {
	return fmt.Errorf("transaction %s references account %q: %w", tx.ID, accountID, core.ErrUnknownAccount)
}

// SortTransactions returns a copy of txs ordered by date. Same-day
// transactions keep a stable order on type, account, source account and id.
func SortTransactions(txs []core.Transaction) []core.Transaction {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.AccountID, b.AccountID),
			cmp.Compare(a.FromAccountID, b.FromAccountID),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return sorted
}

// Aggregate merges date-sorted transactions with ascending buckets.
//
// For each bucket every transaction dated on or before it is applied, then
// a row is emitted from the accumulator values. Buckets before the first
// matching transaction produce no row.
func Aggregate(txs []core.Transaction, buckets []core.Date, filter Filter, acc Accumulator) ([]core.Statistic, error) {
	var (
		em       emitter
		i        int
		consumed bool
	)
	for _, bucket := range buckets {
		for ; i < len(txs) && !txs[i].Date.After(bucket); i++ {
			if !filter(txs[i]) {
				continue
			}
			if err := acc.Apply(txs[i]); err != nil {
				return nil, err
			}
			consumed = true
		}
		if !consumed {
			continue
		}
		values, err := acc.Values()
		if err != nil {
			return nil, err
		}
		em.emit(bucket, values)
	}
	return em.rows(), nil
}

// accountAccumulator keeps one running value per account. When reduce is
// set the running values are folded into categories before each row.
type accountAccumulator struct {
	running map[string]decimal.Decimal
	apply   ApplyFunc
	reduce  func(map[string]decimal.Decimal) (map[string]decimal.Decimal, error)
}

// NewAccountAccumulator seeds a zero running value for every account.
func NewAccountAccumulator(accounts []core.Account, apply ApplyFunc) Accumulator {
	return &accountAccumulator{running: seedAccounts(accounts), apply: apply}
}

// NewTotalsAccumulator is like NewAccountAccumulator but reports the
// running values summed per TotalType.
func NewTotalsAccumulator(accounts []core.Account, apply ApplyFunc, r *Reducer) Accumulator {
	return &accountAccumulator{
		running: seedAccounts(accounts),
		apply:   apply,
		reduce: func(running map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
			totals, err := r.Totals(running)
			if err != nil {
				return nil, err
			}
			return named(totals), nil
		},
	}
}

func (a *accountAccumulator) Apply(tx core.Transaction) error {
	return a.apply(a.running, tx)
}

func (a *accountAccumulator) Values() (map[string]decimal.Decimal, error) {
	if a.reduce != nil {
		return a.reduce(a.running)
	}
	return maps.Clone(a.running), nil
}

// flowAccumulator tracks balances and transfers side by side and reports
// their difference per TotalType, or per FlowGroup when grouped.
type flowAccumulator struct {
	balances  map[string]decimal.Decimal
	transfers map[string]decimal.Decimal
	reducer   *Reducer
	grouped   bool
}

// NewFlowAccumulator consumes both balances and transfers.
func NewFlowAccumulator(accounts []core.Account, r *Reducer, grouped bool) Accumulator {
	return &flowAccumulator{
		balances:  seedAccounts(accounts),
		transfers: seedAccounts(accounts),
		reducer:   r,
		grouped:   grouped,
	}
}

func (a *flowAccumulator) Apply(tx core.Transaction) error {
	switch tx.Type {
	case core.Balance:
		return ApplyBalance(a.balances, tx)
	case core.Transfer:
		return ApplyTransfer(a.transfers, tx)
	}
	return fmt.Errorf("transaction %s: %w: %q", tx.ID, core.ErrUnknownTransactionType, tx.Type)
}

func (a *flowAccumulator) Values() (map[string]decimal.Decimal, error) {
	balances, err := a.reducer.Totals(a.balances)
	if err != nil {
		return nil, err
	}
	transfers, err := a.reducer.Totals(a.transfers)
	if err != nil {
		return nil, err
	}
	flow := a.reducer.Flow(balances, transfers)
	if a.grouped {
		return named(a.reducer.FlowGrouping(flow)), nil
	}
	return named(flow), nil
}

func seedAccounts(accounts []core.Account) map[string]decimal.Decimal {
	running := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		running[a.ID] = decimal.Zero
	}
	return running
}

func named[K ~string](m map[K]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// emitter builds report rows, computing each difference against the
// previously emitted row. The first row has zero differences.
type emitter struct {
	prev map[string]decimal.Decimal
	out  []core.Statistic
}

func (e *emitter) emit(date core.Date, current map[string]decimal.Decimal) {
	names := slices.Sorted(maps.Keys(current))
	values := make([]core.Value, 0, len(names))
	for _, name := range names {
		v := current[name]
		diff := decimal.Zero
		if prev, ok := e.prev[name]; ok {
			diff = v.Sub(prev)
		}
		values = append(values, core.Value{Name: name, Value: v, ValueDifference: diff})
	}
	e.out = append(e.out, core.Statistic{Date: date, Values: values})
	e.prev = maps.Clone(current)
}

func (e *emitter) rows() []core.Statistic {
	if e.out == nil {
		return []core.Statistic{}
	}
	return e.out
}
