package stats

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Keys added to the per-category expense values.
const (
	ExpenseTotalKey = "TOTAL"
	ExpenseCashKey  = "CASH"
)

// SortExpenses returns a copy of expenses ordered by date, then category,
// description and id.
func SortExpenses(expenses []core.Expense) []core.Expense {
	sorted := slices.Clone(expenses)
	slices.SortStableFunc(sorted, func(a, b core.Expense) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Description, b.Description),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return sorted
}

// CashMovement extracts, per bucket, the absolute change of the CASH flow
// group from a FlowGrouping report.
func CashMovement(flowGrouping []core.Statistic) map[core.Date]decimal.Decimal {
	cash := make(map[core.Date]decimal.Decimal, len(flowGrouping))
	for _, s := range flowGrouping {
		if v, ok := s.Find(string(GroupCash)); ok {
			cash[s.Date] = v.ValueDifference.Abs()
		}
	}
	return cash
}

// RollupExpenses accumulates date-sorted expenses per category over the
// buckets, together with a TOTAL over all categories and a CASH running sum
// of the cash movement of each bucket. Rows start at the first bucket that
// has consumed an expense.
func RollupExpenses(expenses []core.Expense, cash map[core.Date]decimal.Decimal, buckets []core.Date) ([]core.Statistic, error) {
	running := make(map[string]decimal.Decimal)
	for _, c := range core.ExpenseCategories() {
		running[string(c)] = decimal.Zero
	}
	running[ExpenseTotalKey] = decimal.Zero
	running[ExpenseCashKey] = decimal.Zero

	var (
		em       emitter
		i        int
		consumed bool
	)
	for _, bucket := range buckets {
		running[ExpenseCashKey] = running[ExpenseCashKey].Add(cash[bucket])

		for ; i < len(expenses) && !expenses[i].Date.After(bucket); i++ {
			e := expenses[i]
			key := string(e.Category)
			if _, ok := running[key]; !ok || key == ExpenseTotalKey || key == ExpenseCashKey {
				return nil, fmt.Errorf("expense %s: %w: %q", e.ID, core.ErrUnknownExpenseCategory, e.Category)
			}
			running[key] = running[key].Add(e.Value)
			running[ExpenseTotalKey] = running[ExpenseTotalKey].Add(e.Value)
			consumed = true
		}

		if consumed {
			em.emit(bucket, maps.Clone(running))
		}
	}
	return em.rows(), nil
}
