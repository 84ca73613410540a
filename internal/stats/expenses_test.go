package stats

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

func expense(id, date string, category core.ExpenseCategory, value string) core.Expense {
	return core.Expense{
		ID:          id,
		Description: "expense " + id,
		Category:    category,
		Date:        core.MustParseDate(date),
		Value:       decimal.RequireFromString(value),
	}
}

func TestRollupExpenses(t *testing.T) {
	expenses := SortExpenses([]core.Expense{
		expense("3", "2024-02-25", core.ExpenseGroceries, "20"),
		expense("1", "2024-01-15", core.ExpenseGroceries, "50"),
		expense("2", "2024-02-20", core.ExpenseRestaurants, "30"),
	})
	buckets := dates("2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01")
	cash := map[core.Date]decimal.Decimal{
		core.MustParseDate("2024-01-01"): decimal.RequireFromString("7"),
		core.MustParseDate("2024-03-01"): decimal.RequireFromString("300"),
	}

	got, err := RollupExpenses(expenses, cash, buckets)
	if err != nil {
		t.Fatalf("RollupExpenses() error = %v", err)
	}

	if diff := cmp.Diff([]string{"2024-02-01", "2024-03-01", "2024-04-01"}, statDates(got)); diff != "" {
		t.Fatalf("bucket dates mismatch (-want +got):\n%s", diff)
	}
	for _, s := range got {
		if len(s.Values) != len(core.ExpenseCategories())+2 {
			t.Fatalf("%s: %d values, want every category plus TOTAL and CASH", s.Date, len(s.Values))
		}
	}

	check := func(date, name, value, diff string) {
		t.Helper()
		r := rows(got)[date]
		if want := [2]string{value, diff}; r[name] != want {
			t.Errorf("%s %s = %v, want %v", date, name, r[name], want)
		}
	}
	// Cash movement of buckets without a row still accumulates.
	check("2024-02-01", ExpenseCashKey, "7.00", "0.00")
	check("2024-02-01", "GROCERIES", "50.00", "0.00")
	check("2024-02-01", ExpenseTotalKey, "50.00", "0.00")
	check("2024-03-01", ExpenseCashKey, "307.00", "300.00")
	check("2024-03-01", "GROCERIES", "70.00", "20.00")
	check("2024-03-01", "RESTAURANTS", "30.00", "30.00")
	check("2024-03-01", ExpenseTotalKey, "100.00", "50.00")
	check("2024-04-01", ExpenseTotalKey, "100.00", "0.00")
	check("2024-04-01", "VACATIONS", "0.00", "0.00")
}

func TestRollupExpenses_UnknownCategory(t *testing.T) {
	expenses := []core.Expense{expense("1", "2024-01-15", "LUXURY", "10")}
	_, err := RollupExpenses(expenses, nil, dates("2024-02-01"))
	if !errors.Is(err, core.ErrUnknownExpenseCategory) {
		t.Fatalf("RollupExpenses() error = %v, want ErrUnknownExpenseCategory", err)
	}
}

func TestCashMovement(t *testing.T) {
	stats := []core.Statistic{
		{Date: core.MustParseDate("2024-02-01"), Values: []core.Value{
			{Name: "CASH", Value: decimal.NewFromInt(1000), ValueDifference: decimal.Zero},
		}},
		{Date: core.MustParseDate("2024-03-01"), Values: []core.Value{
			{Name: "CASH", Value: decimal.NewFromInt(700), ValueDifference: decimal.NewFromInt(-300)},
			{Name: "GAIN", Value: decimal.NewFromInt(5), ValueDifference: decimal.NewFromInt(5)},
		}},
	}
	got := amountsByDate(CashMovement(stats))
	want := map[string]string{"2024-02-01": "0.00", "2024-03-01": "300.00"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CashMovement() mismatch (-want +got):\n%s", diff)
	}
}

func amountsByDate(m map[core.Date]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for d, v := range m {
		out[d.String()] = core.FormatAmount(v)
	}
	return out
}
