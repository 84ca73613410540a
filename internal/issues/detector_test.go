package issues

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/settings"
)

func balance(id, date, account string) core.Transaction {
	return core.Transaction{
		ID:        id,
		Date:      core.MustParseDate(date),
		Value:     decimal.NewFromInt(1),
		Type:      core.Balance,
		AccountID: account,
	}
}

func transfer(id, date, from, to string) core.Transaction {
	return core.Transaction{
		ID:            id,
		Date:          core.MustParseDate(date),
		Value:         decimal.NewFromInt(1),
		Type:          core.Transfer,
		AccountID:     to,
		FromAccountID: from,
	}
}

func issue(t core.IssueType, date, account, from string) core.Issue {
	return core.NewIssue(t, core.MustParseDate(date), account, from)
}

func TestTransferWithoutBalance(t *testing.T) {
	ignored := settings.ParseAccountList("E")
	steps := []struct {
		name string
		add  core.Transaction
		want []core.Issue
	}{
		{
			name: "external transfer without balance",
			add:  transfer("1", "2024-01-10", "E", "S"),
			want: []core.Issue{
				issue(core.IssueTransferWithoutBalance, "2024-01-10", "S", ""),
			},
		},
		{
			name: "internal transfer touches both accounts",
			add:  transfer("2", "2024-01-11", "L", "S"),
			want: []core.Issue{
				issue(core.IssueTransferWithoutBalance, "2024-01-11", "L", ""),
				issue(core.IssueTransferWithoutBalance, "2024-01-11", "S", ""),
				issue(core.IssueTransferWithoutBalance, "2024-01-10", "S", ""),
			},
		},
		{
			name: "balance on destination",
			add:  balance("3", "2024-01-11", "S"),
			want: []core.Issue{
				issue(core.IssueTransferWithoutBalance, "2024-01-11", "L", ""),
				issue(core.IssueTransferWithoutBalance, "2024-01-10", "S", ""),
			},
		},
		{
			name: "balance on source",
			add:  balance("4", "2024-01-11", "L"),
			want: []core.Issue{
				issue(core.IssueTransferWithoutBalance, "2024-01-10", "S", ""),
			},
		},
		{
			name: "all transfers backed",
			add:  balance("5", "2024-01-10", "S"),
			want: []core.Issue{},
		},
	}

	var txs []core.Transaction
	for _, step := range steps {
		txs = append(txs, step.add)
		t.Run(step.name, func(t *testing.T) {
			got := TransferWithoutBalance(txs, ignored)
			if diff := cmp.Diff(step.want, got); diff != "" {
				t.Errorf("TransferWithoutBalance() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func scenarioSnapshot(txs ...core.Transaction) *ledger.Snapshot {
	return &ledger.Snapshot{
		Accounts: []core.Account{
			{ID: "E", Name: "E", Type: core.External},
			{ID: "S", Name: "S", Type: core.Savings},
			{ID: "L", Name: "L", Type: core.Savings},
		},
		Transactions: txs,
		Settings: map[core.SettingKey]core.Setting{
			core.TransferWithoutBalanceIgnoredAccounts: {ID: "1", Key: core.TransferWithoutBalanceIgnoredAccounts, Value: "E"},
			core.NoRegularBalanceAccounts:              {ID: "2", Key: core.NoRegularBalanceAccounts, Value: "S,L"},
		},
	}
}

func TestComputeIssues_Scenario(t *testing.T) {
	opts := Options{Today: core.MustParseDate("2024-01-15")}

	got, err := ComputeIssues(scenarioSnapshot(
		transfer("1", "2024-01-10", "E", "S"),
		transfer("2", "2024-01-11", "L", "S"),
		balance("3", "2024-01-11", "S"),
	), opts)
	if err != nil {
		t.Fatalf("ComputeIssues() error = %v", err)
	}
	want := []core.Issue{
		issue(core.IssueTransferWithoutBalance, "2024-01-11", "L", ""),
		issue(core.IssueTransferWithoutBalance, "2024-01-10", "S", ""),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeIssues() mismatch (-want +got):\n%s", diff)
	}
}

func householdSnapshot() *ledger.Snapshot {
	return &ledger.Snapshot{
		Accounts: []core.Account{
			{ID: "chk", Name: "Main", Type: core.Checking},
			{ID: "sav", Name: "Rainy day", Type: core.Savings},
			{ID: "inv", Name: "Index fund", Type: core.Investment},
			{ID: "ext", Name: "Employer", Type: core.External},
		},
		Transactions: []core.Transaction{
			balance("1", "2024-03-01", "chk"),
			balance("2", "2024-03-01", "inv"),
			transfer("3", "2024-02-29", "chk", "sav"),
			balance("4", "2024-02-29", "chk"),
			balance("5", "2024-02-29", "sav"),
		},
		Settings: map[core.SettingKey]core.Setting{
			core.RepeatingTransfers: {
				ID:    "3",
				Key:   core.RepeatingTransfers,
				Value: `[{"start":"2024-01-31","repeat":"MONTHLY","repeat_count":1,"from_account_id":"chk","to_account_ids":["sav","inv"]}]`,
			},
		},
	}
}

func TestComputeIssues_NoBalanceAndNoTransfer(t *testing.T) {
	got, err := ComputeIssues(householdSnapshot(), Options{Today: core.MustParseDate("2024-03-15")})
	if err != nil {
		t.Fatalf("ComputeIssues() error = %v", err)
	}
	want := []core.Issue{
		issue(core.IssueNoBalance, "2024-03-01", "sav", ""),
		issue(core.IssueNoTransfer, "2024-02-29", "inv", "chk"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeIssues() mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeIssues_IgnoreNoRegularBalance(t *testing.T) {
	snap := householdSnapshot()
	snap.Settings[core.NoRegularBalanceAccounts] = core.Setting{ID: "9", Key: core.NoRegularBalanceAccounts, Value: "sav"}

	got, err := ComputeIssues(snap, Options{Today: core.MustParseDate("2024-03-15"), Parser: settings.NewParser(8, 0)})
	if err != nil {
		t.Fatalf("ComputeIssues() error = %v", err)
	}
	want := []core.Issue{issue(core.IssueNoTransfer, "2024-02-29", "inv", "chk")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeIssues() mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeIssues_NoTransactions(t *testing.T) {
	snap := &ledger.Snapshot{Accounts: []core.Account{
		{ID: "chk", Name: "Main", Type: core.Checking},
		{ID: "ext", Name: "Employer", Type: core.External},
	}}
	got, err := ComputeIssues(snap, Options{Today: core.MustParseDate("2024-03-15")})
	if err != nil {
		t.Fatalf("ComputeIssues() error = %v", err)
	}
	want := []core.Issue{issue(core.IssueNoBalance, "2024-03-01", "chk", "")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeIssues() mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeIssues_TransferWithoutSource(t *testing.T) {
	got, err := ComputeIssues(scenarioSnapshot(
		transfer("1", "2024-03-01", "", "S"),
	), Options{Today: core.MustParseDate("2024-03-15")})
	if err != nil {
		t.Fatalf("ComputeIssues() error = %v", err)
	}
	want := []core.Issue{issue(core.IssueTransferWithoutBalance, "2024-03-01", "S", "")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeIssues() mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeIssues_NilSnapshot(t *testing.T) {
	got, err := ComputeIssues(nil, Options{Today: core.MustParseDate("2024-03-15")})
	if err != nil {
		t.Fatalf("ComputeIssues() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ComputeIssues(nil) = %v, want no issues", got)
	}
}

func TestComputeIssues_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{"malformed json", `[{"start":`, settings.ErrInvalidRepeatingTransfers},
		{"wrong shape", `{"start":"2024-01-01"}`, settings.ErrInvalidRepeatingTransfers},
		{
			"unknown destination",
			`[{"start":"2024-01-01","repeat":"DAILY","repeat_count":1,"from_account_id":"chk","to_account_ids":["ghost"]}]`,
			core.ErrUnknownAccount,
		},
		{
			"unknown source",
			`[{"start":"2024-01-01","repeat":"DAILY","repeat_count":1,"from_account_id":"ghost","to_account_ids":["sav"]}]`,
			core.ErrUnknownAccount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := householdSnapshot()
			snap.Settings[core.RepeatingTransfers] = core.Setting{ID: "3", Key: core.RepeatingTransfers, Value: tt.value}
			_, err := ComputeIssues(snap, Options{Today: core.MustParseDate("2024-03-15")})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ComputeIssues() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSort(t *testing.T) {
	accounts := householdSnapshot().AccountsByID()
	undated := core.Issue{Type: core.IssueNoBalance, AccountID: "chk"}
	issues := []core.Issue{
		undated,
		issue(core.IssueNoTransfer, "2024-02-29", "inv", "chk"),
		issue(core.IssueNoBalance, "2024-03-01", "chk", ""),
		issue(core.IssueTransferWithoutBalance, "2024-03-01", "ghost", ""),
		issue(core.IssueNoBalance, "2024-03-01", "sav", ""),
		issue(core.IssueTransferWithoutBalance, "2024-03-01", "chk", ""),
	}

	Sort(issues, accounts)

	want := []core.Issue{
		issue(core.IssueTransferWithoutBalance, "2024-03-01", "chk", ""),
		issue(core.IssueTransferWithoutBalance, "2024-03-01", "ghost", ""),
		issue(core.IssueNoBalance, "2024-03-01", "sav", ""),
		issue(core.IssueNoBalance, "2024-03-01", "chk", ""),
		issue(core.IssueNoTransfer, "2024-02-29", "inv", "chk"),
		undated,
	}
	if diff := cmp.Diff(want, issues); diff != "" {
		t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
	}
}
