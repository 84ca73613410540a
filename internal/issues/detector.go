// Package issues cross-checks a ledger snapshot for data quality problems:
// transfers not backed by a balance, accounts missing this month's balance
// and scheduled transfers that did not happen.
package issues

import (
	"cmp"
	"fmt"
	"slices"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/settings"
)

// Options tune issue detection.
type Options struct {
	// Today is the reference date for NoBalance and NoTransfer. Defaults
	// to the current UTC date.
	Today core.Date
	// Parser decodes the repeating transfers setting. nil parses without
	// caching.
	Parser *settings.Parser
}

type accountDay struct {
	account string
	date    core.Date
}

type transferDay struct {
	from, to string
	date     core.Date
}

// index records which balances and transfers exist.
type index struct {
	balances  map[accountDay]struct{}
	touched   map[accountDay]struct{}
	transfers map[transferDay]struct{}
}

func newIndex(txs []core.Transaction) *index {
	idx := &index{
		balances:  make(map[accountDay]struct{}),
		touched:   make(map[accountDay]struct{}),
		transfers: make(map[transferDay]struct{}),
	}
	for _, tx := range txs {
		switch tx.Type {
		case core.Balance:
			idx.balances[accountDay{tx.AccountID, tx.Date}] = struct{}{}
		case core.Transfer:
			idx.touched[accountDay{tx.AccountID, tx.Date}] = struct{}{}
			if tx.FromAccountID == "" {
				continue
			}
			idx.touched[accountDay{tx.FromAccountID, tx.Date}] = struct{}{}
			idx.transfers[transferDay{tx.FromAccountID, tx.AccountID, tx.Date}] = struct{}{}
		}
	}
	return idx
}

func (idx *index) hasBalance(account string, date core.Date) bool {
	_, ok := idx.balances[accountDay{account, date}]
	return ok
}

func (idx *index) hasTransfer(from, to string, date core.Date) bool {
	_, ok := idx.transfers[transferDay{from, to, date}]
	return ok
}

// ComputeIssues runs every rule over the snapshot and returns the issues
// sorted by Sort. A malformed repeating transfers setting or a schedule
// naming an unknown account is an error.
func ComputeIssues(snap *ledger.Snapshot, opts Options) ([]core.Issue, error) {
	if snap == nil {
		return []core.Issue{}, nil
	}
	today := opts.Today
	if today.IsZero() {
		today = core.Today(nil)
	}

	var schedules []core.RepeatingTransfer
	if s, ok := snap.Setting(core.RepeatingTransfers); ok {
		var err error
		if schedules, err = opts.Parser.RepeatingTransfers(s.Value); err != nil {
			return nil, err
		}
	}

	idx := newIndex(snap.Transactions)
	accounts := snap.AccountsByID()

	issues := transferWithoutBalance(idx, accountList(snap, core.TransferWithoutBalanceIgnoredAccounts))
	issues = append(issues, noBalance(idx, snap.Accounts, accountList(snap, core.NoRegularBalanceAccounts), today)...)
	missed, err := noTransfer(idx, schedules, accounts, today)
	if err != nil {
		return nil, err
	}
	issues = append(issues, missed...)

	Sort(issues, accounts)
	return issues, nil
}

func accountList(snap *ledger.Snapshot, key core.SettingKey) settings.AccountSet {
	s, _ := snap.Setting(key)
	return settings.ParseAccountList(s.Value)
}

// TransferWithoutBalance reports every account and day touched by a
// transfer that has no balance recorded that same day. Accounts in ignored
// are skipped.
func TransferWithoutBalance(txs []core.Transaction, ignored settings.AccountSet) []core.Issue {
	issues := transferWithoutBalance(newIndex(txs), ignored)
	Sort(issues, nil)
	return issues
}

func transferWithoutBalance(idx *index, ignored settings.AccountSet) []core.Issue {
	issues := []core.Issue{}
	for k := range idx.touched {
		if ignored.Contains(k.account) || idx.hasBalance(k.account, k.date) {
			continue
		}
		issues = append(issues, core.NewIssue(core.IssueTransferWithoutBalance, k.date, k.account, ""))
	}
	return issues
}

// NoBalance reports every non-External account without a balance on the
// first day of today's month. Accounts in ignored are skipped.
func NoBalance(txs []core.Transaction, accounts []core.Account, ignored settings.AccountSet, today core.Date) []core.Issue {
	issues := noBalance(newIndex(txs), accounts, ignored, today)
	Sort(issues, nil)
	return issues
}

func noBalance(idx *index, accounts []core.Account, ignored settings.AccountSet, today core.Date) []core.Issue {
	first := core.NewDate(today.Year(), today.Month(), 1)
	issues := []core.Issue{}
	for _, a := range accounts {
		if a.Type == core.External || ignored.Contains(a.ID) || idx.hasBalance(a.ID, first) {
			continue
		}
		issues = append(issues, core.NewIssue(core.IssueNoBalance, first, a.ID, ""))
	}
	return issues
}

// NoTransfer reports, for each schedule, the destinations that did not
// receive a transfer from the source on the latest due date.
func NoTransfer(txs []core.Transaction, schedules []core.RepeatingTransfer, accounts map[string]core.Account, today core.Date) ([]core.Issue, error) {
	issues, err := noTransfer(newIndex(txs), schedules, accounts, today)
	if err != nil {
		return nil, err
	}
	Sort(issues, accounts)
	return issues, nil
}

func noTransfer(idx *index, schedules []core.RepeatingTransfer, accounts map[string]core.Account, today core.Date) ([]core.Issue, error) {
	issues := []core.Issue{}
	for i, rt := range schedules {
		if _, ok := accounts[rt.FromAccountID]; !ok {
			return nil, fmt.Errorf("repeating transfer %d: from account %q: %w", i, rt.FromAccountID, core.ErrUnknownAccount)
		}
		for _, to := range rt.ToAccountIDs {
			if _, ok := accounts[to]; !ok {
				return nil, fmt.Errorf("repeating transfer %d: to account %q: %w", i, to, core.ErrUnknownAccount)
			}
		}

		due, ok, err := LatestDue(rt, today)
		if err != nil {
			return nil, fmt.Errorf("repeating transfer %d: %w", i, err)
		}
		if !ok {
			continue
		}
		for _, to := range rt.ToAccountIDs {
			if !idx.hasTransfer(rt.FromAccountID, to, due) {
				issues = append(issues, core.NewIssue(core.IssueNoTransfer, due, to, rt.FromAccountID))
			}
		}
	}
	return issues, nil
}

// Sort orders issues most recent first, then by issue type, then by the
// type and name of the referenced account. Issues whose account is not in
// accounts sort after resolved ones. Account and source ids break the
// remaining ties.
func Sort(issues []core.Issue, accounts map[string]core.Account) {
	slices.SortFunc(issues, func(a, b core.Issue) int {
		return cmp.Or(
			compareDatesDesc(a.Date, b.Date),
			cmp.Compare(a.Type.Rank(), b.Type.Rank()),
			compareAccounts(accounts, a.AccountID, b.AccountID),
			cmp.Compare(a.AccountID, b.AccountID),
			cmp.Compare(a.FromAccountID, b.FromAccountID),
		)
	})
}

// compareDatesDesc puts later dates first and undated issues last.
func compareDatesDesc(a, b *core.Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

func compareAccounts(accounts map[string]core.Account, a, b string) int {
	x, okA := accounts[a]
	y, okB := accounts[b]
	switch {
	case okA && okB:
		return cmp.Or(
			cmp.Compare(x.Type.Rank(), y.Type.Rank()),
			cmp.Compare(x.Name, y.Name),
		)
	case okA:
		return -1
	case okB:
		return 1
	}
	return 0
}
