package stats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// TotalType is a coarse financial category derived from the account type.
type TotalType string

const (
	TotalNet                TotalType = "NET"
	TotalIncome             TotalType = "INCOME"
	TotalCash               TotalType = "CASH"
	TotalShortTermAsset     TotalType = "SHORT_TERM_ASSET"
	TotalLongTermAsset      TotalType = "LONG_TERM_ASSET"
	TotalPhysicalAsset      TotalType = "PHYSICAL_ASSET"
	TotalRetirement         TotalType = "RETIREMENT_ASSET"
	TotalShortTermLiability TotalType = "SHORT_TERM_LIABILITY"
	TotalLongTermLiability  TotalType = "LONG_TERM_LIABILITY"
)

// FlowGroup folds TotalTypes into the sources of a balance change.
type FlowGroup string

const (
	GroupNet          FlowGroup = "NET"
	GroupIncome       FlowGroup = "INCOME"
	GroupCash         FlowGroup = "CASH"
	GroupGain         FlowGroup = "GAIN"
	GroupAppreciation FlowGroup = "APPRECIATION"
)

// ExternalPolicy decides how External accounts take part in totals.
type ExternalPolicy int

const (
	// ExternalAsIncome sums External accounts under INCOME and into NET.
	ExternalAsIncome ExternalPolicy = iota
	// ExternalExcluded leaves External accounts out of every total.
	ExternalExcluded
)

var ErrUnknownExternalPolicy = errors.New("unknown external accounts policy")

// ParseExternalPolicy accepts "income" or "exclude".
func ParseExternalPolicy(s string) (ExternalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "":
		return ExternalAsIncome, nil
	case "exclude", "excluded":
		return ExternalExcluded, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownExternalPolicy, s)
}

func (p ExternalPolicy) String() string {
	if p == ExternalExcluded {
		return "exclude"
	}
	return "income"
}

var totalTypeByAccountType = map[core.AccountType]TotalType{
	core.Savings:       TotalShortTermAsset,
	core.Checking:      TotalCash,
	core.Loan:          TotalLongTermLiability,
	core.CreditCard:    TotalShortTermLiability,
	core.Investment:    TotalLongTermAsset,
	core.Retirement:    TotalRetirement,
	core.PhysicalAsset: TotalPhysicalAsset,
	core.External:      TotalIncome,
}

var flowGroupByTotalType = map[TotalType]FlowGroup{
	TotalNet:                GroupNet,
	TotalIncome:             GroupIncome,
	TotalCash:               GroupCash,
	TotalShortTermAsset:     GroupGain,
	TotalLongTermAsset:      GroupGain,
	TotalShortTermLiability: GroupGain,
	TotalLongTermLiability:  GroupGain,
	TotalRetirement:         GroupGain,
	TotalPhysicalAsset:      GroupAppreciation,
}

// GroupOf returns the flow group a TotalType folds into.
func GroupOf(t TotalType) FlowGroup {
	return flowGroupByTotalType[t]
}

// Reducer maps per-account values onto TotalTypes and FlowGroups.
// It is immutable once built.
type Reducer struct {
	accounts map[string]core.Account
	policy   ExternalPolicy
}

func NewReducer(accounts []core.Account, policy ExternalPolicy) *Reducer {
	byID := make(map[string]core.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Reducer{accounts: byID, policy: policy}
}

// TotalTypeOf returns the TotalType of an account type, and false when the
// policy leaves that account type out of totals.
func (r *Reducer) TotalTypeOf(t core.AccountType) (TotalType, bool) {
	if t == core.External && r.policy == ExternalExcluded {
		return "", false
	}
	tt, ok := totalTypeByAccountType[t]
	return tt, ok
}

// TotalTypes lists the types reported under the policy, NET included.
func (r *Reducer) TotalTypes() []TotalType {
	types := []TotalType{TotalNet}
	if r.policy == ExternalAsIncome {
		types = append(types, TotalIncome)
	}
	return append(types,
		TotalCash,
		TotalShortTermAsset,
		TotalLongTermAsset,
		TotalPhysicalAsset,
		TotalRetirement,
		TotalShortTermLiability,
		TotalLongTermLiability,
	)
}

// FlowGroups lists the groups reported under the policy.
func (r *Reducer) FlowGroups() []FlowGroup {
	groups := []FlowGroup{GroupNet}
	if r.policy == ExternalAsIncome {
		groups = append(groups, GroupIncome)
	}
	return append(groups, GroupCash, GroupGain, GroupAppreciation)
}

// Totals sums per-account values into their TotalType. NET is the sum over
// every account the policy includes. Every reported type is present, zero
// when no account maps to it.
func (r *Reducer) Totals(perAccount map[string]decimal.Decimal) (map[TotalType]decimal.Decimal, error) {
	totals := make(map[TotalType]decimal.Decimal)
	for _, t := range r.TotalTypes() {
		totals[t] = decimal.Zero
	}
	for id, v := range perAccount {
		account, ok := r.accounts[id]
		if !ok {
			return nil, fmt.Errorf("running value for account %q: %w", id, core.ErrUnknownAccount)
		}
		t, ok := r.TotalTypeOf(account.Type)
		if !ok {
			continue
		}
		totals[t] = totals[t].Add(v)
		totals[TotalNet] = totals[TotalNet].Add(v)
	}
	return totals, nil
}

// Flow is the part of each balance total not explained by transfers.
func (r *Reducer) Flow(balances, transfers map[TotalType]decimal.Decimal) map[TotalType]decimal.Decimal {
	flow := make(map[TotalType]decimal.Decimal)
	for _, t := range r.TotalTypes() {
		flow[t] = balances[t].Sub(transfers[t])
	}
	return flow
}

// FlowGrouping sums flow values per FlowGroup.
func (r *Reducer) FlowGrouping(flow map[TotalType]decimal.Decimal) map[FlowGroup]decimal.Decimal {
	groups := make(map[FlowGroup]decimal.Decimal)
	for _, g := range r.FlowGroups() {
		groups[g] = decimal.Zero
	}
	for _, t := range r.TotalTypes() {
		g := GroupOf(t)
		groups[g] = groups[g].Add(flow[t])
	}
	return groups
}
