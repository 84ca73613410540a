package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// String-backed enums. Every type has an explicit table of accepted values;
// parsing is exact (after trimming and upper-casing) and unknown values are
// input errors.

type (
	AccountType     string
	TransactionType string
	ExpenseCategory string
	SettingKey      string
	DateRepeat      string
	IssueType       string
)

const (
	Savings       AccountType = "SAVINGS"
	Checking      AccountType = "CHECKING"
	Loan          AccountType = "LOAN"
	CreditCard    AccountType = "CREDIT_CARD"
	Investment    AccountType = "INVESTMENT"
	Retirement    AccountType = "RETIREMENT"
	PhysicalAsset AccountType = "PHYSICAL_ASSET"
	External      AccountType = "EXTERNAL"
)

const (
	Balance  TransactionType = "BALANCE"
	Transfer TransactionType = "TRANSFER"
)

const (
	ExpenseUnknown       ExpenseCategory = "UNKNOWN"
	ExpenseOther         ExpenseCategory = "OTHER"
	ExpenseBills         ExpenseCategory = "BILLS"
	ExpenseClothing      ExpenseCategory = "CLOTHING"
	ExpenseElectronics   ExpenseCategory = "ELECTRONICS"
	ExpenseEntertainment ExpenseCategory = "ENTERTAINMENT"
	ExpenseFitness       ExpenseCategory = "FITNESS"
	ExpenseGroceries     ExpenseCategory = "GROCERIES"
	ExpenseHouse         ExpenseCategory = "HOUSE"
	ExpenseMaintenance   ExpenseCategory = "MAINTENANCE"
	ExpenseMedical       ExpenseCategory = "MEDICAL"
	ExpensePets          ExpenseCategory = "PETS"
	ExpenseRestaurants   ExpenseCategory = "RESTAURANTS"
	ExpenseSmartHome     ExpenseCategory = "SMART_HOME"
	ExpenseSubscriptions ExpenseCategory = "SUBSCRIPTIONS"
	ExpenseVacations     ExpenseCategory = "VACATIONS"
)

const (
	DefaultTransactionFromAccountID       SettingKey = "DEFAULT_TRANSACTION_FROM_ACCOUNT_ID"
	TransferWithoutBalanceIgnoredAccounts SettingKey = "TRANSFER_WITHOUT_BALANCE_IGNORED_ACCOUNTS"
	NoRegularBalanceAccounts              SettingKey = "NO_REGULAR_BALANCE_ACCOUNTS"
	RepeatingTransfers                    SettingKey = "REPEATING_TRANSFERS"
)

const (
	RepeatDaily   DateRepeat = "DAILY"
	RepeatWeekly  DateRepeat = "WEEKLY"
	RepeatMonthly DateRepeat = "MONTHLY"
)

const (
	IssueTransferWithoutBalance IssueType = "TRANSFER_WITHOUT_BALANCE"
	IssueNoBalance              IssueType = "NO_BALANCE"
	IssueNoTransfer             IssueType = "NO_TRANSFER"
)

var (
	ErrUnknownAccountType     = errors.New("unknown account type")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrUnknownExpenseCategory = errors.New("unknown expense category")
	ErrUnknownSettingKey      = errors.New("unknown setting key")
	ErrUnknownDateRepeat      = errors.New("unknown date repeat")
	ErrUnknownIssueType       = errors.New("unknown issue type")
)

// Declaration order matters: it is the sort order used for accounts and issues.
var (
	accountTypes = []AccountType{Savings, Checking, Loan, CreditCard, Investment, Retirement, PhysicalAsset, External}

	transactionTypes = []TransactionType{Balance, Transfer}

	expenseCategories = []ExpenseCategory{
		ExpenseUnknown, ExpenseOther, ExpenseBills, ExpenseClothing, ExpenseElectronics,
		ExpenseEntertainment, ExpenseFitness, ExpenseGroceries, ExpenseHouse, ExpenseMaintenance,
		ExpenseMedical, ExpensePets, ExpenseRestaurants, ExpenseSmartHome, ExpenseSubscriptions,
		ExpenseVacations,
	}

	settingKeys = []SettingKey{
		DefaultTransactionFromAccountID, TransferWithoutBalanceIgnoredAccounts,
		NoRegularBalanceAccounts, RepeatingTransfers,
	}

	dateRepeats = []DateRepeat{RepeatDaily, RepeatWeekly, RepeatMonthly}

	issueTypes = []IssueType{IssueTransferWithoutBalance, IssueNoBalance, IssueNoTransfer}
)

func parseEnum[T ~string](table []T, raw string, sentinel error) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(raw)))
	if !slices.Contains(table, v) {
		var zero T
		return zero, fmt.Errorf("%w: %q", sentinel, raw)
	}
	return v, nil
}

func unmarshalEnum[T ~string](b []byte, parse func(string) (T, error)) (T, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var zero T
		return zero, err
	}
	return parse(s)
}

// AccountTypes returns all account types in declaration order.
func AccountTypes() []AccountType { return slices.Clone(accountTypes) }

func ParseAccountType(s string) (AccountType, error) {
	return parseEnum(accountTypes, s, ErrUnknownAccountType)
}

func (t AccountType) IsValid() bool { return slices.Contains(accountTypes, t) }

// Rank is the position of the type in declaration order, -1 when unknown.
func (t AccountType) Rank() int { return slices.Index(accountTypes, t) }

func (t AccountType) String() string { return string(t) }

func (t *AccountType) UnmarshalJSON(b []byte) (err error) {
	*t, err = unmarshalEnum(b, ParseAccountType)
	return err
}

func ParseTransactionType(s string) (TransactionType, error) {
	return parseEnum(transactionTypes, s, ErrUnknownTransactionType)
}

func (t TransactionType) IsValid() bool { return slices.Contains(transactionTypes, t) }

func (t TransactionType) String() string { return string(t) }

func (t *TransactionType) UnmarshalJSON(b []byte) (err error) {
	*t, err = unmarshalEnum(b, ParseTransactionType)
	return err
}

// ExpenseCategories returns all expense categories in declaration order.
func ExpenseCategories() []ExpenseCategory { return slices.Clone(expenseCategories) }

func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	return parseEnum(expenseCategories, s, ErrUnknownExpenseCategory)
}

func (c ExpenseCategory) IsValid() bool { return slices.Contains(expenseCategories, c) }

func (c ExpenseCategory) String() string { return string(c) }

func (c *ExpenseCategory) UnmarshalJSON(b []byte) (err error) {
	*c, err = unmarshalEnum(b, ParseExpenseCategory)
	return err
}

// SettingKeys returns all recognised setting keys.
func SettingKeys() []SettingKey { return slices.Clone(settingKeys) }

func ParseSettingKey(s string) (SettingKey, error) {
	return parseEnum(settingKeys, s, ErrUnknownSettingKey)
}

func (k SettingKey) IsValid() bool { return slices.Contains(settingKeys, k) }

func (k SettingKey) String() string { return string(k) }

func (k *SettingKey) UnmarshalJSON(b []byte) (err error) {
	*k, err = unmarshalEnum(b, ParseSettingKey)
	return err
}

func ParseDateRepeat(s string) (DateRepeat, error) {
	return parseEnum(dateRepeats, s, ErrUnknownDateRepeat)
}

func (r DateRepeat) IsValid() bool { return slices.Contains(dateRepeats, r) }

func (r DateRepeat) String() string { return string(r) }

func (r *DateRepeat) UnmarshalJSON(b []byte) (err error) {
	*r, err = unmarshalEnum(b, ParseDateRepeat)
	return err
}

func ParseIssueType(s string) (IssueType, error) {
	return parseEnum(issueTypes, s, ErrUnknownIssueType)
}

func (t IssueType) IsValid() bool { return slices.Contains(issueTypes, t) }

// Rank is the position of the type in declaration order, -1 when unknown.
func (t IssueType) Rank() int { return slices.Index(issueTypes, t) }

func (t IssueType) String() string { return string(t) }

func (t *IssueType) UnmarshalJSON(b []byte) (err error) {
	*t, err = unmarshalEnum(b, ParseIssueType)
	return err
}
