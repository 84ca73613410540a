package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateFormat = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Account struct {
		ID   string      `json:"id"`
		Name string      `json:"name"`
		Type AccountType `json:"type"`
	}

	Transaction struct {
		ID            string          `json:"id"`
		Description   string          `json:"description,omitempty"`
		Date          Date            `json:"date"`
		Value         decimal.Decimal `json:"value"`
		Type          TransactionType `json:"type"`
		AccountID     string          `json:"accountId"`
		FromAccountID string          `json:"fromAccountId,omitempty"` // Transfer only
	}

	Expense struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Category    ExpenseCategory `json:"category"`
		Date        Date            `json:"date"`
		Value       decimal.Decimal `json:"value"`
	}

	Setting struct {
		ID    string     `json:"id"`
		Key   SettingKey `json:"key"`
		Value string     `json:"value"`
	}

	// RepeatingTransfer is a declared expectation that a transfer from one
	// account to each of ToAccountIDs recurs every RepeatCount units of Repeat.
	RepeatingTransfer struct {
		Start         Date       `json:"start"`
		Repeat        DateRepeat `json:"repeat"`
		RepeatCount   int        `json:"repeat_count"`
		FromAccountID string     `json:"from_account_id"`
		ToAccountIDs  []string   `json:"to_account_ids"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyID           = errors.New("empty id")
	ErrEmptyAccount      = errors.New("empty account id")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrMissingFrom       = errors.New("transfer without from account")
	ErrUnexpectedFrom    = errors.New("balance with from account")
	ErrSelfTransfer      = errors.New("transfer to the same account")
	ErrInvalidRepetition = errors.New("invalid repeating transfer")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date as seen from loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := time.Now().In(loc).Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO-8601 calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year(), d.Month(), d.Day()+n)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int { return d.Time.Compare(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownAccountType, a.Type)
	}
	return nil
}

// IsTransfer reports whether the transaction moves value between two accounts.
func (t Transaction) IsTransfer() bool { return t.Type == Transfer }

// IsBalance reports whether the transaction records a point-in-time value.
func (t Transaction) IsBalance() bool { return t.Type == Balance }

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	switch t.Type {
	case Balance:
		if t.FromAccountID != "" {
			return ErrUnexpectedFrom
		}
	case Transfer:
		if t.FromAccountID == "" {
			return ErrMissingFrom
		}
		if t.FromAccountID == t.AccountID {
			return ErrSelfTransfer
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransactionType, t.Type)
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownExpenseCategory, e.Category)
	}
	return nil
}

func (rt RepeatingTransfer) Validate() error {
	if err := rt.Start.Validate(); err != nil {
		return fmt.Errorf("%w: invalid start date: %v", ErrInvalidRepetition, err)
	}
	if !rt.Repeat.IsValid() {
		return fmt.Errorf("%w: unknown repeat %q", ErrInvalidRepetition, rt.Repeat)
	}
	if rt.RepeatCount < 1 {
		return fmt.Errorf("%w: repeat_count must be positive, got %d", ErrInvalidRepetition, rt.RepeatCount)
	}
	if strings.TrimSpace(rt.FromAccountID) == "" {
		return fmt.Errorf("%w: empty from_account_id", ErrInvalidRepetition)
	}
	if len(rt.ToAccountIDs) == 0 {
		return fmt.Errorf("%w: to_account_ids cannot be empty", ErrInvalidRepetition)
	}
	if slices.Contains(rt.ToAccountIDs, rt.FromAccountID) {
		return fmt.Errorf("%w: from_account_id %q is also a destination", ErrInvalidRepetition, rt.FromAccountID)
	}
	return nil
}
