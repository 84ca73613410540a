package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Statistic is one report row: the values observed at a bucket date.
type Statistic struct {
	Date   Date    `json:"date"`
	Values []Value `json:"values"`
}

// Value is a named amount together with its change since the previous row.
type Value struct {
	Name            string
	Value           decimal.Decimal
	ValueDifference decimal.Decimal
}

type valueJSON struct {
	Name            string          `json:"name"`
	Value           json.RawMessage `json:"value"`
	ValueDifference json.RawMessage `json:"valueDifference"`
}

// MarshalJSON writes amounts as plain JSON numbers with two fractional digits.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueJSON{
		Name:            v.Name,
		Value:           json.RawMessage(FormatAmount(v.Value)),
		ValueDifference: json.RawMessage(FormatAmount(v.ValueDifference)),
	})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name            string          `json:"name"`
		Value           decimal.Decimal `json:"value"`
		ValueDifference decimal.Decimal `json:"valueDifference"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = Value{Name: raw.Name, Value: raw.Value, ValueDifference: raw.ValueDifference}
	return nil
}

// Find returns the value with the given name.
func (s Statistic) Find(name string) (Value, bool) {
	for _, v := range s.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Issue is a data-quality finding. Date, AccountID and FromAccountID are
// optional depending on Type.
type Issue struct {
	Type          IssueType `json:"type"`
	Date          *Date     `json:"date,omitempty"`
	AccountID     string    `json:"accountId,omitempty"`
	FromAccountID string    `json:"fromAccountId,omitempty"`
}

// NewIssue builds an issue dated on d.
func NewIssue(t IssueType, d Date, accountID, fromAccountID string) Issue {
	return Issue{Type: t, Date: &d, AccountID: accountID, FromAccountID: fromAccountID}
}
