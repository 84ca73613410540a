package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		in      string
		want    AccountType
		wantErr bool
	}{
		{"SAVINGS", Savings, false},
		{"credit_card", CreditCard, false},
		{" EXTERNAL ", External, false},
		{"BROKERAGE", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAccountType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAccountType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownAccountType) {
				t.Fatalf("ParseAccountType() error = %v, want ErrUnknownAccountType", err)
			}
			if got != tt.want {
				t.Errorf("ParseAccountType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccountType_Rank(t *testing.T) {
	if Savings.Rank() != 0 || External.Rank() != 7 {
		t.Errorf("unexpected ranks: savings=%d external=%d", Savings.Rank(), External.Rank())
	}
	if AccountType("NOPE").Rank() != -1 {
		t.Error("unknown account type should rank -1")
	}
	if IssueTransferWithoutBalance.Rank() >= IssueNoBalance.Rank() || IssueNoBalance.Rank() >= IssueNoTransfer.Rank() {
		t.Error("issue types should rank in declaration order")
	}
}

func TestExpenseCategories(t *testing.T) {
	cats := ExpenseCategories()
	if len(cats) != 16 {
		t.Fatalf("expected 16 categories, got %d", len(cats))
	}
	cats[0] = "MUTATED"
	if ExpenseCategories()[0] != ExpenseUnknown {
		t.Error("ExpenseCategories must return a copy")
	}
}

func TestEnumUnmarshalRejectsUnknown(t *testing.T) {
	var acc Account
	err := json.Unmarshal([]byte(`{"id":"a","name":"A","type":"BROKERAGE"}`), &acc)
	if !errors.Is(err, ErrUnknownAccountType) {
		t.Fatalf("expected ErrUnknownAccountType, got %v", err)
	}

	var s Setting
	if err := json.Unmarshal([]byte(`{"id":"1","key":"REPEATING_TRANSFERS","value":"[]"}`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Key != RepeatingTransfers {
		t.Errorf("Key = %v", s.Key)
	}
	if err := json.Unmarshal([]byte(`{"id":"1","key":"THEME","value":"dark"}`), &s); !errors.Is(err, ErrUnknownSettingKey) {
		t.Fatalf("expected ErrUnknownSettingKey, got %v", err)
	}
}
