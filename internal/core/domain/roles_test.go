package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleMember, CapApproveTransactions, false},
		{RoleMember, CapViewMembers, false},
		{RoleSecretary, CapRecordForMember, true},
		{RoleSecretary, CapApproveTransactions, false},
		{RoleTreasurer, CapApproveTransactions, true},
		{RoleTreasurer, CapApproveLoans, true},
		{RoleTreasurer, CapApproveMembers, false},
		{RoleAdmin, CapManageRoles, true},
		{Role("ROOT"), CapViewMembers, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cap), func(t *testing.T) {
			if got := Can(tt.role, tt.cap); got != tt.want {
				t.Errorf("Can(%s, %s) = %v, want %v", tt.role, tt.cap, got, tt.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("TREASURER"); err != nil || r != RoleTreasurer {
		t.Fatalf("ParseRole(TREASURER) = %q, %v", r, err)
	}
	if _, err := ParseRole("treasurer"); err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestTransactionTypeValid(t *testing.T) {
	for _, tt := range []TransactionType{TxDeposit, TxWithdrawal, TxEmergency} {
		if !tt.Valid() {
			t.Errorf("%s should be valid", tt)
		}
	}
	if TransactionType("transfer").Valid() {
		t.Error("transfer should be invalid")
	}
}

func TestValidateAmount(t *testing.T) {
	valid := []string{"0.01", "500", "500.00", "12.5"}
	for _, v := range valid {
		if err := ValidateAmount(decimal.RequireFromString(v)); err != nil {
			t.Errorf("ValidateAmount(%s) = %v, want nil", v, err)
		}
	}

	invalid := []string{"0", "-1", "0.001", "10.555"}
	for _, v := range invalid {
		if err := ValidateAmount(decimal.RequireFromString(v)); err != ErrInvalidAmount {
			t.Errorf("ValidateAmount(%s) = %v, want ErrInvalidAmount", v, err)
		}
	}
}
