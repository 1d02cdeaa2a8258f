package domain

import "github.com/shopspring/decimal"

// TransactionType is the direction of a ledger request. Amounts are stored unsigned.
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxEmergency  TransactionType = "emergency"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxEmergency:
		return true
	}
	return false
}

// TransactionStatus of a ledger request
type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxApproved TransactionStatus = "approved"
	TxRejected TransactionStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s TransactionStatus) IsTerminal() bool {
	return s == TxApproved || s == TxRejected
}

// LoanStatus of a loan
type LoanStatus string

const (
	LoanWaiting    LoanStatus = "waiting"
	LoanPerforming LoanStatus = "performing"
	LoanPaid       LoanStatus = "paid"
	LoanRejected   LoanStatus = "rejected"
)

// Valid reports whether s is a known loan status
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanWaiting, LoanPerforming, LoanPaid, LoanRejected:
		return true
	}
	return false
}

// AllowedLoanTerms lists the loan periods (months) a member may request
var AllowedLoanTerms = []int{3, 6, 12, 18, 24, 36}

// ValidLoanTerm reports whether months is one of AllowedLoanTerms
func ValidLoanTerm(months int) bool {
	for _, m := range AllowedLoanTerms {
		if m == months {
			return true
		}
	}
	return false
}

// ValidateAmount rejects non-positive amounts and amounts with more than two decimals
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
