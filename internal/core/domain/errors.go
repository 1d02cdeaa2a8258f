package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Ledger and state machine errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyProcessed  = errors.New("already processed")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidTerm       = errors.New("invalid loan period")
	ErrInvalidRole       = errors.New("invalid role")
)

// Member errors
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("phone number already registered")
	ErrMemberNotApproved   = errors.New("member is awaiting approval")
	ErrMemberInactive      = errors.New("member account is inactive")
)

// Record errors
var (
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrGuarantorExists     = errors.New("member already guarantees this loan")
	ErrSelfGuarantee       = errors.New("borrower cannot guarantee own loan")
)

// Password reset errors
var (
	ErrResetTokenNotFound = errors.New("reset code not found")
	ErrResetTokenExpired  = errors.New("reset code expired")
	ErrResetThrottled     = errors.New("reset code requested too recently")
)
