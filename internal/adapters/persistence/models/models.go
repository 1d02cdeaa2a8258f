package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Members & Auth
// ============================================================

// Member represents members table. Phone is the login handle.
type Member struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FirstName string         `gorm:"size:30;not null" json:"first_name"`
	LastName  string         `gorm:"size:30;not null" json:"last_name"`
	Phone     string         `gorm:"uniqueIndex;size:15;not null" json:"phone"`
	DOB       time.Time      `gorm:"type:date;not null" json:"dob"`
	Email     *string        `gorm:"size:100" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'MEMBER'" json:"role"`
	IsActive  bool           `gorm:"default:false" json:"is_active"`
	Approved  bool           `gorm:"default:false" json:"approved"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Member) TableName() string {
	return "members"
}

// FullName returns "first last"
func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// MemberResponse DTO
type MemberResponse struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	DOB       string    `json:"dob"`
	Email     *string   `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		DOB:       m.DOB.Format("2006-01-02"),
		Email:     m.Email,
		Role:      m.Role,
		IsActive:  m.IsActive,
		Approved:  m.Approved,
		CreatedAt: m.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MemberID  uint       `gorm:"index;not null" json:"member_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// PasswordResetToken represents password_reset_tokens table.
// The unique index on member_id keeps at most one live code per member.
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"uniqueIndex;not null" json:"member_id"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	Attempts  int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// ============================================================
// Ledger
// ============================================================

// Balance is the running savings balance of one member
type Balance struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MemberID   uint            `gorm:"uniqueIndex;not null" json:"member_id"`
	Balance    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	LastEdited time.Time       `gorm:"not null" json:"last_edited"`
}

func (Balance) TableName() string {
	return "balances"
}

// EmergencyFund accumulates emergency contributions of one member
type EmergencyFund struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	MemberID  uint            `gorm:"uniqueIndex;not null" json:"member_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EmergencyFund) TableName() string {
	return "emergency_funds"
}

// BalanceResponse DTO
type BalanceResponse struct {
	MemberID      uint      `json:"member_id"`
	Balance       string    `json:"balance"`
	EmergencyFund string    `json:"emergency_fund"`
	LastEdited    time.Time `json:"last_edited"`
}

// Transaction is a pending or processed ledger request
type Transaction struct {
	ID           string          `gorm:"type:char(36);primaryKey" json:"id"`
	MemberID     uint            `gorm:"not null;index" json:"member_id"`
	Type         string          `gorm:"size:20;not null;index" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status       string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedBy    uint            `gorm:"not null" json:"created_by"`
	ProcessedBy  *uint           `json:"processed_by"`
	ProcessedAt  *time.Time      `json:"processed_at"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance_after"`
	Description  string          `gorm:"type:text" json:"description"`
	Date         time.Time       `gorm:"not null;index" json:"date"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate assigns a UUID when the caller did not
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TransactionResponse DTO
type TransactionResponse struct {
	ID           string     `json:"id"`
	MemberID     uint       `json:"member_id"`
	Type         string     `json:"type"`
	Amount       string     `json:"amount"`
	Status       string     `json:"status"`
	CreatedBy    uint       `json:"created_by"`
	ProcessedBy  *uint      `json:"processed_by"`
	ProcessedAt  *time.Time `json:"processed_at"`
	BalanceAfter string     `json:"balance_after"`
	Description  string     `json:"description"`
	Date         time.Time  `json:"date"`
}

func (t *Transaction) ToResponse() *TransactionResponse {
	return &TransactionResponse{
		ID:           t.ID,
		MemberID:     t.MemberID,
		Type:         t.Type,
		Amount:       t.Amount.StringFixed(2),
		Status:       t.Status,
		CreatedBy:    t.CreatedBy,
		ProcessedBy:  t.ProcessedBy,
		ProcessedAt:  t.ProcessedAt,
		BalanceAfter: t.BalanceAfter.StringFixed(2),
		Description:  t.Description,
		Date:         t.Date,
	}
}

// ============================================================
// Loans
// ============================================================

// Loan represents loans table
type Loan struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	MemberID      uint            `gorm:"not null;index" json:"member_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	InterestRate  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	PeriodMonths  int             `gorm:"not null" json:"period_months"`
	Status        string          `gorm:"size:20;not null;default:'waiting';index" json:"status"`
	Purpose       string          `gorm:"type:text" json:"purpose"`
	ApprovedBy    *uint           `json:"approved_by"`
	DateRequested time.Time       `gorm:"not null" json:"date_requested"`
	DateApproved  *time.Time      `json:"date_approved"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string {
	return "loans"
}

// LoanResponse DTO
type LoanResponse struct {
	ID            uint       `json:"id"`
	MemberID      uint       `json:"member_id"`
	Amount        string     `json:"amount"`
	InterestRate  string     `json:"interest_rate"`
	PeriodMonths  int        `json:"period_months"`
	Status        string     `json:"status"`
	Purpose       string     `json:"purpose"`
	ApprovedBy    *uint      `json:"approved_by"`
	DateRequested time.Time  `json:"date_requested"`
	DateApproved  *time.Time `json:"date_approved"`
	DueAmount     string     `json:"due_amount"`
}

// ToResponse builds the DTO; due is the computed total repayable
func (l *Loan) ToResponse(due decimal.Decimal) *LoanResponse {
	return &LoanResponse{
		ID:            l.ID,
		MemberID:      l.MemberID,
		Amount:        l.Amount.StringFixed(2),
		InterestRate:  l.InterestRate.StringFixed(2),
		PeriodMonths:  l.PeriodMonths,
		Status:        l.Status,
		Purpose:       l.Purpose,
		ApprovedBy:    l.ApprovedBy,
		DateRequested: l.DateRequested,
		DateApproved:  l.DateApproved,
		DueAmount:     due.StringFixed(2),
	}
}

// LoanGuarantor links a loan with a member vouching for it
type LoanGuarantor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LoanID    uint      `gorm:"not null;uniqueIndex:idx_loan_guarantor" json:"loan_id"`
	MemberID  uint      `gorm:"not null;uniqueIndex:idx_loan_guarantor;index" json:"member_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (LoanGuarantor) TableName() string {
	return "loan_guarantors"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&RefreshToken{},
		&PasswordResetToken{},
		&Balance{},
		&EmergencyFund{},
		&Transaction{},
		&Loan{},
		&LoanGuarantor{},
	)
}
