package repositories

import (
	"context"

	"sacco-backend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// Create creates a new loan
func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetByIDForUpdate locks the loan row
func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := forUpdate(r.db.WithContext(ctx)).First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Update updates a loan
func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

// List lists loans newest first
func (r *loanRepository) List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if filter.MemberID != nil {
		query = query.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("date_requested DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// ListGuaranteedBy lists loans the member vouches for
func (r *loanRepository) ListGuaranteedBy(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Joins("JOIN loan_guarantors ON loan_guarantors.loan_id = loans.id").
		Where("loan_guarantors.member_id = ?", memberID).
		Order("loans.date_requested DESC").
		Find(&loans).Error
	return loans, err
}

// guarantorRepository implements GuarantorRepository interface
type guarantorRepository struct {
	db *gorm.DB
}

// Create links a guarantor to a loan
func (r *guarantorRepository) Create(ctx context.Context, g *models.LoanGuarantor) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// ListByLoan lists guarantors of a loan
func (r *guarantorRepository) ListByLoan(ctx context.Context, loanID uint) ([]*models.LoanGuarantor, error) {
	var gs []*models.LoanGuarantor
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("created_at").
		Find(&gs).Error
	return gs, err
}
