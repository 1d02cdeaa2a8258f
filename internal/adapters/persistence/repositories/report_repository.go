package repositories

import (
	"context"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// reportRepository implements ReportRepository interface
type reportRepository struct {
	db *gorm.DB
}

// Summary returns cooperative-wide totals
func (r *reportRepository) Summary(ctx context.Context) (*Summary, error) {
	db := r.db.WithContext(ctx)
	s := &Summary{}

	if err := db.Model(&models.Member{}).Count(&s.TotalMembers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Member{}).Where("approved = ?", false).Count(&s.PendingMembers).Error; err != nil {
		return nil, err
	}

	var savings, emergency struct {
		Total decimal.Decimal
	}
	if err := db.Model(&models.Balance{}).Select("COALESCE(SUM(balance), 0) AS total").Scan(&savings).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.EmergencyFund{}).Select("COALESCE(SUM(amount), 0) AS total").Scan(&emergency).Error; err != nil {
		return nil, err
	}
	s.TotalSavings = savings.Total
	s.TotalEmergencyFund = emergency.Total

	if err := db.Model(&models.Transaction{}).
		Where("status = ?", string(domain.TxPending)).
		Count(&s.PendingTransactions).Error; err != nil {
		return nil, err
	}

	var rows []LoanStatusTotal
	err := db.Model(&models.Loan{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(amount), 0) as principal").
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	s.Loans = rows

	return s, nil
}
