package repositories

import (
	"context"

	"sacco-backend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// balanceRepository implements BalanceRepository interface
type balanceRepository struct {
	db *gorm.DB
}

// Create creates the balance row of a member
func (r *balanceRepository) Create(ctx context.Context, balance *models.Balance) error {
	return r.db.WithContext(ctx).Create(balance).Error
}

// GetByMemberID gets a member's balance without locking
func (r *balanceRepository) GetByMemberID(ctx context.Context, memberID uint) (*models.Balance, error) {
	var balance models.Balance
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetByMemberIDForUpdate locks the member's balance row
func (r *balanceRepository) GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.Balance, error) {
	var balance models.Balance
	err := forUpdate(r.db.WithContext(ctx)).Where("member_id = ?", memberID).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// Update writes balance and last_edited
func (r *balanceRepository) Update(ctx context.Context, balance *models.Balance) error {
	return r.db.WithContext(ctx).
		Model(&models.Balance{}).
		Where("id = ?", balance.ID).
		Updates(map[string]interface{}{
			"balance":     balance.Balance,
			"last_edited": balance.LastEdited,
		}).Error
}

// emergencyFundRepository implements EmergencyFundRepository interface
type emergencyFundRepository struct {
	db *gorm.DB
}

// Create creates the emergency fund row of a member
func (r *emergencyFundRepository) Create(ctx context.Context, fund *models.EmergencyFund) error {
	return r.db.WithContext(ctx).Create(fund).Error
}

// GetByMemberID gets a member's emergency fund
func (r *emergencyFundRepository) GetByMemberID(ctx context.Context, memberID uint) (*models.EmergencyFund, error) {
	var fund models.EmergencyFund
	err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&fund).Error
	if err != nil {
		return nil, err
	}
	return &fund, nil
}

// GetByMemberIDForUpdate locks the member's emergency fund row
func (r *emergencyFundRepository) GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.EmergencyFund, error) {
	var fund models.EmergencyFund
	err := forUpdate(r.db.WithContext(ctx)).Where("member_id = ?", memberID).First(&fund).Error
	if err != nil {
		return nil, err
	}
	return &fund, nil
}

// Update writes the fund amount
func (r *emergencyFundRepository) Update(ctx context.Context, fund *models.EmergencyFund) error {
	return r.db.WithContext(ctx).Save(fund).Error
}
