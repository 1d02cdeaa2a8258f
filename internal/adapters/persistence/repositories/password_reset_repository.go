package repositories

import (
	"context"
	"time"

	"sacco-backend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// passwordResetRepository implements PasswordResetRepository interface
type passwordResetRepository struct {
	db *gorm.DB
}

// Create stores a new reset token
func (r *passwordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByMemberIDForUpdate finds and locks the member's live token
func (r *passwordResetRepository) GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := forUpdate(r.db.WithContext(ctx)).
		Where("member_id = ?", memberID).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// UpdateAttempts records the number of failed verifications
func (r *passwordResetRepository) UpdateAttempts(ctx context.Context, id uint, attempts int) error {
	return r.db.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("id = ?", id).
		Update("attempts", attempts).Error
}

// DeleteByMemberID removes any token held by the member
func (r *passwordResetRepository) DeleteByMemberID(ctx context.Context, memberID uint) error {
	return r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Delete(&models.PasswordResetToken{}).Error
}

// Delete removes a token by ID
func (r *passwordResetRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.PasswordResetToken{}, id)
	return res.RowsAffected > 0, res.Error
}

// DeleteCreatedBefore purges tokens older than the cut-off (cleanup job)
func (r *passwordResetRepository) DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
