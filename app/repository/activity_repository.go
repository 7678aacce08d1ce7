package repository

import (
	"github.com/FelipeCastroBR/TeleGate/app/models"
	"gorm.io/gorm"
)

// activityLogRepository implements the ActivityLogRepository interface
type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new activity log repository instance
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

// Append writes one audit entry
func (r *activityLogRepository) Append(paymentID, memberID *uint, actor, action, detail string) error {
	return models.CreateActivityLog(r.db, paymentID, memberID, actor, action, detail)
}

// ListByPayment retrieves the audit trail of one payment
func (r *activityLogRepository) ListByPayment(paymentID uint) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.Where("payment_id = ?", paymentID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}
