package repository

import (
	"time"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"gorm.io/gorm"
)

// inviteRepository implements the InviteRepository interface
type inviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new invite repository instance
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

// Create creates a new invite record
func (r *inviteRepository) Create(invite *models.Invite) error {
	return r.db.Create(invite).Error
}

// GetByPaymentID retrieves the invite record created for a payment
func (r *inviteRepository) GetByPaymentID(paymentID uint) (*models.Invite, error) {
	var invite models.Invite
	err := r.db.Where("payment_id = ?", paymentID).First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// RecordEmailOutcome stores the email delivery outcome on the invite row
func (r *inviteRepository) RecordEmailOutcome(id uint, sent bool, sentAt *time.Time, lastError string) error {
	return r.db.Model(&models.Invite{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email_sent":       sent,
		"email_sent_at":    sentAt,
		"email_last_error": lastError,
	}).Error
}

// RecordTelegramOutcome stores the telegram delivery outcome on the invite row
func (r *inviteRepository) RecordTelegramOutcome(id uint, sent bool, sentAt *time.Time, lastError string) error {
	return r.db.Model(&models.Invite{}).Where("id = ?", id).Updates(map[string]interface{}{
		"telegram_sent":       sent,
		"telegram_sent_at":    sentAt,
		"telegram_last_error": lastError,
	}).Error
}
