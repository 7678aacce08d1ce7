package repository

import (
	"fmt"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"gorm.io/gorm"
)

// notificationLedger implements the NotificationLedger interface
type notificationLedger struct {
	db *gorm.DB
}

// NewNotificationLedger creates a new notification ledger instance
func NewNotificationLedger(db *gorm.DB) NotificationLedger {
	return &notificationLedger{db: db}
}

// Create appends a new ledger row
func (r *notificationLedger) Create(record *models.NotificationRecord) error {
	return r.db.Create(record).Error
}

// GetByID retrieves a ledger row by its ID
func (r *notificationLedger) GetByID(id uint) (*models.NotificationRecord, error) {
	var record models.NotificationRecord
	err := r.db.First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByPaymentAndType retrieves the ledger row written for one payment event,
// used to resume the attempt budget on reprocessing.
func (r *notificationLedger) GetByPaymentAndType(paymentID uint, notificationType string) (*models.NotificationRecord, error) {
	var record models.NotificationRecord
	err := r.db.Where("payment_id = ? AND type = ?", paymentID, notificationType).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordEmailAttempt increments the email attempt counter and stores the
// outcome. The failed flag flips once the budget is exhausted.
func (r *notificationLedger) RecordEmailAttempt(id uint, sent bool, lastError string) (*models.NotificationRecord, error) {
	return r.recordAttempt(id, "email", sent, lastError)
}

// RecordTelegramAttempt increments the telegram attempt counter and stores
// the outcome.
func (r *notificationLedger) RecordTelegramAttempt(id uint, sent bool, lastError string) (*models.NotificationRecord, error) {
	return r.recordAttempt(id, "telegram", sent, lastError)
}

func (r *notificationLedger) recordAttempt(id uint, channel string, sent bool, lastError string) (*models.NotificationRecord, error) {
	var record models.NotificationRecord

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			channel + "_attempts":   gorm.Expr(channel+"_attempts + ?", 1),
			channel + "_last_error": lastError,
		}
		if sent {
			updates[channel+"_sent"] = true
			updates[channel+"_failed"] = false
		} else {
			attempts := record.EmailAttempts
			if channel == "telegram" {
				attempts = record.TelegramAttempts
			}
			if attempts+1 >= models.MaxChannelAttempts {
				updates[channel+"_failed"] = true
			}
		}

		if err := tx.Model(&models.NotificationRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&record, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ResetChannel clears a terminally failed channel so administrative
// reprocessing can retry it with a fresh budget.
func (r *notificationLedger) ResetChannel(id uint, channel string) error {
	if channel != "email" && channel != "telegram" {
		return fmt.Errorf("unknown notification channel %q", channel)
	}
	return r.db.Model(&models.NotificationRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		channel + "_attempts":   0,
		channel + "_failed":     false,
		channel + "_last_error": "",
	}).Error
}

// ListFailed returns ledger rows where at least one channel exhausted its
// budget, for the recovery dashboard views.
func (r *notificationLedger) ListFailed(offset, limit int) ([]models.NotificationRecord, error) {
	var records []models.NotificationRecord
	err := r.db.Where("email_failed = ? OR telegram_failed = ?", true, true).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error
	return records, err
}

// Count returns the total number of ledger rows
func (r *notificationLedger) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.NotificationRecord{}).Count(&count).Error
	return count, err
}
