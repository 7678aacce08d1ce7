package repository

import (
	"errors"
	"time"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"gorm.io/gorm"
)

// ErrPaymentAlreadyProcessed is returned by the conditional transitions when
// the payment exists but already left the pendente state.
var ErrPaymentAlreadyProcessed = errors.New("payment already processed")

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment in the database
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByID retrieves a payment by its ID
func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByIDWithMember retrieves a payment with its member and plan preloaded
func (r *paymentRepository) GetByIDWithMember(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Preload("Member").Preload("Plan").First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Update updates an existing payment in the database
func (r *paymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// List retrieves a paginated list of payments
func (r *paymentRepository) List(offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// ListByMember retrieves all payments of one member
func (r *paymentRepository) ListByMember(memberID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("member_id = ?", memberID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// ApprovePending performs the atomic approval: the status flip is a
// conditional update (WHERE status = 'pendente') so two concurrent approvals
// can never both succeed, and the member expiry extension commits in the same
// transaction. Downstream provisioning failures never roll this back.
func (r *paymentRepository) ApprovePending(paymentID uint, approver string, now time.Time) (*models.Payment, time.Time, error) {
	var payment models.Payment
	var newExpiry time.Time

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentID, models.PAYMENT_STATUS_PENDING).
			Updates(map[string]interface{}{
				"status":      models.PAYMENT_STATUS_APPROVED,
				"approved_at": now,
				"approved_by": approver,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish missing payment from a lost race.
			var count int64
			if err := tx.Model(&models.Payment{}).Where("id = ?", paymentID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrPaymentAlreadyProcessed
		}

		if err := tx.Preload("Member").Preload("Plan").First(&payment, paymentID).Error; err != nil {
			return err
		}

		var member models.Member
		if err := tx.First(&member, payment.MemberID).Error; err != nil {
			return err
		}

		newExpiry = member.NextExpiry(payment.EffectiveAccessDays(), now)
		if err := tx.Model(&models.Member{}).Where("id = ?", member.ID).Updates(map[string]interface{}{
			"access_expires_at": newExpiry,
			"status":            models.MEMBER_STATUS_ACTIVE,
		}).Error; err != nil {
			return err
		}

		payment.Member.AccessExpiresAt = &newExpiry
		payment.Member.Status = models.MEMBER_STATUS_ACTIVE
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	return &payment, newExpiry, nil
}

// RejectPending performs the atomic rejection under the same conditional
// guard as ApprovePending. The reason is stored alongside actor/timestamp.
func (r *paymentRepository) RejectPending(paymentID uint, rejecter, reason string, now time.Time) (*models.Payment, error) {
	var payment models.Payment

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentID, models.PAYMENT_STATUS_PENDING).
			Updates(map[string]interface{}{
				"status":           models.PAYMENT_STATUS_REJECTED,
				"rejected_at":      now,
				"rejected_by":      rejecter,
				"rejection_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Payment{}).Where("id = ?", paymentID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrPaymentAlreadyProcessed
		}

		return tx.Preload("Member").First(&payment, paymentID).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// SetInviteLink persists the provisioned link on the payment row
func (r *paymentRepository) SetInviteLink(paymentID uint, link string) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", paymentID).Update("invite_link", link).Error
}

// MarkNotificationSent records channel and aggregate notification outcomes on
// the payment row
func (r *paymentRepository) MarkNotificationSent(paymentID uint, emailSent, anySent bool) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", paymentID).Updates(map[string]interface{}{
		"email_sent":        emailSent,
		"notification_sent": anySent,
	}).Error
}

// ListApprovedWithoutLink returns approved payments that never received an
// invite link, oldest first, capped at limit. The sweeper's work queue.
func (r *paymentRepository) ListApprovedWithoutLink(limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Preload("Member").Preload("Plan").
		Where("status = ? AND invite_link IS NULL", models.PAYMENT_STATUS_APPROVED).
		Order("approved_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// CountApprovedWithoutLink returns how many approved payments still miss a
// link, for the monitoring endpoint.
func (r *paymentRepository) CountApprovedWithoutLink() (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("status = ? AND invite_link IS NULL", models.PAYMENT_STATUS_APPROVED).
		Count(&count).Error
	return count, err
}
