package repository

import (
	"time"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"gorm.io/gorm"
)

// MemberRepository defines the interface for member-related database operations
type MemberRepository interface {
	Create(member *models.Member) error
	GetByID(id uint) (*models.Member, error)
	GetByEmail(email string) (*models.Member, error)
	GetByTelegramUserID(telegramUserID int64) (*models.Member, error)
	Update(member *models.Member) error
	UpdateStatus(id uint, status string) error
	List(offset, limit int) ([]models.Member, error)
	ListExpired(now time.Time, limit int) ([]models.Member, error)
	Count() (int64, error)
}

// PaymentRepository defines the interface for payment-related database
// operations, including the atomic terminal transitions.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByIDWithMember(id uint) (*models.Payment, error)
	Update(payment *models.Payment) error
	List(offset, limit int) ([]models.Payment, error)
	ListByMember(memberID uint) ([]models.Payment, error)

	// ApprovePending flips a pendente payment to aprovado and extends the
	// member's access expiry in one transaction. The conditional update
	// guarantees at most one terminal transition per payment.
	ApprovePending(paymentID uint, approver string, now time.Time) (*models.Payment, time.Time, error)
	// RejectPending flips a pendente payment to rejeitado with a mandatory
	// reason under the same conditional-update guard.
	RejectPending(paymentID uint, rejecter, reason string, now time.Time) (*models.Payment, error)

	SetInviteLink(paymentID uint, link string) error
	MarkNotificationSent(paymentID uint, emailSent, anySent bool) error
	ListApprovedWithoutLink(limit int) ([]models.Payment, error)
	CountApprovedWithoutLink() (int64, error)
}

// PlanRepository defines the interface for plan lookups
type PlanRepository interface {
	GetByID(id uint) (*models.Plan, error)
	GetActive() ([]models.Plan, error)
}

// InviteRepository defines the interface for invite provisioning records
type InviteRepository interface {
	Create(invite *models.Invite) error
	GetByPaymentID(paymentID uint) (*models.Invite, error)
	RecordEmailOutcome(id uint, sent bool, sentAt *time.Time, lastError string) error
	RecordTelegramOutcome(id uint, sent bool, sentAt *time.Time, lastError string) error
}

// NotificationLedger defines the append-only delivery ledger operations
type NotificationLedger interface {
	Create(record *models.NotificationRecord) error
	GetByID(id uint) (*models.NotificationRecord, error)
	GetByPaymentAndType(paymentID uint, notificationType string) (*models.NotificationRecord, error)
	RecordEmailAttempt(id uint, sent bool, lastError string) (*models.NotificationRecord, error)
	RecordTelegramAttempt(id uint, sent bool, lastError string) (*models.NotificationRecord, error)
	ResetChannel(id uint, channel string) error
	ListFailed(offset, limit int) ([]models.NotificationRecord, error)
	Count() (int64, error)
}

// ActivityLogRepository defines the append-only audit log operations
type ActivityLogRepository interface {
	Append(paymentID, memberID *uint, actor, action, detail string) error
	ListByPayment(paymentID uint) ([]models.ActivityLog, error)
}

// CronRepository tracks scheduled job outcomes
type CronRepository interface {
	Record(jobName string, runErr error) error
	Get(jobName string) (*models.CronRun, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Member       MemberRepository
	Payment      PaymentRepository
	Plan         PlanRepository
	Invite       InviteRepository
	Notification NotificationLedger
	Activity     ActivityLogRepository
	Cron         CronRepository
	Setting      SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Member:       NewMemberRepository(db),
		Payment:      NewPaymentRepository(db),
		Plan:         NewPlanRepository(db),
		Invite:       NewInviteRepository(db),
		Notification: NewNotificationLedger(db),
		Activity:     NewActivityLogRepository(db),
		Cron:         NewCronRepository(db),
		Setting:      NewSettingRepository(db),
	}
}
