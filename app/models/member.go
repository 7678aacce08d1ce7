package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	MEMBER_STATUS_ACTIVE         = "ativo"
	MEMBER_STATUS_EXPIRED        = "vencido"
	MEMBER_STATUS_REMOVED        = "removido"
	MEMBER_STATUS_REMOVAL_FAILED = "erro_remocao"
)

// Member is the person group access is granted to. The admin CRUD surface owns
// member creation; this service only reads members and extends their expiry.
type Member struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Email            string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	TelegramUserID   *int64         `gorm:"index" json:"telegram_user_id"`
	TelegramUsername string         `gorm:"type:varchar(100);default:null" json:"telegram_username"`
	AccessExpiresAt  *time.Time     `gorm:"type:timestamp;default:null" json:"access_expires_at"`
	Status           string         `gorm:"type:varchar(50);default:'ativo'" json:"status" validate:"oneof=ativo vencido removido erro_remocao"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Member) Validate() error {
	v := validator.New()

	return v.Struct(m)
}

// HasTelegramID reports whether the member can receive per-user invite links
// and direct messages.
func (m *Member) HasTelegramID() bool {
	return m.TelegramUserID != nil && *m.TelegramUserID != 0
}

// HasEmail reports whether the email channel is available for this member.
func (m *Member) HasEmail() bool {
	return m.Email != ""
}

// IsActive reports whether the member status is ativo.
func (m *Member) IsActive() bool {
	return m.Status == MEMBER_STATUS_ACTIVE
}

// NextExpiry computes the expiry that granting accessDays more days would
// produce. Expired or unset expiries extend from now, active ones stack.
func (m *Member) NextExpiry(accessDays int, now time.Time) time.Time {
	base := now
	if m.AccessExpiresAt != nil && m.AccessExpiresAt.After(now) {
		base = *m.AccessExpiresAt
	}
	return base.AddDate(0, 0, accessDays)
}
