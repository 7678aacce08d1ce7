package models

import (
	"time"
)

const (
	INVITE_KIND_MEMBER  = "member"
	INVITE_KIND_GENERIC = "generic"
)

// Invite records one successful provisioning attempt. Rows are created once
// and only mutated to record delivery outcome per channel.
type Invite struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	MemberID          uint       `gorm:"index;not null" json:"member_id"`
	Member            Member     `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	PaymentID         uint       `gorm:"index;not null" json:"payment_id"`
	InviteLink        string     `gorm:"type:varchar(255);not null" json:"invite_link"`
	LinkKind          string     `gorm:"type:varchar(20);default:'member'" json:"link_kind" validate:"oneof=member generic"`
	ExpiresAt         *time.Time `gorm:"type:timestamp;default:null" json:"expires_at"`
	EmailSent         bool       `gorm:"default:false" json:"email_sent"`
	EmailSentAt       *time.Time `gorm:"type:timestamp;default:null" json:"email_sent_at"`
	EmailLastError    string     `gorm:"type:text" json:"email_last_error"`
	TelegramSent      bool       `gorm:"default:false" json:"telegram_sent"`
	TelegramSentAt    *time.Time `gorm:"type:timestamp;default:null" json:"telegram_sent_at"`
	TelegramLastError string     `gorm:"type:text" json:"telegram_last_error"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
