package models

import (
	"time"
)

const (
	NOTIFICATION_PAYMENT_APPROVED = "payment_approved"
	NOTIFICATION_PAYMENT_REJECTED = "payment_rejected"
	NOTIFICATION_EXPIRY_WARNING   = "expiry_warning"
	NOTIFICATION_REMOVAL          = "removal"

	NOTIFICATION_ORIGIN_ORGANIC = "organic"
	NOTIFICATION_ORIGIN_SWEEPER = "sweeper"

	// MaxChannelAttempts bounds delivery attempts per channel per event.
	MaxChannelAttempts = 3
)

// NotificationRecord is the append-only delivery ledger: one row per event per
// member, with both channel outcomes stored on the same row so a single read
// answers "was this member told?". Rows are never deleted.
type NotificationRecord struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	EventID           string     `gorm:"type:varchar(40);uniqueIndex" json:"event_id"`
	MemberID          uint       `gorm:"index;not null" json:"member_id"`
	Member            Member     `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	PaymentID         *uint      `gorm:"index" json:"payment_id"`
	Type              string     `gorm:"type:varchar(50);index" json:"type" validate:"oneof=payment_approved payment_rejected expiry_warning removal"`
	Origin            string     `gorm:"type:varchar(20);default:'organic'" json:"origin" validate:"oneof=organic sweeper"`
	EmailSent         bool       `gorm:"default:false" json:"email_sent"`
	EmailAttempts     int        `gorm:"default:0" json:"email_attempts"`
	EmailFailed       bool       `gorm:"default:false" json:"email_failed"`
	EmailLastError    string     `gorm:"type:text" json:"email_last_error"`
	TelegramSent      bool       `gorm:"default:false" json:"telegram_sent"`
	TelegramAttempts  int        `gorm:"default:0" json:"telegram_attempts"`
	TelegramFailed    bool       `gorm:"default:false" json:"telegram_failed"`
	TelegramLastError string     `gorm:"type:text" json:"telegram_last_error"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Delivered reports whether at least one channel reached the member. This is
// the criterion behind the payment-level notification_sent flag.
func (n *NotificationRecord) Delivered() bool {
	return n.EmailSent || n.TelegramSent
}

// EmailExhausted reports whether the email channel used up its attempt budget
// without success.
func (n *NotificationRecord) EmailExhausted() bool {
	return !n.EmailSent && n.EmailAttempts >= MaxChannelAttempts
}

// TelegramExhausted reports whether the telegram channel used up its attempt
// budget without success.
func (n *NotificationRecord) TelegramExhausted() bool {
	return !n.TelegramSent && n.TelegramAttempts >= MaxChannelAttempts
}
