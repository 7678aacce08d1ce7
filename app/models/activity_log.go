package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivityLog is an append-only audit entry written for every payment state
// transition and sweeper outcome.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaymentID *uint     `gorm:"index" json:"payment_id"`
	MemberID  *uint     `gorm:"index" json:"member_id"`
	Actor     string    `gorm:"type:varchar(100)" json:"actor"`
	Action    string    `gorm:"type:varchar(50);index" json:"action"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CreateActivityLog appends an audit entry. Failures here never block the
// calling pipeline.
func CreateActivityLog(db *gorm.DB, paymentID, memberID *uint, actor, action, detail string) error {
	entry := ActivityLog{
		PaymentID: paymentID,
		MemberID:  memberID,
		Actor:     actor,
		Action:    action,
		Detail:    detail,
	}

	return db.Create(&entry).Error
}
