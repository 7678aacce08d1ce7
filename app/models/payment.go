package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PAYMENT_STATUS_PENDING  = "pendente"
	PAYMENT_STATUS_APPROVED = "aprovado"
	PAYMENT_STATUS_REJECTED = "rejeitado"
)

// Payment is a single PIX transaction tied to one member and optionally one
// plan. It reaches a terminal state (aprovado/rejeitado) exactly once and
// never transitions back to pendente.
type Payment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	MemberID         uint           `gorm:"index;not null" json:"member_id"`
	Member           Member         `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	PlanID           *uint          `gorm:"index" json:"plan_id"`
	Plan             *Plan          `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	AmountCents      int64          `gorm:"not null" json:"amount_cents"`
	AccessDays       int            `gorm:"not null" json:"access_days"`
	Status           string         `gorm:"type:varchar(20);default:'pendente';index" json:"status" validate:"oneof=pendente aprovado rejeitado"`
	InviteLink       *string        `gorm:"type:varchar(255);default:null" json:"invite_link"`
	ApprovedAt       *time.Time     `gorm:"type:timestamp;default:null" json:"approved_at"`
	ApprovedBy       string         `gorm:"type:varchar(100);default:null" json:"approved_by"`
	RejectedAt       *time.Time     `gorm:"type:timestamp;default:null" json:"rejected_at"`
	RejectedBy       string         `gorm:"type:varchar(100);default:null" json:"rejected_by"`
	RejectionReason  string         `gorm:"type:text" json:"rejection_reason"`
	EmailSent        bool           `gorm:"default:false" json:"email_sent"`
	NotificationSent bool           `gorm:"default:false" json:"notification_sent"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsPending reports whether the payment is still awaiting a terminal decision.
func (p *Payment) IsPending() bool {
	return p.Status == PAYMENT_STATUS_PENDING
}

// IsApproved reports whether the payment reached the aprovado state.
func (p *Payment) IsApproved() bool {
	return p.Status == PAYMENT_STATUS_APPROVED
}

// HasInviteLink reports whether provisioning already produced a link for this
// payment. Re-provisioning a linked payment must be a no-op.
func (p *Payment) HasInviteLink() bool {
	return p.InviteLink != nil && *p.InviteLink != ""
}

// EffectiveAccessDays prefers the payment's own access_days and falls back to
// the linked plan's duration.
func (p *Payment) EffectiveAccessDays() int {
	if p.AccessDays > 0 {
		return p.AccessDays
	}
	if p.Plan != nil && p.Plan.DurationDays > 0 {
		return p.Plan.DurationDays
	}
	return 0
}
