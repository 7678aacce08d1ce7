package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan describes a purchasable access period. Plan CRUD lives in the admin
// surface; payments reference plans for duration and pricing.
type Plan struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(100)" json:"name" validate:"required,min=2,max=100"`
	PriceCents   int64          `gorm:"not null" json:"price_cents" validate:"gte=0"`
	DurationDays int            `gorm:"not null" json:"duration_days" validate:"gt=0"`
	Active       bool           `gorm:"default:true" json:"active"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
