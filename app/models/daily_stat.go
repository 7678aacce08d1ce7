package models

import (
	"time"
)

// DailyStat stores aggregated per-day delivery counters flushed from Redis.
// Dashboards read these to distinguish organic from recovered deliveries.
type DailyStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_stats_day_stat" json:"day"`
	Stat      string    `gorm:"type:varchar(80);not null;uniqueIndex:idx_daily_stats_day_stat" json:"stat"`
	Value     int64     `gorm:"default:0" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
