package models

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean, integer
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings represents the runtime knobs of the provisioning pipeline.
type AppSettings struct {
	SiteTitle            string `json:"site_title" validate:"required,min=1,max=255"`
	SweepBatchSize       int    `json:"sweep_batch_size" validate:"gt=0"`
	SweepIntervalMinutes int    `json:"sweep_interval_minutes" validate:"gt=0"`
	ExpiryCheckEnabled   bool   `json:"expiry_check_enabled"`
	mu                   sync.RWMutex
}

// Global settings instance
var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// GetAppSettings returns the current application settings
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings loads settings from database into memory
func LoadSettings(db *gorm.DB) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	// Initialize with defaults
	appSettings = &AppSettings{
		SiteTitle:            "TeleGate",
		SweepBatchSize:       20,
		SweepIntervalMinutes: 30,
		ExpiryCheckEnabled:   true,
	}

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		switch setting.Key {
		case "site_title":
			appSettings.SiteTitle = setting.Value
		case "sweep_batch_size":
			if v, err := strconv.Atoi(setting.Value); err == nil && v > 0 {
				appSettings.SweepBatchSize = v
			}
		case "sweep_interval_minutes":
			if v, err := strconv.Atoi(setting.Value); err == nil && v > 0 {
				appSettings.SweepIntervalMinutes = v
			}
		case "expiry_check_enabled":
			appSettings.ExpiryCheckEnabled = setting.Value == "true"
		}
	}

	return nil
}

// SaveSettings saves current settings to database
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	settingsMap := map[string]string{
		"site_title":             settings.SiteTitle,
		"sweep_batch_size":       strconv.Itoa(settings.SweepBatchSize),
		"sweep_interval_minutes": strconv.Itoa(settings.SweepIntervalMinutes),
		"expiry_check_enabled":   fmt.Sprintf("%t", settings.ExpiryCheckEnabled),
	}

	for key, value := range settingsMap {
		var setting Setting
		result := db.Where("setting_key = ?", key).First(&setting)

		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				setting = Setting{
					Key:   key,
					Value: value,
					Type:  getSettingType(key),
				}
				if err := db.Create(&setting).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", key, err)
				}
			} else {
				return fmt.Errorf("failed to query setting %s: %w", key, result.Error)
			}
		} else {
			setting.Value = value
			if err := db.Save(&setting).Error; err != nil {
				return fmt.Errorf("failed to update setting %s: %w", key, err)
			}
		}
	}

	appSettings = settings

	return nil
}

// Validate validates the settings struct
func (s *AppSettings) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// GetSweepBatchSize returns the maximum number of payments one sweep run may
// process.
func (s *AppSettings) GetSweepBatchSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.SweepBatchSize <= 0 {
		return 20
	}
	return s.SweepBatchSize
}

// GetSweepIntervalMinutes returns the sweep ticker interval in minutes.
func (s *AppSettings) GetSweepIntervalMinutes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.SweepIntervalMinutes <= 0 {
		return 30
	}
	return s.SweepIntervalMinutes
}

// IsExpiryCheckEnabled reports whether the expiry worker should run.
func (s *AppSettings) IsExpiryCheckEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ExpiryCheckEnabled
}

func getSettingType(key string) string {
	switch key {
	case "sweep_batch_size", "sweep_interval_minutes":
		return "integer"
	case "expiry_check_enabled":
		return "boolean"
	default:
		return "string"
	}
}
