package repository

import (
	"time"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"gorm.io/gorm"
)

// memberRepository implements the MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository instance
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Create creates a new member in the database
func (r *memberRepository) Create(member *models.Member) error {
	return r.db.Create(member).Error
}

// GetByID retrieves a member by their ID
func (r *memberRepository) GetByID(id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.First(&member, id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByEmail retrieves a member by their email address
func (r *memberRepository) GetByEmail(email string) (*models.Member, error) {
	var member models.Member
	err := r.db.Where("email = ?", email).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByTelegramUserID retrieves a member by their Telegram numeric id
func (r *memberRepository) GetByTelegramUserID(telegramUserID int64) (*models.Member, error) {
	var member models.Member
	err := r.db.Where("telegram_user_id = ?", telegramUserID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Update updates an existing member in the database
func (r *memberRepository) Update(member *models.Member) error {
	return r.db.Save(member).Error
}

// UpdateStatus updates only the membership status column
func (r *memberRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Member{}).Where("id = ?", id).Update("status", status).Error
}

// List retrieves a paginated list of members
func (r *memberRepository) List(offset, limit int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&members).Error
	return members, err
}

// ListExpired returns active members whose access expiry has passed
func (r *memberRepository) ListExpired(now time.Time, limit int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.
		Where("status = ? AND access_expires_at IS NOT NULL AND access_expires_at < ?", models.MEMBER_STATUS_ACTIVE, now).
		Order("access_expires_at ASC").
		Limit(limit).
		Find(&members).Error
	return members, err
}

// Count returns the total number of members
func (r *memberRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Member{}).Count(&count).Error
	return count, err
}
