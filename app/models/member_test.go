package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextExpiryStacksOnActiveAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := now.AddDate(0, 0, 10)
	m := &Member{AccessExpiresAt: &current}

	next := m.NextExpiry(30, now)

	assert.Equal(t, current.AddDate(0, 0, 30), next, "active access must stack, not reset")
}

func TestNextExpiryFromNowWhenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -5)
	m := &Member{AccessExpiresAt: &past}

	next := m.NextExpiry(30, now)

	assert.Equal(t, now.AddDate(0, 0, 30), next, "expired access extends from now")
}

func TestNextExpiryFromNowWhenUnset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &Member{}

	next := m.NextExpiry(7, now)

	assert.Equal(t, now.AddDate(0, 0, 7), next)
}

func TestMemberChannelAvailability(t *testing.T) {
	tgID := int64(123)
	zero := int64(0)

	tests := []struct {
		name        string
		member      Member
		hasEmail    bool
		hasTelegram bool
	}{
		{"both channels", Member{Email: "a@b.com", TelegramUserID: &tgID}, true, true},
		{"email only", Member{Email: "a@b.com"}, true, false},
		{"telegram only", Member{TelegramUserID: &tgID}, false, true},
		{"zero telegram id is unavailable", Member{TelegramUserID: &zero}, false, false},
		{"no channels", Member{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hasEmail, tt.member.HasEmail())
			assert.Equal(t, tt.hasTelegram, tt.member.HasTelegramID())
		})
	}
}

func TestPaymentEffectiveAccessDays(t *testing.T) {
	tests := []struct {
		name    string
		payment Payment
		want    int
	}{
		{"payment days win", Payment{AccessDays: 15, Plan: &Plan{DurationDays: 30}}, 15},
		{"plan fallback", Payment{Plan: &Plan{DurationDays: 30}}, 30},
		{"no plan no days", Payment{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.payment.EffectiveAccessDays())
		})
	}
}

func TestPaymentHasInviteLink(t *testing.T) {
	empty := ""
	link := "https://t.me/+abc"

	assert.False(t, (&Payment{}).HasInviteLink())
	assert.False(t, (&Payment{InviteLink: &empty}).HasInviteLink())
	assert.True(t, (&Payment{InviteLink: &link}).HasInviteLink())
}

func TestNotificationRecordBudget(t *testing.T) {
	r := &NotificationRecord{EmailAttempts: MaxChannelAttempts}
	assert.True(t, r.EmailExhausted())
	assert.False(t, r.TelegramExhausted())

	r.EmailSent = true
	assert.False(t, r.EmailExhausted(), "a sent channel is never exhausted")
	assert.True(t, r.Delivered())
}
