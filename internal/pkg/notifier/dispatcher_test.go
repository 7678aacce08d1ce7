package notifier

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/FelipeCastroBR/TeleGate/app/models"
)

// fakeLedger is an in-memory NotificationLedger with the same attempt
// accounting the gorm implementation performs.
type fakeLedger struct {
	records map[uint]*models.NotificationRecord
	nextID  uint
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: map[uint]*models.NotificationRecord{}, nextID: 1}
}

func (l *fakeLedger) Create(record *models.NotificationRecord) error {
	record.ID = l.nextID
	l.nextID++
	clone := *record
	l.records[record.ID] = &clone
	return nil
}

func (l *fakeLedger) GetByID(id uint) (*models.NotificationRecord, error) {
	record, ok := l.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (l *fakeLedger) GetByPaymentAndType(paymentID uint, notificationType string) (*models.NotificationRecord, error) {
	for _, record := range l.records {
		if record.PaymentID != nil && *record.PaymentID == paymentID && record.Type == notificationType {
			clone := *record
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (l *fakeLedger) RecordEmailAttempt(id uint, sent bool, lastError string) (*models.NotificationRecord, error) {
	record, ok := l.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	record.EmailAttempts++
	record.EmailLastError = lastError
	if sent {
		record.EmailSent = true
		record.EmailFailed = false
	} else if record.EmailAttempts >= models.MaxChannelAttempts {
		record.EmailFailed = true
	}
	clone := *record
	return &clone, nil
}

func (l *fakeLedger) RecordTelegramAttempt(id uint, sent bool, lastError string) (*models.NotificationRecord, error) {
	record, ok := l.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	record.TelegramAttempts++
	record.TelegramLastError = lastError
	if sent {
		record.TelegramSent = true
		record.TelegramFailed = false
	} else if record.TelegramAttempts >= models.MaxChannelAttempts {
		record.TelegramFailed = true
	}
	clone := *record
	return &clone, nil
}

func (l *fakeLedger) ResetChannel(id uint, channel string) error {
	record, ok := l.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	switch channel {
	case "email":
		record.EmailAttempts = 0
		record.EmailFailed = false
		record.EmailLastError = ""
	case "telegram":
		record.TelegramAttempts = 0
		record.TelegramFailed = false
		record.TelegramLastError = ""
	}
	return nil
}

func (l *fakeLedger) ListFailed(offset, limit int) ([]models.NotificationRecord, error) {
	return nil, nil
}

func (l *fakeLedger) Count() (int64, error) {
	return int64(len(l.records)), nil
}

type fakeMailer struct {
	err          error
	calls        int
	lastTemplate string
}

func (m *fakeMailer) SendInviteMail(to, name, inviteLink string, expiresAt time.Time, accessDays int) error {
	m.calls++
	m.lastTemplate = "invite"
	return m.err
}

func (m *fakeMailer) SendRejectionMail(to, name, reason string) error {
	m.calls++
	m.lastTemplate = "rejection"
	return m.err
}

func (m *fakeMailer) SendExpiryWarningMail(to, name string) error {
	m.calls++
	m.lastTemplate = "expiry"
	return m.err
}

type fakeTelegram struct {
	err      error
	calls    int
	lastText string
}

func (f *fakeTelegram) CreateMemberInviteLink(memberID uint, expiresAt *time.Time) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeTelegram) CreateGenericInviteLink() (string, error) {
	return "", errors.New("not used")
}

func (f *fakeTelegram) SendMessage(userID int64, text string) error {
	f.calls++
	f.lastText = text
	return f.err
}

func testMember() *models.Member {
	tgID := int64(999)
	return &models.Member{ID: 7, Name: "Ana", Email: "ana@example.com", TelegramUserID: &tgID}
}

func approvedEvent(paymentID uint) Event {
	expiry := time.Now().AddDate(0, 0, 30)
	return Event{
		Type:       models.NOTIFICATION_PAYMENT_APPROVED,
		Origin:     models.NOTIFICATION_ORIGIN_ORGANIC,
		PaymentID:  &paymentID,
		InviteLink: "https://t.me/+abc",
		AccessDays: 30,
		ExpiresAt:  &expiry,
	}
}

func TestDispatchBothChannelsSucceed(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{}
	tg := &fakeTelegram{}
	d := NewDispatcher(ledger, mailer, tg)

	result, err := d.Dispatch(testMember(), approvedEvent(10))

	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.True(t, result.TelegramSent)
	assert.True(t, result.Delivered())
	assert.NotEmpty(t, result.EventID)
	assert.Contains(t, tg.lastText, "https://t.me/+abc")
}

func TestDispatchChannelsAreIndependent(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{err: errors.New("smtp connection refused")}
	tg := &fakeTelegram{}
	d := NewDispatcher(ledger, mailer, tg)

	result, err := d.Dispatch(testMember(), approvedEvent(11))

	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.True(t, result.TelegramSent, "telegram must still be attempted after email fails")
	assert.True(t, result.Delivered(), "one successful channel counts as delivered")

	record, err := ledger.GetByID(result.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, 1, record.EmailAttempts)
	assert.Contains(t, record.EmailLastError, "smtp connection refused")
}

func TestDispatchSkipsUnavailableChannels(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{}
	tg := &fakeTelegram{}
	d := NewDispatcher(ledger, mailer, tg)

	member := &models.Member{ID: 8, Name: "Sem Canais"}
	result, err := d.Dispatch(member, approvedEvent(12))

	require.NoError(t, err)
	assert.False(t, result.Delivered())
	assert.Equal(t, 0, mailer.calls, "no email address means no email attempt")
	assert.Equal(t, 0, tg.calls, "no telegram id means no telegram attempt")

	record, err := ledger.GetByID(result.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, 0, record.EmailAttempts, "skipped channels must not consume attempts")
	assert.Equal(t, 0, record.TelegramAttempts)
}

func TestDispatchResumesAndExhaustsBudget(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{err: errors.New("mailbox full")}
	tg := &fakeTelegram{err: errors.New("bot blocked")}
	d := NewDispatcher(ledger, mailer, tg)

	member := testMember()
	event := approvedEvent(13)

	var result *DispatchResult
	var err error
	for i := 0; i < models.MaxChannelAttempts; i++ {
		result, err = d.Dispatch(member, event)
		require.NoError(t, err)
	}

	record, err := ledger.GetByID(result.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, models.MaxChannelAttempts, record.EmailAttempts)
	assert.Equal(t, models.MaxChannelAttempts, record.TelegramAttempts)
	assert.True(t, record.EmailExhausted())
	assert.True(t, record.TelegramExhausted())

	// Budget exhausted: further dispatches must not attempt either channel.
	mailCallsBefore, tgCallsBefore := mailer.calls, tg.calls
	_, err = d.Dispatch(member, event)
	require.NoError(t, err)
	assert.Equal(t, mailCallsBefore, mailer.calls)
	assert.Equal(t, tgCallsBefore, tg.calls)

	// A manual reset reopens exactly one channel.
	require.NoError(t, ledger.ResetChannel(record.ID, "email"))
	mailer.err = nil
	result, err = d.Dispatch(member, event)
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.False(t, result.TelegramSent)
}

func TestDispatchReusesLedgerRowPerPaymentEvent(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{err: errors.New("temporary failure")}
	tg := &fakeTelegram{}
	d := NewDispatcher(ledger, mailer, tg)

	member := testMember()
	event := approvedEvent(14)

	first, err := d.Dispatch(member, event)
	require.NoError(t, err)
	mailer.err = nil
	second, err := d.Dispatch(member, event)
	require.NoError(t, err)

	assert.Equal(t, first.NotificationID, second.NotificationID, "same payment event must resume the same ledger row")
	assert.Equal(t, first.EventID, second.EventID)

	count, _ := ledger.Count()
	assert.EqualValues(t, 1, count)
}

func TestDispatchSentChannelIsNotRepeated(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{}
	tg := &fakeTelegram{err: errors.New("telegram down")}
	d := NewDispatcher(ledger, mailer, tg)

	member := testMember()
	event := approvedEvent(15)

	_, err := d.Dispatch(member, event)
	require.NoError(t, err)
	require.Equal(t, 1, mailer.calls)

	tg.err = nil
	result, err := d.Dispatch(member, event)
	require.NoError(t, err)

	assert.Equal(t, 1, mailer.calls, "already sent email must not be resent")
	assert.True(t, result.EmailSent)
	assert.True(t, result.TelegramSent)
}

func TestDispatchRejectionMessageCarriesReason(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{}
	tg := &fakeTelegram{}
	d := NewDispatcher(ledger, mailer, tg)

	paymentID := uint(16)
	result, err := d.Dispatch(testMember(), Event{
		Type:      models.NOTIFICATION_PAYMENT_REJECTED,
		Origin:    models.NOTIFICATION_ORIGIN_ORGANIC,
		PaymentID: &paymentID,
		Reason:    "comprovante ilegível",
	})

	require.NoError(t, err)
	assert.True(t, result.Delivered())
	assert.Contains(t, tg.lastText, "comprovante ilegível")
	assert.NotContains(t, tg.lastText, "t.me", "rejection must not leak an invite link")
}

func TestDispatchPicksTemplatePerEventType(t *testing.T) {
	ledger := newFakeLedger()
	mailer := &fakeMailer{}
	tg := &fakeTelegram{}
	d := NewDispatcher(ledger, mailer, tg)

	member := testMember()

	_, err := d.Dispatch(member, Event{
		Type:   models.NOTIFICATION_EXPIRY_WARNING,
		Origin: models.NOTIFICATION_ORIGIN_ORGANIC,
	})
	require.NoError(t, err)
	assert.Equal(t, "expiry", mailer.lastTemplate, "expiry warning must not reuse the rejection template")
	assert.Contains(t, tg.lastText, "venceu")
	assert.NotContains(t, tg.lastText, "não foi aprovado")

	paymentID := uint(18)
	_, err = d.Dispatch(member, Event{
		Type:      models.NOTIFICATION_PAYMENT_REJECTED,
		Origin:    models.NOTIFICATION_ORIGIN_ORGANIC,
		PaymentID: &paymentID,
		Reason:    "valor divergente",
	})
	require.NoError(t, err)
	assert.Equal(t, "rejection", mailer.lastTemplate)

	_, err = d.Dispatch(member, approvedEvent(19))
	require.NoError(t, err)
	assert.Equal(t, "invite", mailer.lastTemplate)
}

func TestDispatchSweeperOriginIsRecorded(t *testing.T) {
	ledger := newFakeLedger()
	d := NewDispatcher(ledger, &fakeMailer{}, &fakeTelegram{})

	paymentID := uint(17)
	event := approvedEvent(paymentID)
	event.Origin = models.NOTIFICATION_ORIGIN_SWEEPER

	result, err := d.Dispatch(testMember(), event)
	require.NoError(t, err)

	record, err := ledger.GetByID(result.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, models.NOTIFICATION_ORIGIN_SWEEPER, record.Origin)
}

// Guard against two members sharing a payment id in the fake: each event id is
// unique per created row.
func TestFakeLedgerEventIDsUnique(t *testing.T) {
	ledger := newFakeLedger()
	d := NewDispatcher(ledger, &fakeMailer{}, &fakeTelegram{})

	seen := map[string]bool{}
	for i := uint(100); i < 105; i++ {
		result, err := d.Dispatch(testMember(), approvedEvent(i))
		require.NoError(t, err)
		require.False(t, seen[result.EventID], fmt.Sprintf("duplicate event id %s", result.EventID))
		seen[result.EventID] = true
	}
}
