package notifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/app/repository"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/mail"
	metrics "github.com/FelipeCastroBR/TeleGate/internal/pkg/metrics/counter"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/telegram"
)

// Event carries everything the dispatcher needs to compose channel messages.
type Event struct {
	Type       string // models.NOTIFICATION_* constant
	Origin     string // models.NOTIFICATION_ORIGIN_* constant
	PaymentID  *uint
	InviteLink string
	AccessDays int
	ExpiresAt  *time.Time
	Reason     string
}

// DispatchResult reports the per-channel outcome of one dispatch call.
type DispatchResult struct {
	EmailSent      bool
	TelegramSent   bool
	NotificationID uint
	EventID        string
}

// Delivered reports whether at least one channel reached the member.
func (r *DispatchResult) Delivered() bool {
	return r.EmailSent || r.TelegramSent
}

// Dispatcher delivers events to a member over email and Telegram. The two
// channels are attempted independently with a bounded per-channel retry
// budget persisted in the ledger, so one channel failing never blocks the
// other and re-dispatching resumes where the budget left off.
type Dispatcher struct {
	ledger repository.NotificationLedger
	mailer mail.Mailer
	tg     telegram.API
}

// NewDispatcher creates a dispatcher from its collaborators.
func NewDispatcher(ledger repository.NotificationLedger, mailer mail.Mailer, tg telegram.API) *Dispatcher {
	return &Dispatcher{ledger: ledger, mailer: mailer, tg: tg}
}

// Dispatch delivers one event to one member. It returns an error only when
// the ledger itself cannot be read or written; channel delivery failures are
// reported through the result and the ledger row.
func (d *Dispatcher) Dispatch(member *models.Member, event Event) (*DispatchResult, error) {
	record, err := d.findOrCreateRecord(member, event)
	if err != nil {
		return nil, fmt.Errorf("notification ledger: %w", err)
	}

	result := &DispatchResult{
		NotificationID: record.ID,
		EventID:        record.EventID,
		EmailSent:      record.EmailSent,
		TelegramSent:   record.TelegramSent,
	}

	record = d.attemptEmail(member, event, record)
	result.EmailSent = record.EmailSent

	record = d.attemptTelegram(member, event, record)
	result.TelegramSent = record.TelegramSent

	return result, nil
}

// findOrCreateRecord resumes the existing ledger row for this payment event
// or appends a fresh one. One row per event per member keeps both channel
// outcomes readable in a single query.
func (d *Dispatcher) findOrCreateRecord(member *models.Member, event Event) (*models.NotificationRecord, error) {
	if event.PaymentID != nil {
		record, err := d.ledger.GetByPaymentAndType(*event.PaymentID, event.Type)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	record := &models.NotificationRecord{
		EventID:   uuid.NewString(),
		MemberID:  member.ID,
		PaymentID: event.PaymentID,
		Type:      event.Type,
		Origin:    event.Origin,
	}
	if record.Origin == "" {
		record.Origin = models.NOTIFICATION_ORIGIN_ORGANIC
	}
	if err := d.ledger.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (d *Dispatcher) attemptEmail(member *models.Member, event Event, record *models.NotificationRecord) *models.NotificationRecord {
	if record.EmailSent {
		return record
	}
	if !member.HasEmail() {
		// Channel unavailable: skipped, not failed, no attempt consumed.
		log.Infof("[Notifier] member %d has no email, skipping email channel", member.ID)
		return record
	}
	if record.EmailExhausted() {
		log.Warnf("[Notifier] email budget exhausted for notification %d, manual reset required", record.ID)
		return record
	}

	err := d.sendEmail(member, event)
	updated, lerr := d.ledger.RecordEmailAttempt(record.ID, err == nil, errString(err))
	if lerr != nil {
		log.Errorf("[Notifier] failed to record email attempt for notification %d: %v", record.ID, lerr)
		return record
	}
	if err != nil {
		log.Warnf("[Notifier] email delivery failed for member %d (attempt %d/%d): %v",
			member.ID, updated.EmailAttempts, models.MaxChannelAttempts, err)
	} else {
		_ = metrics.Add(metrics.StatEmailSent)
	}
	return updated
}

func (d *Dispatcher) attemptTelegram(member *models.Member, event Event, record *models.NotificationRecord) *models.NotificationRecord {
	if record.TelegramSent {
		return record
	}
	if !member.HasTelegramID() {
		log.Infof("[Notifier] member %d has no telegram id, skipping telegram channel", member.ID)
		return record
	}
	if record.TelegramExhausted() {
		log.Warnf("[Notifier] telegram budget exhausted for notification %d, manual reset required", record.ID)
		return record
	}

	err := d.tg.SendMessage(*member.TelegramUserID, d.composeTelegramText(member, event))
	updated, lerr := d.ledger.RecordTelegramAttempt(record.ID, err == nil, errString(err))
	if lerr != nil {
		log.Errorf("[Notifier] failed to record telegram attempt for notification %d: %v", record.ID, lerr)
		return record
	}
	if err != nil {
		log.Warnf("[Notifier] telegram delivery failed for member %d (attempt %d/%d): %v",
			member.ID, updated.TelegramAttempts, models.MaxChannelAttempts, err)
	} else {
		_ = metrics.Add(metrics.StatTelegramSent)
	}
	return updated
}

func (d *Dispatcher) sendEmail(member *models.Member, event Event) error {
	switch event.Type {
	case models.NOTIFICATION_PAYMENT_REJECTED:
		return d.mailer.SendRejectionMail(member.Email, member.Name, event.Reason)
	case models.NOTIFICATION_PAYMENT_APPROVED:
		expiry := time.Now()
		if event.ExpiresAt != nil {
			expiry = *event.ExpiresAt
		}
		return d.mailer.SendInviteMail(member.Email, member.Name, event.InviteLink, expiry, event.AccessDays)
	case models.NOTIFICATION_EXPIRY_WARNING:
		return d.mailer.SendExpiryWarningMail(member.Email, member.Name)
	default:
		return fmt.Errorf("unsupported notification type %q", event.Type)
	}
}

func (d *Dispatcher) composeTelegramText(member *models.Member, event Event) string {
	switch event.Type {
	case models.NOTIFICATION_PAYMENT_REJECTED:
		return fmt.Sprintf("Olá, %s. Seu pagamento não foi aprovado.\nMotivo: %s", member.Name, event.Reason)
	case models.NOTIFICATION_EXPIRY_WARNING:
		return fmt.Sprintf("Olá, %s. Seu acesso ao grupo venceu. Renove seu plano para receber um novo link de convite.", member.Name)
	default:
		text := fmt.Sprintf("Olá, %s! Seu pagamento foi aprovado e seu acesso foi liberado por %d dias.\n\nEntre no grupo: %s",
			member.Name, event.AccessDays, event.InviteLink)
		if event.ExpiresAt != nil {
			text += fmt.Sprintf("\n\nAcesso válido até %s.", event.ExpiresAt.Format("02/01/2006"))
		}
		return text
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
