package payments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/app/repository"
	metrics "github.com/FelipeCastroBR/TeleGate/internal/pkg/metrics/counter"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/notifier"
)

// Service owns the payment lifecycle: pendente -> aprovado | rejeitado, each
// terminal transition reached exactly once through a conditional update in
// the repository. Side effects (link provisioning, notification) run after
// the transition commits and never roll it back.
type Service struct {
	payments   repository.PaymentRepository
	invites    repository.InviteRepository
	activity   repository.ActivityLogRepository
	links      LinkProvisioner
	dispatcher EventDispatcher
}

// NewService creates a payment service from injected collaborators.
func NewService(
	payments repository.PaymentRepository,
	invites repository.InviteRepository,
	activity repository.ActivityLogRepository,
	links LinkProvisioner,
	dispatcher EventDispatcher,
) *Service {
	return &Service{
		payments:   payments,
		invites:    invites,
		activity:   activity,
		links:      links,
		dispatcher: dispatcher,
	}
}

// Approve commits the aprovado transition and member expiry extension, then
// drives provisioning and notification. The approval persists even when
// everything downstream fails; downstream failures surface as a warning.
func (s *Service) Approve(paymentID uint, approver string) (*ApproveOutcome, error) {
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return nil, ErrInvalidApprover
	}

	payment, newExpiry, err := s.payments.ApprovePending(paymentID, approver, time.Now())
	if err != nil {
		return nil, mapTransitionError(err)
	}

	_ = metrics.Add(metrics.StatPaymentApproved)
	s.appendActivity(payment, approver, "payment_approved",
		fmt.Sprintf("approved, access extended to %s", newExpiry.Format(time.RFC3339)))

	outcome := &ApproveOutcome{Payment: payment, NewExpiry: newExpiry}

	link, result, downstreamErr := s.ProvisionAndNotify(payment, models.NOTIFICATION_ORIGIN_ORGANIC)
	outcome.InviteLink = link
	if result != nil {
		outcome.EmailSent = result.EmailSent
		outcome.TelegramSent = result.TelegramSent
	}
	if downstreamErr != nil {
		outcome.Warning = fmt.Sprintf("payment approved, but invite delivery incomplete: %v", downstreamErr)
	} else if result != nil && !result.Delivered() {
		outcome.Warning = "payment approved and link provisioned, but no notification channel reached the member"
	}

	return outcome, nil
}

// Reject commits the rejeitado transition and sends the rejection notice.
// The reason is mandatory; no invite link is involved.
func (s *Service) Reject(paymentID uint, rejecter, reason string) (*models.Payment, error) {
	rejecter = strings.TrimSpace(rejecter)
	if rejecter == "" {
		return nil, ErrInvalidApprover
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}

	payment, err := s.payments.RejectPending(paymentID, rejecter, reason, time.Now())
	if err != nil {
		return nil, mapTransitionError(err)
	}

	_ = metrics.Add(metrics.StatPaymentRejected)
	s.appendActivity(payment, rejecter, "payment_rejected", reason)

	result, derr := s.dispatcher.Dispatch(&payment.Member, notifier.Event{
		Type:      models.NOTIFICATION_PAYMENT_REJECTED,
		Origin:    models.NOTIFICATION_ORIGIN_ORGANIC,
		PaymentID: &payment.ID,
		Reason:    reason,
	})
	if derr != nil {
		log.Errorf("[Payments] rejection notice dispatch failed for payment %d: %v", payment.ID, derr)
		return payment, nil
	}
	if err := s.payments.MarkNotificationSent(payment.ID, result.EmailSent, result.Delivered()); err != nil {
		log.Errorf("[Payments] failed to persist notification flags for payment %d: %v", payment.ID, err)
	}
	payment.EmailSent = result.EmailSent
	payment.NotificationSent = result.Delivered()

	return payment, nil
}

// ProvisionAndNotify obtains an invite link for an approved payment, persists
// it, and dispatches the approval notification. The sweeper re-enters the
// pipeline through this same method. Ordering is fixed: link provisioning
// completes (success or defined failure) before any dispatch is attempted.
func (s *Service) ProvisionAndNotify(payment *models.Payment, origin string) (string, *notifier.DispatchResult, error) {
	member := &payment.Member

	link := ""
	var invite *models.Invite
	if payment.HasInviteLink() {
		// Idempotency: never re-provision a linked payment. Resume its invite
		// row so a retried dispatch still lands its delivery outcome there.
		link = *payment.InviteLink
		existing, err := s.invites.GetByPaymentID(payment.ID)
		if err == nil {
			invite = existing
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Payments] failed to load invite record for payment %d: %v", payment.ID, err)
		}
	} else {
		res, err := s.links.Provision(member, member.AccessExpiresAt)
		if err != nil {
			return "", nil, err
		}
		link = res.Link

		if err := s.payments.SetInviteLink(payment.ID, link); err != nil {
			return "", nil, fmt.Errorf("persist invite link: %w", err)
		}
		payment.InviteLink = &link

		invite = &models.Invite{
			MemberID:   member.ID,
			PaymentID:  payment.ID,
			InviteLink: link,
			LinkKind:   res.Kind,
			ExpiresAt:  res.ExpiresAt,
		}
		if err := s.invites.Create(invite); err != nil {
			log.Errorf("[Payments] failed to create invite record for payment %d: %v", payment.ID, err)
			invite = nil
		}

		if res.Kind == models.INVITE_KIND_MEMBER {
			_ = metrics.Add(metrics.StatMemberLink)
		} else {
			_ = metrics.Add(metrics.StatGenericLink)
		}
	}

	result, err := s.dispatcher.Dispatch(member, notifier.Event{
		Type:       models.NOTIFICATION_PAYMENT_APPROVED,
		Origin:     origin,
		PaymentID:  &payment.ID,
		InviteLink: link,
		AccessDays: payment.EffectiveAccessDays(),
		ExpiresAt:  member.AccessExpiresAt,
	})
	if err != nil {
		return link, nil, fmt.Errorf("dispatch approval notification: %w", err)
	}

	if err := s.payments.MarkNotificationSent(payment.ID, result.EmailSent, result.Delivered()); err != nil {
		log.Errorf("[Payments] failed to persist notification flags for payment %d: %v", payment.ID, err)
	}
	payment.EmailSent = result.EmailSent
	payment.NotificationSent = result.Delivered()

	if invite != nil {
		s.recordInviteOutcome(invite, result)
	}

	return link, result, nil
}

// recordInviteOutcome mirrors the final channel outcome of the dispatch onto
// the invite row.
func (s *Service) recordInviteOutcome(invite *models.Invite, result *notifier.DispatchResult) {
	now := time.Now()
	var emailAt, telegramAt *time.Time
	if result.EmailSent {
		emailAt = &now
	}
	if result.TelegramSent {
		telegramAt = &now
	}
	if err := s.invites.RecordEmailOutcome(invite.ID, result.EmailSent, emailAt, ""); err != nil {
		log.Errorf("[Payments] failed to record invite email outcome: %v", err)
	}
	if err := s.invites.RecordTelegramOutcome(invite.ID, result.TelegramSent, telegramAt, ""); err != nil {
		log.Errorf("[Payments] failed to record invite telegram outcome: %v", err)
	}
}

func (s *Service) appendActivity(payment *models.Payment, actor, action, detail string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Append(&payment.ID, &payment.MemberID, actor, action, detail); err != nil {
		log.Errorf("[Payments] activity log append failed for payment %d: %v", payment.ID, err)
	}
}

func mapTransitionError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrPaymentAlreadyProcessed):
		return ErrAlreadyProcessed
	default:
		return err
	}
}
