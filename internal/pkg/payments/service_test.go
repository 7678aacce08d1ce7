package payments

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/app/repository"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/notifier"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/provisioner"
)

type fakePaymentRepo struct {
	repository.PaymentRepository

	payment       *models.Payment
	newExpiry     time.Time
	transitionErr error

	setLinkCalls  []string
	setLinkErr    error
	markedEmail   bool
	markedAny     bool
	markCalled    bool
}

func (f *fakePaymentRepo) ApprovePending(paymentID uint, approver string, now time.Time) (*models.Payment, time.Time, error) {
	if f.transitionErr != nil {
		return nil, time.Time{}, f.transitionErr
	}
	return f.payment, f.newExpiry, nil
}

func (f *fakePaymentRepo) RejectPending(paymentID uint, rejecter, reason string, now time.Time) (*models.Payment, error) {
	if f.transitionErr != nil {
		return nil, f.transitionErr
	}
	return f.payment, nil
}

func (f *fakePaymentRepo) SetInviteLink(paymentID uint, link string) error {
	if f.setLinkErr != nil {
		return f.setLinkErr
	}
	f.setLinkCalls = append(f.setLinkCalls, link)
	return nil
}

func (f *fakePaymentRepo) MarkNotificationSent(paymentID uint, emailSent, anySent bool) error {
	f.markCalled = true
	f.markedEmail = emailSent
	f.markedAny = anySent
	return nil
}

type fakeInviteRepo struct {
	repository.InviteRepository

	created   []*models.Invite
	createErr error
	existing  *models.Invite

	emailOutcomeIDs    []uint
	telegramOutcomeIDs []uint
}

func (f *fakeInviteRepo) Create(invite *models.Invite) error {
	if f.createErr != nil {
		return f.createErr
	}
	invite.ID = uint(len(f.created) + 1)
	f.created = append(f.created, invite)
	return nil
}

func (f *fakeInviteRepo) GetByPaymentID(paymentID uint) (*models.Invite, error) {
	if f.existing != nil && f.existing.PaymentID == paymentID {
		return f.existing, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInviteRepo) RecordEmailOutcome(id uint, sent bool, sentAt *time.Time, lastError string) error {
	f.emailOutcomeIDs = append(f.emailOutcomeIDs, id)
	return nil
}

func (f *fakeInviteRepo) RecordTelegramOutcome(id uint, sent bool, sentAt *time.Time, lastError string) error {
	f.telegramOutcomeIDs = append(f.telegramOutcomeIDs, id)
	return nil
}

type fakeActivityRepo struct {
	actions []string
}

func (f *fakeActivityRepo) Append(paymentID, memberID *uint, actor, action, detail string) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeActivityRepo) ListByPayment(paymentID uint) ([]models.ActivityLog, error) {
	return nil, nil
}

type fakeLinks struct {
	result *provisioner.Result
	err    error
	calls  int
}

func (f *fakeLinks) Provision(member *models.Member, expiresAt *time.Time) (*provisioner.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeDispatcher struct {
	result *notifier.DispatchResult
	err    error
	events []notifier.Event
}

func (f *fakeDispatcher) Dispatch(member *models.Member, event notifier.Event) (*notifier.DispatchResult, error) {
	f.events = append(f.events, event)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func pendingPayment() *models.Payment {
	tgID := int64(555)
	return &models.Payment{
		ID:         42,
		MemberID:   7,
		Status:     models.PAYMENT_STATUS_APPROVED,
		AccessDays: 30,
		Member: models.Member{
			ID:             7,
			Name:           "Carlos",
			Email:          "carlos@example.com",
			TelegramUserID: &tgID,
		},
	}
}

func newTestService(repo *fakePaymentRepo, invites *fakeInviteRepo, links *fakeLinks, dispatcher *fakeDispatcher) (*Service, *fakeActivityRepo) {
	activity := &fakeActivityRepo{}
	return NewService(repo, invites, activity, links, dispatcher), activity
}

func TestApproveHappyPath(t *testing.T) {
	expiry := time.Now().AddDate(0, 0, 30)
	repo := &fakePaymentRepo{payment: pendingPayment(), newExpiry: expiry}
	invites := &fakeInviteRepo{}
	links := &fakeLinks{result: &provisioner.Result{Link: "https://t.me/+abc", Kind: models.INVITE_KIND_MEMBER}}
	dispatcher := &fakeDispatcher{result: &notifier.DispatchResult{EmailSent: true, TelegramSent: true}}
	service, activity := newTestService(repo, invites, links, dispatcher)

	outcome, err := service.Approve(42, "admin")

	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+abc", outcome.InviteLink)
	assert.Equal(t, expiry, outcome.NewExpiry)
	assert.True(t, outcome.EmailSent)
	assert.True(t, outcome.TelegramSent)
	assert.Empty(t, outcome.Warning)

	assert.Equal(t, []string{"https://t.me/+abc"}, repo.setLinkCalls)
	assert.True(t, repo.markCalled)
	assert.True(t, repo.markedAny)
	require.Len(t, invites.created, 1)
	assert.Equal(t, models.INVITE_KIND_MEMBER, invites.created[0].LinkKind)
	assert.Contains(t, activity.actions, "payment_approved")

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.NOTIFICATION_PAYMENT_APPROVED, dispatcher.events[0].Type)
	assert.Equal(t, models.NOTIFICATION_ORIGIN_ORGANIC, dispatcher.events[0].Origin)
}

func TestApproveRequiresApprover(t *testing.T) {
	service, _ := newTestService(&fakePaymentRepo{}, &fakeInviteRepo{}, &fakeLinks{}, &fakeDispatcher{})

	_, err := service.Approve(42, "   ")

	assert.ErrorIs(t, err, ErrInvalidApprover)
}

func TestApproveAlreadyProcessed(t *testing.T) {
	repo := &fakePaymentRepo{transitionErr: repository.ErrPaymentAlreadyProcessed}
	service, _ := newTestService(repo, &fakeInviteRepo{}, &fakeLinks{}, &fakeDispatcher{})

	_, err := service.Approve(42, "admin")

	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestApproveNotFound(t *testing.T) {
	repo := &fakePaymentRepo{transitionErr: gorm.ErrRecordNotFound}
	service, _ := newTestService(repo, &fakeInviteRepo{}, &fakeLinks{}, &fakeDispatcher{})

	_, err := service.Approve(42, "admin")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveSurvivesProvisioningFailure(t *testing.T) {
	repo := &fakePaymentRepo{payment: pendingPayment(), newExpiry: time.Now()}
	links := &fakeLinks{err: provisioner.ErrProvisioningFailed}
	dispatcher := &fakeDispatcher{}
	service, _ := newTestService(repo, &fakeInviteRepo{}, links, dispatcher)

	outcome, err := service.Approve(42, "admin")

	require.NoError(t, err, "the committed approval must never be rolled back by downstream failures")
	assert.Empty(t, outcome.InviteLink)
	assert.NotEmpty(t, outcome.Warning)
	assert.Empty(t, dispatcher.events, "no notification without a real link")
	assert.Empty(t, repo.setLinkCalls)
}

func TestApproveWarnsWhenNoChannelDelivered(t *testing.T) {
	repo := &fakePaymentRepo{payment: pendingPayment(), newExpiry: time.Now()}
	links := &fakeLinks{result: &provisioner.Result{Link: "https://t.me/+abc", Kind: models.INVITE_KIND_MEMBER}}
	dispatcher := &fakeDispatcher{result: &notifier.DispatchResult{}}
	service, _ := newTestService(repo, &fakeInviteRepo{}, links, dispatcher)

	outcome, err := service.Approve(42, "admin")

	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+abc", outcome.InviteLink)
	assert.NotEmpty(t, outcome.Warning)
	assert.True(t, repo.markCalled)
	assert.False(t, repo.markedAny)
}

func TestRejectHappyPath(t *testing.T) {
	payment := pendingPayment()
	payment.Status = models.PAYMENT_STATUS_REJECTED
	repo := &fakePaymentRepo{payment: payment}
	dispatcher := &fakeDispatcher{result: &notifier.DispatchResult{EmailSent: true}}
	service, activity := newTestService(repo, &fakeInviteRepo{}, &fakeLinks{}, dispatcher)

	result, err := service.Reject(42, "admin", "comprovante inválido")

	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_STATUS_REJECTED, result.Status)
	assert.True(t, result.NotificationSent)
	assert.Contains(t, activity.actions, "payment_rejected")

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.NOTIFICATION_PAYMENT_REJECTED, dispatcher.events[0].Type)
	assert.Equal(t, "comprovante inválido", dispatcher.events[0].Reason)
	assert.Empty(t, dispatcher.events[0].InviteLink)
}

func TestRejectRequiresReason(t *testing.T) {
	service, _ := newTestService(&fakePaymentRepo{}, &fakeInviteRepo{}, &fakeLinks{}, &fakeDispatcher{})

	_, err := service.Reject(42, "admin", "  ")

	assert.ErrorIs(t, err, ErrMissingReason)
}

func TestRejectSurvivesDispatchFailure(t *testing.T) {
	payment := pendingPayment()
	payment.Status = models.PAYMENT_STATUS_REJECTED
	repo := &fakePaymentRepo{payment: payment}
	dispatcher := &fakeDispatcher{err: errors.New("ledger unavailable")}
	service, _ := newTestService(repo, &fakeInviteRepo{}, &fakeLinks{}, dispatcher)

	result, err := service.Reject(42, "admin", "valor incorreto")

	require.NoError(t, err)
	assert.Equal(t, models.PAYMENT_STATUS_REJECTED, result.Status)
	assert.False(t, result.NotificationSent)
}

func TestProvisionAndNotifyIsIdempotent(t *testing.T) {
	payment := pendingPayment()
	existing := "https://t.me/+existing"
	payment.InviteLink = &existing
	repo := &fakePaymentRepo{payment: payment}
	links := &fakeLinks{result: &provisioner.Result{Link: "https://t.me/+new", Kind: models.INVITE_KIND_MEMBER}}
	dispatcher := &fakeDispatcher{result: &notifier.DispatchResult{TelegramSent: true}}
	service, _ := newTestService(repo, &fakeInviteRepo{}, links, dispatcher)

	link, result, err := service.ProvisionAndNotify(payment, models.NOTIFICATION_ORIGIN_SWEEPER)

	require.NoError(t, err)
	assert.Equal(t, existing, link, "an already linked payment must keep its link")
	assert.Equal(t, 0, links.calls, "no re-provisioning for linked payments")
	assert.True(t, result.TelegramSent)

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.NOTIFICATION_ORIGIN_SWEEPER, dispatcher.events[0].Origin)
	assert.Equal(t, existing, dispatcher.events[0].InviteLink)
}

func TestProvisionAndNotifyResumesInviteRecord(t *testing.T) {
	payment := pendingPayment()
	existing := "https://t.me/+existing"
	payment.InviteLink = &existing
	repo := &fakePaymentRepo{payment: payment}
	invites := &fakeInviteRepo{existing: &models.Invite{ID: 33, PaymentID: payment.ID, InviteLink: existing}}
	dispatcher := &fakeDispatcher{result: &notifier.DispatchResult{TelegramSent: true}}
	service, _ := newTestService(repo, invites, &fakeLinks{}, dispatcher)

	_, result, err := service.ProvisionAndNotify(payment, models.NOTIFICATION_ORIGIN_SWEEPER)

	require.NoError(t, err)
	assert.True(t, result.TelegramSent)
	assert.Empty(t, invites.created, "no new invite row for a linked payment")
	assert.Equal(t, []uint{33}, invites.emailOutcomeIDs, "retried dispatch must land its outcome on the original invite row")
	assert.Equal(t, []uint{33}, invites.telegramOutcomeIDs)
}

func TestProvisionAndNotifyPersistsLinkBeforeDispatch(t *testing.T) {
	payment := pendingPayment()
	repo := &fakePaymentRepo{payment: payment, setLinkErr: errors.New("database gone")}
	links := &fakeLinks{result: &provisioner.Result{Link: "https://t.me/+abc", Kind: models.INVITE_KIND_MEMBER}}
	dispatcher := &fakeDispatcher{result: &notifier.DispatchResult{}}
	service, _ := newTestService(repo, &fakeInviteRepo{}, links, dispatcher)

	_, _, err := service.ProvisionAndNotify(payment, models.NOTIFICATION_ORIGIN_ORGANIC)

	require.Error(t, err)
	assert.Empty(t, dispatcher.events, "dispatch must not run when the link could not be persisted")
}
