package sweeper

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/app/repository"
	metrics "github.com/FelipeCastroBR/TeleGate/internal/pkg/metrics/counter"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/notifier"
)

// JobName identifies the sweep in the cron tracker.
const JobName = "process_approved_payments"

// Pipeline is the slice of the payment service the sweeper re-enters.
type Pipeline interface {
	ProvisionAndNotify(payment *models.Payment, origin string) (string, *notifier.DispatchResult, error)
}

// SweepError describes one payment the sweep could not repair.
type SweepError struct {
	PaymentID uint   `json:"payment_id"`
	Error     string `json:"error"`
}

// SweepDetail describes one repaired payment.
type SweepDetail struct {
	PaymentID    uint   `json:"payment_id"`
	MemberID     uint   `json:"member_id"`
	InviteLink   string `json:"invite_link"`
	EmailSent    bool   `json:"email_sent"`
	TelegramSent bool   `json:"telegram_sent"`
}

// SweepResult aggregates one sweep run.
type SweepResult struct {
	Total     int           `json:"total"`
	Processed int           `json:"processados"`
	Errors    []SweepError  `json:"erros"`
	Details   []SweepDetail `json:"detalhes"`
}

// Sweeper repairs approved payments that never received an invite link after
// a crash or partial failure. It re-drives the same provisioning and
// notification path the organic approval uses, tagged as sweeper-originated.
type Sweeper struct {
	payments  repository.PaymentRepository
	activity  repository.ActivityLogRepository
	cron      repository.CronRepository
	pipeline  Pipeline
	batchSize int
}

// New creates a sweeper. batchSize caps how many payments one run may
// process so a large backlog cannot overwhelm the Telegram API.
func New(
	payments repository.PaymentRepository,
	activity repository.ActivityLogRepository,
	cron repository.CronRepository,
	pipeline Pipeline,
	batchSize int,
) *Sweeper {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Sweeper{
		payments:  payments,
		activity:  activity,
		cron:      cron,
		pipeline:  pipeline,
		batchSize: batchSize,
	}
}

// Sweep processes the backlog sequentially, oldest first. One payment's
// failure never aborts the batch; every outcome is logged and audited.
func (s *Sweeper) Sweep() (*SweepResult, error) {
	pending, err := s.payments.ListApprovedWithoutLink(s.batchSize)
	if err != nil {
		s.recordRun(fmt.Errorf("list approved without link: %w", err))
		return nil, fmt.Errorf("list approved without link: %w", err)
	}

	result := &SweepResult{
		Total:   len(pending),
		Errors:  []SweepError{},
		Details: []SweepDetail{},
	}
	log.Infof("[Sweeper] %d approved payments without invite link", result.Total)

	for i := range pending {
		payment := &pending[i]

		if payment.HasInviteLink() {
			// Another pipeline instance fixed it between query and processing.
			continue
		}

		link, dispatch, perr := s.pipeline.ProvisionAndNotify(payment, models.NOTIFICATION_ORIGIN_SWEEPER)
		if perr != nil {
			log.Errorf("[Sweeper] payment %d not repaired: %v", payment.ID, perr)
			result.Errors = append(result.Errors, SweepError{PaymentID: payment.ID, Error: perr.Error()})
			s.appendActivity(payment, "sweep_failed", perr.Error())
			_ = metrics.Add(metrics.StatSweeperError)
			continue
		}

		detail := SweepDetail{
			PaymentID:  payment.ID,
			MemberID:   payment.MemberID,
			InviteLink: link,
		}
		if dispatch != nil {
			detail.EmailSent = dispatch.EmailSent
			detail.TelegramSent = dispatch.TelegramSent
		}
		result.Processed++
		result.Details = append(result.Details, detail)
		s.appendActivity(payment, "sweep_recovered", fmt.Sprintf("invite link provisioned retroactively: %s", link))
		_ = metrics.Add(metrics.StatSweeperRecovered)
	}

	log.Infof("[Sweeper] done: total=%d processed=%d errors=%d", result.Total, result.Processed, len(result.Errors))
	s.recordRun(nil)

	return result, nil
}

// PendingCount reports how many approved payments still miss a link, for the
// read-only monitoring endpoint.
func (s *Sweeper) PendingCount() (int64, error) {
	return s.payments.CountApprovedWithoutLink()
}

// LastRun returns the cron tracker row for the sweep job.
func (s *Sweeper) LastRun() (*models.CronRun, error) {
	return s.cron.Get(JobName)
}

func (s *Sweeper) recordRun(runErr error) {
	if s.cron == nil {
		return
	}
	if err := s.cron.Record(JobName, runErr); err != nil {
		log.Errorf("[Sweeper] failed to record cron run: %v", err)
	}
}

func (s *Sweeper) appendActivity(payment *models.Payment, action, detail string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Append(&payment.ID, &payment.MemberID, "sweeper", action, detail); err != nil {
		log.Errorf("[Sweeper] activity log append failed for payment %d: %v", payment.ID, err)
	}
}
