package payments

import (
	"errors"
	"time"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/notifier"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/provisioner"
)

// State-transition failures. These map to 4xx responses and are never
// retried automatically.
var (
	ErrInvalidApprover  = errors.New("approver identity is required")
	ErrMissingReason    = errors.New("rejection reason is required")
	ErrAlreadyProcessed = errors.New("payment already processed")
	ErrNotFound         = errors.New("payment not found")
)

// LinkProvisioner is the invite-link surface the state machine drives after
// an approval commits.
type LinkProvisioner interface {
	Provision(member *models.Member, expiresAt *time.Time) (*provisioner.Result, error)
}

// EventDispatcher is the notification surface driven after provisioning.
type EventDispatcher interface {
	Dispatch(member *models.Member, event notifier.Event) (*notifier.DispatchResult, error)
}

// ApproveOutcome is what an approval returns to the caller. Warning is set
// when the approval itself succeeded but a downstream step failed; the raw
// provider error is included for diagnosis.
type ApproveOutcome struct {
	Payment      *models.Payment
	NewExpiry    time.Time
	InviteLink   string
	EmailSent    bool
	TelegramSent bool
	Warning      string
}
