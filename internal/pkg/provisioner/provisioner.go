package provisioner

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/telegram"
)

// ErrProvisioningFailed is returned when both the per-member and the generic
// link path failed. Callers must not fabricate a placeholder link.
var ErrProvisioningFailed = errors.New("invite link provisioning failed")

// Result describes a successfully provisioned invite link.
type Result struct {
	Link      string
	Kind      string // models.INVITE_KIND_MEMBER or models.INVITE_KIND_GENERIC
	ExpiresAt *time.Time
}

// Provisioner obtains Telegram invite links for members, preferring a
// per-member single-use link and falling back to the group's generic link.
type Provisioner struct {
	tg telegram.API
}

// New creates a provisioner on top of a Telegram API surface.
func New(tg telegram.API) *Provisioner {
	return &Provisioner{tg: tg}
}

// Provision runs the ordered fallback chain. A per-member link wins whenever
// obtainable because it lets a join event be correlated back to the member;
// the generic link is degraded but functional.
func (p *Provisioner) Provision(member *models.Member, expiresAt *time.Time) (*Result, error) {
	var memberErr error

	if member.HasTelegramID() {
		link, err := p.tg.CreateMemberInviteLink(member.ID, expiresAt)
		if err == nil {
			return &Result{Link: link, Kind: models.INVITE_KIND_MEMBER, ExpiresAt: expiresAt}, nil
		}
		memberErr = err
		log.Warnf("[Provisioner] member link failed for member %d, falling back to generic: %v", member.ID, err)
	} else {
		log.Infof("[Provisioner] member %d has no telegram id, using generic link", member.ID)
	}

	link, err := p.tg.CreateGenericInviteLink()
	if err == nil {
		return &Result{Link: link, Kind: models.INVITE_KIND_GENERIC}, nil
	}
	log.Errorf("[Provisioner] generic link failed for member %d: %v", member.ID, err)

	if memberErr != nil {
		return nil, fmt.Errorf("%w: member link: %v; generic link: %v", ErrProvisioningFailed, memberErr, err)
	}
	return nil, fmt.Errorf("%w: generic link: %v", ErrProvisioningFailed, err)
}
