package sweeper

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/app/repository"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/cache"
	metrics "github.com/FelipeCastroBR/TeleGate/internal/pkg/metrics/counter"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/notifier"
)

const sweepLockKey = "sweeper:lock"
const sweepLockTTL = 10 * time.Minute

// EventDispatcher is the notification surface the expiry worker uses.
type EventDispatcher interface {
	Dispatch(member *models.Member, event notifier.Event) (*notifier.DispatchResult, error)
}

// Manager runs the background tasks: the retroactive link sweep, the counter
// flush and the membership expiry check.
type Manager struct {
	sweeper       *Sweeper
	members       repository.MemberRepository
	dispatcher    EventDispatcher
	cron          repository.CronRepository
	sweepTicker   *time.Ticker
	flushTicker   *time.Ticker
	expiryTicker  *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// InitManager wires the global manager. Must be called once during startup
// before GetManager.
func InitManager(s *Sweeper, members repository.MemberRepository, dispatcher EventDispatcher, cron repository.CronRepository) *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			sweeper:    s,
			members:    members,
			dispatcher: dispatcher,
			cron:       cron,
			stopCh:     make(chan struct{}),
		}
	})
	return globalManager
}

// GetManager returns the global background manager.
func GetManager() *Manager {
	if globalManager == nil {
		panic("Sweeper manager not initialized. Call InitManager first.")
	}
	return globalManager
}

// Start starts the background tickers.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Sweeper Manager] Starting background tasks")

	sweepInterval := 30 * time.Minute
	if settings := models.GetAppSettings(); settings != nil {
		sweepInterval = time.Duration(settings.GetSweepIntervalMinutes()) * time.Minute
	}

	m.sweepTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.sweepWorker()

	// Flush Redis counters to daily_stats every minute
	m.flushTicker = time.NewTicker(60 * time.Second)
	m.wg.Add(1)
	go m.flushWorker()

	m.expiryTicker = time.NewTicker(1 * time.Hour)
	m.wg.Add(1)
	go m.expiryWorker()

	log.Info("[Sweeper Manager] Started successfully")
}

// Stop stops the background tasks and waits for workers to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Sweeper Manager] Stopping background tasks...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}
	if m.flushTicker != nil {
		m.flushTicker.Stop()
	}
	if m.expiryTicker != nil {
		m.expiryTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	log.Info("[Sweeper Manager] Stopped successfully")
}

// Sweeper exposes the underlying sweeper for read-only queries.
func (m *Manager) Sweeper() *Sweeper {
	return m.sweeper
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunSweepOnce triggers a single sweep, guarded by a Redis lock so a ticker
// run and a manual cron trigger never overlap.
func (m *Manager) RunSweepOnce() (*SweepResult, error) {
	locked, err := cache.AcquireLock(sweepLockKey, sweepLockTTL)
	if err != nil {
		log.Warnf("[Sweeper Manager] lock unavailable, proceeding unguarded: %v", err)
	} else if !locked {
		log.Info("[Sweeper Manager] sweep already in progress, skipping")
		return &SweepResult{Errors: []SweepError{}, Details: []SweepDetail{}}, nil
	} else {
		defer func() {
			if err := cache.ReleaseLock(sweepLockKey); err != nil {
				log.Warnf("[Sweeper Manager] failed to release sweep lock: %v", err)
			}
		}()
	}

	return m.sweeper.Sweep()
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	log.Info("[Sweeper Manager] Started sweep worker")

	for {
		select {
		case <-m.stopCh:
			log.Info("[Sweeper Manager] Sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			if _, err := m.RunSweepOnce(); err != nil {
				log.Errorf("[Sweeper Manager] Sweep error: %v", err)
			}
		}
	}
}

func (m *Manager) flushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Sweeper Manager] Counter flush worker stopping")
			return
		case <-m.flushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[Sweeper Manager] Counter flush error: %v", err)
			}
		}
	}
}

func (m *Manager) expiryWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Sweeper Manager] Expiry worker stopping")
			return
		case <-m.expiryTicker.C:
			if err := m.checkExpiriesOnce(); err != nil {
				log.Errorf("[Sweeper Manager] Expiry check error: %v", err)
			}
		}
	}
}

// checkExpiriesOnce marks active members whose access lapsed as vencido and
// tells them, once, over the usual channels. The status flip keeps the next
// run from re-notifying the same member.
func (m *Manager) checkExpiriesOnce() error {
	if settings := models.GetAppSettings(); settings != nil && !settings.IsExpiryCheckEnabled() {
		return nil
	}

	expired, err := m.members.ListExpired(time.Now(), 100)
	if err != nil {
		m.recordExpiryRun(err)
		return err
	}

	for i := range expired {
		member := &expired[i]
		if err := m.members.UpdateStatus(member.ID, models.MEMBER_STATUS_EXPIRED); err != nil {
			log.Errorf("[Sweeper Manager] failed to mark member %d expired: %v", member.ID, err)
			continue
		}
		if _, err := m.dispatcher.Dispatch(member, notifier.Event{
			Type:   models.NOTIFICATION_EXPIRY_WARNING,
			Origin: models.NOTIFICATION_ORIGIN_ORGANIC,
		}); err != nil {
			log.Warnf("[Sweeper Manager] expiry notice failed for member %d: %v", member.ID, err)
		}
	}

	if len(expired) > 0 {
		log.Infof("[Sweeper Manager] marked %d members as expired", len(expired))
	}
	m.recordExpiryRun(nil)
	return nil
}

func (m *Manager) recordExpiryRun(runErr error) {
	if m.cron == nil {
		return
	}
	if err := m.cron.Record("check_member_expiry", runErr); err != nil {
		log.Errorf("[Sweeper Manager] failed to record expiry cron run: %v", err)
	}
}
