package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Locker guards scheduled triggers so overlapping deployments do not fire
// the same schedule twice. The Redis layer implements it; when Redis is
// unavailable the lock degrades to always-acquired.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) bool
}

// Scheduler fires the scrape service on a cron cadence. Disabled unless the
// schedule is explicitly enabled in config.
type Scheduler struct {
	cron   *cron.Cron
	svc    *ScrapeService
	lock   Locker
	logger *log.Logger
	spec   string
}

const scheduleLockKey = "scrape:schedule:lock"

func NewScheduler(spec string, svc *ScrapeService, lock Locker, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		svc:    svc,
		lock:   lock,
		logger: logger,
		spec:   spec,
	}
}

func (s *Scheduler) Start() error {
	if s == nil || s.svc == nil {
		return fmt.Errorf("nil scheduler")
	}
	if _, err := s.cron.AddFunc(s.spec, s.fire); err != nil {
		return fmt.Errorf("bad schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	if s.logger != nil {
		s.logger.Printf("scheduler started schedule=%q", s.spec)
	}
	return nil
}

func (s *Scheduler) Stop() {
	if s == nil || s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) fire() {
	if s.lock != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ok := s.lock.AcquireLock(ctx, scheduleLockKey, time.Minute)
		cancel()
		if !ok {
			if s.logger != nil {
				s.logger.Printf("scheduler skip reason=lock_held")
			}
			return
		}
	}

	job, err := s.svc.Trigger()
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			if s.logger != nil {
				s.logger.Printf("scheduler skip reason=already_running")
			}
			return
		}
		if s.logger != nil {
			s.logger.Printf("scheduler trigger error=%v", err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Printf("scheduler triggered job=%s", job.ID)
	}
}
