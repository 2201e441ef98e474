package service

import (
	"context"
	"time"

	"navalha/internal/appointments/repository"
	"navalha/pkg/config"

	"github.com/robfig/cron/v3"
)

// LockSweeper periodically removes reservation locks whose TTL has passed.
// The locks are short-lived and released inline on the happy path; the
// sweeper only cleans up after crashed holders.
type LockSweeper struct {
	locks repository.ReservationLockRepository
	cfg   *config.Config
	cron  *cron.Cron
}

func NewLockSweeper(locks repository.ReservationLockRepository, cfg *config.Config) *LockSweeper {
	return &LockSweeper{
		locks: locks,
		cfg:   cfg,
		cron:  cron.New(),
	}
}

func (s *LockSweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.LockSweepSchedule, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.cfg.Log.Info("Reservation lock sweeper started", "schedule", s.cfg.LockSweepSchedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *LockSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cfg.Log.Info("Reservation lock sweeper stopped")
}

func (s *LockSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()

	removed, err := s.locks.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.cfg.Log.Error("Failed to sweep expired reservation locks", "error", err)
		return
	}
	if removed > 0 {
		s.cfg.Log.Info("Swept expired reservation locks", "removed", removed)
	}
}
