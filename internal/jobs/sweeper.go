package jobs

import (
	"context"
	"fmt"
	"time"

	"macronata/internal/logger"
	"macronata/internal/session"

	"github.com/robfig/cron/v3"
)

// Sweeper force-settles live sessions that ran past their cap. A session the
// client never ends would otherwise hold the learner's escrow forever.
type Sweeper struct {
	cron     *cron.Cron
	sessions session.Service
	grace    time.Duration
	interval time.Duration
}

func NewSweeper(sessions session.Service, grace, interval time.Duration) *Sweeper {
	return &Sweeper{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sessions: sessions,
		grace:    grace,
		interval: interval,
	}
}

func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.runWithRecovery("settle_overdue", s.sweep)
	}); err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("Session sweeper started: interval %s, grace %s", s.interval, s.grace)
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Session sweeper stopped")
}

func (s *Sweeper) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Job %s panicked: %v", jobName, r)
		}
	}()

	jobFunc()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	settled, err := s.sessions.SettleOverdue(ctx, s.grace)
	if err != nil {
		logger.Errorf("Overdue sweep failed: %v", err)
		return
	}

	if settled > 0 {
		logger.Infof("Overdue sweep settled %d sessions", settled)
	}
}
