package app

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the service's periodic jobs.
type Scheduler struct {
	cron              *cron.Cron
	service           *Service
	reconcileSchedule string
}

func NewScheduler(service *Service, reconcileSchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron:              cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		service:           service,
		reconcileSchedule: reconcileSchedule,
	}
}

// Start registers the jobs and starts the cron scheduler. An invalid schedule disables
// that job but does not stop the service.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.reconcileSchedule, s.service.RunLedgerReconciliation); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule ledger reconciliation\" schedule=%q err=%v", s.reconcileSchedule, err)
		s.cron.Start()
		return err
	}
	log.Printf("level=info component=scheduler msg=\"scheduled ledger reconciliation\" schedule=%q", s.reconcileSchedule)
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
