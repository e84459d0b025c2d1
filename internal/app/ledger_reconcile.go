package app

import (
	"context"
	"log"
	"time"

	"github.com/pawhaven/adoption-service/internal/domain"
	"github.com/pawhaven/adoption-service/internal/metrics"
)

const ledgerReconcileTimeout = 2 * time.Minute

// ReconcileLedger compares every help-request listing's collected amount with the sum of
// its donations and reports drift. Balances are never rewritten here.
func (s *Service) ReconcileLedger(ctx context.Context) ([]domain.LedgerDrift, error) {
	drifts, err := s.repo.FindLedgerDrift(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetLedgerDrift(len(drifts))
	for _, drift := range drifts {
		log.Printf("level=error component=ledger msg=\"collected amount drift\" listing_id=%s collected=%d donations=%d difference=%d",
			drift.ListingID, drift.CollectedAmount, drift.DonationsTotal, drift.Difference())
	}
	return drifts, nil
}

// RunLedgerReconciliation is the cron entry point.
func (s *Service) RunLedgerReconciliation() {
	ctx, cancel := context.WithTimeout(context.Background(), ledgerReconcileTimeout)
	defer cancel()

	start := time.Now()
	drifts, err := s.ReconcileLedger(ctx)
	if err != nil {
		log.Printf("level=error component=scheduler job=ledger_reconcile msg=\"run failed\" err=%v", err)
		return
	}
	log.Printf("level=info component=scheduler job=ledger_reconcile msg=\"run complete\" drifted=%d duration_ms=%d", len(drifts), time.Since(start).Milliseconds())
}
