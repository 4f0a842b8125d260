package services

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"hairsim/internal/models/db_models"
	"hairsim/internal/repositories"
	"hairsim/pkg/metrics"
)

type recordingAlerts struct {
	mu   sync.Mutex
	gaps []ReconciliationGap
}

func (r *recordingAlerts) NotifyReconciliationGap(_ context.Context, gap ReconciliationGap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gaps = append(r.gaps, gap)
}

func (r *recordingAlerts) Gaps() []ReconciliationGap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReconciliationGap(nil), r.gaps...)
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

var errAppendFailed = errors.New("append failed")

// brokenAuditLedger moves balances but cannot write transaction records.
type brokenAuditLedger struct {
	*repositories.MemoryLedgerRepository
}

func (brokenAuditLedger) AppendTransaction(context.Context, *db_models.LedgerTransaction) error {
	return errAppendFailed
}
