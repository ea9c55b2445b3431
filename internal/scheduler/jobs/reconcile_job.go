package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"internship-hub/internal/metrics"
)

const reconcileTimeout = 2 * time.Minute

type Reconciler interface {
	Run(ctx context.Context) error
}

// ReconcileJob drives the activation and reminder scans from cron so
// notifications do not depend on someone reading the announcement list.
type ReconcileJob struct {
	reconciler Reconciler
	logger     *zap.Logger
}

func NewReconcileJob(reconciler Reconciler, logger *zap.Logger) *ReconcileJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReconcileJob{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (j *ReconcileJob) Reconcile() {
	if j == nil || j.reconciler == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if err := j.reconciler.Run(ctx); err != nil {
		j.logger.Warn("announcement reconcile failed", zap.Error(err))
		return
	}
	metrics.SetReconcileLastRun(time.Now())
}
