package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Reingester is satisfied by the ingestion coordinator. It is declared
// here rather than imported so this job has no dependency on the
// coordinator's wiring (repos, loader, splitter, embedder, gateway).
type Reingester interface {
	SweepUnprocessed(ctx context.Context) (int, error)
}

// ReingestSweepJob periodically reingests processed documents whose row
// was modified after their last processed_at (the coordinator's
// SweepUnprocessed, backed by DocumentRepo.ListStale). Documents that
// have no processed_at at all are not picked up by this sweep.
type ReingestSweepJob struct {
	coordinator Reingester
}

func NewReingestSweepJob(coordinator Reingester) *ReingestSweepJob {
	return &ReingestSweepJob{coordinator: coordinator}
}

func (j *ReingestSweepJob) Name() string {
	return "reingest_sweep"
}

func (j *ReingestSweepJob) Run(ctx context.Context) error {
	if j.coordinator == nil {
		return nil
	}
	n, err := j.coordinator.SweepUnprocessed(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("reingest sweep processed documents", zap.Int("count", n))
	}
	return nil
}
