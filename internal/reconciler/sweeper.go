package reconciler

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roomstudio/asset-forge/pkg/metrics"
)

// Sweep runs one poll pass over every non-terminal ledger row. Jobs are
// polled with bounded parallelism and one job's failure never drops the
// rest of the batch.
func (r *Reconciler) Sweep(ctx context.Context) error {
	start := r.nowFunc()

	jobs, err := r.store.Job().ListActive(ctx)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, job := range jobs {
		jobID := job.ID
		g.Go(func() error {
			if err := r.PollJob(gCtx, jobID); err != nil {
				zap.S().Named("reconciler").Errorf("job %s: poll failed: %v", jobID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	metrics.ObserveSweepDurationMetric(time.Since(start).Seconds())
	return nil
}

// Sweeper drives periodic sweeps. The interval is jittered so replicas do
// not stampede the generation service in lockstep.
type Sweeper struct {
	reconciler *Reconciler
	interval   time.Duration
}

func NewSweeper(r *Reconciler, interval time.Duration) *Sweeper {
	return &Sweeper{
		reconciler: r,
		interval:   interval,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := jitterbug.New(s.interval, &jitterbug.Norm{Stdev: s.interval / 10})
	defer ticker.Stop()

	zap.S().Named("sweeper").Infof("poll sweep started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			zap.S().Named("sweeper").Info("poll sweep stopped")
			return
		case <-ticker.C:
			if err := s.reconciler.Sweep(ctx); err != nil {
				zap.S().Named("sweeper").Errorf("sweep failed: %v", err)
			}
		}
	}
}
