package job

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/btc-synchronizer/internal/clock"
)

type entry struct {
	job      Job
	interval time.Duration
	trigger  <-chan struct{}
}

// Scheduler runs each registered job on its own interval.
type Scheduler struct {
	logger  *zap.Logger
	entries []entry
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers job to run every interval and whenever trigger fires.
// trigger may be nil.
func (s *Scheduler) Add(job Job, interval time.Duration, trigger <-chan struct{}) {
	s.entries = append(s.entries, entry{job: job, interval: interval, trigger: trigger})
}

// Run blocks until ctx is canceled. A tick that finds the previous run of
// the same job still active is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range s.entries {
		g.Go(func() error {
			s.logger.Info("job scheduled",
				zap.String("job", e.job.Name()),
				zap.Duration("interval", e.interval))
			return clock.Every(gctx, e.interval, e.trigger, func(ctx context.Context) {
				err := e.job.Execute(ctx)
				if errors.Is(err, ErrInProgress) {
					s.logger.Debug("previous run still active", zap.String("job", e.job.Name()))
				}
			})
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
