package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Report describes the most recent finished run of a job.
type Report struct {
	Started  time.Time
	Finished time.Time
	Err      error
}

// Guard wraps a Job so that overlapping Execute calls are refused with
// ErrInProgress instead of running concurrently.
type Guard struct {
	job     Job
	metrics Metrics
	logger  *zap.Logger
	running *atomic.Bool
	now     func() time.Time

	mu   sync.RWMutex
	last *Report
}

// NewGuard wraps job.
func NewGuard(job Job, metrics Metrics, logger *zap.Logger) *Guard {
	return &Guard{
		job:     job,
		metrics: metrics,
		logger:  logger.With(zap.String("job", job.Name())),
		running: atomic.NewBool(false),
		now:     time.Now,
	}
}

func (g *Guard) Name() string {
	return g.job.Name()
}

// Running reports whether a run is active.
func (g *Guard) Running() bool {
	return g.running.Load()
}

// Execute runs the job unless a run is already active. The flag is cleared
// when the run ends, whether it returned an error or panicked.
func (g *Guard) Execute(ctx context.Context) error {
	if !g.running.CompareAndSwap(false, true) {
		return ErrInProgress
	}
	return g.run(ctx)
}

// TryStart launches a run in the background. It returns ErrInProgress
// without starting anything if a run is active. The run is claimed before
// the goroutine starts, so a nil return always means this call owns it.
func (g *Guard) TryStart(ctx context.Context) error {
	if !g.running.CompareAndSwap(false, true) {
		return ErrInProgress
	}
	go func() {
		if err := g.run(ctx); err != nil {
			g.logger.Warn("triggered run failed", zap.Error(err))
		}
	}()
	return nil
}

// run executes the job. The caller must hold the running flag.
func (g *Guard) run(ctx context.Context) (err error) {
	defer g.running.Store(false)

	started := g.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", g.job.Name(), r)
			g.logger.Error("job panicked", zap.Any("panic", r))
		}
		g.finish(started, err)
	}()

	g.logger.Debug("job started")
	return g.job.Execute(ctx)
}

// LastReport returns the last finished run, if any.
func (g *Guard) LastReport() (Report, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.last == nil {
		return Report{}, false
	}
	return *g.last, true
}

func (g *Guard) finish(started time.Time, err error) {
	finished := g.now()
	g.mu.Lock()
	g.last = &Report{Started: started, Finished: finished, Err: err}
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.ObserveJob(g.job.Name(), err, started)
	}
	if err != nil {
		g.logger.Warn("job finished with error", zap.Duration("took", finished.Sub(started)), zap.Error(err))
		return
	}
	g.logger.Info("job finished", zap.Duration("took", finished.Sub(started)))
}
