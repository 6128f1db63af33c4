package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchronizer",
		Name:      "job_runs_total",
		Help:      "Count of job executions.",
	}, []string{"job", "status"})

	jobRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "synchronizer",
		Name:      "job_run_duration_seconds",
		Help:      "Duration of job executions.",
		Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"job", "status"})

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchronizer",
		Name:      "block_uploads_total",
		Help:      "Count of candidate block uploads by outcome.",
	}, []string{"status"})

	uploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "synchronizer",
		Name:      "block_upload_duration_seconds",
		Help:      "Duration from bucket init to verdict.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"status"})

	uploadedHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "synchronizer",
		Name:      "last_verified_height",
		Help:      "Height of the last block this process drove to a verdict.",
	})

	pushRoundFailures = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "synchronizer",
		Name:      "push_round_failed_chunks",
		Help:      "Number of chunks that failed within a push round.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	verifyPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "synchronizer",
		Name:      "verify_polls_total",
		Help:      "Count of verify calls by returned status.",
	}, []string{"result"})
)

// Synchronizer tracks the upload and parse jobs.
type Synchronizer struct{}

// NewSynchronizer creates a Synchronizer collector.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// ObserveJob records one job execution.
func (m Synchronizer) ObserveJob(job string, err error, started time.Time) {
	status := statusLabel(err)
	jobRunsTotal.WithLabelValues(job, status).Inc()
	jobRunDuration.WithLabelValues(job, status).Observe(time.Since(started).Seconds())
}

// ObserveUpload records the verdict of one candidate block.
func (m Synchronizer) ObserveUpload(err error, height uint64, started time.Time) {
	status := statusLabel(err)
	uploadsTotal.WithLabelValues(status).Inc()
	uploadDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	if err == nil {
		uploadedHeight.Set(float64(height))
	}
}

// ObservePushRound records how many chunks failed in a round.
func (m Synchronizer) ObservePushRound(failed int) {
	if failed > 0 {
		pushRoundFailures.Observe(float64(failed))
	}
}

// ObserveVerify records a status returned by the verify action.
func (m Synchronizer) ObserveVerify(result string) {
	verifyPollsTotal.WithLabelValues(orUnknown(result)).Inc()
}
