package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records cron-worker cycles: how each job ended, how long it
// took, and how often a cycle was skipped because another instance held
// the lock.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lockSkipped prometheus.Counter
}

// NewCronJobMetrics registers the cron metrics. A nil registerer yields a
// no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job executions, by job and result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"job"})
	lockSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cron_cycles_skipped_total",
		Help: "Cycles skipped because another instance held the cron lock.",
	})
	reg.MustRegister(runs, duration, lockSkipped)
	return &CronJobMetrics{
		runs:        runs,
		duration:    duration,
		lockSkipped: lockSkipped,
	}
}

// ObserveRun records one job execution; a non-nil err counts as a failure.
func (c *CronJobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.runs.WithLabelValues(job, result).Inc()
	c.duration.WithLabelValues(job).Observe(duration.Seconds())
}

func (c *CronJobMetrics) IncLockSkipped() {
	if c == nil || c.lockSkipped == nil {
		return
	}
	c.lockSkipped.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
