// Package metrics exposes prometheus instruments for the scheduler and the
// ledger store.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels applied to every instrument.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) constLabels() prometheus.Labels {
	serviceName := strings.TrimSpace(c.ServiceName)
	if serviceName == "" {
		serviceName = "waterbill"
	}
	environment := strings.TrimSpace(c.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// SchedulerMetrics captures reminder scheduler health signals.
type SchedulerMetrics struct {
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobErrors       *prometheus.CounterVec
	jobTimeouts     *prometheus.CounterVec
	remindersSent   *prometheus.CounterVec
	remindersFailed *prometheus.CounterVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton scheduler metrics registry using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "waterbill_scheduler_job_runs_total",
		Help:        "Scheduler job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "waterbill_scheduler_job_duration_seconds",
		Help:        "Scheduler job latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "waterbill_scheduler_job_errors_total",
		Help:        "Scheduler job errors by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "waterbill_scheduler_job_timeouts_total",
		Help:        "Scheduler jobs that hit their context deadline.",
		ConstLabels: constLabels,
	}, []string{"job"})
	remindersSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "waterbill_reminders_sent_total",
		Help:        "Reminder messages delivered, by job.",
		ConstLabels: constLabels,
	}, []string{"job"})
	remindersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "waterbill_reminders_failed_total",
		Help:        "Reminder deliveries that failed, by job.",
		ConstLabels: constLabels,
	}, []string{"job"})

	for _, collector := range []prometheus.Collector{
		jobRuns, jobDuration, jobErrors, jobTimeouts, remindersSent, remindersFailed,
	} {
		registerer.MustRegister(collector)
	}

	return &SchedulerMetrics{
		jobRuns:         jobRuns,
		jobDuration:     jobDuration,
		jobErrors:       jobErrors,
		jobTimeouts:     jobTimeouts,
		remindersSent:   remindersSent,
		remindersFailed: remindersFailed,
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SchedulerMetrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) AddRemindersSent(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.remindersSent.WithLabelValues(job).Add(float64(count))
}

func (m *SchedulerMetrics) AddRemindersFailed(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.remindersFailed.WithLabelValues(job).Add(float64(count))
}

// StoreMetrics captures ledger store health signals.
type StoreMetrics struct {
	backups      *prometheus.CounterVec
	quarantines  prometheus.Counter
	saveFailures prometheus.Counter
}

var (
	storeMetricsOnce sync.Once
	storeMetrics     *StoreMetrics
)

// Store returns the singleton store metrics registry.
func Store() *StoreMetrics {
	return StoreWithConfig(Config{})
}

// StoreWithConfig returns the singleton store metrics registry using config labels.
func StoreWithConfig(cfg Config) *StoreMetrics {
	storeMetricsOnce.Do(func() {
		storeMetrics = newStoreMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return storeMetrics
}

// ResetStoreMetricsForTest resets the store metrics singleton for tests.
func ResetStoreMetricsForTest() {
	storeMetricsOnce = sync.Once{}
	storeMetrics = nil
}

func newStoreMetrics(registerer prometheus.Registerer, cfg Config) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	backups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "waterbill_ledger_backups_total",
		Help:        "Backup files written, by kind.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	quarantines := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "waterbill_ledger_quarantines_total",
		Help:        "Corrupt documents moved to quarantine.",
		ConstLabels: constLabels,
	})
	saveFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "waterbill_ledger_save_failures_total",
		Help:        "Failed writes of the primary document.",
		ConstLabels: constLabels,
	})

	for _, collector := range []prometheus.Collector{backups, quarantines, saveFailures} {
		registerer.MustRegister(collector)
	}

	return &StoreMetrics{
		backups:      backups,
		quarantines:  quarantines,
		saveFailures: saveFailures,
	}
}

func (m *StoreMetrics) IncBackup(kind string) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(kind).Inc()
}

func (m *StoreMetrics) IncQuarantine() {
	if m == nil {
		return
	}
	m.quarantines.Inc()
}

func (m *StoreMetrics) IncSaveFailure() {
	if m == nil {
		return
	}
	m.saveFailures.Inc()
}
