package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) map[string]float64 {
	t.Helper()
	family := gatherFamily(t, reg, name)
	if family == nil {
		return nil
	}

	values := make(map[string]float64)
	for _, metric := range family.GetMetric() {
		key := ""
		for _, label := range metric.GetLabel() {
			if label.GetName() == "job" || label.GetName() == "kind" {
				key = label.GetValue()
			}
		}
		values[key] = metric.GetCounter().GetValue()
	}
	return values
}

func TestSchedulerMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSchedulerMetrics(reg, Config{ServiceName: "waterbill", Environment: "test"})

	m.IncJobRun("monthly_reminder")
	m.IncJobRun("monthly_reminder")
	m.IncJobError("monthly_reminder")
	m.IncJobTimeout("daily_backup")
	m.ObserveJobDuration("monthly_reminder", 50*time.Millisecond)
	m.AddRemindersSent("monthly_reminder", 3)
	m.AddRemindersFailed("monthly_reminder", 1)
	// Non-positive counts are ignored.
	m.AddRemindersSent("monthly_reminder", 0)
	m.AddRemindersFailed("monthly_reminder", -2)

	runs := gatherCounter(t, reg, "waterbill_scheduler_job_runs_total")
	assert.Equal(t, 2.0, runs["monthly_reminder"])

	errs := gatherCounter(t, reg, "waterbill_scheduler_job_errors_total")
	assert.Equal(t, 1.0, errs["monthly_reminder"])

	timeouts := gatherCounter(t, reg, "waterbill_scheduler_job_timeouts_total")
	assert.Equal(t, 1.0, timeouts["daily_backup"])

	sent := gatherCounter(t, reg, "waterbill_reminders_sent_total")
	assert.Equal(t, 3.0, sent["monthly_reminder"])

	failed := gatherCounter(t, reg, "waterbill_reminders_failed_total")
	assert.Equal(t, 1.0, failed["monthly_reminder"])
}

func TestStoreMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newStoreMetrics(reg, Config{})

	m.IncBackup("auto")
	m.IncBackup("auto")
	m.IncBackup("manual")
	m.IncQuarantine()
	m.IncSaveFailure()

	backups := gatherCounter(t, reg, "waterbill_ledger_backups_total")
	assert.Equal(t, 2.0, backups["auto"])
	assert.Equal(t, 1.0, backups["manual"])

	quarantines := gatherFamily(t, reg, "waterbill_ledger_quarantines_total")
	require.NotNil(t, quarantines)
	assert.Equal(t, 1.0, quarantines.GetMetric()[0].GetCounter().GetValue())

	saveFailures := gatherFamily(t, reg, "waterbill_ledger_save_failures_total")
	require.NotNil(t, saveFailures)
	assert.Equal(t, 1.0, saveFailures.GetMetric()[0].GetCounter().GetValue())
}

func TestNilMetricsAreSafe(t *testing.T) {
	var s *SchedulerMetrics
	s.IncJobRun("x")
	s.ObserveJobDuration("x", time.Second)
	s.IncJobError("x")
	s.IncJobTimeout("x")
	s.AddRemindersSent("x", 1)
	s.AddRemindersFailed("x", 1)

	var st *StoreMetrics
	st.IncBackup("auto")
	st.IncQuarantine()
	st.IncSaveFailure()
}

func TestConstLabelDefaults(t *testing.T) {
	labels := Config{}.constLabels()
	assert.Equal(t, "waterbill", labels["service"])
	assert.Equal(t, "unknown", labels["env"])

	labels = Config{ServiceName: " svc ", Environment: "prod"}.constLabels()
	assert.Equal(t, "svc", labels["service"])
	assert.Equal(t, "prod", labels["env"])
}
