package scheduler

import (
	"time"
)

// Config controls the run loop and job timing. Reminder days and times come
// from the tariff config so they hot-reload with it; maintenance times are
// fixed per deployment.
type Config struct {
	RunInterval time.Duration

	// JobTimeout bounds one job run; SendTimeout bounds one delivery inside
	// a fan-out so a single unreachable subscriber cannot stall the job.
	JobTimeout  time.Duration
	SendTimeout time.Duration

	// ForcePaceDelay spaces sends during the forced fan-out to respect the
	// delivery channel's throughput limits.
	ForcePaceDelay time.Duration

	BackupHour     int
	BackupMinute   int
	CleanupWeekday time.Weekday
	CleanupHour    int
	CleanupMinute  int
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    30 * time.Second,
		JobTimeout:     5 * time.Minute,
		SendTimeout:    10 * time.Second,
		ForcePaceDelay: 100 * time.Millisecond,
		BackupHour:     0,
		BackupMinute:   5,
		CleanupWeekday: time.Sunday,
		CleanupHour:    1,
		CleanupMinute:  0,
	}
}

func ProvideConfig() Config {
	return DefaultConfig()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaults.SendTimeout
	}
	return c
}
