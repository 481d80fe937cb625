package scheduler

import "time"

// Config holds the cadences and thresholds the scheduler's periodic jobs
// run under. All fields have production-sane defaults; callers override
// only what they need to change.
type Config struct {
	// CollectAllCron, ProcessContentCron, DedupeCron, HealthCheckCron, and
	// SourcePerfCron are standard 5-field cron expressions (robfig/cron/v3,
	// minute-resolution, no seconds field).
	CollectAllCron     string
	ProcessContentCron string
	DedupeCron         string
	HealthCheckCron    string
	SourcePerfCron     string

	// ProcessAfterCollect is the grace period after a collect-all run that
	// inserted at least one article before process-content is triggered
	// out-of-band, in addition to its own cadence.
	ProcessAfterCollect time.Duration

	// DedupWindow bounds how far back the daily deduplicate job looks.
	DedupWindow time.Duration

	// SoftDeadline logs a warning when a job run is still in flight past
	// this duration; HardDeadline cancels the job's context.
	SoftDeadline time.Duration
	HardDeadline time.Duration

	// MaxRetries is the number of attempts (including the first) a failed
	// job run gets before it is recorded as failed.
	MaxRetries int

	MaxConcurrentCollect int
	BatchSize            int

	// DisableFailureRate and DisableMinConsecutive gate the health-check
	// job's disable action: a source is disabled only when both hold.
	// WarnFailureRate alone triggers a log-only warning.
	DisableFailureRate    float64
	DisableMinConsecutive int
	WarnFailureRate       float64
}

func DefaultConfig() Config {
	return Config{
		CollectAllCron:     "*/15 * * * *",
		ProcessContentCron: "*/30 * * * *",
		DedupeCron:         "0 2 * * *",
		HealthCheckCron:    "0 * * * *",
		SourcePerfCron:     "*/30 * * * *",

		ProcessAfterCollect: 5 * time.Minute,
		DedupWindow:         7 * 24 * time.Hour,
		SoftDeadline:        5 * time.Minute,
		HardDeadline:        10 * time.Minute,
		MaxRetries:          3,

		MaxConcurrentCollect: 10,
		BatchSize:            50,

		DisableFailureRate:    0.7,
		DisableMinConsecutive: 5,
		WarnFailureRate:       0.5,
	}
}
