package entity

import "time"

// Source represents a syndication feed in the system: its identity, polling
// cadence, and the health counters the collector and health-check job
// maintain. A Source row is the single writer for its own polling
// counters — concurrent polls for the same source are forbidden by the
// collector's per-source serialization. The uniqueness key is FeedURL, not
// Name: multiple feeds per logical publisher are legitimate.
type Source struct {
	ID       int64
	Name     string
	FeedURL  string
	Region   string
	Country  string
	Language string
	Enabled  bool

	Reliability     int // 0-100, dynamic
	PollInterval    time.Duration
	MaxItemsPerPoll int
	TopicTags       []string

	LastPollAt           *time.Time
	NextPollAt           time.Time
	LastSuccessfulPollAt *time.Time

	ETag         string
	LastModified string

	TotalPolls        int64
	SuccessfulPolls   int64
	FailedPolls       int64
	ArticlesCollected int64

	AvgResponseMs float64 // EWMA

	ConsecutiveFailures int
	LastError           string

	RequestHeaders map[string]string

	CreatedAt time.Time
}

const (
	reliabilityCap      = 95
	reliabilityFloor    = 20
	autoDisableFailures = 10
)

// IsHealthy reports whether the source should still be considered usable:
// enabled and not yet at the auto-disable threshold.
func (s *Source) IsHealthy() bool {
	return s.Enabled && s.ConsecutiveFailures < autoDisableFailures
}

// SuccessRate is successful_polls / total_polls, or 1.0 when no polls have
// happened yet (an untested source is not presumed unhealthy).
func (s *Source) SuccessRate() float64 {
	if s.TotalPolls == 0 {
		return 1.0
	}
	return float64(s.SuccessfulPolls) / float64(s.TotalPolls)
}

// FailureRate is the complement of SuccessRate, used by the health-check
// job's disable/log-only thresholds.
func (s *Source) FailureRate() float64 {
	return 1.0 - s.SuccessRate()
}

// IsDueForPoll reports whether a source's next_poll_at has arrived and it
// is enabled — the scheduling predicate for collect_all.
func (s *Source) IsDueForPoll(now time.Time) bool {
	return s.Enabled && !s.NextPollAt.After(now)
}

// RecordSuccess applies §3's reliability/backoff rules for a clean poll:
// reliability increases by 1 (cap 95) only after a run of zero consecutive
// failures, counters advance, and the response-time EWMA updates.
func (s *Source) RecordSuccess(now time.Time, articlesCollected int, responseMs float64) {
	s.TotalPolls++
	s.SuccessfulPolls++
	wasClean := s.ConsecutiveFailures == 0
	s.ConsecutiveFailures = 0
	s.ArticlesCollected += int64(articlesCollected)
	if s.AvgResponseMs == 0 {
		s.AvgResponseMs = responseMs
	} else {
		s.AvgResponseMs = 0.8*s.AvgResponseMs + 0.2*responseMs
	}
	if wasClean && s.Reliability < reliabilityCap {
		s.Reliability++
	}
	s.LastPollAt = &now
	s.LastSuccessfulPollAt = &now
	s.NextPollAt = now.Add(s.PollInterval)
	s.LastError = ""
}

// RecordFailure applies §3's failure path: counters advance, reliability
// decays (floor 20), consecutive failures increment, and next_poll backs
// off to now + min(60, poll_interval + 5*consecutive_failures) minutes.
func (s *Source) RecordFailure(now time.Time, errMsg string) {
	s.TotalPolls++
	s.FailedPolls++
	s.ConsecutiveFailures++
	s.Reliability -= 2
	if s.Reliability < reliabilityFloor {
		s.Reliability = reliabilityFloor
	}
	s.LastPollAt = &now
	s.LastError = errMsg

	backoffMinutes := s.PollInterval.Minutes() + 5*float64(s.ConsecutiveFailures)
	if backoffMinutes > 60 {
		backoffMinutes = 60
	}
	s.NextPollAt = now.Add(time.Duration(backoffMinutes * float64(time.Minute)))

	if s.ConsecutiveFailures >= autoDisableFailures {
		s.Enabled = false
	}
}
