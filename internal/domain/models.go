package domain

import "time"

type TargetID string

// Status is the displayed (hysteresis-filtered) state of a target.
type Status string

const (
	StatusUnknown Status = "UNKNOWN"
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
)

// Target is one monitored endpoint. IntervalMinutes == 0 means the target
// is still being configured and must never be scheduled.
type Target struct {
	ID              TargetID  `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	URL             string    `json:"url"`
	IntervalMinutes int       `json:"interval_minutes"`
	Status          Status    `json:"status"`
	FailCount       int       `json:"fail_count"`
	LastCheck       time.Time `json:"last_check"`
	CreatedAt       time.Time `json:"created_at"`
}

// Active reports whether the target is eligible for scheduling.
func (t *Target) Active() bool {
	return t.IntervalMinutes >= 1
}

// HistoryEntry is one raw probe result for a target. Up is the unfiltered
// outcome, not the displayed status.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	TargetID  TargetID  `json:"target_id"`
	Up        bool      `json:"up"`
	Detail    string    `json:"detail"`
	CheckedAt time.Time `json:"checked_at"`
}

type User struct {
	ID       int64 `json:"id"`
	Verified bool  `json:"verified"`
}
