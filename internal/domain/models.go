package domain

import "time"

// WildcardAppID marks a subscription that should be woken for any app.
const WildcardAppID = "*"

// RunningBuild is a ledger row for a build considered in-flight.
// Presence of a row means "running"; the row is deleted when the build
// finishes or when the sweep decides it is orphaned.
type RunningBuild struct {
	BuildID    string    `json:"build_id" db:"build_id"`
	AppID      string    `json:"app_id" db:"app_id"`
	WorkflowID *string   `json:"workflow_id,omitempty" db:"workflow_id"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceSubscription registers a device token for wake notifications,
// scoped to one app or to the wildcard sentinel.
type DeviceSubscription struct {
	DeviceToken string     `json:"device_token" db:"device_token"`
	AppID       string     `json:"app_id" db:"app_id"`
	AppBundleID string     `json:"app_bundle_id" db:"app_bundle_id"`
	LastPushAt  *time.Time `json:"last_push_at,omitempty" db:"last_push_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// RunningStatus summarizes the ledger for one app (or globally).
// SingleStartedAt is set only when exactly one build is running; a
// multi-build aggregate has no meaningful single start time.
type RunningStatus struct {
	RunningCount    int
	SingleStartedAt *time.Time
}

// Running reports whether any build is in flight.
func (s RunningStatus) Running() bool {
	return s.RunningCount > 0
}
