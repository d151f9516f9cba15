// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort      = "8080"
	DefaultDBDriver  = "mysql"
	DefaultDBPath    = "xcc-relay.db"
	DefaultDBHost    = "127.0.0.1"
	DefaultDBPort    = "3306"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Ledger policy
const (
	// StaleBuildAge is how long a running build may sit without an update
	// before the sweep treats it as orphaned (missed finish webhook).
	StaleBuildAge = 12 * time.Hour
	// InactiveSubscriptionAge is how long a device subscription may go
	// without a refresh before it is swept.
	InactiveSubscriptionAge = 30 * 24 * time.Hour
)

// Push delivery
const (
	// PushTimeout bounds each individual APNs call.
	PushTimeout = 10 * time.Second
	// ProviderTokenLifetime is how long a signed provider JWT is reused.
	// Apple caps token age at 60 minutes; re-sign well before that.
	ProviderTokenLifetime = 50 * time.Minute
)

// APNs hosts
const (
	APNSProductionHost = "https://api.push.apple.com"
	APNSSandboxHost    = "https://api.sandbox.push.apple.com"
)

// Database
const (
	RunningBuildsTable       = "running_builds"
	DeviceSubscriptionsTable = "device_subscriptions"
)
