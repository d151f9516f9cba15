package dto

import "github.com/cesargomez89/xcc-relay/internal/push"

// WebhookResponse is returned for recognized lifecycle events.
type WebhookResponse struct {
	OK    bool        `json:"ok"`
	Event string      `json:"event"`
	State string      `json:"state,omitempty"`
	Push  *push.Stats `json:"push,omitempty"`
}

// IgnoredResponse is returned for event types the relay does not track.
type IgnoredResponse struct {
	OK      bool   `json:"ok"`
	Event   string `json:"event"`
	Ignored bool   `json:"ignored"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	BuildsRunning        bool    `json:"buildsRunning"`
	RunningCount         int     `json:"runningCount"`
	SingleBuildStartedAt *string `json:"singleBuildStartedAt"`
	CheckedAt            string  `json:"checkedAt"`
}

// ErrorResponse is the terse body for all 4xx/5xx replies.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// OKResponse acknowledges a successful mutation with no further detail.
type OKResponse struct {
	OK bool `json:"ok"`
}
