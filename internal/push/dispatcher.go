// Package push fans out silent wake notifications after ledger mutations.
// Delivery is best-effort within the webhook request: sequential, one 10s
// timeout per call, no queue and no retries. Apple re-polls on the next
// event, so a dropped push costs a delayed refresh, not data.
package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cesargomez89/xcc-relay/internal/apns"
	"github.com/cesargomez89/xcc-relay/internal/domain"
	"github.com/cesargomez89/xcc-relay/internal/logger"
	"github.com/cesargomez89/xcc-relay/internal/store"
)

// Stats aggregates one fan-out for the webhook response body. Not persisted.
type Stats struct {
	Attempted            int    `json:"attempted"`
	Sent                 int    `json:"sent"`
	InvalidTokensRemoved int    `json:"invalidTokensRemoved"`
	Skipped              string `json:"skipped,omitempty"`
}

// Dispatcher wires the subscription store to the APNs client.
type Dispatcher struct {
	db     *store.DB
	client *apns.Client
	log    *logger.Logger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher. A nil client means push credentials
// are unconfigured; Dispatch then degrades to a counted no-op.
func NewDispatcher(db *store.DB, client *apns.Client, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		db:     db,
		client: client,
		log:    log.WithComponent("push"),
		now:    time.Now,
	}
}

type apsBody struct {
	ContentAvailable int `json:"content-available"`
}

type wakePayload struct {
	APS                  apsBody `json:"aps"`
	Type                 string  `json:"type"`
	AppID                string  `json:"appId"`
	EventType            string  `json:"eventType"`
	BuildsRunning        bool    `json:"buildsRunning"`
	RunningCount         int     `json:"runningCount"`
	SingleBuildStartedAt *string `json:"singleBuildStartedAt"`
	CheckedAt            string  `json:"checkedAt"`
}

// Dispatch notifies every device subscribed to appID (or the wildcard) that
// the running-build status changed. Per-token failures never bubble up; the
// webhook path stays available regardless of push health.
func (d *Dispatcher) Dispatch(ctx context.Context, appID, eventType string) Stats {
	subs, err := d.db.ListSubscriptionsForApp(ctx, appID)
	if err != nil {
		d.log.Error("Failed to list subscriptions", "app_id", appID, "error", err)
		return Stats{Skipped: "subscription lookup failed"}
	}
	if len(subs) == 0 {
		return Stats{Skipped: "no subscriptions"}
	}
	if d.client == nil {
		return Stats{Skipped: "missing APNS credentials"}
	}

	status, err := d.db.CountRunning(ctx, appID)
	if err != nil {
		d.log.Error("Failed to compute running status", "app_id", appID, "error", err)
		return Stats{Skipped: "status lookup failed"}
	}

	payload, err := json.Marshal(d.buildPayload(appID, eventType, status))
	if err != nil {
		d.log.Error("Failed to encode push payload", "error", err)
		return Stats{Skipped: "payload encoding failed"}
	}

	var stats Stats
	for _, sub := range subs {
		stats.Attempted++

		outcome, err := d.client.Push(ctx, sub.AppBundleID, sub.DeviceToken, payload)
		if err != nil {
			// Transient transport failure; dropped by design.
			d.log.Debug("Push attempt failed", "app_id", appID, "error", err)
			continue
		}

		switch {
		case outcome.Delivered:
			stats.Sent++
			if err := d.db.MarkSubscriptionPushed(ctx, sub.DeviceToken, sub.AppID); err != nil {
				d.log.Warn("Failed to mark subscription pushed", "error", err)
			}
		case outcome.RemoveToken:
			if err := d.db.DeleteSubscription(ctx, sub.DeviceToken, sub.AppID); err != nil {
				d.log.Warn("Failed to delete invalid subscription", "error", err)
				continue
			}
			stats.InvalidTokensRemoved++
		}
	}

	return stats
}

func (d *Dispatcher) buildPayload(appID, eventType string, status domain.RunningStatus) wakePayload {
	var singleStartedAt *string
	if status.SingleStartedAt != nil {
		formatted := status.SingleStartedAt.UTC().Format(time.RFC3339)
		singleStartedAt = &formatted
	}

	return wakePayload{
		APS:                  apsBody{ContentAvailable: 1},
		Type:                 "live_status_wake",
		AppID:                appID,
		EventType:            eventType,
		BuildsRunning:        status.Running(),
		RunningCount:         status.RunningCount,
		SingleBuildStartedAt: singleStartedAt,
		CheckedAt:            d.now().UTC().Format(time.RFC3339),
	}
}
