package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cesargomez89/xcc-relay/internal/constants"
	"github.com/cesargomez89/xcc-relay/internal/domain"
)

// UpsertSubscription registers or refreshes a device subscription. The app
// bundle ID is overwritten so a reinstalled app picks up its new topic.
func (db *DB) UpsertSubscription(ctx context.Context, deviceToken, appID, appBundleID string) error {
	now := time.Now().UTC()

	var query string
	switch db.dialect {
	case DialectMySQL:
		query = `INSERT INTO device_subscriptions (device_token, app_id, app_bundle_id, updated_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				app_bundle_id = VALUES(app_bundle_id),
				updated_at = VALUES(updated_at)`
	default:
		query = `INSERT INTO device_subscriptions (device_token, app_id, app_bundle_id, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(device_token, app_id) DO UPDATE SET
				app_bundle_id = excluded.app_bundle_id,
				updated_at = excluded.updated_at`
	}

	_, err := db.ExecContext(ctx, query, deviceToken, appID, appBundleID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// ListSubscriptionsForApp returns subscriptions scoped to appID plus any
// wildcard subscriptions.
func (db *DB) ListSubscriptionsForApp(ctx context.Context, appID string) ([]domain.DeviceSubscription, error) {
	var subs []domain.DeviceSubscription
	err := db.SelectContext(ctx, &subs,
		`SELECT device_token, app_id, app_bundle_id, last_push_at, updated_at
		 FROM device_subscriptions
		 WHERE app_id = ? OR app_id = ?`, appID, domain.WildcardAppID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// MarkSubscriptionPushed records a successful delivery, which also counts as
// activity for the 30-day sweep.
func (db *DB) MarkSubscriptionPushed(ctx context.Context, deviceToken, appID string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`UPDATE device_subscriptions SET last_push_at = ?, updated_at = ?
		 WHERE device_token = ? AND app_id = ?`, now, now, deviceToken, appID)
	if err != nil {
		return fmt.Errorf("failed to mark subscription pushed: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription whose token the push provider
// reported as permanently invalid.
func (db *DB) DeleteSubscription(ctx context.Context, deviceToken, appID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM device_subscriptions WHERE device_token = ? AND app_id = ?`,
		deviceToken, appID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// SweepInactiveSubscriptions removes subscriptions not refreshed in 30 days.
func (db *DB) SweepInactiveSubscriptions(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-constants.InactiveSubscriptionAge)
	_, err := db.ExecContext(ctx,
		`DELETE FROM device_subscriptions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to sweep inactive subscriptions: %w", err)
	}
	return nil
}
