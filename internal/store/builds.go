package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/xcc-relay/internal/constants"
	"github.com/cesargomez89/xcc-relay/internal/domain"
)

// RecordStarted upserts a running-build row. Replaying the same start event
// refreshes app_id/workflow_id/updated_at but preserves the original
// started_at, so the elapsed-time clock never resets.
func (db *DB) RecordStarted(ctx context.Context, buildID, appID, workflowID string) error {
	now := time.Now().UTC()

	var query string
	switch db.dialect {
	case DialectMySQL:
		query = `INSERT INTO running_builds (build_id, app_id, workflow_id, started_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				app_id = VALUES(app_id),
				workflow_id = VALUES(workflow_id),
				updated_at = VALUES(updated_at)`
	default:
		query = `INSERT INTO running_builds (build_id, app_id, workflow_id, started_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(build_id) DO UPDATE SET
				app_id = excluded.app_id,
				workflow_id = excluded.workflow_id,
				updated_at = excluded.updated_at`
	}

	_, err := db.ExecContext(ctx, query, buildID, appID, nullIfEmpty(workflowID), now, now)
	if err != nil {
		return fmt.Errorf("failed to record started build: %w", err)
	}
	return nil
}

// RecordFinished deletes the running-build row. Finishing an unknown build
// is a no-op; webhooks can arrive out of order or twice.
func (db *DB) RecordFinished(ctx context.Context, buildID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM running_builds WHERE build_id = ?`, buildID)
	if err != nil {
		return fmt.Errorf("failed to record finished build: %w", err)
	}
	return nil
}

// GetRunningBuild fetches a single ledger row, or nil when absent.
func (db *DB) GetRunningBuild(ctx context.Context, buildID string) (*domain.RunningBuild, error) {
	var build domain.RunningBuild
	err := db.GetContext(ctx, &build,
		`SELECT build_id, app_id, workflow_id, started_at, updated_at
		 FROM running_builds WHERE build_id = ?`, buildID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running build: %w", err)
	}
	return &build, nil
}

// CountRunning counts in-flight builds for appID, or all builds when appID
// is empty. The single build's start time is returned only when exactly one
// row matches.
func (db *DB) CountRunning(ctx context.Context, appID string) (domain.RunningStatus, error) {
	var status domain.RunningStatus

	var err error
	if appID == "" {
		err = db.GetContext(ctx, &status.RunningCount, `SELECT COUNT(*) FROM running_builds`)
	} else {
		err = db.GetContext(ctx, &status.RunningCount, `SELECT COUNT(*) FROM running_builds WHERE app_id = ?`, appID)
	}
	if err != nil {
		return status, fmt.Errorf("failed to count running builds: %w", err)
	}

	if status.RunningCount != 1 {
		return status, nil
	}

	var startedAt time.Time
	if appID == "" {
		err = db.GetContext(ctx, &startedAt, `SELECT started_at FROM running_builds LIMIT 1`)
	} else {
		err = db.GetContext(ctx, &startedAt, `SELECT started_at FROM running_builds WHERE app_id = ? LIMIT 1`, appID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		// Row deleted between the two queries; the count stands alone.
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("failed to get single build start time: %w", err)
	}

	status.SingleStartedAt = &startedAt
	return status, nil
}

// SweepStale prunes ledger rows that have not been touched for 12 hours
// (builds whose finish webhook never arrived) and device subscriptions idle
// for 30 days. Invoked opportunistically on every webhook delivery; webhook
// traffic is the only write path, so no background scheduler is needed.
func (db *DB) SweepStale(ctx context.Context) error {
	buildCutoff := time.Now().UTC().Add(-constants.StaleBuildAge)
	if _, err := db.ExecContext(ctx,
		`DELETE FROM running_builds WHERE updated_at < ?`, buildCutoff); err != nil {
		return fmt.Errorf("failed to sweep stale builds: %w", err)
	}

	if err := db.SweepInactiveSubscriptions(ctx); err != nil {
		return err
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
