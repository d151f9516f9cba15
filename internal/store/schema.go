package store

// go-sql-driver rejects multi-statement strings by default, so each
// schema is a list of single statements.

var schemaMySQL = []string{
	`CREATE TABLE IF NOT EXISTS running_builds (
		build_id VARCHAR(64) NOT NULL,
		app_id VARCHAR(64) NOT NULL,
		workflow_id VARCHAR(64) NULL,
		started_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (build_id),
		KEY idx_running_builds_app (app_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS device_subscriptions (
		device_token VARCHAR(200) NOT NULL,
		app_id VARCHAR(64) NOT NULL,
		app_bundle_id VARCHAR(191) NOT NULL,
		last_push_at DATETIME NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (device_token, app_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS running_builds (
		build_id TEXT NOT NULL PRIMARY KEY,
		app_id TEXT NOT NULL,
		workflow_id TEXT,
		started_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_running_builds_app ON running_builds (app_id)`,
	`CREATE TABLE IF NOT EXISTS device_subscriptions (
		device_token TEXT NOT NULL,
		app_id TEXT NOT NULL,
		app_bundle_id TEXT NOT NULL,
		last_push_at DATETIME,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (device_token, app_id)
	)`,
}
