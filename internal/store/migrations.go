package store

// migrations holds all schema migrations in order.
// Each migration is a SQL string that creates or alters tables.
// Migrations are applied in order and tracked via schema_version table.
var migrations = []string{
	// Migration 1: Core tables
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS scheduled_prompts (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_scheduled_prompts_position ON scheduled_prompts(position);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES ('prompt_set_version', '0');

	CREATE TABLE IF NOT EXISTS executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL DEFAULT '',
		prompt_id TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		triggered_by TEXT NOT NULL DEFAULT 'manual',
		status TEXT NOT NULL,
		output TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		cost_usd REAL NOT NULL DEFAULT 0,
		turns INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_executions_project ON executions(project);
	CREATE INDEX IF NOT EXISTS idx_executions_job_id ON executions(job_id);
	CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions(started_at);`,

	// Migration 2: Track pending (unpushed) changes per execution
	`ALTER TABLE executions ADD COLUMN has_pending_changes INTEGER NOT NULL DEFAULT 0;`,
}
