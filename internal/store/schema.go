package store

// schemaVersion is the target schema version for this build. Version 1
// introduced the runs and run_results tables.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_info (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_kind     TEXT NOT NULL,
	entity_id       TEXT NOT NULL,
	time_frame      TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	total_hits      INTEGER NOT NULL DEFAULT 0,
	queries_run     INTEGER NOT NULL DEFAULT 0,
	queries_failed  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_entity ON runs(entity_kind, entity_id);

CREATE TABLE IF NOT EXISTS run_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	query_name  TEXT NOT NULL,
	hit_count   INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_run_results_run ON run_results(run_id);
`
