package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_date TEXT NOT NULL,
    project_id TEXT NOT NULL,
    total_sessions INTEGER DEFAULT 0,
    total_dead_clicks INTEGER DEFAULT 0,
    total_rage_clicks INTEGER DEFAULT 0,
    total_pages INTEGER DEFAULT 0,
    issue_count INTEGER DEFAULT 0,
    api_calls_used INTEGER DEFAULT 0,
    llm_calls INTEGER DEFAULT 0,
    input_tokens INTEGER DEFAULT 0,
    output_tokens INTEGER DEFAULT 0,
    estimated_cost REAL DEFAULT 0,
    duration_seconds REAL DEFAULT 0,
    report_path TEXT,
    report_json TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id),
    issue_id TEXT NOT NULL,
    url TEXT NOT NULL,
    page_name TEXT,
    issue_type TEXT NOT NULL,
    metric TEXT,
    count INTEGER DEFAULT 0,
    sessions_affected INTEGER DEFAULT 0,
    percent_affected REAL DEFAULT 0,
    priority TEXT NOT NULL,
    prompt_text TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(run_date);
CREATE INDEX IF NOT EXISTS idx_run_issues_run ON run_issues(run_id);
CREATE INDEX IF NOT EXISTS idx_run_issues_priority ON run_issues(priority);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
