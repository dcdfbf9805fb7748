package database

import (
	"database/sql"
	"time"
)

// Today returns today's date as YYYY-MM-DD.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// InsertRun stores a completed run and returns its id. Several runs may
// share a run_date; the viewer shows them newest first.
func (db *DB) InsertRun(r *Run) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO runs
		(run_date, project_id, total_sessions, total_dead_clicks, total_rage_clicks,
		 total_pages, issue_count, api_calls_used, llm_calls, input_tokens,
		 output_tokens, estimated_cost, duration_seconds, report_path, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunDate, r.ProjectID, r.TotalSessions, r.TotalDeadClicks, r.TotalRageClicks,
		r.TotalPages, r.IssueCount, r.APICallsUsed, r.LLMCalls, r.InputTokens,
		r.OutputTokens, r.EstimatedCost, r.DurationSeconds, r.ReportPath, r.ReportJSON,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertRunIssues stores the issue rows for a run in one transaction.
func (db *DB) InsertRunIssues(runID int64, issues []RunIssue) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_issues
		(run_id, issue_id, url, page_name, issue_type, metric, count,
		 sessions_affected, percent_affected, priority, prompt_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, issue := range issues {
		if _, err := stmt.Exec(
			runID, issue.IssueID, issue.URL, issue.PageName, issue.IssueType,
			issue.Metric, issue.Count, issue.SessionsAffected,
			issue.PercentAffected, issue.Priority, issue.PromptText,
		); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

const runColumns = `id, run_date, project_id, total_sessions, total_dead_clicks,
	total_rage_clicks, total_pages, issue_count, api_calls_used, llm_calls,
	input_tokens, output_tokens, estimated_cost, duration_seconds,
	report_path, report_json, created_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.RunDate, &r.ProjectID, &r.TotalSessions,
		&r.TotalDeadClicks, &r.TotalRageClicks, &r.TotalPages, &r.IssueCount,
		&r.APICallsUsed, &r.LLMCalls, &r.InputTokens, &r.OutputTokens,
		&r.EstimatedCost, &r.DurationSeconds, &r.ReportPath, &r.ReportJSON,
		&r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRun returns a run by id, or nil if absent.
func (db *DB) GetRun(id int64) (*Run, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetLatestRun returns the most recently created run, or nil if none exist.
func (db *DB) GetLatestRun() (*Run, error) {
	row := db.conn.QueryRow("SELECT " + runColumns + " FROM runs ORDER BY id DESC LIMIT 1")
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetAllRuns returns all runs, newest first.
func (db *DB) GetAllRuns() ([]Run, error) {
	rows, err := db.conn.Query("SELECT " + runColumns + " FROM runs ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunIssues returns the issue rows for a run ordered by priority then count.
func (db *DB) GetRunIssues(runID int64) ([]RunIssue, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, issue_id, url, page_name, issue_type, metric, count,
		 sessions_affected, percent_affected, priority, prompt_text
		 FROM run_issues WHERE run_id = ? ORDER BY priority ASC, count DESC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []RunIssue
	for rows.Next() {
		var i RunIssue
		if err := rows.Scan(&i.ID, &i.RunID, &i.IssueID, &i.URL, &i.PageName,
			&i.IssueType, &i.Metric, &i.Count, &i.SessionsAffected,
			&i.PercentAffected, &i.Priority, &i.PromptText); err != nil {
			return nil, err
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM runs", &s.TotalRuns},
		{"SELECT COUNT(*) FROM run_issues", &s.TotalIssues},
		{"SELECT COUNT(*) FROM run_issues WHERE priority = 'P0'", &s.P0Issues},
		{"SELECT COUNT(DISTINCT url) FROM run_issues", &s.DistinctURLs},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	if err := db.conn.QueryRow(
		"SELECT COALESCE(SUM(estimated_cost), 0) FROM runs",
	).Scan(&s.TotalCost); err != nil {
		return nil, err
	}

	return s, nil
}
