// Package history persists script execution records in a local SQLite
// database for later inspection.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skillrun/skillrun/internal/audit"
)

// Service stores execution records. It implements audit.Sink, so it can be
// attached directly to an audit trail.
type Service struct {
	db *sql.DB
}

var _ audit.Sink = (*Service)(nil)

// NewService opens (creating if needed) the history database at dbPath.
func NewService(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	// Best-effort migrations for databases created before these columns
	// existed. Errors mean the column is already there.
	_, _ = db.Exec(`ALTER TABLE script_executions ADD COLUMN args_bytes INTEGER NOT NULL DEFAULT 0`)
	_, _ = db.Exec(`ALTER TABLE script_executions ADD COLUMN error_text TEXT DEFAULT ''`)
	return &Service{db: db}, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}

// Record inserts one execution record.
func (s *Service) Record(rec audit.Record) error {
	executedAt := rec.Time
	if executedAt.IsZero() {
		executedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO script_executions
		(id, executed_at, skill, skill_version, script, language, interpreter, classification,
		 exit_code, signal, duration_ms, stdout_bytes, stderr_bytes, truncated, args_digest, args_bytes, error_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, executedAt, rec.Skill, rec.SkillVersion, rec.Script, rec.Language, rec.Interpreter,
		string(rec.Classification), rec.ExitCode, rec.Signal, rec.DurationMs,
		rec.StdoutBytes, rec.StderrBytes, rec.Truncated, rec.ArgsDigest, rec.ArgsBytes, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Execution is one stored history row.
type Execution struct {
	ID             string    `json:"id"`
	ExecutedAt     time.Time `json:"executedAt"`
	Skill          string    `json:"skill"`
	SkillVersion   string    `json:"skillVersion,omitempty"`
	Script         string    `json:"script"`
	Language       string    `json:"language,omitempty"`
	Interpreter    string    `json:"interpreter,omitempty"`
	Classification string    `json:"classification"`
	ExitCode       int       `json:"exitCode"`
	Signal         string    `json:"signal,omitempty"`
	DurationMs     int64     `json:"durationMs"`
	Truncated      bool      `json:"truncated"`
	ArgsDigest     string    `json:"argsDigest,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Query filters a history listing. Zero values mean no filter.
type Query struct {
	Skill          string
	Classification string
	Since          time.Time
	Limit          int
}

// List returns the newest executions matching the query, most recent first.
func (s *Service) List(q Query) ([]Execution, error) {
	query := `SELECT id, executed_at, skill, COALESCE(skill_version, ''), script,
		COALESCE(language, ''), COALESCE(interpreter, ''), classification, exit_code,
		COALESCE(signal, ''), duration_ms, truncated, COALESCE(args_digest, ''), COALESCE(error_text, '')
		FROM script_executions WHERE 1=1`
	args := []any{}

	if q.Skill != "" {
		query += " AND skill = ?"
		args = append(args, q.Skill)
	}
	if q.Classification != "" {
		query += " AND classification = ?"
		args = append(args, q.Classification)
	}
	if !q.Since.IsZero() {
		query += " AND executed_at >= ?"
		args = append(args, q.Since)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY executed_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// Stats returns execution counts per classification.
func (s *Service) Stats() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT classification, COUNT(*) FROM script_executions GROUP BY classification`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, err
		}
		stats[class] = count
	}
	return stats, rows.Err()
}

func scanExecutions(rows *sql.Rows) ([]Execution, error) {
	var out []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.ExecutedAt, &e.Skill, &e.SkillVersion, &e.Script,
			&e.Language, &e.Interpreter, &e.Classification, &e.ExitCode,
			&e.Signal, &e.DurationMs, &e.Truncated, &e.ArgsDigest, &e.Error); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
