package history

// Schema creates the execution history tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS script_executions (
	id TEXT PRIMARY KEY,
	executed_at DATETIME NOT NULL,
	skill TEXT NOT NULL,
	skill_version TEXT DEFAULT '',
	script TEXT NOT NULL,
	language TEXT DEFAULT '',
	interpreter TEXT DEFAULT '',
	classification TEXT NOT NULL,
	exit_code INTEGER NOT NULL DEFAULT 0,
	signal TEXT DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	stdout_bytes INTEGER NOT NULL DEFAULT 0,
	stderr_bytes INTEGER NOT NULL DEFAULT 0,
	truncated BOOLEAN NOT NULL DEFAULT 0,
	args_digest TEXT DEFAULT '',
	args_bytes INTEGER NOT NULL DEFAULT 0,
	error_text TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_script_executions_skill ON script_executions(skill);
CREATE INDEX IF NOT EXISTS idx_script_executions_time ON script_executions(executed_at);
CREATE INDEX IF NOT EXISTS idx_script_executions_class ON script_executions(classification);
`
