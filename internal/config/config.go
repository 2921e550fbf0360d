// Package config provides configuration types and loading for skillrun.
package config

// Config is the root configuration struct.
// Top-level groups: Skills, Execution, Audit, History, Events, Notify.
type Config struct {
	Skills    SkillsConfig    `json:"skills"`
	Execution ExecutionConfig `json:"execution"`
	Audit     AuditConfig     `json:"audit"`
	History   HistoryConfig   `json:"history"`
	Events    EventsConfig    `json:"events"`
	Notify    NotifyConfig    `json:"notify"`
}

// ---------------------------------------------------------------------------
// Skills – where skill directories live
// ---------------------------------------------------------------------------

// SkillsConfig locates skill directories on disk.
type SkillsConfig struct {
	// Root is the directory whose immediate subdirectories are skills.
	Root string `json:"root" envconfig:"SKILLS_ROOT"`
}

// ---------------------------------------------------------------------------
// Execution – script runtime limits
// ---------------------------------------------------------------------------

// ExecutionConfig groups script runtime settings.
type ExecutionConfig struct {
	// TimeoutSeconds is the default per-run timeout, clamped to 1..600.
	TimeoutSeconds int `json:"timeoutSeconds" envconfig:"EXECUTION_TIMEOUT_SECONDS"`
}

// ---------------------------------------------------------------------------
// Audit – tamper-evident execution trail
// ---------------------------------------------------------------------------

// AuditConfig controls the hash-chained audit file.
//
// The envconfig alt names are fully qualified on purpose: envconfig also
// consults the bare alt key, so a generic name like PATH would capture the
// OS search path.
type AuditConfig struct {
	Enabled bool `json:"enabled" envconfig:"AUDIT_ENABLED"`
	// Path of the chained JSONL file. Empty selects the default under the
	// state directory.
	Path string `json:"path,omitempty" envconfig:"AUDIT_PATH"`
}

// ---------------------------------------------------------------------------
// History – queryable execution database
// ---------------------------------------------------------------------------

// HistoryConfig controls the SQLite execution history.
type HistoryConfig struct {
	Enabled bool `json:"enabled" envconfig:"HISTORY_ENABLED"`
	// Path of the SQLite database. Empty selects the default under the
	// state directory.
	Path string `json:"path,omitempty" envconfig:"HISTORY_PATH"`
}

// ---------------------------------------------------------------------------
// Events – Kafka publication of execution records
// ---------------------------------------------------------------------------

// EventsConfig controls publication of execution records to Kafka.
type EventsConfig struct {
	Enabled bool   `json:"enabled" envconfig:"EVENTS_ENABLED"`
	Brokers string `json:"brokers,omitempty" envconfig:"EVENTS_KAFKA_BROKERS"`
	Topic   string `json:"topic,omitempty" envconfig:"EVENTS_TOPIC"`
}

// ---------------------------------------------------------------------------
// Notify – operator notifications on failures
// ---------------------------------------------------------------------------

// NotifyConfig controls Slack notifications for elevated records.
type NotifyConfig struct {
	Enabled      bool   `json:"enabled" envconfig:"NOTIFY_ENABLED"`
	SlackToken   string `json:"slackToken,omitempty" envconfig:"NOTIFY_SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel,omitempty" envconfig:"NOTIFY_SLACK_CHANNEL"`
}

// DefaultConfig returns the baseline configuration: auditing and history on,
// external integrations off.
func DefaultConfig() *Config {
	return &Config{
		Skills: SkillsConfig{
			Root: "~/" + ConfigDir + "/skills",
		},
		Execution: ExecutionConfig{
			TimeoutSeconds: 30,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			Topic: "skillrun.executions",
		},
	}
}
