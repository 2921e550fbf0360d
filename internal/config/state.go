package config

import (
	"os"
	"path/filepath"
)

// StateDirs contains the private filesystem locations used by the runtime.
type StateDirs struct {
	Root       string
	AuditDir   string
	HistoryDir string
}

// ResolveStateDirs computes the private state directories next to the
// config file.
func ResolveStateDirs() (StateDirs, error) {
	cfgPath, err := ConfigPath()
	if err != nil {
		return StateDirs{}, err
	}
	root := filepath.Join(filepath.Dir(cfgPath), "state")
	return StateDirs{
		Root:       root,
		AuditDir:   filepath.Join(root, "audit"),
		HistoryDir: filepath.Join(root, "history"),
	}, nil
}

// EnsureStateDirs creates the state directories with 0700 permissions.
func EnsureStateDirs() (StateDirs, error) {
	dirs, err := ResolveStateDirs()
	if err != nil {
		return StateDirs{}, err
	}
	for _, dir := range []string{dirs.Root, dirs.AuditDir, dirs.HistoryDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return StateDirs{}, err
		}
		if err := os.Chmod(dir, 0o700); err != nil {
			return StateDirs{}, err
		}
	}
	return dirs, nil
}

// AuditFilePath returns the audit trail path: the configured one, or the
// default under the state directory.
func (c *Config) AuditFilePath(dirs StateDirs) string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(dirs.AuditDir, "trail.jsonl")
}

// HistoryFilePath returns the history database path: the configured one, or
// the default under the state directory.
func (c *Config) HistoryFilePath(dirs StateDirs) string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(dirs.HistoryDir, "history.db")
}
