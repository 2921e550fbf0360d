package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".skillrun"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("SKILLRUN_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("SKILLRUN_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults. A missing file is not an error.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load process env vars from ~/.config/skillrun/env (and fallbacks) first.
	applyEnvFiles()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // use defaults when no config path is resolvable
	}

	data, err := loadResolvedConfig(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Override with environment variables. Each field carries a fully
	// qualified alt name (AUDIT_PATH, not PATH), so the lookups are
	// SKILLRUN_<GROUP>_<FIELD> with a distinctive unprefixed fallback that
	// cannot collide with ambient variables.
	envconfig.Process("SKILLRUN", &cfg.Skills)
	envconfig.Process("SKILLRUN", &cfg.Execution)
	envconfig.Process("SKILLRUN", &cfg.Audit)
	envconfig.Process("SKILLRUN", &cfg.History)
	envconfig.Process("SKILLRUN", &cfg.Events)
	envconfig.Process("SKILLRUN", &cfg.Notify)

	// Expand ~ in paths.
	expandHome := func(p *string) {
		if strings.HasPrefix(*p, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				*p = filepath.Join(home, (*p)[1:])
			}
		}
	}
	expandHome(&cfg.Skills.Root)
	expandHome(&cfg.Audit.Path)
	expandHome(&cfg.History.Path)

	normalize(cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.Execution.TimeoutSeconds <= 0 {
		cfg.Execution.TimeoutSeconds = 30
	}
	if cfg.Execution.TimeoutSeconds > 600 {
		cfg.Execution.TimeoutSeconds = 600
	}
	if strings.TrimSpace(cfg.Events.Topic) == "" {
		cfg.Events.Topic = "skillrun.executions"
	}
}

// KafkaBrokers returns the configured broker list, split and trimmed.
func (c EventsConfig) KafkaBrokers() []string {
	parts := strings.Split(c.Brokers, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if b := strings.TrimSpace(part); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyEnvFiles folds KEY=VALUE pairs from the known env files into the
// process environment. Variables already present in the process win.
func applyEnvFiles() {
	for _, path := range envFileCandidates() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		applyEnvPairs(string(data))
	}
}

// envFileCandidates returns the env files to consult, most specific first:
// the SKILLRUN_ENV_FILE override, then the XDG-style and dotfile locations.
func envFileCandidates() []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	add(strings.TrimSpace(os.Getenv("SKILLRUN_ENV_FILE")))
	if home, err := os.UserHomeDir(); err == nil {
		add(filepath.Join(home, ".config", "skillrun", "env"))
		add(filepath.Join(home, ConfigDir, "env"))
		add(filepath.Join(home, ConfigDir, ".env"))
	}
	return out
}

func applyEnvPairs(content string) {
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		os.Setenv(key, unquote(strings.TrimSpace(val)))
	}
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadResolvedConfig reads the file and substitutes ${VAR} references with
// environment values before unmarshaling, so secrets can stay out of the
// file itself.
func loadResolvedConfig(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	substituteEnvValues(raw)
	return json.Marshal(raw)
}

func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			parts := envPattern.FindStringSubmatch(match)
			if len(parts) != 2 {
				return match
			}
			if value, ok := os.LookupEnv(parts[1]); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}
