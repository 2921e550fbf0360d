package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/audit"
	"github.com/skillrun/skillrun/internal/config"
	"github.com/skillrun/skillrun/internal/events"
	"github.com/skillrun/skillrun/internal/history"
	"github.com/skillrun/skillrun/internal/notify"
	"github.com/skillrun/skillrun/internal/scripts"
)

var (
	runArgsJSON string
	runArgsFile string
	runTimeout  int
	runJSON     bool
)

var runCmd = &cobra.Command{
	Use:   "run <skill> <script>",
	Short: "Execute a detected skill script",
	Long: "Executes one detected script of a skill through the full pipeline:\n" +
		"tool allow-list check, path containment, interpreter resolution,\n" +
		"bounded runtime, and audit recording. Arguments are delivered to the\n" +
		"script as JSON on stdin.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return formatRunError("CONFIG_LOAD_FAILED", err, "check ~/.skillrun/config.json")
		}
		sk, err := findSkill(cfg, args[0])
		if err != nil {
			return formatRunError("SKILL_NOT_FOUND", err, "run `skillrun skills list` to see available skills")
		}
		script, ok := sk.FindScript(args[1])
		if !ok {
			return formatRunError("SCRIPT_NOT_FOUND",
				fmt.Errorf("script %q not detected in skill %q", args[1], sk.Name),
				fmt.Sprintf("run `skillrun scripts %s` to see detected scripts", sk.Name))
		}

		payload, err := parseRunArguments(runArgsJSON, runArgsFile)
		if err != nil {
			return formatRunError("ARGS_INVALID", err, "--args takes a JSON value, --args-file a JSON file path")
		}

		executor, cleanup, err := buildExecutor(cfg)
		if err != nil {
			return formatRunError("RUNTIME_SETUP_FAILED", err, "check permissions under ~/.skillrun")
		}
		defer cleanup()

		timeout := runTimeout
		if timeout <= 0 {
			timeout = cfg.Execution.TimeoutSeconds
		}

		res, err := executor.Execute(cmd.Context(), sk.RunRequest(script, payload, timeout))
		if err != nil {
			return formatExecError(err)
		}

		if runJSON {
			data, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			if res.Stdout != "" {
				fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
				if !strings.HasSuffix(res.Stdout, "\n") {
					fmt.Fprintln(cmd.OutOrStdout())
				}
			}
			if res.Stderr != "" {
				fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
				if !strings.HasSuffix(res.Stderr, "\n") {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
			}
			status := fmt.Sprintf("exit %d", res.ExitCode)
			if res.Signal != "" {
				status = "killed by " + res.Signal
			}
			if res.TimedOut {
				status = "timed out"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s/%s %s in %dms]\n", sk.Name, script.Name, status, res.DurationMillis)
		}

		if res.ExitCode != 0 {
			// The script's own output already went out; suppress the extra
			// cobra error line and carry the exit code to the process.
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return &exitCodeError{code: res.ExitCode}
		}
		return nil
	},
}

// formatExecError maps each pre-spawn rejection to a stable code with a
// remediation hint.
func formatExecError(err error) error {
	var (
		restricted   *scripts.ToolRestrictionError
		pathEscape   *scripts.PathSecurityError
		permissions  *scripts.ScriptPermissionError
		noInterp     *scripts.InterpreterNotFoundError
		badArgs      *scripts.ArgumentSerializationError
		oversizeArgs *scripts.ArgumentSizeError
	)
	switch {
	case errors.As(err, &restricted):
		return formatRunError("TOOL_RESTRICTED", err, "add Bash to allowed-tools in SKILL.md")
	case errors.As(err, &pathEscape):
		return formatRunError("PATH_ESCAPE", err, "keep scripts inside the skill directory")
	case errors.As(err, &permissions):
		return formatRunError("SCRIPT_PERMISSIONS", err, "clear the setuid/setgid bits on the script")
	case errors.As(err, &noInterp):
		return formatRunError("INTERPRETER_MISSING", err, "install the interpreter or extend PATH")
	case errors.As(err, &badArgs):
		return formatRunError("ARGS_NOT_SERIALIZABLE", err, "pass JSON-encodable argument values")
	case errors.As(err, &oversizeArgs):
		return formatRunError("ARGS_TOO_LARGE", err, "keep encoded arguments under 10 MiB")
	}
	return formatRunError("EXECUTION_REJECTED", err, "see the audit trail for details")
}

func parseRunArguments(inline, file string) (any, error) {
	raw := strings.TrimSpace(inline)
	if file != "" {
		if raw != "" {
			return nil, errors.New("--args and --args-file are mutually exclusive")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(string(data))
	}
	if raw == "" {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return payload, nil
}

// buildExecutor wires an executor with the audit trail and every enabled
// sink. The returned cleanup closes sink resources.
func buildExecutor(cfg *config.Config) (*scripts.Executor, func(), error) {
	dirs, err := config.EnsureStateDirs()
	if err != nil {
		return nil, nil, err
	}

	var sinks []audit.Sink
	var closers []func()

	if cfg.History.Enabled {
		svc, err := history.NewService(cfg.HistoryFilePath(dirs))
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, svc)
		closers = append(closers, func() { _ = svc.Close() })
	}
	if cfg.Events.Enabled {
		if brokers := cfg.Events.KafkaBrokers(); len(brokers) > 0 {
			pub := events.NewPublisher(brokers, cfg.Events.Topic)
			sinks = append(sinks, pub)
			closers = append(closers, func() { _ = pub.Close() })
		}
	}
	if cfg.Notify.Enabled && cfg.Notify.SlackToken != "" && cfg.Notify.SlackChannel != "" {
		sinks = append(sinks, notify.NewSlackNotifier(cfg.Notify.SlackToken, cfg.Notify.SlackChannel))
	}

	auditPath := ""
	if cfg.Audit.Enabled {
		auditPath = cfg.AuditFilePath(dirs)
	}
	executor := scripts.NewExecutor(audit.NewTrail(auditPath, sinks...))
	cleanup := func() {
		for _, close := range closers {
			close()
		}
	}
	return executor, cleanup, nil
}

func init() {
	runCmd.Flags().StringVar(&runArgsJSON, "args", "", "JSON value passed to the script on stdin")
	runCmd.Flags().StringVar(&runArgsFile, "args-file", "", "File containing the JSON arguments")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "Timeout in seconds (default from config, max 600)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output the full execution result as JSON")
}
