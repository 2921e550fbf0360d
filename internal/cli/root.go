package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logo = "\n" +
	"      _     _  _  _\n" +
	" ___ | | __(_)| || | _ __  _   _  _ __\n" +
	"/ __|| |/ /| || || || '__|| | | || '_ \\\n" +
	"\\__ \\|   < | || || || |   | |_| || | | |\n" +
	"|___/|_|\\_\\|_||_||_||_|    \\__,_||_| |_|\n"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "skillrun",
	Short: "skillrun - Skill script detection and secure execution",
	Long:  color.CyanString(logo) + "\nDetects helper scripts inside skill directories and runs them with\ncontainment, resource limits, and a full audit trail.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// exitCodeError carries a script's exit status out of a command.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("script exited with code %d", e.code)
}

// ExitCode maps an Execute error to the process exit code, propagating
// script exit codes (including the timeout code 124) to the shell.
func ExitCode(err error) int {
	var ec *exitCodeError
	if errors.As(err, &ec) && ec.code > 0 {
		return ec.code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(scriptsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
}
