package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return formatRunError("CONFIG_LOAD_FAILED", err, "check ~/.skillrun/config.json")
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file and create the state directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return formatRunError("CONFIG_PATH_FAILED", err, "set SKILLRUN_HOME or HOME")
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", path)
		} else {
			if err := config.Save(config.DefaultConfig()); err != nil {
				return formatRunError("CONFIG_SAVE_FAILED", err, "verify write permissions for ~/.skillrun")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
		}
		if _, err := config.EnsureStateDirs(); err != nil {
			return formatRunError("STATE_DIRS_FAILED", err, "check permissions under ~/.skillrun")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
