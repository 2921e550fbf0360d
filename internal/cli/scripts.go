package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/config"
)

var scriptsListJSON bool

var scriptsCmd = &cobra.Command{
	Use:   "scripts <skill>",
	Short: "List the detected scripts of a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return formatRunError("CONFIG_LOAD_FAILED", err, "check ~/.skillrun/config.json")
		}
		sk, err := findSkill(cfg, args[0])
		if err != nil {
			return formatRunError("SKILL_NOT_FOUND", err, "run `skillrun skills list` to see available skills")
		}
		detected := sk.Scripts()

		if scriptsListJSON {
			data, err := json.MarshalIndent(detected, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Skill: %s (%s)\n", sk.Name, sk.Dir)
		fmt.Fprintln(cmd.OutOrStdout(), "Columns: name | language | path | description")
		for _, d := range detected {
			desc := d.Description()
			if desc == "" {
				desc = "-"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %s\n", d.Name, d.Language, d.RelativePath, desc)
		}
		if len(detected) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scripts detected.")
		}
		return nil
	},
}

func init() {
	scriptsCmd.Flags().BoolVar(&scriptsListJSON, "json", false, "Output JSON")
}
