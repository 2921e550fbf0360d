package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/config"
	"github.com/skillrun/skillrun/internal/skills"
)

var skillsListJSON bool

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect skill directories",
}

type skillListRow struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Description  string   `json:"description,omitempty"`
	Dir          string   `json:"dir"`
	Scripts      int      `json:"scripts"`
	Restricted   bool     `json:"restricted"`
	AllowedTools []string `json:"allowedTools,omitempty"`
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills under the configured skills root",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return formatRunError("CONFIG_LOAD_FAILED", err, "check ~/.skillrun/config.json")
		}
		loaded, err := skills.List(cfg.Skills.Root)
		if err != nil {
			return formatRunError("SKILLS_ROOT_UNREADABLE", err, "set skills.root in the config or run `skillrun config init`")
		}

		rows := make([]skillListRow, 0, len(loaded))
		for _, sk := range loaded {
			rows = append(rows, skillListRow{
				Name:         sk.Name,
				Version:      sk.Version,
				Description:  sk.Description,
				Dir:          sk.Dir,
				Scripts:      len(sk.Scripts()),
				Restricted:   sk.AllowedTools != nil,
				AllowedTools: sk.AllowedTools,
			})
		}

		if skillsListJSON {
			data, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Skills root: %s\n", cfg.Skills.Root)
		fmt.Fprintln(cmd.OutOrStdout(), "Columns: name | version | scripts | restricted | description")
		for _, row := range rows {
			version := row.Version
			if version == "" {
				version = "-"
			}
			restricted := "no"
			if row.Restricted {
				restricted = "yes"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %d | %s | %s\n",
				row.Name, version, row.Scripts, restricted, row.Description)
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No skills found.")
		}
		return nil
	},
}

// findSkill resolves a skill by its frontmatter name, falling back to the
// directory name under the skills root.
func findSkill(cfg *config.Config, name string) (*skills.Skill, error) {
	loaded, listErr := skills.List(cfg.Skills.Root)
	for _, sk := range loaded {
		if sk.Name == name {
			return sk, nil
		}
	}
	sk, err := skills.Load(filepath.Join(cfg.Skills.Root, name))
	if err == nil {
		return sk, nil
	}
	if listErr != nil {
		return nil, listErr
	}
	return nil, fmt.Errorf("skill %q not found under %s", name, cfg.Skills.Root)
}

func init() {
	skillsCmd.AddCommand(skillsListCmd)
	skillsListCmd.Flags().BoolVar(&skillsListJSON, "json", false, "Output JSON")
}

func formatRunError(code string, err error, remediation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %v. remediation: %s", strings.ToUpper(strings.TrimSpace(code)), err, remediation)
}
