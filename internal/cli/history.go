package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/config"
	"github.com/skillrun/skillrun/internal/history"
)

var (
	historySkill string
	historyClass string
	historyLimit int
	historyJSON  bool
	statsJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded script executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openHistory()
		if err != nil {
			return err
		}
		defer svc.Close()

		rows, err := svc.List(history.Query{
			Skill:          historySkill,
			Classification: historyClass,
			Limit:          historyLimit,
		})
		if err != nil {
			return formatRunError("HISTORY_QUERY_FAILED", err, "check the history database under ~/.skillrun/state")
		}

		if historyJSON {
			data, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Columns: time | skill | script | classification | exit | duration")
		for _, row := range rows {
			fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %s | %d | %dms\n",
				row.ExecutedAt.Format("2006-01-02 15:04:05"),
				row.Skill, row.Script, row.Classification, row.ExitCode, row.DurationMs)
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No executions recorded.")
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show execution counts per classification",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openHistory()
		if err != nil {
			return err
		}
		defer svc.Close()

		stats, err := svc.Stats()
		if err != nil {
			return formatRunError("HISTORY_QUERY_FAILED", err, "check the history database under ~/.skillrun/state")
		}

		if statsJSON {
			data, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		classes := make([]string, 0, len(stats))
		for class := range stats {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		for _, class := range classes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", class, stats[class])
		}
		if len(classes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No executions recorded.")
		}
		return nil
	},
}

func openHistory() (*history.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, formatRunError("CONFIG_LOAD_FAILED", err, "check ~/.skillrun/config.json")
	}
	dirs, err := config.EnsureStateDirs()
	if err != nil {
		return nil, formatRunError("STATE_DIRS_FAILED", err, "check permissions under ~/.skillrun")
	}
	svc, err := history.NewService(cfg.HistoryFilePath(dirs))
	if err != nil {
		return nil, formatRunError("HISTORY_OPEN_FAILED", err, "check the history database under ~/.skillrun/state")
	}
	return svc, nil
}

func init() {
	historyCmd.AddCommand(historyStatsCmd)

	historyCmd.Flags().StringVar(&historySkill, "skill", "", "Filter by skill name")
	historyCmd.Flags().StringVar(&historyClass, "classification", "", "Filter by classification (success, error, signal, timeout, rejected)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum rows to return")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output JSON")
	historyStatsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output JSON")
}
