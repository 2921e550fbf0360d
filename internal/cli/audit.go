package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/audit"
	"github.com/skillrun/skillrun/internal/config"
)

var auditVerifyPath string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the execution audit trail",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the hash chain of the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := auditVerifyPath
		if path == "" {
			cfg, err := config.Load()
			if err != nil {
				return formatRunError("CONFIG_LOAD_FAILED", err, "check ~/.skillrun/config.json")
			}
			dirs, err := config.ResolveStateDirs()
			if err != nil {
				return formatRunError("STATE_DIRS_FAILED", err, "check permissions under ~/.skillrun")
			}
			path = cfg.AuditFilePath(dirs)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Fprintf(cmd.OutOrStdout(), "No audit trail at %s\n", path)
			return nil
		}

		count, err := audit.Verify(path)
		if err != nil {
			return formatRunError("AUDIT_CHAIN_BROKEN",
				fmt.Errorf("%w (%d records intact)", err, count),
				"the trail was modified after being written; keep the file for investigation")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Audit chain intact: %d records in %s\n", count, path)
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
	auditVerifyCmd.Flags().StringVar(&auditVerifyPath, "path", "", "Audit trail file (default from config)")
}
