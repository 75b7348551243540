// Copyright (c) 2026 ToeiRei
// Waymaster - VANET routing coordinator
// This source code is licensed under the MIT license found in the LICENSE file.

// ops.go holds the operational commands: audit log inspection, backup and
// restore, and database maintenance.

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/waymaster/internal/backup"
	"github.com/toeirei/waymaster/internal/db"
	"github.com/toeirei/waymaster/internal/i18n"
)

var fullRestore bool

// auditCmd prints the audit trail of mutating actions.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log",
	Long: `Display the audit trail of mutating actions (node changes, topology
edits, key rotations, deployments) in chronological order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := db.GetAllAuditLogEntries()
		if err != nil {
			return fmt.Errorf(i18n.T("audit.error_load_failed"), err)
		}

		if len(entries) == 0 {
			fmt.Println(i18n.T("audit.empty"))
			return nil
		}

		actionFilter, _ := cmd.Flags().GetString("action")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, i18n.T("audit.list_header"))
		for _, e := range entries {
			if actionFilter != "" && !strings.EqualFold(e.Action, actionFilter) {
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Timestamp, e.Username, e.Action, e.Details)
		}
		w.Flush()

		return nil
	},
}

// backupCmd writes a compressed snapshot of the database to a file.
var backupCmd = &cobra.Command{
	Use:   "backup <file>",
	Short: "Write a compressed backup of the database",
	Long: `Exports a consistent snapshot of all data (nodes, edges, deploy keys,
pinned host keys, audit log) and writes it zstd-compressed to the given
file. The snapshot contains private key material; protect it accordingly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := db.ExportDataForBackup()
		if err != nil {
			return fmt.Errorf(i18n.T("backup.error_export"), err)
		}

		if err := backup.WriteFile(args[0], data); err != nil {
			return fmt.Errorf(i18n.T("backup.error_write"), err)
		}

		fmt.Printf(i18n.T("backup.written")+"\n", args[0],
			len(data.Nodes), len(data.Edges), len(data.SystemKeys))
		return nil
	},
}

// restoreCmd loads a backup file into the database.
var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore the database from a backup",
	Long: `Restores the database from a file written by 'waymaster backup'. The
restore wipes all existing data first, so it must be confirmed with the
--full flag.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !fullRestore {
			return fmt.Errorf("%s", i18n.T("restore.error_full_required"))
		}

		data, err := backup.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf(i18n.T("restore.error_read"), err)
		}

		if err := db.ImportDataFromBackup(data); err != nil {
			return fmt.Errorf(i18n.T("restore.error_import"), err)
		}

		fmt.Printf(i18n.T("restore.done")+"\n",
			len(data.Nodes), len(data.Edges), len(data.SystemKeys))
		return nil
	},
}

// dbMaintainCmd runs engine-specific database maintenance.
var dbMaintainCmd = &cobra.Command{
	Use:   "db-maintain",
	Short: "Run database maintenance",
	Long: `Runs engine-specific maintenance on the configured database (VACUUM and
integrity_check for SQLite, VACUUM ANALYZE for PostgreSQL, table checks
for MySQL).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeoutSecs, _ := cmd.Flags().GetInt("timeout")

		if err := db.RunDBMaintenance(appConfig.Database.Type, appConfig.Database.Dsn,
			time.Duration(timeoutSecs)*time.Second); err != nil {
			return fmt.Errorf(i18n.T("db_maintain.error"), err)
		}

		fmt.Println(i18n.T("db_maintain.done"))
		return nil
	},
}

func init() {
	if auditCmd.Flags().Lookup("action") == nil {
		auditCmd.Flags().String("action", "", "Only show entries with this action (e.g. SET_EDGE)")
	}
}
