package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sajagmathur/mlconsole/internal/session"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the local audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		entries := a.notify.Entries()
		if len(entries) == 0 {
			fmt.Println("audit log is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  [%s]  %s  %s", e.Timestamp.Format(time.RFC3339), e.Category, e.User, e.Action)
			if e.Details != "" {
				fmt.Printf(" (%s)", e.Details)
			}
			fmt.Println()
		}
		return nil
	},
}

var auditClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.requireLogin(); err != nil {
			return err
		}
		if !a.sessions.HasPermission(session.PermAuditClear) {
			return fmt.Errorf("clearing the audit log requires the %s permission", session.PermAuditClear)
		}
		if err := a.notify.ClearAuditLog(); err != nil {
			return err
		}
		fmt.Println("audit log cleared")
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show active notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		active := a.notify.Active()
		if len(active) == 0 {
			fmt.Println("no active notifications")
			return nil
		}
		for _, n := range active {
			fmt.Printf("%s  [%s]  %s\n", n.CreatedAt.Format(time.RFC3339), n.Severity, n.Message)
		}
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditListCmd, auditClearCmd)
	rootCmd.AddCommand(auditCmd, notificationsCmd)
}
