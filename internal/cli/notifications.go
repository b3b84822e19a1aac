package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notifs"},
		Short:   "List and manage notifications",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List notifications, newest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := requireUser(ctx); err != nil {
					return finish(cmd, err)
				}
				if err := current.Notifications.Fetch(ctx, current.Auth.Snapshot()); err != nil {
					return finish(cmd, err)
				}

				out := cmd.OutOrStdout()
				items := current.Notifications.Items()
				if len(items) == 0 {
					fmt.Fprintln(out, "No notifications.")
					return finish(cmd, nil)
				}

				fmt.Fprintf(out, "%-22s  %-8s  %-4s  %-14s  %s\n", "ID", "TYPE", "NEW", "WHEN", "TITLE")
				fmt.Fprintf(out, "%-22s  %-8s  %-4s  %-14s  %s\n", "--", "----", "---", "----", "-----")
				for _, n := range items {
					unread := ""
					if !n.Read {
						unread = "*"
					}
					fmt.Fprintf(out, "%-22s  %-8s  %-4s  %-14s  %s\n", n.ID, n.Type, unread, n.Timestamp, n.Title)
					if n.Message != "" {
						fmt.Fprintf(out, "%-22s  %s\n", "", n.Message)
					}
				}
				fmt.Fprintf(out, "\n%d unread\n", current.Notifications.UnreadCount())
				return finish(cmd, nil)
			},
		},
		&cobra.Command{
			Use:   "read-all",
			Short: "Mark every notification read",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := requireUser(ctx); err != nil {
					return finish(cmd, err)
				}
				if err := current.Notifications.MarkAllRead(ctx); err != nil {
					return finish(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All notifications marked read")
				return finish(cmd, nil)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every notification",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				if err := requireUser(ctx); err != nil {
					return finish(cmd, err)
				}
				return finish(cmd, current.Notifications.ClearAll(ctx))
			},
		},
	)

	return cmd
}
