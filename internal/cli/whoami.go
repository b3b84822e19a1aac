package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/rtodash/internal/session"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(cmd.Context()); err != nil {
				return finish(cmd, err)
			}
			snap := current.Auth.Snapshot()
			u := snap.User
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Agent:   %s\n", u.DisplayName())
			fmt.Fprintf(out, "  Email:   %s\n", u.Email)
			if u.Mobile != "" {
				fmt.Fprintf(out, "  Mobile:  %s\n", u.Mobile)
			}
			if u.CompanyName != "" {
				fmt.Fprintf(out, "  Company: %s\n", u.CompanyName)
			}
			fmt.Fprintf(out, "  Role:    %s", u.Role)
			if snap.IsAdmin() {
				fmt.Fprint(out, " (admin)")
			}
			fmt.Fprintln(out)

			if tok, ok := current.Session.Token(cmd.Context()); ok {
				if claims, err := session.ParseClaims(tok); err == nil {
					fmt.Fprintf(out, "  Session: expires %s\n", humanize.Time(claims.ExpiresAt))
				}
			}
			return finish(cmd, nil)
		},
	}
}
