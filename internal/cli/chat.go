package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the support chatbot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireUser(ctx); err != nil {
				return finish(cmd, err)
			}

			_, err := current.Chat.Send(ctx, strings.Join(args, " "))
			// On failure the transcript ends with the fallback reply.
			transcript := current.Chat.Transcript()
			if len(transcript) > 0 {
				if last := transcript[len(transcript)-1]; last.From == "bot" {
					fmt.Fprintf(cmd.OutOrStdout(), "bot: %s\n", last.Text)
				}
			}
			return finish(cmd, err)
		},
	}
}
