package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/rtodash/internal/wallet"
)

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireUser(ctx); err != nil {
				return finish(cmd, err)
			}
			// Signing in already loaded the balance; retry only if that failed.
			if !current.Wallet.Known() {
				if err := current.Wallet.RefreshBalance(ctx); err != nil {
					return finish(cmd, err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wallet balance: %s\n", wallet.FormatINR(current.Wallet.Amount()))
			ts := current.Wallet.TopupSettings()
			if len(ts.TopupAmounts) > 0 {
				amounts := make([]string, len(ts.TopupAmounts))
				for i, a := range ts.TopupAmounts {
					amounts[i] = wallet.FormatINR(a)
				}
				fmt.Fprintf(out, "Top-up amounts: %s\n", strings.Join(amounts, ", "))
			}
			if ts.MinTopupAmount.IsPositive() {
				fmt.Fprintf(out, "Minimum top-up: %s\n", wallet.FormatINR(ts.MinTopupAmount))
			}
			return finish(cmd, nil)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm <order_id>",
		Short: "Confirm a top-up payment and update the balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireUser(ctx); err != nil {
				return finish(cmd, err)
			}
			if _, err := current.Wallet.ConfirmPayment(ctx, args[0]); err != nil {
				return finish(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallet balance: %s\n", wallet.FormatINR(current.Wallet.Amount()))
			return finish(cmd, nil)
		},
	})

	return cmd
}
