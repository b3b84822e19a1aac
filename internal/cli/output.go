package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/rtodash/internal/toast"
	"github.com/me/rtodash/pkg/model"
)

// finish prints pending toasts and settles the command's error. When a toast
// already explained the failure, ErrReported is returned instead.
func finish(cmd *cobra.Command, err error) error {
	shown := false
	for _, t := range current.Toasts.Drain() {
		switch t.Level {
		case toast.LevelError:
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", t.Message)
			shown = true
		default:
			fmt.Fprintln(cmd.OutOrStdout(), t.Message)
		}
	}
	if err == nil && expired.Load() {
		err = errSessionExpired
	}
	if err == nil {
		return nil
	}
	if shown {
		return ErrReported
	}
	if model.IsUnauthorized(err) || expired.Load() {
		return errSessionExpired
	}
	return err
}
