// Package cli implements the rtodash command line client. It runs a single
// App whose durable storage is a JSON file in the user's home directory.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/me/rtodash/internal/app"
	"github.com/me/rtodash/internal/config"
	"github.com/me/rtodash/internal/guard"
	"github.com/me/rtodash/internal/logging"
	"github.com/me/rtodash/internal/store"
	"github.com/me/rtodash/pkg/model"
)

var (
	flagConfig    string
	flagAPI       string
	flagStorage   string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger  *slog.Logger
	current *app.App
	// expired is set when the API rejects the stored token mid-command.
	expired atomic.Bool
)

// ErrReported marks a failure whose message was already printed.
var ErrReported = errors.New("error already reported")

var (
	errNotLoggedIn    = fmt.Errorf("%w: run `rtodash login`", model.ErrNoIdentity)
	errSessionExpired = fmt.Errorf("%w: run `rtodash login`", model.ErrAuthExpired)
)

// NewRootCmd creates the root cobra command for the rtodash CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rtodash",
		Short: "rtodash: RTO reminder agent console",
		Long:  "rtodash signs agents in to the RTO reminder service and shows their wallet, notifications and chatbot.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultCLIConfigPath(), "Config file")
	root.PersistentFlags().StringVar(&flagAPI, "api", "", "Reminder API base URL (or RTODASH_API_BASE_URL env)")
	root.PersistentFlags().StringVar(&flagStorage, "storage", "", "Session storage file (default ~/.rtodash/storage.json)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newBalanceCmd(),
		newNotificationsCmd(),
		newChatCmd(),
	)

	return root
}

func setup(cmd *cobra.Command) error {
	cfg, err := config.LoadCLI(flagConfig)
	if err != nil {
		return err
	}
	if flagAPI != "" {
		cfg.APIBaseURL = flagAPI
	}
	if flagStorage != "" {
		cfg.StoragePath = flagStorage
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}

	logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	path := cfg.StoragePath
	if path == "" {
		if path, err = store.DefaultFilePath(); err != nil {
			return err
		}
	}
	logger.Debug("session storage", "path", path, "api", cfg.APIBaseURL)

	expired.Store(false)
	current = app.New("cli", store.NewFileKV(path), app.Options{
		APIBaseURL: cfg.APIBaseURL,
		Logger:     logger,
		Navigator: guard.NavigatorFunc(func(_ context.Context, target string) {
			logger.Debug("session rejected by API", "next", target)
			expired.Store(true)
		}),
	})
	return nil
}

// requireUser resolves the stored session, verifying it with the API when
// needed, and fails unless an agent is signed in.
func requireUser(ctx context.Context) error {
	snap := current.Auth.Init(ctx, "/")
	if snap.Authenticated() {
		return nil
	}
	if expired.Load() {
		return errSessionExpired
	}
	if !snap.Ready() {
		return fmt.Errorf("session check did not finish: %w", ctx.Err())
	}
	return errNotLoggedIn
}
