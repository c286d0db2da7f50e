// Package cli is the command-line front end: each command drives one of the
// capture, detection, registration or catalog flows against the service.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/viewlulu/internal/config"
	"github.com/example/viewlulu/internal/logging"
)

type rootOptions struct {
	output           string
	cameraPermission string
	logLevel         string

	app *app
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "viewlulu",
		Short: "Identify and catalog cosmetics from photos",
		Long: `viewlulu captures photos of a cosmetic product and sends them to the
recognition service, either to identify the product or to register it in
your pouch.

Photos are read from files in place of a device camera. Configuration comes
from the environment or a .env file in the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// config.Load reads .env when present.
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			logger, err := logging.NewLogger(cfg.LogLevel, !cfg.Production())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.ErrOrStderr(), opts.cameraPermission)
			if err != nil {
				_ = logger.Sync()
				return err
			}
			opts.app = a
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "Output format (text, json or yaml)")
	cmd.PersistentFlags().StringVar(&opts.cameraPermission, "camera-permission", "not-determined", "Camera permission reported by the device (not-determined, granted, denied or restricted)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override LOG_LEVEL")

	cmd.AddCommand(
		newLoginCmd(opts),
		newSignupCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newDetectCmd(opts),
		newRegisterCmd(opts),
		newPouchCmd(opts),
		newRecentCmd(opts),
	)

	return cmd
}

var errNotInitialized = errors.New("command dependencies not initialized")

type runFunc func(cmd *cobra.Command, a *app, args []string) error

// run adapts fn to cobra and releases the app once fn returns, even on error.
func (o *rootOptions) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if o.app == nil {
			return errNotInitialized
		}
		a := o.app
		defer func() {
			a.Close()
			_ = a.logger.Sync()
		}()

		switch o.output {
		case outputText, outputJSON, outputYAML:
		default:
			return fmt.Errorf("unknown output format %q (want text, json or yaml)", o.output)
		}
		return fn(cmd, a, args)
	}
}
