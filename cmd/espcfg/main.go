// Espcfg is a control panel for ESPurna-style devices.
//
// It speaks the device's WebSocket panel protocol: the full settings
// state is pushed on connect, edits are tracked locally and sent in one
// save, and live controls such as relays are sent as they change.
//
// Usage:
//
//	espcfg [command] [flags]
//
// Running without arguments opens the interactive panel.
// See 'espcfg --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/espcfg/internal/config"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// Global flags
var (
	flagHost     string
	flagUsername string
	flagPassword string
	flagLogLevel string
	flagYes      bool
)

// settings are the environment settings with flags applied
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "espcfg",
	Short: "ESPurna Device Control Panel",
	Long: `A terminal control panel for ESPurna-style devices.

Connects to the device web panel over WebSocket, shows every setting and
status value, and saves edits the way the device's own panel does.

Settings can also come from the environment: ESPCFG_HOST, ESPCFG_USERNAME,
ESPCFG_PASSWORD, ESPCFG_LOG_LEVEL and ESPCFG_SETTLE.

If no command is specified, the interactive panel opens.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runPanel,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&flagHost, "host", "H", "", "Device host, IP or remembered name (skips discovery)")
	rootCmd.PersistentFlags().StringVarP(&flagUsername, "username", "u", "", "Panel user (default \"admin\")")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "p", "", "Panel password (prompted when missing)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); logging is off when unset")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Answer yes to every question")

	rootCmd.AddCommand(versionCmd)
}

// setup merges environment settings with flags and starts logging.
func setup(cmd *cobra.Command, _ []string) error {
	s, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if flagHost != "" {
		s.Host = flagHost
	}
	if flagUsername != "" {
		s.Username = flagUsername
	}
	if flagPassword != "" {
		s.Password = flagPassword
	}
	if flagLogLevel != "" {
		s.LogLevel = flagLogLevel
	}
	settings = s

	if s.LogLevel != "" {
		if err := logging.Initialize(s.LogLevel); err != nil {
			return err
		}
	}
	logging.Debug("Starting " + cmd.CommandPath())
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("espcfg %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}
