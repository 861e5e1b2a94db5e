package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/espcfg/internal/server"
)

// Simulate flags
var (
	simHost          string
	simPort          int
	simHostname      string
	simPassword      string
	simRelays        int
	simMaxNetworks   int
	simModules       []string
	simForcePassword bool
	simRestartDelay  time.Duration
)

// simulateCmd runs the emulated device
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an emulated ESPurna device",
	Long: `Serve an emulated ESPurna board on this machine: the panel WebSocket,
the /config backup download and the /upgrade firmware upload.

Useful to try espcfg without hardware, and as the device for scripts.`,
	Example: `  # Emulated board on port 8080
  espcfg simulate --port 8080

  # Then, in another terminal
  espcfg show --host localhost:8080 --password fibonacci

  # A fresh board that still uses its factory password
  espcfg simulate --port 8080 --force-password --password fibonacci`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	defaults := server.DefaultProfile()
	simulateCmd.Flags().StringVar(&simHost, "listen", "127.0.0.1", "Address to listen on (empty = all interfaces)")
	simulateCmd.Flags().IntVar(&simPort, "port", 8080, "Port to listen on")
	simulateCmd.Flags().StringVar(&simHostname, "name", defaults.Hostname, "Device hostname")
	simulateCmd.Flags().StringVar(&simPassword, "admin-password", defaults.Password, "Admin password of the device")
	simulateCmd.Flags().IntVar(&simRelays, "relays", defaults.Relays, "Number of relays")
	simulateCmd.Flags().IntVar(&simMaxNetworks, "max-networks", defaults.MaxNetworks, "Maximum number of wifi networks")
	simulateCmd.Flags().StringSliceVar(&simModules, "modules", defaults.Modules, "Visible modules")
	simulateCmd.Flags().BoolVar(&simForcePassword, "force-password", false, "Serve the password-only surface until a new password is set")
	simulateCmd.Flags().DurationVar(&simRestartDelay, "restart-delay", 3*time.Second, "How long a reset keeps the board away")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	profile := server.DefaultProfile()
	profile.Hostname = simHostname
	profile.Password = simPassword
	profile.Relays = simRelays
	profile.MaxNetworks = simMaxNetworks
	profile.Modules = simModules
	profile.ForcePassword = simForcePassword

	srv, err := server.New(&server.Config{
		Host:         simHost,
		Port:         simPort,
		Username:     settings.Username,
		Profile:      profile,
		RestartDelay: simRestartDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to create emulated device: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	fmt.Printf("Emulated %s %s listening on %s\n", profile.AppName, profile.AppVersion, srv.Addr())
	fmt.Printf("  User:     %s\n", settings.Username)
	fmt.Printf("  Password: %s\n", profile.Password)
	fmt.Printf("  Modules:  %s\n", strings.Join(profile.Modules, ", "))
	fmt.Println("Press Ctrl+C to stop.")

	return srv.Start(cmd.Context())
}
