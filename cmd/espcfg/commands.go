package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/espcfg/internal/panel"
	"github.com/muurk/espcfg/internal/ui"
)

// Command flags
var (
	scanTimeout  int
	outputFormat string
	showSecrets  bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(passwordCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

func newPrompter() *ui.Prompter {
	p := ui.NewPrompter(os.Stdin, os.Stdout)
	p.AssumeYes = flagYes
	return p
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for ESPurna devices on the network",
	Long: `Scan for devices using mDNS/DNS-SD discovery.

Boards announce an _http._tcp service with app_name, app_version and
target_board TXT records. Every device found is remembered, so it can be
addressed by name with --host afterwards.`,
	Example: `  # Scan with the configured timeout (5 seconds by default)
  espcfg scan

  # Longer scan for networks with many devices
  espcfg scan --timeout 15

  # JSON output for scripting
  espcfg scan --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default from preferences)")
	scanCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json, yaml)")
}

func runScan(cmd *cobra.Command, _ []string) error {
	reg := loadRegistry()
	scanner := newScanner(reg)
	if scanTimeout > 0 {
		scanner.Timeout = time.Duration(scanTimeout) * time.Second
	}

	if outputFormat == "detailed" {
		fmt.Printf("Scanning for devices (timeout: %s)...\n\n", scanner.Timeout)
	}
	devices, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	for _, d := range devices {
		reg.Remember(d.Name(), d.Address(), d.AppName, d.AppVersion)
	}
	if len(devices) > 0 {
		if err := reg.Save(); err != nil {
			return err
		}
	}

	if outputFormat != "detailed" {
		return printStructured(devices)
	}

	printer := ui.NewPrinter(os.Stdout)
	if len(devices) == 0 {
		printer.PrintWarning("No devices found", map[string]string{
			"Hint": "Make sure the board is powered and on this network, or use --host",
		})
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s %s\n", i+1, d.Name(), ui.Badge(strings.TrimSpace(d.AppName+" "+d.AppVersion), ui.PrimaryColor))
		fmt.Printf("   Address: %s\n", d.Address())
		if d.Board != "" {
			fmt.Printf("   Board:   %s\n", d.Board)
		}
		fmt.Println()
	}
	fmt.Println("Use 'espcfg show --host <name>' to view a device")
	return nil
}

// showCmd displays the device panel
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show device settings and status",
	Long: `Connect to the device and print every visible field of its panel:
status values, general settings, networks, switches and module sections.

Secrets (passwords and the API key) are masked unless --secrets is given.`,
	Example: `  # Show the device found on the network
  espcfg show

  # Show a remembered device
  espcfg show --host kitchen

  # key=value lines of the saved settings
  espcfg show --host 192.168.1.20 --format compact

  # JSON or YAML for scripting
  espcfg show --host kitchen --format json`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json, yaml)")
	showCmd.Flags().BoolVar(&showSecrets, "secrets", false, "Show passwords and the API key")
}

func runShow(cmd *cobra.Command, _ []string) error {
	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), host, newPrompter(), func(ctx context.Context, d *device) error {
		settle(ctx)
		v, err := d.session.View(ctx)
		if err != nil {
			return err
		}
		remember(reg, host, v)

		switch outputFormat {
		case "json", "yaml":
			return printStructured(v)
		case "compact":
			fmt.Print(ui.FormatView(v, ui.ViewOptions{Compact: true, ShowSecrets: showSecrets}))
		default:
			fmt.Print(ui.FormatView(v, ui.ViewOptions{Width: ui.GetTerminalWidth(), ShowSecrets: showSecrets || !reg.Preferences.MaskAPIKey}))
		}
		return nil
	})
}

// printStructured writes v as JSON or YAML according to --format
func printStructured(v any) error {
	if outputFormat == "yaml" {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// setCmd edits fields and saves them
var setCmd = &cobra.Command{
	Use:   "set <field>=<value>...",
	Short: "Change settings and save them",
	Long: `Edit one or more fields and save them in a single command, exactly as
the device panel does: only the fields of the form are sent, and the
device answers whether anything changed.

Grouped fields take their row with #, e.g. ssid#1 for the second
network. Checkboxes accept on/off, yes/no and true/false.

When a change needs a reset, a wifi reconnect or a reload to take
effect, you are asked whether to do it now.`,
	Example: `  # Rename the device
  espcfg set hostname=hall --host kitchen

  # Change the second network
  espcfg set ssid#1=office pass#1=s3cret --host kitchen

  # Enable the HTTP API and accept the follow-up reset
  espcfg set apiEnabled=on --host kitchen --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

// edit is one parsed field=value argument
type edit struct {
	key   panel.FieldKey
	value string
}

func parseEdits(args []string) ([]edit, error) {
	edits := make([]edit, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument %q: expected <field>=<value>", arg)
		}
		key, err := panel.ParseFieldKey(name)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit{key: key, value: value})
	}
	return edits, nil
}

func runSet(cmd *cobra.Command, args []string) error {
	edits, err := parseEdits(args)
	if err != nil {
		return err
	}

	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), host, newPrompter(), func(ctx context.Context, d *device) error {
		err := d.session.Call(ctx, func(p *panel.Panel) error {
			for _, e := range edits {
				if err := p.Edit(e.key, e.value); err != nil {
					return err
				}
			}
			if p.Mode() == panel.WebModePassword {
				return errors.New("the device still uses its factory password. Set a new one with 'espcfg password' first")
			}
			return p.Save()
		})
		if err != nil {
			return err
		}
		settle(ctx)
		return nil
	})
}

// relayCmd switches a relay
var relayCmd = &cobra.Command{
	Use:   "relay <id> <on|off|toggle>",
	Short: "Switch a relay",
	Long: `Switch relay <id> (counted from 0). The command is sent right away and
is not part of the saved settings.`,
	Example: `  espcfg relay 0 on --host kitchen
  espcfg relay 1 toggle --host kitchen`,
	Args: cobra.ExactArgs(2),
	RunE: runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 0 {
		return fmt.Errorf("invalid relay id %q", args[0])
	}
	state := strings.ToLower(args[1])
	if state != "on" && state != "off" && state != "toggle" {
		return fmt.Errorf("invalid relay state %q: use on, off or toggle", args[1])
	}

	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), host, newPrompter(), func(ctx context.Context, d *device) error {
		var on bool
		err := d.session.Call(ctx, func(p *panel.Panel) error {
			on = state == "on"
			if state == "toggle" {
				f := p.Registry().Lookup("relayStatus", id)
				if f == nil {
					return fmt.Errorf("%w: relay %d", panel.ErrUnknownField, id)
				}
				on = !f.Checked
			}
			return p.ToggleRelay(id, on)
		})
		if err != nil {
			return err
		}
		fmt.Printf("Relay %d switched %s\n", id, lo.Ternary(on, "on", "off"))
		return nil
	})
}

// resetCmd and reconnectCmd restart the board or its wifi
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reboot the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRestart(cmd, func(p *panel.Panel) error { return p.Reset(true) })
	},
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Make the device reconnect to wifi",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRestart(cmd, func(p *panel.Panel) error { return p.Reconnect(true) })
	},
}

func runRestart(cmd *cobra.Command, fn func(p *panel.Panel) error) error {
	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}
	return withDevice(cmd.Context(), host, newPrompter(), func(ctx context.Context, d *device) error {
		if err := d.session.Call(ctx, fn); err != nil {
			if errors.Is(err, panel.ErrCancelled) {
				fmt.Println("Cancelled.")
				return nil
			}
			return err
		}
		fmt.Println("Command sent.")
		return nil
	})
}

// passwordCmd sets the admin password
var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Set the admin password",
	Long: `Set a new admin password. It must be at least five characters of
letters, digits and common symbols, with one lowercase letter and one
uppercase letter or digit.

A device that still uses its factory password only accepts this command.`,
	Args: cobra.NoArgs,
	RunE: runPassword,
}

var newPassword string

func init() {
	passwordCmd.Flags().StringVar(&newPassword, "new", "", "New password (prompted when missing)")
}

func runPassword(cmd *cobra.Command, _ []string) error {
	pass := newPassword
	if pass == "" {
		var err error
		if pass, err = readNewPassword(); err != nil {
			return err
		}
	}
	if !panel.CheckPassword(pass) {
		return errors.New("password does not meet the policy: at least 5 characters, one lowercase letter and one uppercase letter or digit")
	}

	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), host, newPrompter(), func(ctx context.Context, d *device) error {
		err := d.session.Call(ctx, func(p *panel.Panel) error {
			for _, name := range []string{"adminPass1", "adminPass2"} {
				if err := p.Edit(panel.FieldKey{Name: name, Index: -1}, pass); err != nil {
					return err
				}
			}
			if p.Mode() == panel.WebModePassword {
				return p.SavePassword()
			}
			return p.Save()
		})
		if err != nil {
			return err
		}
		settle(ctx)
		return nil
	})
}

// apiKeyCmd generates a new HTTP API key and saves it
var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Generate and save a new HTTP API key",
	Args:  cobra.NoArgs,
	RunE:  runAPIKey,
}

func runAPIKey(cmd *cobra.Command, _ []string) error {
	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}

	return withDevice(cmd.Context(), host, newPrompter(), func(ctx context.Context, d *device) error {
		var key string
		err := d.session.Call(ctx, func(p *panel.Panel) error {
			var err error
			if key, err = p.RegenerateAPIKey(); err != nil {
				return err
			}
			return p.Save()
		})
		if err != nil {
			return err
		}
		settle(ctx)
		fmt.Println(key)
		return nil
	})
}
