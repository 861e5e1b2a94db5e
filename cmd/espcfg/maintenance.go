package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/espcfg/internal/config"
	"github.com/muurk/espcfg/internal/deviceconfig"
	"github.com/muurk/espcfg/internal/panel"
	"github.com/muurk/espcfg/internal/ui"
)

// Maintenance flags
var (
	backupOutput    string
	backupSnapshot  bool
	restoreNoVerify bool
	restoreRollback bool
	verifyRetries   int
)

func init() {
	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Backup file (default <hostname>-<date>.json)")
	backupCmd.Flags().BoolVar(&backupSnapshot, "snapshot", false, "Store the backup with the snapshots in the config directory")

	restoreCmd.Flags().BoolVar(&restoreNoVerify, "no-verify", false, "Skip verification after the restore")
	restoreCmd.Flags().BoolVar(&restoreRollback, "rollback", false, "Restore the newest snapshot instead of a file")
	restoreCmd.Flags().IntVar(&verifyRetries, "retries", 3, "Number of verification retries")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(upgradeCmd)
}

// snapshotStore opens the snapshot directory under the config directory
func snapshotStore() (*deviceconfig.SnapshotStore, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return deviceconfig.NewSnapshotStore(filepath.Join(dir, "snapshots")), nil
}

// backupCmd downloads the device settings
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Download the device settings to a file",
	Example: `  espcfg backup --host kitchen
  espcfg backup --host kitchen -o kitchen.json
  espcfg backup --host kitchen --snapshot`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, _ []string) error {
	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}
	client, err := httpClient(host)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	raw, err := client.DownloadBackup(cmd.Context())
	if err != nil {
		printer.PrintError("Backup failed", err, nil)
		return shown(err)
	}
	_, info, err := deviceconfig.ParseBackup(raw)
	if err != nil {
		return err
	}

	if backupSnapshot {
		store, err := snapshotStore()
		if err != nil {
			return err
		}
		saved, err := store.Save(info.Hostname, raw)
		if err != nil {
			return err
		}
		info.Path = saved.Path
	} else {
		path := backupOutput
		if path == "" {
			path = deviceconfig.BackupFilename(info.Hostname, time.Now())
		}
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			return fmt.Errorf("failed to write backup: %w", err)
		}
		info.Path = path
	}

	printer.PrintSuccess("Backup saved", map[string]string{
		"Device":   info.Summary(),
		"File":     info.Path,
		"Settings": strconv.Itoa(len(info.Keys)),
	})
	return nil
}

// restoreCmd sends a backup to the device
var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Restore device settings from a backup",
	Long: `Restore the settings of a backup file. The current settings are
stored as a snapshot first, so 'espcfg restore --rollback' can undo it.

After the device accepted the backup, its settings are downloaded again
and compared with the file.`,
	Example: `  espcfg restore kitchen-20261019-101500.json --host kitchen
  espcfg restore --rollback --host kitchen`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	if restoreRollback == (len(args) == 1) {
		return errors.New("give either a backup file or --rollback")
	}

	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}
	client, err := httpClient(host)
	if err != nil {
		return err
	}
	store, err := snapshotStore()
	if err != nil {
		return err
	}

	raw, err := readRestoreSource(store, host, args)
	if err != nil {
		return err
	}
	expected, info, err := deviceconfig.ParseBackup(raw)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Restore", "restore", map[string]string{"Device": host, "Backup": info.Summary()})
	printer.Println(info.FormatDetailed(printer.Width()))

	if !restoreRollback {
		snap, err := deviceconfig.SnapshotBeforeRestore(cmd.Context(), client, store, host)
		if err != nil {
			printer.PrintError("Could not take a snapshot before restoring", err, nil)
			return shown(err)
		}
		printer.Println("Current settings saved to " + snap.Path)
	}

	return withDevice(cmd.Context(), host, newPrompter(), func(ctx context.Context, d *device) error {
		if err := d.session.Call(ctx, func(p *panel.Panel) error { return p.Restore(raw) }); err != nil {
			if errors.Is(err, panel.ErrCancelled) {
				printer.Println("Cancelled.")
				return nil
			}
			return err
		}
		settle(ctx)

		if restoreNoVerify {
			printer.PrintSuccess("Backup sent (not verified)", nil)
			return nil
		}
		opts := deviceconfig.DefaultVerificationOptions()
		opts.MaxRetries = verifyRetries
		result := client.VerifyRestore(ctx, expected, opts)
		printer.Println(deviceconfig.FormatVerification(result))
		if !result.Success {
			return fmt.Errorf("restore %s", result)
		}
		printer.PrintSuccess("Settings restored", map[string]string{"Verification": result.String()})
		return nil
	})
}

func readRestoreSource(store *deviceconfig.SnapshotStore, host string, args []string) ([]byte, error) {
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read backup: %w", err)
		}
		return raw, nil
	}
	latest, err := store.Latest(host)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("no snapshot stored for %s", host)
	}
	return store.Load(latest)
}

// snapshotsCmd lists stored snapshots
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the settings snapshots taken before restores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg := loadRegistry()
		host := reg.Resolve(settings.Host)
		if host == "" {
			return errors.New("no device specified. Use --host")
		}
		store, err := snapshotStore()
		if err != nil {
			return err
		}
		list, err := store.List(host)
		if err != nil {
			return err
		}
		fmt.Print(deviceconfig.FormatSnapshotList(list))
		return nil
	},
}

// upgradeCmd flashes a firmware image
var upgradeCmd = &cobra.Command{
	Use:   "upgrade <image>",
	Short: "Upload a firmware image",
	Long: `Upload a firmware image (.bin or .bin.gz) to the device. The image is
checked first: it must start with the ESP image magic byte or be gzip
compressed, and it must fit the free sketch space the device reports.

The board reboots after a successful upload.`,
	Example: `  espcfg upgrade espurna-1.15.0-itead-sonoff-basic.bin --host kitchen`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUpgrade,
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	path := args[0]
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	header := make([]byte, 2)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read image: %w", err)
	}
	header = header[:n]
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reg := loadRegistry()
	host, err := resolveHost(cmd.Context(), reg)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	prompter := newPrompter()
	progress := ui.NewProgress("Upgrading "+host, "Validate image", "Upload image", "Wait for reboot")
	name := filepath.Base(path)

	return withDevice(cmd.Context(), host, prompter, func(ctx context.Context, d *device) error {
		progress.StartStep(1, "")
		v, err := d.session.View(ctx)
		if err != nil {
			return err
		}

		errs := deviceconfig.ValidateFirmwareImage(name, stat.Size(), header, freeSpace(v))
		warnings, critical := deviceconfig.SeparateWarningsAndErrors(errs)
		for _, w := range warnings {
			printer.PrintWarning(w.Error(), nil)
		}
		if len(critical) > 0 {
			progress.FailStep(1, "invalid image")
			printer.Println(progress.Render())
			return errors.New(deviceconfig.FormatValidationErrors(critical))
		}
		progress.CompleteStep(1, fmt.Sprintf("%d KiB", stat.Size()/1024))

		if !prompter.FirmwareUpgradeConfirmation(host, name) {
			return panel.ErrCancelled
		}

		progress.StartStep(2, "")
		err = d.session.Upgrade(ctx, name, file, stat.Size(), progress.UploadReporter(os.Stdout))
		printer.Newline()
		if err != nil {
			progress.FailStep(2, deviceconfig.GetShortErrorMessage(err))
			printer.Println(progress.Render())
			printer.PrintError("Upgrade failed", err, nil)
			return shown(err)
		}
		progress.CompleteStep(2, "")

		progress.StartStep(3, "")
		settle(ctx)
		progress.CompleteStep(3, "")
		printer.Println(progress.Render())
		printer.PrintSuccess("Firmware uploaded", map[string]string{"Device": host, "Image": name})
		return nil
	})
}

// freeSpace reads the free sketch space the device reported, 0 when unknown.
func freeSpace(v panel.View) int64 {
	for _, f := range v.Fields {
		if f.Name != "free_size" {
			continue
		}
		fields := strings.Fields(f.Value)
		if len(fields) == 0 {
			return 0
		}
		n, _ := strconv.ParseInt(fields[0], 10, 64)
		return n
	}
	return 0
}

// readNewPassword asks for the new admin password twice
func readNewPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no new password given. Use --new")
	}
	read := func(prompt string) (string, error) {
		fmt.Fprint(os.Stderr, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(raw), err
	}
	first, err := read("New password: ")
	if err != nil {
		return "", err
	}
	second, err := read("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}
