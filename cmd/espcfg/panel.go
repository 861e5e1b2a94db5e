package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/tui"
)

// panelCmd opens the interactive panel; it is also the root default
var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive control panel",
	Long: `Open the interactive control panel.

Without --host, devices on the network are discovered first and you
pick one from the list or type its address.`,
	Example: `  espcfg
  espcfg panel --host kitchen`,
	Args: cobra.NoArgs,
	RunE: runPanel,
}

func init() {
	panelCmd.Flags().BoolVar(&showSecrets, "secrets", false, "Show passwords and the API key")
	rootCmd.AddCommand(panelCmd)
}

func runPanel(cmd *cobra.Command, _ []string) error {
	reg := loadRegistry()
	host := reg.Resolve(settings.Host)
	if _, err := password(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bridge := tui.NewBridge(ctx)
	d, err := newDevice(host, sessionOptions{prompter: bridge, onChange: bridge.Publish})
	if err != nil {
		return err
	}

	app := tui.NewApp(tui.Options{
		Host:        host,
		Scanner:     newScanner(reg),
		Session:     d.session,
		ShowSecrets: showSecrets || !reg.Preferences.MaskAPIKey,
		OnConnected: func(connected string) {
			logging.Info("Panel connected", zap.String("host", connected))
		},
	})
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(program)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.session.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		defer func() { _ = d.session.Close() }()

		final, err := program.Run()
		if err != nil {
			return fmt.Errorf("panel error: %w", err)
		}
		if m, ok := final.(tui.AppModel); ok && m.Screen == tui.ScreenPanel && d.session.Host() != "" {
			remember(reg, d.session.Host(), m.CurrentView())
		}
		return nil
	})
	return g.Wait()
}
