package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/muurk/espcfg/internal/config"
	"github.com/muurk/espcfg/internal/deviceconfig"
	"github.com/muurk/espcfg/internal/discovery"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/panel"
	"github.com/muurk/espcfg/internal/session"
	"github.com/muurk/espcfg/internal/transport"
)

const readyTimeout = 15 * time.Second

// loadRegistry returns the remembered devices, or an empty registry when
// the file cannot be read.
func loadRegistry() *config.Registry {
	reg, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Ignoring device registry", zap.Error(err))
		return config.NewRegistry()
	}
	return reg
}

// newScanner builds an mDNS scanner from the registry preferences.
func newScanner(reg *config.Registry) *discovery.Scanner {
	scanner := discovery.NewScanner()
	scanner.Timeout = reg.Preferences.DiscoverTimeoutDuration()
	scanner.AppName = reg.Preferences.AppFilter
	return scanner
}

// resolveHost picks the device to talk to: the --host flag or
// ESPCFG_HOST, the default device of the registry, or the single device
// found on the network.
func resolveHost(ctx context.Context, reg *config.Registry) (string, error) {
	if host := reg.Resolve(settings.Host); host != "" {
		return host, nil
	}

	fmt.Println("No device specified, attempting auto-discovery...")
	devices, err := newScanner(reg).Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return "", errors.New("no devices found. Use --host to specify the device")
	case 1:
		d := devices[0]
		fmt.Printf("Found device: %s\n\n", d)
		return d.Address(), nil
	}

	fmt.Printf("Found %d devices:\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d)
	}
	return "", errors.New("multiple devices found. Use --host to specify which one")
}

// password returns the panel password, asking on the terminal when none
// was configured.
func password() (string, error) {
	if settings.Password != "" {
		return settings.Password, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password given. Use --password or ESPCFG_PASSWORD")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", settings.Username)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	settings.Password = strings.TrimSpace(string(raw))
	return settings.Password, nil
}

// httpClient returns the HTTP client of host with the panel credentials.
func httpClient(host string) (*deviceconfig.Client, error) {
	pass, err := password()
	if err != nil {
		return nil, err
	}
	client, err := deviceconfig.NewClient(host)
	if err != nil {
		return nil, err
	}
	client.SetAuth(settings.Username, pass)
	return client, nil
}

// device is a running session with its collaborators.
type device struct {
	host    string
	session *session.Session
	http    *deviceconfig.Client
}

// sessionOptions configure newDevice
type sessionOptions struct {
	prompter panel.Prompter
	onChange func(panel.View)
}

// newDevice wires a session to the WebSocket transport and, when host is
// known, the HTTP client of host. Nothing is connected yet.
func newDevice(host string, opts sessionOptions) (*device, error) {
	pass, err := password()
	if err != nil {
		return nil, err
	}

	var s *session.Session
	ws := transport.New(
		transport.WithBasicAuth(settings.Username, pass),
		transport.OnMessage(func(msg []byte) { s.Deliver(msg) }),
		transport.OnClose(func() { s.Disconnected() }),
		transport.OnError(func(err error) { logging.Warn("Transport error", zap.Error(err)) }),
	)
	sessOpts := session.Options{
		Layout:    panel.DefaultLayout(),
		Transport: ws,
		Prompter:  opts.prompter,
		OnChange:  opts.onChange,
	}

	d := &device{host: host}
	if host != "" {
		if d.http, err = httpClient(host); err != nil {
			return nil, err
		}
		sessOpts.Uploader = d.http
	}
	s = session.New(sessOpts)
	d.session = s
	return d, nil
}

// withDevice connects to host, waits for the first state push and runs
// fn. The session loop runs alongside fn and stops when fn returns.
func withDevice(ctx context.Context, host string, prompter panel.Prompter, fn func(ctx context.Context, d *device) error) error {
	d, err := newDevice(host, sessionOptions{prompter: prompter})
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return d.session.Run(gctx) })
	g.Go(func() error {
		defer stop()
		defer func() { _ = d.session.Close() }()

		readyCtx, cancel := context.WithTimeout(gctx, readyTimeout)
		defer cancel()
		if err := d.session.Connect(readyCtx, host); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", host, err)
		}
		if err := d.session.WaitReady(readyCtx); err != nil {
			return fmt.Errorf("%s did not send its state: %w", host, err)
		}
		return fn(gctx, d)
	})
	return g.Wait()
}

// settle waits for the device to answer the last command. Follow-up
// questions and notifications arrive meanwhile.
func settle(ctx context.Context) {
	select {
	case <-time.After(settings.Settle):
	case <-ctx.Done():
	}
}

// remember records a device that answered in the registry.
func remember(reg *config.Registry, host string, v panel.View) {
	name := host
	var appName, appVersion string
	for _, f := range v.Fields {
		if f.Name == "hostname" && f.Value != "" {
			name = f.Value
		}
	}
	if heading := strings.Fields(v.Title.Heading); len(heading) > 0 {
		appName = heading[0]
		if len(heading) > 1 {
			appVersion = heading[1]
		}
	}
	reg.Remember(name, host, appName, appVersion)
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save device registry", zap.Error(err))
	}
}
