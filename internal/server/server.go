package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/protocol"
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	Username string // Panel user (default: "admin")
	Profile  Profile

	// RestartDelay is how long a reset keeps the board away before it
	// accepts connections again
	RestartDelay time.Duration
}

// Server emulates an ESPurna board: the panel WebSocket, the backup
// download and the firmware upload.
type Server struct {
	config   *Config
	device   *Device
	listener net.Listener
	http     *http.Server
	wg       sync.WaitGroup

	mu          sync.Mutex
	clients     map[*wsClient]struct{}
	rebootUntil time.Time
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.Profile.AppName == "" {
		return nil, fmt.Errorf("profile has no app name")
	}
	if config.Profile.Relays < 0 || config.Profile.MaxNetworks < 0 {
		return nil, fmt.Errorf("profile counts must not be negative")
	}
	if config.Username == "" {
		config.Username = "admin"
	}

	s := &Server{
		config:  config,
		device:  NewDevice(config.Profile),
		clients: make(map[*wsClient]struct{}),
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Device exposes the emulated board state.
func (s *Server) Device() *Device { return s.device }

// Listen opens the listening socket. Start calls it when needed.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the listening address, empty before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logging.Info("Starting emulated device",
		zap.String("addr", s.Addr()),
		zap.String("app", s.config.Profile.AppName),
		zap.String("hostname", s.config.Profile.Hostname),
		zap.Int("relays", s.config.Profile.Relays),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	s.disconnectAll("shutdown")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of connected panels
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) addClient(c *wsClient) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) snapshotClients() []*wsClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *Server) broadcast(u protocol.Update) {
	for _, c := range s.snapshotClients() {
		c.push(u)
	}
}

// disconnectAll closes every panel connection.
func (s *Server) disconnectAll(reason string) {
	clients := s.snapshotClients()
	for _, c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		logging.Info("Closing panel connections",
			zap.String("reason", reason),
			zap.Int("clients", len(clients)),
		)
	}
}

// restart reboots the board and refuses connections for RestartDelay.
func (s *Server) restart(reason string) {
	s.device.Reboot()
	s.mu.Lock()
	s.rebootUntil = time.Now().Add(s.config.RestartDelay)
	s.mu.Unlock()
	s.disconnectAll(reason)
}

func (s *Server) rebooting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.rebootUntil)
}
