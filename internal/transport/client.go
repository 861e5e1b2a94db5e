package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/version"
)

// DefaultHandshakeTimeout bounds the WebSocket upgrade.
const DefaultHandshakeTimeout = 15 * time.Second

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("not connected")

// Endpoints are the two addresses derived from a device host.
type Endpoints struct {
	// HTTP is the panel base URL, always ending in a slash.
	HTTP string
	// WS is the WebSocket URL: HTTP with the scheme swapped and "ws"
	// appended.
	WS string
}

// ResolveEndpoints turns a host, host:port or http(s) URL into the panel
// endpoints. Bare hosts are assumed to speak plain http.
func ResolveEndpoints(host string) (Endpoints, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Endpoints{}, fmt.Errorf("host is required")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return Endpoints{}, fmt.Errorf("invalid host %q: %w", host, err)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("invalid host %q: missing hostname", host)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	base := u.String()
	ws := *u
	if u.Scheme == "https" {
		ws.Scheme = "wss"
	} else {
		ws.Scheme = "ws"
	}
	ws.Path += "ws"
	return Endpoints{HTTP: base, WS: ws.String()}, nil
}

// Client is a single WebSocket channel to a device. Connect replaces any
// open connection. Lost connections are reported through OnError and
// OnClose and are never re-dialed automatically.
type Client struct {
	mu        sync.Mutex
	ws        *websocket.Conn
	endpoints Endpoints
	gen       uint64

	handshakeTimeout time.Duration
	username         string
	password         string

	onMessage   func([]byte)
	onError     func(error)
	onConnected func(Endpoints)
	onClose     func()
}

// New creates an unconnected client.
func New(opts ...Option) *Client {
	c := &Client{handshakeTimeout: DefaultHandshakeTimeout}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect tears down the current connection, if any, and dials host.
func (c *Client) Connect(ctx context.Context, host string) (Endpoints, error) {
	ep, err := ResolveEndpoints(host)
	if err != nil {
		return Endpoints{}, err
	}

	c.mu.Lock()
	c.teardownLocked()
	c.mu.Unlock()

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.handshakeTimeout,
	}
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if c.username != "" || c.password != "" {
		header.Set("Authorization", "Basic "+basicAuth(c.username, c.password))
	}

	logging.Debug("Dialing device", zap.String("url", ep.WS))
	conn, resp, err := dialer.DialContext(ctx, ep.WS, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return Endpoints{}, fmt.Errorf("failed to connect to %s: %w (HTTP %d)", ep.WS, err, resp.StatusCode)
		}
		return Endpoints{}, fmt.Errorf("failed to connect to %s: %w", ep.WS, err)
	}

	c.mu.Lock()
	c.ws = conn
	c.endpoints = ep
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	logging.LogConnection(ep.WS, "connected")
	if c.onConnected != nil {
		c.onConnected(ep)
	}

	go c.readLoop(conn, gen, ep.WS)
	return ep, nil
}

func (c *Client) readLoop(conn *websocket.Conn, gen uint64, addr string) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			current := c.gen == gen && c.ws == conn
			if current {
				c.ws = nil
			}
			c.mu.Unlock()

			if !current {
				logging.Debug("Read loop of replaced connection ended", zap.String("remote_addr", addr))
				return
			}
			conn.Close()
			logging.LogConnection(addr, "disconnected")
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn("WebSocket read failed", zap.String("remote_addr", addr), zap.Error(err))
				if c.onError != nil {
					c.onError(err)
				}
			}
			if c.onClose != nil {
				c.onClose()
			}
			return
		}

		logging.LogWebSocketMessage(addr, "inbound", msg)
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// Send writes one text frame.
func (c *Client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws == nil {
		return ErrNotConnected
	}
	logging.LogWebSocketMessage(c.endpoints.WS, "outbound", msg)
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// Endpoints returns the endpoints of the last successful Connect.
func (c *Client) Endpoints() Endpoints {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints
}

// Close closes the open connection. It is safe to call when not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardownLocked()
}

func (c *Client) teardownLocked() error {
	if c.ws == nil {
		return nil
	}
	ws := c.ws
	c.ws = nil
	c.gen++

	deadline := time.Now().Add(time.Second)
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	logging.LogConnection(c.endpoints.WS, "closed")
	return ws.Close()
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
