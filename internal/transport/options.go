package transport

import "time"

// Option configures a Client.
type Option func(*Client)

// OnMessage registers the handler for inbound text frames. It runs on the
// read goroutine, one frame at a time.
func OnMessage(f func([]byte)) Option {
	return func(c *Client) {
		c.onMessage = f
	}
}

// OnError registers the handler for unexpected connection loss.
func OnError(f func(error)) Option {
	return func(c *Client) {
		c.onError = f
	}
}

// OnConnected registers the handler called after each successful dial.
func OnConnected(f func(Endpoints)) Option {
	return func(c *Client) {
		c.onConnected = f
	}
}

// OnClose registers the handler called when the device drops the
// connection. It is not called for connections the client closes itself.
func OnClose(f func()) Option {
	return func(c *Client) {
		c.onClose = f
	}
}

func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}
