package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound frames queued per client before it is dropped
	sendQueue = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsClient is one panel connected to the emulated device.
type wsClient struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	closeOnce  sync.Once
	done       chan struct{}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue queues a frame without blocking. A client that does not keep up
// is disconnected.
func (c *wsClient) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		logging.Warn("Client send queue full, disconnecting", zap.String("remote_addr", c.remoteAddr))
		c.close()
	}
}

func (c *wsClient) push(u protocol.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		logging.Error("Failed to encode update", zap.Error(err))
		return
	}
	c.enqueue(data)
}

// handleWebSocket upgrades the request and serves the connection until
// either side closes it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &wsClient{
		conn:       conn,
		remoteAddr: r.RemoteAddr,
		send:       make(chan []byte, sendQueue),
		done:       make(chan struct{}),
	}
	s.addClient(c)
	logging.LogConnection(c.remoteAddr, "websocket_upgraded")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writePump(c)
	}()

	c.push(s.device.State())
	s.readPump(c)
}

func (s *Server) readPump(c *wsClient) {
	defer func() {
		c.close()
		s.removeClient(c)
		logging.LogConnection(c.remoteAddr, "websocket_closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	dispatcher := s.dispatcher(c)
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed or error reading frame",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage {
			logging.Warn("Ignoring non-text frame", zap.String("remote_addr", c.remoteAddr))
			continue
		}
		if err := dispatcher.Dispatch(c.remoteAddr, data); err != nil {
			logging.Warn("Command failed",
				zap.String("remote_addr", c.remoteAddr),
				zap.Error(err),
			)
			if errors.Is(err, protocol.ErrMalformed) {
				c.push(protocol.Update{"message": protocol.MsgParseError})
			}
		}
	}
}

func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
			logging.LogWebSocketMessage(c.remoteAddr, "sent", msg)
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			// flush what is queued before saying goodbye
		drain:
			for {
				select {
				case msg := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.TextMessage, msg)
				default:
					break drain
				}
			}
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "restarting"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// dispatcher binds the device commands to one client. Replies go to that
// client, state changes to every client.
func (s *Server) dispatcher(c *wsClient) *protocol.Dispatcher {
	d := protocol.NewDispatcher(func(entries []protocol.ConfigEntry) error {
		c.push(protocol.Update{"message": s.device.Save(entries)})
		return nil
	})

	d.Handle(protocol.ActionReset, func(*protocol.Command) error {
		s.restart("reset")
		return nil
	})
	d.Handle(protocol.ActionReconnect, func(*protocol.Command) error {
		s.disconnectAll("reconnect")
		return nil
	})
	d.Handle(protocol.ActionRestore, func(cmd *protocol.Command) error {
		var backup map[string]any
		if err := cmd.DecodeData(&backup); err != nil {
			return err
		}
		if !s.device.Restore(backup) {
			c.push(protocol.Update{"message": protocol.MsgInvalidBackup})
			return nil
		}
		c.push(protocol.Update{"action": "reload"})
		return nil
	})
	d.Handle(protocol.ActionRelay, func(cmd *protocol.Command) error {
		var data protocol.RelayData
		if err := cmd.DecodeData(&data); err != nil {
			return err
		}
		if err := s.device.SetRelay(data.ID, data.Status == 1); err != nil {
			return err
		}
		s.broadcast(protocol.Update{"relayStatus": boolsToAny(s.device.Relays())})
		return nil
	})
	d.Handle(protocol.ActionColor, func(cmd *protocol.Command) error {
		var data protocol.ColorData
		if err := cmd.DecodeData(&data); err != nil {
			return err
		}
		s.broadcast(s.device.SetColor(data))
		return nil
	})
	d.Handle(protocol.ActionChannel, func(cmd *protocol.Command) error {
		var data protocol.ChannelData
		if err := cmd.DecodeData(&data); err != nil {
			return err
		}
		u, err := s.device.SetChannel(data.ID, data.Value)
		if err != nil {
			return err
		}
		s.broadcast(u)
		return nil
	})
	for _, action := range []string{protocol.ActionRfbLearn, protocol.ActionRfbForget, protocol.ActionRfbSend} {
		d.Handle(action, func(cmd *protocol.Command) error {
			var data protocol.RfbData
			if err := cmd.DecodeData(&data); err != nil {
				return err
			}
			s.broadcast(s.device.Rfb(action, data))
			return nil
		})
	}
	return d
}

func boolsToAny(in []bool) []any {
	out := make([]any, len(in))
	for i, b := range in {
		out[i] = b
	}
	return out
}
