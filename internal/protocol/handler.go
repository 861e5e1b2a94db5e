package protocol

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
)

// SaveFunc handles a save command.
type SaveFunc func(entries []ConfigEntry) error

// ActionFunc handles one action command.
type ActionFunc func(cmd *Command) error

// Dispatcher routes outbound commands to handlers, as the device does.
type Dispatcher struct {
	save    SaveFunc
	actions map[string]ActionFunc
}

// NewDispatcher creates a dispatcher with a save handler.
func NewDispatcher(save SaveFunc) *Dispatcher {
	return &Dispatcher{save: save, actions: make(map[string]ActionFunc)}
}

// Handle registers fn for an action name.
func (d *Dispatcher) Handle(action string, fn ActionFunc) {
	d.actions[action] = fn
}

// Dispatch decodes one frame and runs the matching handler.
func (d *Dispatcher) Dispatch(remoteAddr string, data []byte) error {
	logging.LogWebSocketMessage(remoteAddr, "received", data)

	cmd, err := DecodeCommand(data)
	if err != nil {
		logging.Warn("Dropping undecodable command",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return err
	}

	if cmd.IsSave() {
		logging.Info("Save command",
			zap.String("remote_addr", remoteAddr),
			zap.Int("entries", len(cmd.Config)),
		)
		if d.save == nil {
			return fmt.Errorf("no save handler")
		}
		return d.save(cmd.Config)
	}

	fn, ok := d.actions[cmd.Action]
	if !ok {
		logging.Warn("Unknown action",
			zap.String("remote_addr", remoteAddr),
			zap.String("action", cmd.Action),
		)
		return fmt.Errorf("unknown action %q", cmd.Action)
	}

	logging.Info("Action command",
		zap.String("remote_addr", remoteAddr),
		zap.String("action", cmd.Action),
	)
	return fn(cmd)
}
