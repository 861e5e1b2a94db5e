package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Action names understood by the device.
const (
	ActionReset     = "reset"
	ActionReconnect = "reconnect"
	ActionRestore   = "restore"
	ActionRelay     = "relay"
	ActionColor     = "color"
	ActionChannel   = "channel"
	ActionRfbLearn  = "rfblearn"
	ActionRfbForget = "rfbforget"
	ActionRfbSend   = "rfbsend"
)

// ConfigEntry is one name/value pair of a save command. Names may repeat
// for grouped fields.
type ConfigEntry struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// SaveCommand carries the full form contents.
type SaveCommand struct {
	Config []ConfigEntry `json:"config"`
}

// ActionCommand asks the device to perform a named action.
type ActionCommand struct {
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

// RelayData toggles one relay.
type RelayData struct {
	ID     int `json:"id"`
	Status int `json:"status"`
}

// ColorData carries exactly one of its fields.
type ColorData struct {
	RGB        string `json:"rgb,omitempty"`
	HSV        string `json:"hsv,omitempty"`
	Brightness *int   `json:"brightness,omitempty"`
}

// ChannelData sets one light channel.
type ChannelData struct {
	ID    int `json:"id"`
	Value int `json:"value"`
}

// RfbData addresses one RF bridge code slot. Code is only sent by rfbsend.
type RfbData struct {
	ID     int    `json:"id"`
	Status int    `json:"status"`
	Code   string `json:"data,omitempty"`
}

// BuildSave encodes a save command. A nil slice is sent as an empty list.
func BuildSave(entries []ConfigEntry) ([]byte, error) {
	if entries == nil {
		entries = []ConfigEntry{}
	}
	return marshal(SaveCommand{Config: entries})
}

// BuildAction encodes an action command. A nil data omits the data key.
func BuildAction(action string, data any) ([]byte, error) {
	if action == "" {
		return nil, fmt.Errorf("action name is required")
	}
	return marshal(ActionCommand{Action: action, Data: data})
}

// BuildRelay encodes a relay toggle.
func BuildRelay(id int, on bool) ([]byte, error) {
	status := 0
	if on {
		status = 1
	}
	return BuildAction(ActionRelay, RelayData{ID: id, Status: status})
}

// BuildColorRGB encodes a css color such as "#ff8800".
func BuildColorRGB(css string) ([]byte, error) {
	return BuildAction(ActionColor, ColorData{RGB: css})
}

// BuildColorHSV encodes a packed "h,s,v" color.
func BuildColorHSV(packed string) ([]byte, error) {
	return BuildAction(ActionColor, ColorData{HSV: packed})
}

// BuildBrightness encodes a brightness change.
func BuildBrightness(value int) ([]byte, error) {
	return BuildAction(ActionColor, ColorData{Brightness: &value})
}

// BuildChannel encodes a channel value change.
func BuildChannel(id, value int) ([]byte, error) {
	return BuildAction(ActionChannel, ChannelData{ID: id, Value: value})
}

// BuildRfb encodes an rfblearn or rfbforget request.
func BuildRfb(action string, id, status int) ([]byte, error) {
	return BuildAction(action, RfbData{ID: id, Status: status})
}

// BuildRfbSend encodes an rfbsend request carrying the stored code.
func BuildRfbSend(id, status int, code string) ([]byte, error) {
	return BuildAction(ActionRfbSend, RfbData{ID: id, Status: status, Code: code})
}

// BuildRestore encodes a restore request with the backup object.
func BuildRestore(backup map[string]any) ([]byte, error) {
	if backup == nil {
		return nil, fmt.Errorf("%w: empty backup", ErrMalformed)
	}
	return BuildAction(ActionRestore, backup)
}

// Command is an outbound message as the device sees it.
type Command struct {
	Config []ConfigEntry   `json:"config,omitempty"`
	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// IsSave reports whether the command is a save.
func (c *Command) IsSave() bool {
	return c.Action == "" && c.Config != nil
}

// DecodeData unmarshals the action payload into v.
func (c *Command) DecodeData(v any) error {
	if len(c.Data) == 0 {
		return fmt.Errorf("%w: action %q has no data", ErrMalformed, c.Action)
	}
	dec := json.NewDecoder(bytes.NewReader(c.Data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: action %q: %v", ErrMalformed, c.Action, err)
	}
	return nil
}

// DecodeCommand parses an outbound frame.
func DecodeCommand(data []byte) (*Command, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var cmd Command
	if err := dec.Decode(&cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if cmd.Action == "" && cmd.Config == nil {
		return nil, fmt.Errorf("%w: neither config nor action", ErrMalformed)
	}
	return &cmd, nil
}

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	return b, nil
}
