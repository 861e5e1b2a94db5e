package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/protocol"
)

// Profile describes the emulated board.
type Profile struct {
	AppName     string
	AppVersion  string
	Hostname    string
	Password    string
	Relays      int
	MaxNetworks int
	Modules     []string
	FreeSpace   int64

	// ForcePassword serves the password-only surface while the admin
	// password is still the factory default
	ForcePassword bool

	// Settings seeds additional stored settings
	Settings map[string]string
}

// DefaultProfile returns a two-relay board with MQTT, NTP and Domoticz.
func DefaultProfile() Profile {
	return Profile{
		AppName:     "ESPURNA",
		AppVersion:  "1.13.5",
		Hostname:    "espurna-emulated",
		Password:    "fibonacci",
		Relays:      2,
		MaxNetworks: 5,
		Modules:     []string{"mqtt", "ntp", "dcz", "telnet"},
		FreeSpace:   2 << 20,
		Settings: map[string]string{
			"ssid0":      "home",
			"pass0":      "secret-wifi",
			"mqttServer": "broker.local",
			"mqttPort":   "1883",
			"ntpServer1": "pool.ntp.org",
			"relayMode":  "0",
			"apiKey":     "",
		},
	}
}

const factoryPassword = "fibonacci"

// settings stored once per group instance, with the instance index
// appended to the name
var indexedKeys = []string{"ssid", "pass", "ip", "gw", "mask", "dns", "dczRelayIdx", "mqttGroup", "mqttGroupInv"}

var networkKeys = []string{"ssid", "pass", "ip", "gw", "mask", "dns"}

var errUnknownRelay = errors.New("unknown relay")

// Device is the emulated firmware state. All methods are safe for
// concurrent use.
type Device struct {
	mu       sync.Mutex
	profile  Profile
	settings map[string]string
	relays   []bool
	channels []int
	rgb      string
	bright   int
	rfb      map[[2]int]string
	started  time.Time
	reboots  int
	upgrades int
	now      func() time.Time
}

// NewDevice creates a device from profile.
func NewDevice(profile Profile) *Device {
	d := &Device{
		profile:  profile,
		settings: make(map[string]string),
		relays:   make([]bool, profile.Relays),
		channels: []int{0, 0, 0},
		rgb:      "#000000",
		bright:   255,
		rfb:      make(map[[2]int]string),
		now:      time.Now,
	}
	for k, v := range profile.Settings {
		d.settings[k] = v
	}
	d.settings["hostname"] = profile.Hostname
	d.settings["adminPass"] = profile.Password
	d.started = d.now()
	return d
}

// Password returns the current admin password.
func (d *Device) Password() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings["adminPass"]
}

// Setting returns one stored setting.
func (d *Device) Setting(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.settings[name]
	return v, ok
}

// Relays returns the relay states.
func (d *Device) Relays() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]bool(nil), d.relays...)
}

// Reboots returns how many times the device was reset.
func (d *Device) Reboots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reboots
}

// Upgrades returns how many images were accepted.
func (d *Device) Upgrades() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.upgrades
}

func (d *Device) hasModule(name string) bool {
	return lo.Contains(d.profile.Modules, name)
}

// State is the update pushed to a client right after it connects.
func (d *Device) State() protocol.Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := protocol.Update{
		"app_name":    d.profile.AppName,
		"app_version": d.profile.AppVersion,
		"hostname":    d.settings["hostname"],
	}

	if d.profile.ForcePassword && d.settings["adminPass"] == factoryPassword {
		state["webMode"] = 1
		return state
	}

	state["webMode"] = 0
	state["maxNetworks"] = d.profile.MaxNetworks
	state["manufacturer"] = "ESPURNA"
	state["device"] = "EMULATED"
	state["chipid"] = "00C0FFEE"
	state["mac"] = "5C:CF:7F:C0:FF:EE"
	state["network"] = d.settings["ssid0"]
	state["deviceip"] = "127.0.0.1"
	state["uptime"] = int(d.now().Sub(d.started).Seconds())
	state["heap"] = 21344
	state["sketch_size"] = 480256
	state["free_size"] = d.profile.FreeSpace

	for _, m := range d.profile.Modules {
		state[m+"Visible"] = 1
	}

	for k, v := range d.settings {
		if k == "adminPass" || isIndexed(k) {
			continue
		}
		state[k] = v
	}

	state["relayStatus"] = lo.Map(d.relays, func(on bool, _ int) any { return on })
	state["wifi"] = d.records(networkKeys, d.countIndexed("ssid"))
	state["relayGroups"] = d.records([]string{"mqttGroup", "mqttGroupInv"}, len(d.relays))

	if d.hasModule("dcz") {
		state["dczRelayIdx"] = lo.Times(len(d.relays), func(i int) any {
			return d.settings["dczRelayIdx"+strconv.Itoa(i)]
		})
	}
	if d.hasModule("mqtt") {
		state["mqttStatus"] = true
	}
	if d.hasModule("ntp") {
		state["ntpStatus"] = true
	}
	if d.hasModule("light") {
		state["rgb"] = d.rgb
		state["brightness"] = d.bright
		state["channels"] = lo.Map(d.channels, func(v int, _ int) any { return v })
	}
	if d.hasModule("rfb") {
		state["rfbCount"] = len(d.relays)
		state["rfb"] = d.rfbRecords()
	}
	return state
}

// records builds the list of group instances from indexed settings
func (d *Device) records(names []string, count int) []any {
	out := make([]any, 0, count)
	for i := 0; i < count; i++ {
		rec := make(map[string]any, len(names))
		for _, n := range names {
			rec[n] = d.settings[n+strconv.Itoa(i)]
		}
		out = append(out, rec)
	}
	return out
}

func (d *Device) countIndexed(name string) int {
	n := 0
	for {
		if _, ok := d.settings[name+strconv.Itoa(n)]; !ok {
			return n
		}
		n++
	}
}

func (d *Device) rfbRecords() []any {
	keys := lo.Keys(d.rfb)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return lo.Map(keys, func(k [2]int, _ int) any {
		return map[string]any{"id": k[0], "status": k[1], "data": d.rfb[k]}
	})
}

func isIndexed(key string) bool {
	for _, name := range indexedKeys {
		if rest, ok := strings.CutPrefix(key, name); ok && rest != "" {
			if _, err := strconv.Atoi(rest); err == nil {
				return true
			}
		}
	}
	return false
}

// Save stores a save command and returns the message id to answer with.
func (d *Device) Save(entries []protocol.ConfigEntry) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var pass1, pass2 string
	seen := make(map[string]int)
	incoming := make(map[string]string)

	for _, e := range entries {
		value := stringify(e.Value)
		switch e.Name {
		case "adminPass1":
			pass1 = value
			continue
		case "adminPass2":
			pass2 = value
			continue
		}
		name := e.Name
		if lo.Contains(indexedKeys, name) {
			name += strconv.Itoa(seen[e.Name])
			seen[e.Name]++
		}
		incoming[name] = value
	}

	if pass1 != pass2 {
		return protocol.MsgPasswordMismatch
	}

	changed := false
	if pass1 != "" && pass1 != d.settings["adminPass"] {
		incoming["adminPass"] = pass1
	}
	for k, v := range incoming {
		if old, ok := d.settings[k]; !ok || old != v {
			d.settings[k] = v
			changed = true
		}
	}

	// rows removed by the operator
	for name, count := range seen {
		for i := count; ; i++ {
			key := name + strconv.Itoa(i)
			if _, ok := d.settings[key]; !ok {
				break
			}
			delete(d.settings, key)
			changed = true
		}
	}

	logging.Info("Emulated device saved settings",
		zap.Int("entries", len(entries)),
		zap.Bool("changed", changed),
	)
	if !changed {
		return protocol.MsgNoChanges
	}
	return protocol.MsgChangesSaved
}

// Restore replaces the settings with a backup. Backups of other firmware
// are refused.
func (d *Device) Restore(backup map[string]any) bool {
	if app := stringify(backup["app"]); app != "" && !strings.EqualFold(app, d.profile.AppName) {
		logging.Warn("Refusing backup of other firmware", zap.String("app", app))
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	restored := make(map[string]string, len(backup))
	for k, v := range backup {
		if k == "app" || k == "version" || k == "backup" {
			continue
		}
		restored[k] = stringify(v)
	}
	if _, ok := restored["adminPass"]; !ok {
		restored["adminPass"] = d.settings["adminPass"]
	}
	d.settings = restored

	logging.Info("Emulated device restored settings", zap.Int("settings", len(restored)))
	return true
}

// Backup returns the settings as a backup file.
func (d *Device) Backup() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]any, len(d.settings)+3)
	for k, v := range d.settings {
		out[k] = v
	}
	out["app"] = d.profile.AppName
	out["version"] = d.profile.AppVersion
	out["backup"] = "1"

	data, _ := json.Marshal(out)
	return data
}

// SetRelay switches relay id.
func (d *Device) SetRelay(id int, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 0 || id >= len(d.relays) {
		return fmt.Errorf("%w: %d", errUnknownRelay, id)
	}
	d.relays[id] = on
	return nil
}

// SetColor stores a color command and returns the update announcing it.
func (d *Device) SetColor(c protocol.ColorData) protocol.Update {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case c.Brightness != nil:
		d.bright = *c.Brightness
		return protocol.Update{"brightness": d.bright}
	case c.HSV != "":
		return protocol.Update{"hsv": c.HSV}
	default:
		d.rgb = c.RGB
		return protocol.Update{"rgb": d.rgb}
	}
}

// SetChannel stores one channel value.
func (d *Device) SetChannel(id, value int) (protocol.Update, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 0 || id >= len(d.channels) {
		return nil, fmt.Errorf("unknown channel %d", id)
	}
	d.channels[id] = value
	return protocol.Update{"channels": lo.Map(d.channels, func(v int, _ int) any { return v })}, nil
}

// Rfb applies an RF bridge action and returns the update announcing the
// codes. Learning stores a code derived from the slot.
func (d *Device) Rfb(action string, data protocol.RfbData) protocol.Update {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := [2]int{data.ID, data.Status}
	switch action {
	case protocol.ActionRfbLearn:
		d.rfb[key] = fmt.Sprintf("C0DE%02X%02X", data.ID, data.Status)
	case protocol.ActionRfbForget:
		delete(d.rfb, key)
	case protocol.ActionRfbSend:
		d.rfb[key] = data.Code
	}
	return protocol.Update{"rfb": []any{map[string]any{"id": data.ID, "status": data.Status, "data": d.rfb[key]}}}
}

// Reboot restarts the emulated board: relays off, uptime from zero.
func (d *Device) Reboot() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reboots++
	d.started = d.now()
	for i := range d.relays {
		d.relays[i] = false
	}
}

// Flash records an accepted firmware image.
func (d *Device) Flash() {
	d.mu.Lock()
	d.upgrades++
	d.mu.Unlock()
	d.Reboot()
}

// FreeSpace returns the space available for an image.
func (d *Device) FreeSpace() int64 {
	return d.profile.FreeSpace
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}
