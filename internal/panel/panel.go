package panel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/protocol"
)

// Delays of the deferred follow-ups.
const (
	SaveFollowUpDelay  = time.Second
	RestartReloadDelay = 5 * time.Second
	ReloadActionDelay  = time.Second
)

const (
	unsavedChangesText = "Some changes have not been saved yet, do you want to save them first?"
	confirmResetText   = "Are you sure you want to reset the device?"
	confirmReconnText  = "Are you sure you want to disconnect from the current WIFI network?"
	confirmRestoreText = "Previous settings will be overwritten. Are you sure you want to restore this settings?"

	// UploadSuccessToken is the body the device answers a good firmware image with.
	UploadSuccessToken = "OK"
	uploadOKText       = "Firmware image uploaded, board rebooting. This page will be refreshed in 5 seconds."
	uploadFailText     = "There was an error trying to upload the new image, please try again (%s)."
)

var (
	// ErrCancelled is returned when the operator declines a confirmation.
	ErrCancelled = errors.New("cancelled by operator")
	// ErrInvalidBackup is returned when a restore payload does not parse.
	ErrInvalidBackup = errors.New("invalid configuration backup")
	// ErrUnknownField is returned when an edit addresses no field.
	ErrUnknownField = errors.New("unknown field")
	// ErrReadOnly is returned when an edit addresses a display field.
	ErrReadOnly = errors.New("field is read-only")
)

// Sender delivers an outbound frame to the device.
type Sender interface {
	Send(msg []byte) error
}

// Prompter is the operator: yes/no questions and notifications.
type Prompter interface {
	Confirm(question string) bool
	Notify(text string)
}

// Scheduler runs fn after d. Implementations must run fn on the same
// logical task as every other panel call.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Reloader discards the panel state and starts over from the device.
type Reloader interface {
	Reload()
}

// WebMode selects which top-level surface is shown.
type WebMode int

const (
	WebModeConfig   WebMode = 0
	WebModePassword WebMode = 1
)

// String returns the mode name.
func (m WebMode) String() string {
	if m == WebModePassword {
		return "password"
	}
	return "config"
}

// Title is the heading and window title composed from device identity.
type Title struct {
	Heading string `json:"heading" yaml:"heading"`
	Window  string `json:"window" yaml:"window"`
}

// Options wires a panel to its collaborators.
type Options struct {
	Layout    Layout
	Sender    Sender
	Prompter  Prompter
	Scheduler Scheduler
	Reloader  Reloader
}

// Panel is the state of one control panel session: the field registry,
// its change tracker and the device flags announced so far. It is not safe
// for concurrent use; callers serialize access.
type Panel struct {
	reg     *Registry
	tracker *Tracker

	sender    Sender
	prompter  Prompter
	scheduler Scheduler
	reloader  Reloader

	title       Title
	mode        WebMode
	maxNetworks int
	useWhite    bool
	hsv         *HSV

	// savePending is set while a sent save awaits its follow-up. savedAt is
	// the tracker flip count at send time.
	savePending bool
	savedAt     uint64

	post []func()
}

// New creates a panel from opts and takes the initial snapshot.
func New(opts Options) *Panel {
	p := &Panel{
		reg:       NewRegistry(opts.Layout),
		tracker:   NewTracker(),
		sender:    opts.Sender,
		prompter:  opts.Prompter,
		scheduler: opts.Scheduler,
		reloader:  opts.Reloader,
	}
	p.reg.Observe(p.tracker.Observe)
	p.SnapshotReset()
	return p
}

// Registry exposes the field registry.
func (p *Panel) Registry() *Registry { return p.reg }

// Counts returns the current dirty counters.
func (p *Panel) Counts() Counts { return p.tracker.Counts() }

// Title returns the composed title.
func (p *Panel) Title() Title { return p.title }

// Mode returns the surface selected by the device.
func (p *Panel) Mode() WebMode { return p.mode }

// MaxNetworks returns the announced network limit, 0 when unknown.
func (p *Panel) MaxNetworks() int { return p.maxNetworks }

// HSV returns the last color applied in hsv mode.
func (p *Panel) HSV() (HSV, bool) {
	if p.hsv == nil {
		return HSV{}, false
	}
	return *p.hsv, true
}

// SnapshotReset makes the current values the originals and zeroes the
// counters.
func (p *Panel) SnapshotReset() {
	p.tracker.Reset(p.reg.Fields())
	p.savePending = false
}

// Edit sets a field from operator input. Checkboxes accept the usual
// boolean spellings plus "on" and "off". Select and radio values must be
// one of the options.
func (p *Panel) Edit(key FieldKey, value string) error {
	f := p.reg.LookupKey(key)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if f.Display {
		return fmt.Errorf("%w: %s", ErrReadOnly, key)
	}
	switch f.Kind {
	case KindCheckbox:
		checked, err := parseChecked(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		p.reg.Check(f, checked)
	case KindSelect, KindRadio:
		if len(f.Options) > 0 && !lo.Contains(f.Options, value) {
			return &ValidationError{Field: key.String(), Text: fmt.Sprintf("%q is not one of %s", value, strings.Join(f.Options, ", "))}
		}
		p.reg.Write(f, value)
	default:
		p.reg.Write(f, value)
	}
	return nil
}

func parseChecked(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(value)
}

// ValidateForm runs the checks that guard a save.
func (p *Panel) ValidateForm() []error {
	var errs []error
	if err := ValidatePasswords(p.value("adminPass1"), p.value("adminPass2")); err != nil {
		errs = append(errs, err)
	}
	if g := p.reg.Group(GroupNetworks); g != nil {
		if err := ValidateNetworkCount(g.Len(), p.maxNetworks); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (p *Panel) value(name string) string {
	if f := p.reg.Lookup(name, -1); f != nil {
		return f.Value
	}
	return ""
}

// SaveEntries collects the save payload: every saved field in registry
// order, checkboxes as 1 or 0.
func (p *Panel) SaveEntries() []protocol.ConfigEntry {
	var entries []protocol.ConfigEntry
	for _, f := range p.reg.Fields() {
		if !f.Saved() {
			continue
		}
		var value any = f.Value
		if f.Kind == KindCheckbox {
			value = 0
			if f.Checked {
				value = 1
			}
		}
		entries = append(entries, protocol.ConfigEntry{Name: f.Name, Value: value})
	}
	return entries
}

// Save validates and sends the form. The dirty counters are captured when
// the command is sent and classified after SaveFollowUpDelay; updates
// arriving in between do not affect the follow-up.
func (p *Panel) Save() error {
	if errs := p.ValidateForm(); len(errs) > 0 {
		p.reject(errs[0])
		return errs[0]
	}

	msg, err := protocol.BuildSave(p.SaveEntries())
	if err != nil {
		return err
	}
	if err := p.send(msg); err != nil {
		return err
	}

	captured := p.tracker.Counts()
	p.clearOneShots()
	p.savePending, p.savedAt = true, p.tracker.Flips()
	p.after(SaveFollowUpDelay, func() { p.followUp(captured) })
	return nil
}

// SavePassword sends only the admin password pair, as the password-only
// surface does.
func (p *Panel) SavePassword() error {
	pass1, pass2 := p.value("adminPass1"), p.value("adminPass2")
	if err := ValidatePasswords(pass1, pass2); err != nil {
		p.reject(err)
		return err
	}
	msg, err := protocol.BuildSave([]protocol.ConfigEntry{
		{Name: "adminPass1", Value: pass1},
		{Name: "adminPass2", Value: pass2},
	})
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *Panel) reject(err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		p.notify(verr.Text)
		return
	}
	p.notify(err.Error())
}

// clearOneShots zeroes the expected power readings and unchecks the
// calibration reset once they have been sent.
func (p *Panel) clearOneShots() {
	for _, f := range p.reg.Fields() {
		if f.Display {
			continue
		}
		switch {
		case strings.HasPrefix(f.Name, "pwrExpected"):
			p.reg.Write(f, "0")
		case f.Name == "pwrResetCalibration":
			p.reg.Check(f, false)
		}
	}
}

func (p *Panel) followUp(captured Counts) {
	next := Classify(captured)
	accepted := false
	if next != FollowUpNone {
		accepted = p.confirm(next.Prompt())
	}
	p.SnapshotReset()
	if !accepted {
		return
	}

	var err error
	switch next {
	case FollowUpReset:
		err = p.sendRestart(protocol.ActionReset)
	case FollowUpReconnect:
		err = p.sendRestart(protocol.ActionReconnect)
	case FollowUpReload:
		p.reload()
	}
	if err != nil {
		logging.Warn("Follow-up after save failed",
			zap.String("follow_up", next.String()),
			zap.Error(err),
		)
	}
}

// Reset asks the device to reboot. Unsaved changes are offered for saving
// first, in which case the save replaces the reset.
func (p *Panel) Reset(ask bool) error {
	return p.restart(protocol.ActionReset, confirmResetText, ask)
}

// Reconnect asks the device to drop and rejoin its wifi network.
func (p *Panel) Reconnect(ask bool) error {
	return p.restart(protocol.ActionReconnect, confirmReconnText, ask)
}

// Unsaved reports whether there are changes that have not been sent. Changes
// covered by a save still awaiting its follow-up do not count.
func (p *Panel) Unsaved() bool {
	if p.tracker.Counts().Total == 0 {
		return false
	}
	return !p.savePending || p.tracker.Flips() != p.savedAt
}

func (p *Panel) restart(action, question string, ask bool) error {
	if p.Unsaved() && p.confirm(unsavedChangesText) {
		return p.Save()
	}
	if ask && !p.confirm(question) {
		return ErrCancelled
	}
	return p.sendRestart(action)
}

func (p *Panel) sendRestart(action string) error {
	msg, err := protocol.BuildAction(action, nil)
	if err != nil {
		return err
	}
	if err := p.send(msg); err != nil {
		return err
	}
	p.after(RestartReloadDelay, p.reload)
	return nil
}

// Restore sends a configuration backup after the operator confirms. A
// backup that does not parse is reported and never sent.
func (p *Panel) Restore(raw []byte) error {
	if !p.confirm(confirmRestoreText) {
		return ErrCancelled
	}
	backup, err := protocol.DecodeBackup(raw)
	if err != nil {
		text, _ := protocol.MessageText(protocol.MsgInvalidBackup)
		p.notify(text)
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	msg, err := protocol.BuildRestore(backup)
	if err != nil {
		return err
	}
	return p.send(msg)
}

// ToggleRelay switches relay id and sends the change right away.
func (p *Panel) ToggleRelay(id int, on bool) error {
	f := p.reg.Lookup("relayStatus", id)
	if f == nil {
		return fmt.Errorf("%w: relay %d", ErrUnknownField, id)
	}
	p.reg.Check(f, on)
	return p.sendBuilt(protocol.BuildRelay(id, on))
}

// SetColor sends a css color picked in rgb mode.
func (p *Panel) SetColor(css string) error {
	f := p.reg.Lookup("color", 0)
	if f == nil {
		return fmt.Errorf("%w: color", ErrUnknownField)
	}
	p.reg.Write(f, css)
	return p.sendBuilt(protocol.BuildColorRGB(css))
}

// SetHSV sends a color picked in hsv mode.
func (p *Panel) SetHSV(c HSV) error {
	f := p.reg.Lookup("color", 0)
	if f == nil {
		return fmt.Errorf("%w: color", ErrUnknownField)
	}
	p.hsv = &c
	p.reg.Write(f, c.Pack())
	return p.sendBuilt(protocol.BuildColorHSV(c.Pack()))
}

// SetBrightness updates the slider and its echo and sends the value.
func (p *Panel) SetBrightness(value int) error {
	fields := p.reg.Resolve("brightness")
	if len(fields) == 0 {
		return fmt.Errorf("%w: brightness", ErrUnknownField)
	}
	for _, f := range fields {
		p.reg.Write(f, strconv.Itoa(value))
	}
	return p.sendBuilt(protocol.BuildBrightness(value))
}

// SetChannel updates one channel slider and its echo and sends the value.
func (p *Panel) SetChannel(id, value int) error {
	fields := p.reg.LookupAll("channel", id)
	if len(fields) == 0 {
		return fmt.Errorf("%w: channel %d", ErrUnknownField, id)
	}
	for _, f := range fields {
		p.reg.Write(f, strconv.Itoa(value))
	}
	return p.sendBuilt(protocol.BuildChannel(id, value))
}

// RfbLearn asks the bridge to learn the code for node id and status.
func (p *Panel) RfbLearn(id, status int) error {
	if _, err := p.rfbField(id, status); err != nil {
		return err
	}
	return p.sendBuilt(protocol.BuildRfb(protocol.ActionRfbLearn, id, status))
}

// RfbForget clears the code for node id and status.
func (p *Panel) RfbForget(id, status int) error {
	if _, err := p.rfbField(id, status); err != nil {
		return err
	}
	return p.sendBuilt(protocol.BuildRfb(protocol.ActionRfbForget, id, status))
}

// RfbSend transmits the stored code for node id and status.
func (p *Panel) RfbSend(id, status int) error {
	f, err := p.rfbField(id, status)
	if err != nil {
		return err
	}
	return p.sendBuilt(protocol.BuildRfbSend(id, status, f.Value))
}

func (p *Panel) rfbField(id, status int) (*Field, error) {
	key := FieldKey{Name: "rfbcode", Index: id, Status: status}
	f := p.reg.LookupKey(key)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return f, nil
}

// RegenerateAPIKey writes a fresh key into the API key field.
func (p *Panel) RegenerateAPIKey() (string, error) {
	f := p.reg.Lookup("apiKey", -1)
	if f == nil {
		return "", fmt.Errorf("%w: apiKey", ErrUnknownField)
	}
	key := GenerateAPIKey()
	p.reg.Write(f, key)
	return key, nil
}

// AddNetwork appends an empty network row unless the announced limit is
// reached.
func (p *Panel) AddNetwork() error {
	g := p.reg.Group(GroupNetworks)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, GroupNetworks)
	}
	if p.maxNetworks > 0 && g.Len() >= p.maxNetworks {
		p.notify(maxNetworksText)
		return &ValidationError{Field: GroupNetworks, Text: maxNetworksText}
	}
	_, err := p.reg.AppendInstance(GroupNetworks)
	return err
}

// DeleteNetwork removes the network row at position.
func (p *Panel) DeleteNetwork(position int) error {
	removed, err := p.reg.RemoveInstance(GroupNetworks, position)
	if err != nil {
		return err
	}
	for _, f := range removed {
		p.tracker.Forget(f)
	}
	return nil
}

// UpgradeFinished reports a firmware upload result. body is the device
// response or the transfer error text.
func (p *Panel) UpgradeFinished(body string) {
	if body == UploadSuccessToken {
		p.notify(uploadOKText)
		p.after(RestartReloadDelay, p.reload)
		return
	}
	p.notify(fmt.Sprintf(uploadFailText, body))
}

func (p *Panel) sendBuilt(msg []byte, err error) error {
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *Panel) send(msg []byte) error {
	if p.sender == nil {
		return fmt.Errorf("no connection to device")
	}
	if err := p.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

func (p *Panel) confirm(question string) bool {
	if p.prompter == nil {
		return false
	}
	return p.prompter.Confirm(question)
}

func (p *Panel) notify(text string) {
	logging.Debug("Operator notification", zap.String("text", text))
	if p.prompter != nil {
		p.prompter.Notify(text)
	}
}

func (p *Panel) after(d time.Duration, fn func()) {
	if p.scheduler == nil {
		logging.Warn("No scheduler, dropping deferred call", zap.Duration("delay", d))
		return
	}
	p.scheduler.AfterFunc(d, fn)
}

func (p *Panel) reload() {
	if p.reloader != nil {
		p.reloader.Reload()
	}
}
