package panel

import (
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/protocol"
)

const (
	visibleSuffix   = "Visible"
	notConnected    = "NOT CONNECTED"
	fahrenheitLabel = "ºF"
	celsiusLabel    = "ºC"
)

// keyHandler processes one inbound key. Early handlers run before every
// other key of the same update so flags and capacities are known first.
// apply returns the value to pass on to the generic field write, or false
// to stop there.
type keyHandler struct {
	early bool
	apply func(p *Panel, key string, v any) (any, bool)
}

var keyHandlers map[string]keyHandler

func init() {
	keyHandlers = map[string]keyHandler{
		// flags and capacities
		"useWhite":    {early: true, apply: applyUseWhite},
		"maxNetworks": {early: true, apply: applyMaxNetworks},
		"rfbCount":    {early: true, apply: applyRfbCount},
		"rgb":         {early: true, apply: applyRGB},
		"hsv":         {early: true, apply: applyHSV},

		// control
		"webMode": {apply: applyWebMode},
		"action":  {apply: applyAction},
		"message": {apply: applyMessage},

		// lists with implicit capacity
		"wifi":        {apply: applyWifi},
		"relayStatus": {apply: applyRelayStatus},
		"relayGroups": {apply: applyRelayGroups},
		"dczRelayIdx": {apply: applyRelayIdx},
		"channels":    {apply: applyChannels},
		"rfb":         {apply: applyRfb},
		"brightness":  {apply: applyBrightness},

		// display transforms
		"uptime":       {apply: formatUptime},
		"network":      {apply: upperNetwork},
		"mqttStatus":   {apply: statusLabel("CONNECTED", notConnected)},
		"ntpStatus":    {apply: statusLabel("SYNC'D", "NOT SYNC'D")},
		"tmpUnits":     {apply: applyTmpUnits},
		"dhtConnected": {apply: placeholder("dhtTmp", "dhtHum")},
		"dsConnected":  {apply: placeholder("dsTmp")},
	}
}

// Apply writes one inbound update into the panel. The title is composed
// first, early keys next, then every other key in sorted order. Deferred
// writes run after all keys, then an empty API key is filled in and the
// snapshot is reset.
func (p *Panel) Apply(u protocol.Update) {
	p.post = nil
	p.applyTitle(u)

	keys := u.Keys()
	for _, early := range []bool{true, false} {
		for _, key := range keys {
			h, ok := keyHandlers[key]
			if ok && h.early != early || !ok && early {
				continue
			}
			p.applyKey(key, u[key], h, ok)
		}
	}

	for _, fn := range p.post {
		fn()
	}
	p.post = nil

	p.ensureAPIKey()
	p.SnapshotReset()
}

func (p *Panel) applyKey(key string, v any, h keyHandler, handled bool) {
	if handled {
		next, ok := h.apply(p, key, v)
		if !ok {
			return
		}
		v = next
	} else if module, found := strings.CutSuffix(key, visibleSuffix); found && module != "" {
		p.reg.ShowModule(module)
		return
	}
	p.writeGeneric(key, v)
}

func (p *Panel) applyTitle(u protocol.Update) {
	name, ok := u.String("app_name")
	if !ok {
		return
	}
	heading := name
	if version, ok := u.String("app_version"); ok {
		heading += " " + version
	}
	window := heading
	if host, ok := u.String("hostname"); ok {
		window = host + " - " + heading
	}
	p.title = Title{Heading: heading, Window: window}
}

// writeGeneric writes v into every input field named key, or into the
// display fields of that name when no input exists. Unknown keys are
// dropped.
func (p *Panel) writeGeneric(key string, v any) {
	fields := p.reg.Resolve(key)
	if len(fields) == 0 {
		logging.Debug("Ignoring unknown key", zap.String("key", key))
		return
	}
	inputs := lo.Filter(fields, func(f *Field, _ int) bool { return !f.Display })
	if len(inputs) == 0 {
		inputs = fields
	}
	for _, f := range inputs {
		p.writeValue(f, v)
	}
}

// writeValue applies kind-specific coercion. Radio and select fields take
// the value only when it is one of their options.
func (p *Panel) writeValue(f *Field, v any) {
	switch f.Kind {
	case KindCheckbox:
		p.reg.Check(f, truthy(v))
	case KindRadio, KindSelect:
		s := stringify(v)
		if len(f.Options) > 0 && !lo.Contains(f.Options, s) {
			s = ""
		}
		p.reg.Write(f, s)
	default:
		p.reg.Write(f, f.Prefix+stringify(v)+f.Suffix)
	}
}

func (p *Panel) ensureAPIKey() {
	f := p.reg.Lookup("apiKey", -1)
	if f == nil || f.Value != "" {
		return
	}
	p.reg.Write(f, GenerateAPIKey())
}

func applyUseWhite(p *Panel, _ string, v any) (any, bool) {
	p.useWhite = truthy(v)
	return v, true
}

func applyMaxNetworks(p *Panel, _ string, v any) (any, bool) {
	if n, ok := toInt(v); ok {
		p.maxNetworks = n
	}
	return nil, false
}

func applyRfbCount(p *Panel, _ string, v any) (any, bool) {
	if n, ok := toInt(v); ok {
		p.reg.MaterializeGroup(GroupRfbNodes, n)
	}
	return nil, false
}

func applyRGB(p *Panel, _ string, v any) (any, bool) {
	p.reg.MaterializeVariant(GroupColors, VariantRGB, 1, 0)
	if f := p.reg.Lookup("color", 0); f != nil {
		p.reg.Write(f, stringify(v))
	}
	return nil, false
}

func applyHSV(p *Panel, _ string, v any) (any, bool) {
	p.reg.MaterializeVariant(GroupColors, VariantHSV, 1, 0)
	raw := stringify(v)
	c, err := ParseHSV(raw)
	if err != nil {
		logging.Debug("Ignoring malformed hsv", zap.Error(err))
		return nil, false
	}
	p.hsv = &c
	if f := p.reg.Lookup("color", 0); f != nil {
		p.reg.Write(f, raw)
	}
	return nil, false
}

func applyWebMode(p *Panel, _ string, v any) (any, bool) {
	if n, ok := toInt(v); ok {
		p.mode = WebMode(n)
	}
	return nil, false
}

func applyAction(p *Panel, _ string, v any) (any, bool) {
	switch action := stringify(v); action {
	case "reload":
		p.after(ReloadActionDelay, p.reload)
	case "rfbLearn", "rfbTimeout":
	default:
		logging.Debug("Ignoring unknown action", zap.String("action", action))
	}
	return nil, false
}

func applyMessage(p *Panel, _ string, v any) (any, bool) {
	id, ok := toInt(v)
	if !ok {
		return nil, false
	}
	text, ok := protocol.MessageText(id)
	if !ok {
		logging.Debug("Ignoring unknown message id", zap.Int("id", id))
		return nil, false
	}
	p.notify(text)
	return nil, false
}

func applyWifi(p *Panel, _ string, v any) (any, bool) {
	p.applyRecords(GroupNetworks, v)
	return nil, false
}

func applyRelayGroups(p *Panel, _ string, v any) (any, bool) {
	p.applyRecords(GroupRelayGroups, v)
	return nil, false
}

// applyRecords materializes group at the length of the list and writes
// each record's keys into the matching instance. Keys without a field are
// ignored.
func (p *Panel) applyRecords(group string, v any) {
	list, ok := v.([]any)
	if !ok {
		return
	}
	p.reg.MaterializeGroup(group, len(list))
	g := p.reg.Group(group)
	for i, item := range list {
		record, ok := item.(map[string]any)
		if !ok || i >= g.Len() {
			continue
		}
		for name, value := range record {
			for _, f := range g.Instances[i] {
				if f.Name == name && !f.Display {
					p.writeValue(f, value)
				}
			}
		}
	}
}

func applyRelayStatus(p *Panel, _ string, v any) (any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	p.reg.MaterializeGroup(GroupRelays, len(list))
	for id, status := range list {
		if f := p.reg.Lookup("relayStatus", id); f != nil {
			p.reg.Check(f, truthy(status))
		}
	}
	return nil, false
}

func applyRelayIdx(p *Panel, _ string, v any) (any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	p.reg.MaterializeGroup(GroupIdxs, len(list))
	for id, idx := range list {
		if f := p.reg.Lookup("dczRelayIdx", id); f != nil {
			p.reg.Write(f, stringify(idx))
		}
	}
	return nil, false
}

// applyChannels exposes only the channels not driven by the color picker.
// With a color surface, the first channels in multiples of three belong to
// it, and one more is taken by the white channel when enabled.
func applyChannels(p *Panel, _ string, v any) (any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	num := len(list)
	free := num
	if colors := p.reg.Group(GroupColors); colors != nil && colors.Len() > 0 {
		free = num % 3
		if free > 0 && p.useWhite {
			free--
		}
	}
	p.reg.MaterializeVariant(GroupChannels, "", free, num-free)

	for id, value := range list {
		for _, f := range p.reg.LookupAll("channel", id) {
			p.reg.Write(f, stringify(value))
		}
	}
	return nil, false
}

func applyRfb(p *Panel, _ string, v any) (any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	for _, item := range list {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, okID := toInt(node["id"])
		status, okStatus := toInt(node["status"])
		if !okID || !okStatus {
			continue
		}
		if f := p.reg.LookupKey(FieldKey{Name: "rfbcode", Index: id, Status: status}); f != nil {
			p.reg.Write(f, stringify(node["data"]))
		}
	}
	return nil, false
}

func applyBrightness(p *Panel, _ string, v any) (any, bool) {
	for _, f := range p.reg.Resolve("brightness") {
		p.reg.Write(f, stringify(v))
	}
	return nil, false
}

func formatUptime(_ *Panel, _ string, v any) (any, bool) {
	seconds, ok := toInt(v)
	if !ok {
		return v, true
	}
	return FormatUptime(int64(seconds)), true
}

func upperNetwork(_ *Panel, _ string, v any) (any, bool) {
	return strings.ToUpper(stringify(v)), true
}

func statusLabel(yes, no string) func(*Panel, string, any) (any, bool) {
	return func(_ *Panel, _ string, v any) (any, bool) {
		if truthy(v) {
			return yes, true
		}
		return no, true
	}
}

// applyTmpUnits labels the unit displays and selects the units radio.
func applyTmpUnits(p *Panel, key string, v any) (any, bool) {
	label := celsiusLabel
	if n, ok := toInt(v); ok && n == 1 {
		label = fahrenheitLabel
	}
	for _, f := range p.reg.Resolve(key) {
		if f.Display {
			p.reg.Write(f, label)
		} else {
			p.writeValue(f, v)
		}
	}
	return nil, false
}

// placeholder marks sensor readings as not connected once every key of
// the update has been written, regardless of key order.
func placeholder(names ...string) func(*Panel, string, any) (any, bool) {
	return func(p *Panel, _ string, v any) (any, bool) {
		if !truthy(v) {
			p.post = append(p.post, func() {
				for _, name := range names {
					for _, f := range p.reg.Resolve(name) {
						p.reg.Write(f, notConnected)
					}
				}
			})
		}
		return v, true
	}
}
