package panel

// Group names used by the applier and the operator commands.
const (
	GroupNetworks    = "networks"
	GroupRelays      = "relays"
	GroupIdxs        = "idxs"
	GroupRelayGroups = "relayGroups"
	GroupRfbNodes    = "rfbNodes"
	GroupColors      = "colors"
	GroupChannels    = "channels"
)

// Color template variants.
const (
	VariantRGB = "rgb"
	VariantHSV = "hsv"
)

var (
	onOff     = []string{"0", "1"}
	relayMode = []string{"0", "1", "2", "3"}
	ntpOffset = []string{"-720", "-660", "-600", "-540", "-480", "-420", "-360", "-300", "-240", "-180", "-120", "-60",
		"0", "60", "120", "180", "240", "300", "360", "420", "480", "540", "600", "660", "720"}
)

// DefaultLayout returns the field catalog of an ESPurna style device.
// Fields of modules the device never announces stay hidden.
func DefaultLayout() Layout {
	return Layout{
		Fields: []FieldSpec{
			// Status
			{Name: "manufacturer", Label: "Manufacturer", Display: true},
			{Name: "device", Label: "Device", Display: true},
			{Name: "chipid", Label: "Chip ID", Display: true},
			{Name: "mac", Label: "MAC", Display: true},
			{Name: "network", Label: "Network", Display: true},
			{Name: "deviceip", Label: "IP", Display: true},
			{Name: "uptime", Label: "Uptime", Display: true},
			{Name: "heap", Label: "Free heap", Display: true, Suffix: " bytes"},
			{Name: "sketch_size", Label: "Firmware size", Display: true, Suffix: " bytes"},
			{Name: "free_size", Label: "Free space", Display: true, Suffix: " bytes"},
			{Name: "mqttStatus", Label: "MQTT status", Display: true, Module: "mqtt"},
			{Name: "ntpStatus", Label: "NTP status", Display: true, Module: "ntp"},

			// General
			{Name: "hostname", Label: "Hostname", Action: ActionReset},
			{Name: "relayMode", Label: "Switch boot mode", Kind: KindSelect, Options: relayMode},
			{Name: "relaySync", Label: "Switch sync mode", Kind: KindSelect, Options: relayMode},
			{Name: "ledMode", Label: "LED mode", Kind: KindSelect, Options: relayMode},

			// Admin
			{Name: "adminPass1", Label: "Admin password"},
			{Name: "adminPass2", Label: "Repeat password"},
			{Name: "webPort", Label: "HTTP port", Action: ActionReset},
			{Name: "wsAuth", Label: "Websocket auth", Kind: KindCheckbox},
			{Name: "apiEnabled", Label: "Enable HTTP API", Kind: KindCheckbox},
			{Name: "apiKey", Label: "HTTP API key"},
			{Name: "telnetSTA", Label: "Telnet on STA", Kind: KindCheckbox, Module: "telnet"},
			{Name: "filename", Label: "Firmware file", Transient: true, Action: ActionNone},

			// MQTT
			{Name: "mqttEnabled", Label: "Enable MQTT", Kind: KindCheckbox, Module: "mqtt"},
			{Name: "mqttServer", Label: "MQTT broker", Module: "mqtt"},
			{Name: "mqttPort", Label: "MQTT port", Module: "mqtt"},
			{Name: "mqttUser", Label: "MQTT user", Module: "mqtt"},
			{Name: "mqttPassword", Label: "MQTT password", Module: "mqtt"},
			{Name: "mqttClientID", Label: "MQTT client ID", Module: "mqtt"},
			{Name: "mqttQoS", Label: "MQTT QoS", Kind: KindSelect, Options: []string{"0", "1", "2"}, Module: "mqtt"},
			{Name: "mqttRetain", Label: "MQTT retain", Kind: KindCheckbox, Module: "mqtt"},
			{Name: "mqttKeep", Label: "MQTT keep alive", Module: "mqtt"},
			{Name: "mqttTopic", Label: "MQTT root topic", Module: "mqtt"},
			{Name: "mqttUseJson", Label: "Use JSON payload", Kind: KindCheckbox, Module: "mqtt"},

			// NTP
			{Name: "ntpServer1", Label: "NTP server", Module: "ntp"},
			{Name: "ntpOffset", Label: "Time zone", Kind: KindSelect, Options: ntpOffset, Module: "ntp"},
			{Name: "ntpDST", Label: "Daylight saving", Kind: KindCheckbox, Module: "ntp"},

			// Domoticz
			{Name: "dczEnabled", Label: "Enable Domoticz", Kind: KindCheckbox, Module: "dcz"},
			{Name: "dczTopicIn", Label: "Domoticz in topic", Module: "dcz"},
			{Name: "dczTopicOut", Label: "Domoticz out topic", Module: "dcz"},

			// Home Assistant and Alexa
			{Name: "haEnabled", Label: "Home Assistant discovery", Kind: KindCheckbox, Module: "ha"},
			{Name: "haPrefix", Label: "Home Assistant prefix", Module: "ha"},
			{Name: "alexaEnabled", Label: "Alexa integration", Kind: KindCheckbox, Module: "alexa", Action: ActionReset},

			// Lights
			{Name: "useColor", Label: "Use color", Kind: KindCheckbox, Module: "light", Action: ActionReset},
			{Name: "useWhite", Label: "Use white channel", Kind: KindCheckbox, Module: "light", Action: ActionReset},
			{Name: "useGamma", Label: "Use gamma correction", Kind: KindCheckbox, Module: "light"},
			{Name: "useCSS", Label: "Use CSS style", Kind: KindCheckbox, Module: "light", Action: ActionReload},

			// Sensors
			{Name: "tmpUnits", Label: "Temperature units", Kind: KindRadio, Options: onOff, Module: "sns"},
			{Name: "dhtTmp", Label: "DHT temperature", Display: true, Module: "dht"},
			{Name: "tmpUnits", Label: "Units", Display: true, Module: "dht"},
			{Name: "dhtHum", Label: "DHT humidity", Display: true, Module: "dht", Suffix: "%"},
			{Name: "dsTmp", Label: "DS18B20 temperature", Display: true, Module: "ds"},
			{Name: "tmpUnits", Label: "Units", Display: true, Module: "ds"},

			// Power monitoring
			{Name: "pwrCurrent", Label: "Current", Display: true, Module: "pow", Suffix: "A"},
			{Name: "pwrVoltage", Label: "Voltage", Display: true, Module: "pow", Suffix: "V"},
			{Name: "pwrActive", Label: "Active power", Display: true, Module: "pow", Suffix: "W"},
			{Name: "pwrExpectedC", Label: "Expected current", Module: "pow"},
			{Name: "pwrExpectedV", Label: "Expected voltage", Module: "pow"},
			{Name: "pwrExpectedP", Label: "Expected power", Module: "pow"},
			{Name: "pwrResetCalibration", Label: "Reset calibration", Kind: KindCheckbox, Module: "pow"},
		},
		Groups: []GroupSpec{
			{
				Name:  GroupNetworks,
				Label: "Network",
				Variants: map[string][]FieldSpec{"": {
					{Name: "ssid", Label: "Network SSID", Action: ActionReconnect},
					{Name: "pass", Label: "Password", Action: ActionReconnect},
					{Name: "ip", Label: "Static IP", Action: ActionReconnect},
					{Name: "gw", Label: "Gateway IP", Action: ActionReconnect},
					{Name: "mask", Label: "Network mask", Action: ActionReconnect},
					{Name: "dns", Label: "DNS IP", Action: ActionReconnect},
				}},
				TabBase:   200,
				TabStride: 10,
			},
			{
				Name:  GroupRelays,
				Label: "Switch",
				Variants: map[string][]FieldSpec{"": {
					{Name: "relayStatus", Label: "Switch", Kind: KindCheckbox, Transient: true, Action: ActionNone},
				}},
			},
			{
				Name:   GroupIdxs,
				Label:  "Switch IDX",
				Module: "dcz",
				Variants: map[string][]FieldSpec{"": {
					{Name: "dczRelayIdx", Label: "Switch IDX"},
				}},
				TabBase:   40,
				TabStride: 1,
			},
			{
				Name:  GroupRelayGroups,
				Label: "Switch group",
				Variants: map[string][]FieldSpec{"": {
					{Name: "mqttGroup", Label: "Group topic"},
					{Name: "mqttGroupInv", Label: "Group inverse", Kind: KindSelect, Options: onOff},
				}},
				TabBase:   200,
				TabStride: 2,
			},
			{
				Name:   GroupRfbNodes,
				Label:  "RF node",
				Module: "rfb",
				Variants: map[string][]FieldSpec{"": {
					{Name: "rfbcode", Label: "ON code", Status: 1, Transient: true, Action: ActionNone},
					{Name: "rfbcode", Label: "OFF code", Status: 0, Transient: true, Action: ActionNone},
				}},
			},
			{
				Name:   GroupColors,
				Label:  "Color",
				Module: "light",
				Variants: map[string][]FieldSpec{
					VariantRGB: {
						{Name: "color", Label: "Color", Transient: true, Action: ActionNone},
						{Name: "brightness", Label: "Brightness", Transient: true, Action: ActionNone},
						{Name: "brightness", Label: "Brightness", Display: true},
					},
					VariantHSV: {
						{Name: "color", Label: "Color", Transient: true, Action: ActionNone},
					},
				},
			},
			{
				Name:   GroupChannels,
				Label:  "Channel",
				Module: "light",
				Variants: map[string][]FieldSpec{"": {
					{Name: "channel", Label: "Channel", Transient: true, Action: ActionNone},
					{Name: "channel", Label: "Channel", Display: true},
				}},
			},
		},
	}
}
