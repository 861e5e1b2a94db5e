package panel

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/espcfg/internal/protocol"
)

func entryValues(cmd *protocol.Command) map[string]any {
	out := make(map[string]any)
	for _, e := range cmd.Config {
		out[e.Name] = e.Value
	}
	return out
}

// One reset-tagged and one none-tagged change: the none-tagged field is
// still saved but only the reset drives the follow-up.
func TestSaveResetFollowUp(t *testing.T) {
	tests := []struct {
		name        string
		accept      bool
		wantActions []string
		wantDelays  []time.Duration
	}{
		{name: "declined", accept: false, wantActions: nil, wantDelays: []time.Duration{}},
		{name: "accepted", accept: true, wantActions: []string{protocol.ActionReset}, wantDelays: []time.Duration{RestartReloadDelay}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(smallLayout())
			h.apply(t, `{"hostname":"kitchen","ledLabel":"red"}`)
			h.edit(t, "hostname", "hall")
			h.edit(t, "ledLabel", "blue")
			require.Equal(t, Counts{Total: 1, Reset: 1}, h.panel.Counts())

			require.NoError(t, h.panel.Save())
			cmds := h.sender.commands(t)
			require.Len(t, cmds, 1)
			require.True(t, cmds[0].IsSave())
			values := entryValues(cmds[0])
			assert.Equal(t, "hall", values["hostname"])
			assert.Equal(t, "blue", values["ledLabel"])
			assert.NotContains(t, values, "uptime")
			assert.NotContains(t, values, "relayStatus")

			assert.Equal(t, []time.Duration{SaveFollowUpDelay}, h.sched.delays())
			assert.Empty(t, h.prompter.questions, "nothing is asked before the delay")

			h.prompter.answers = []bool{tt.accept}
			h.sched.fire()

			assert.Equal(t, []string{FollowUpReset.Prompt()}, h.prompter.questions)
			assert.Equal(t, Counts{}, h.panel.Counts())

			var actions []string
			for _, cmd := range h.sender.commands(t)[1:] {
				actions = append(actions, cmd.Action)
			}
			assert.Equal(t, tt.wantActions, actions)
			assert.Equal(t, tt.wantDelays, h.sched.delays())

			h.sched.fire()
			if tt.accept {
				assert.Equal(t, 1, h.reloader.reloads)
			} else {
				assert.Zero(t, h.reloader.reloads)
			}
		})
	}
}

func TestSaveFollowUpClasses(t *testing.T) {
	tests := []struct {
		name       string
		edits      map[string]string
		wantPrompt string
		wantAction string
		wantReload bool
	}{
		{
			name:       "reconnect wins over reload",
			edits:      map[string]string{"ssid#0": "guest", "ntpServer1": "pool"},
			wantPrompt: FollowUpReconnect.Prompt(),
			wantAction: protocol.ActionReconnect,
		},
		{
			name:       "reload only",
			edits:      map[string]string{"useCSS": "on"},
			wantPrompt: FollowUpReload.Prompt(),
			wantReload: true,
		},
		{
			name:  "plain change asks nothing",
			edits: map[string]string{"mqttServer": "broker"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(smallLayout())
			h.apply(t, `{"wifi":[{"ssid":"home","pass":"secret"}]}`)
			for k, v := range tt.edits {
				h.edit(t, k, v)
			}

			require.NoError(t, h.panel.Save())
			h.prompter.answers = []bool{true}
			h.sched.fire()

			if tt.wantPrompt == "" {
				assert.Empty(t, h.prompter.questions)
			} else {
				assert.Equal(t, []string{tt.wantPrompt}, h.prompter.questions)
			}

			cmds := h.sender.commands(t)
			if tt.wantAction != "" {
				require.Len(t, cmds, 2)
				assert.Equal(t, tt.wantAction, cmds[1].Action)
			} else {
				assert.Len(t, cmds, 1)
			}
			if tt.wantReload {
				assert.Equal(t, 1, h.reloader.reloads)
			}
			assert.Equal(t, Counts{}, h.panel.Counts())
		})
	}
}

func TestSaveCapturesCountsAtSend(t *testing.T) {
	h := newHarness(smallLayout())
	h.apply(t, `{"hostname":"kitchen"}`)
	h.edit(t, "hostname", "hall")
	require.NoError(t, h.panel.Save())

	// the device echoes the saved state before the follow-up fires
	h.apply(t, `{"hostname":"hall","message":8}`)
	require.Equal(t, Counts{}, h.panel.Counts())

	h.prompter.answers = []bool{false}
	h.sched.fire()
	assert.Equal(t, []string{FollowUpReset.Prompt()}, h.prompter.questions)
	assert.Equal(t, []string{"Changes saved"}, h.prompter.notes)
}

func TestSaveValidation(t *testing.T) {
	t.Run("password mismatch", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.edit(t, "adminPass1", "secret1")
		h.edit(t, "adminPass2", "secret2")

		err := h.panel.Save()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, protocol.MsgPasswordMismatch, verr.MessageID)
		assert.Empty(t, h.sender.sent)
		assert.Empty(t, h.sched.pending)
		assert.Equal(t, []string{"Passwords do not match!"}, h.prompter.notes)
	})

	t.Run("too many networks", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.apply(t, `{"maxNetworks":1,"wifi":[{"ssid":"a"},{"ssid":"b"}]}`)

		err := h.panel.Save()
		require.Error(t, err)
		assert.Empty(t, h.sender.sent)
		assert.Equal(t, []string{maxNetworksText}, h.prompter.notes)
	})

	t.Run("send failure", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.sender.err = errSend
		err := h.panel.Save()
		require.ErrorIs(t, err, errSend)
		assert.Empty(t, h.sched.pending)
	})
}

func TestSaveEntries(t *testing.T) {
	h := newHarness(smallLayout())
	h.apply(t, `{"useCSS":true,"relayStatus":[true],"wifi":[{"ssid":"a","pass":"1"},{"ssid":"b","pass":"2"}],"uptime":10}`)

	var names []string
	for _, e := range h.panel.SaveEntries() {
		names = append(names, e.Name)
		if e.Name == "useCSS" {
			assert.Equal(t, 1, e.Value)
		}
	}
	assert.Equal(t, []string{
		"hostname", "ledLabel", "mqttServer", "useCSS", "ntpServer1", "apiKey", "adminPass1", "adminPass2",
		"ssid", "pass", "ssid", "pass",
	}, names)
}

func TestSaveClearsOneShots(t *testing.T) {
	h := newHarness(DefaultLayout())
	h.apply(t, `{"powVisible":1,"pwrExpectedP":"60","pwrResetCalibration":1}`)
	h.edit(t, "pwrExpectedC", "0.27")

	require.NoError(t, h.panel.Save())
	values := entryValues(h.sender.commands(t)[0])
	assert.Equal(t, "0.27", values["pwrExpectedC"])
	assert.Equal(t, json.Number("1"), values["pwrResetCalibration"])

	assert.Equal(t, "0", h.field(t, "pwrExpectedC").Value)
	assert.Equal(t, "0", h.field(t, "pwrExpectedP").Value)
	assert.False(t, h.field(t, "pwrResetCalibration").Checked)
}

func TestSavePassword(t *testing.T) {
	h := newHarness(DefaultLayout())
	h.apply(t, `{"webMode":1}`)
	h.edit(t, "adminPass1", "Secret1")
	h.edit(t, "adminPass2", "Secret1")

	require.NoError(t, h.panel.SavePassword())
	cmds := h.sender.commands(t)
	require.Len(t, cmds, 1)
	assert.Equal(t, []protocol.ConfigEntry{
		{Name: "adminPass1", Value: "Secret1"},
		{Name: "adminPass2", Value: "Secret1"},
	}, cmds[0].Config)
	assert.Empty(t, h.sched.pending)

	h.edit(t, "adminPass2", "other")
	assert.Error(t, h.panel.SavePassword())
	assert.Len(t, h.sender.sent, 1)
}

func TestResetAndReconnect(t *testing.T) {
	type call func(p *Panel, ask bool) error
	reset := func(p *Panel, ask bool) error { return p.Reset(ask) }
	reconnect := func(p *Panel, ask bool) error { return p.Reconnect(ask) }

	tests := []struct {
		name       string
		call       call
		ask        bool
		answers    []bool
		wantErr    error
		wantAction string
	}{
		{name: "reset confirmed", call: reset, ask: true, answers: []bool{true}, wantAction: protocol.ActionReset},
		{name: "reset without asking", call: reset, wantAction: protocol.ActionReset},
		{name: "reset declined", call: reset, ask: true, answers: []bool{false}, wantErr: ErrCancelled},
		{name: "reconnect confirmed", call: reconnect, ask: true, answers: []bool{true}, wantAction: protocol.ActionReconnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(smallLayout())
			h.prompter.answers = tt.answers

			err := tt.call(h.panel, tt.ask)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, h.sender.sent)
				return
			}
			require.NoError(t, err)
			cmds := h.sender.commands(t)
			require.Len(t, cmds, 1)
			assert.Equal(t, tt.wantAction, cmds[0].Action)
			assert.Equal(t, []time.Duration{RestartReloadDelay}, h.sched.delays())

			h.sched.fire()
			assert.Equal(t, 1, h.reloader.reloads)
		})
	}
}

func TestResetWithUnsavedChanges(t *testing.T) {
	t.Run("save first", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.edit(t, "mqttServer", "broker")
		h.prompter.answers = []bool{true}

		require.NoError(t, h.panel.Reset(true))
		cmds := h.sender.commands(t)
		require.Len(t, cmds, 1)
		assert.True(t, cmds[0].IsSave(), "the save replaces the reset")
		assert.Equal(t, []string{unsavedChangesText}, h.prompter.questions)
	})

	t.Run("discard and reset", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.edit(t, "mqttServer", "broker")
		h.prompter.answers = []bool{false, true}

		require.NoError(t, h.panel.Reset(true))
		cmds := h.sender.commands(t)
		require.Len(t, cmds, 1)
		assert.Equal(t, protocol.ActionReset, cmds[0].Action)
		assert.Equal(t, []string{unsavedChangesText, confirmResetText}, h.prompter.questions)
	})

	t.Run("inside the save window", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.apply(t, `{"hostname":"kitchen"}`)
		h.edit(t, "hostname", "hall")
		require.NoError(t, h.panel.Save())
		assert.False(t, h.panel.Unsaved())

		h.prompter.answers = []bool{true}
		require.NoError(t, h.panel.Reset(true))

		cmds := h.sender.commands(t)
		require.Len(t, cmds, 2)
		assert.True(t, cmds[0].IsSave())
		assert.Equal(t, protocol.ActionReset, cmds[1].Action)
		assert.Equal(t, []string{confirmResetText}, h.prompter.questions)
	})

	t.Run("edited again after save", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.apply(t, `{"hostname":"kitchen"}`)
		h.edit(t, "hostname", "hall")
		require.NoError(t, h.panel.Save())
		h.edit(t, "mqttServer", "broker")
		assert.True(t, h.panel.Unsaved())

		h.prompter.answers = []bool{true}
		require.NoError(t, h.panel.Reset(true))

		cmds := h.sender.commands(t)
		require.Len(t, cmds, 2)
		assert.True(t, cmds[1].IsSave())
		assert.Equal(t, []string{unsavedChangesText}, h.prompter.questions)
	})

	t.Run("after the follow-up", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.edit(t, "mqttServer", "broker")
		require.NoError(t, h.panel.Save())
		h.prompter.answers = []bool{false}
		h.sched.fire()
		require.False(t, h.panel.Unsaved())

		h.edit(t, "mqttServer", "other")
		assert.True(t, h.panel.Unsaved())
	})
}

func TestRestore(t *testing.T) {
	t.Run("valid backup", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.prompter.answers = []bool{true}

		require.NoError(t, h.panel.Restore([]byte(`{"app":"ESPURNA","hostname":"kitchen"}`)))
		cmds := h.sender.commands(t)
		require.Len(t, cmds, 1)
		assert.Equal(t, protocol.ActionRestore, cmds[0].Action)

		var data map[string]any
		require.NoError(t, cmds[0].DecodeData(&data))
		assert.Equal(t, "kitchen", data["hostname"])
	})

	t.Run("invalid backup", func(t *testing.T) {
		h := newHarness(smallLayout())
		h.prompter.answers = []bool{true}

		err := h.panel.Restore([]byte(`not json`))
		require.ErrorIs(t, err, ErrInvalidBackup)
		assert.Empty(t, h.sender.sent)
		text, _ := protocol.MessageText(protocol.MsgInvalidBackup)
		assert.Equal(t, []string{text}, h.prompter.notes)
	})

	t.Run("declined", func(t *testing.T) {
		h := newHarness(smallLayout())
		err := h.panel.Restore([]byte(`{}`))
		require.ErrorIs(t, err, ErrCancelled)
		assert.Equal(t, []string{confirmRestoreText}, h.prompter.questions)
		assert.Empty(t, h.sender.sent)
	})
}

func TestToggleRelay(t *testing.T) {
	h := newHarness(smallLayout())
	h.apply(t, `{"relayStatus":[false,false]}`)

	require.NoError(t, h.panel.ToggleRelay(1, true))
	assert.True(t, h.field(t, "relayStatus#1").Checked)
	assert.Equal(t, Counts{}, h.panel.Counts(), "relay toggles are not form changes")

	cmds := h.sender.commands(t)
	require.Len(t, cmds, 1)
	assert.Equal(t, protocol.ActionRelay, cmds[0].Action)
	var data protocol.RelayData
	require.NoError(t, cmds[0].DecodeData(&data))
	assert.Equal(t, protocol.RelayData{ID: 1, Status: 1}, data)

	assert.ErrorIs(t, h.panel.ToggleRelay(5, true), ErrUnknownField)
}

func TestLightControls(t *testing.T) {
	h := newHarness(DefaultLayout())
	h.apply(t, `{"rgb":"#000000","brightness":10,"channels":[0,0,0,0]}`)

	require.NoError(t, h.panel.SetColor("#ff0000"))
	require.NoError(t, h.panel.SetBrightness(128))
	require.NoError(t, h.panel.SetChannel(3, 42))
	assert.ErrorIs(t, h.panel.SetChannel(0, 1), ErrUnknownField, "color channels have no slider")

	cmds := h.sender.commands(t)
	require.Len(t, cmds, 3)

	var color protocol.ColorData
	require.NoError(t, cmds[0].DecodeData(&color))
	assert.Equal(t, "#ff0000", color.RGB)

	require.NoError(t, cmds[1].DecodeData(&color))
	require.NotNil(t, color.Brightness)
	assert.Equal(t, 128, *color.Brightness)

	var ch protocol.ChannelData
	require.NoError(t, cmds[2].DecodeData(&ch))
	assert.Equal(t, protocol.ChannelData{ID: 3, Value: 42}, ch)
	for _, f := range h.panel.Registry().LookupAll("channel", 3) {
		assert.Equal(t, "42", f.Value)
	}
}

func TestRfbControls(t *testing.T) {
	h := newHarness(DefaultLayout())
	h.apply(t, `{"rfbCount":1,"rfb":[{"id":0,"status":1,"data":"C0FFEE"}]}`)

	require.NoError(t, h.panel.RfbLearn(0, 0))
	require.NoError(t, h.panel.RfbForget(0, 1))
	require.NoError(t, h.panel.RfbSend(0, 1))
	assert.ErrorIs(t, h.panel.RfbSend(3, 1), ErrUnknownField)

	cmds := h.sender.commands(t)
	require.Len(t, cmds, 3)
	assert.Equal(t, protocol.ActionRfbLearn, cmds[0].Action)
	assert.Equal(t, protocol.ActionRfbForget, cmds[1].Action)
	assert.Equal(t, protocol.ActionRfbSend, cmds[2].Action)

	var data protocol.RfbData
	require.NoError(t, cmds[2].DecodeData(&data))
	assert.Equal(t, protocol.RfbData{ID: 0, Status: 1, Code: "C0FFEE"}, data)
}

func TestEdit(t *testing.T) {
	h := newHarness(DefaultLayout())

	assert.ErrorIs(t, h.panel.Edit(FieldKey{Name: "nope", Index: -1}, "x"), ErrUnknownField)
	assert.ErrorIs(t, h.panel.Edit(FieldKey{Name: "uptime", Index: -1}, "x"), ErrReadOnly)

	var verr *ValidationError
	assert.ErrorAs(t, h.panel.Edit(FieldKey{Name: "ledMode", Index: -1}, "7"), &verr)
	assert.Error(t, h.panel.Edit(FieldKey{Name: "wsAuth", Index: -1}, "maybe"))

	for _, v := range []string{"on", "YES", "true", "1"} {
		require.NoError(t, h.panel.Edit(FieldKey{Name: "wsAuth", Index: -1}, v))
		assert.True(t, h.field(t, "wsAuth").Checked, v)
	}
	require.NoError(t, h.panel.Edit(FieldKey{Name: "wsAuth", Index: -1}, "off"))
	assert.False(t, h.field(t, "wsAuth").Checked)

	require.NoError(t, h.panel.Edit(FieldKey{Name: "ledMode", Index: -1}, "2"))
	assert.Equal(t, "2", h.field(t, "ledMode").Value)
}

func TestNetworks(t *testing.T) {
	h := newHarness(smallLayout())
	h.apply(t, `{"maxNetworks":2,"wifi":[{"ssid":"home","pass":"x"}]}`)

	require.NoError(t, h.panel.AddNetwork())
	assert.Equal(t, 2, h.panel.Registry().Group(GroupNetworks).Len())
	assert.Equal(t, 210, h.field(t, "ssid#1").TabIndex)

	err := h.panel.AddNetwork()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{maxNetworksText}, h.prompter.notes)

	h.edit(t, "ssid#0", "renamed")
	require.Equal(t, 1, h.panel.Counts().Reconnect)
	require.NoError(t, h.panel.DeleteNetwork(0))
	assert.Equal(t, Counts{}, h.panel.Counts())
	assert.Equal(t, 200, h.field(t, "ssid#0").TabIndex)
	assert.Error(t, h.panel.DeleteNetwork(4))
}

func TestRegenerateAPIKey(t *testing.T) {
	h := newHarness(smallLayout())
	h.apply(t, `{"apiKey":"0000000000000000"}`)

	key, err := h.panel.RegenerateAPIKey()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-F]{16}$`, key)
	assert.Equal(t, key, h.field(t, "apiKey").Value)
	assert.Equal(t, 1, h.panel.Counts().Total)
}

func TestUpgradeFinished(t *testing.T) {
	h := newHarness(smallLayout())
	h.panel.UpgradeFinished(UploadSuccessToken)
	assert.Equal(t, []string{uploadOKText}, h.prompter.notes)
	assert.Equal(t, []time.Duration{RestartReloadDelay}, h.sched.delays())

	h = newHarness(smallLayout())
	h.panel.UpgradeFinished("Error: bad magic")
	require.Len(t, h.prompter.notes, 1)
	assert.Contains(t, h.prompter.notes[0], "(Error: bad magic)")
	assert.Empty(t, h.sched.pending)
}

func TestNoConnection(t *testing.T) {
	p := New(Options{Layout: smallLayout()})
	err := p.ToggleRelay(0, true)
	assert.ErrorIs(t, err, ErrUnknownField)

	p.Apply(protocol.Update{"relayStatus": []any{false}})
	err = p.ToggleRelay(0, true)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownField))
}

func TestView(t *testing.T) {
	h := newHarness(DefaultLayout())
	h.apply(t, `{"app_name":"ESPURNA","hostname":"kitchen","wifi":[{"ssid":"home"}],"mqttVisible":1}`)
	h.edit(t, "hostname", "hall")

	v := h.panel.View()
	assert.Equal(t, "ESPURNA", v.Title.Heading)
	assert.Equal(t, "config", v.Mode)
	assert.Equal(t, Counts{Total: 1, Reset: 1}, v.Counts)
	assert.Contains(t, v.Modules, "mqtt")

	byKey := make(map[string]FieldView)
	for _, f := range v.Fields {
		byKey[f.Key] = f
	}
	assert.Contains(t, byKey, "mqttServer")
	assert.NotContains(t, byKey, "ntpServer1", "hidden module")
	assert.True(t, byKey["hostname"].Dirty)
	assert.Equal(t, "Network SSID 1", byKey["ssid#0"].Label)
	assert.Equal(t, FieldKey{Name: "ssid", Index: 0}, byKey["ssid#0"].FieldKey())
}

func TestSettings(t *testing.T) {
	h := newHarness(smallLayout())
	h.apply(t, `{"hostname":"kitchen","useCSS":1,"wifi":[{"ssid":"a"},{"ssid":"b"}],"relayStatus":[true]}`)

	s := h.panel.Settings()
	assert.Equal(t, "kitchen", s["hostname"])
	assert.Equal(t, true, s["useCSS"])
	assert.Equal(t, []any{"a", "b"}, s["ssid"])
	assert.NotContains(t, s, "relayStatus")
	assert.NotContains(t, s, "uptime")
}
