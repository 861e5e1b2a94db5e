package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/espcfg/internal/logging"
)

func TestDispatcher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	var saved []ConfigEntry
	var relay RelayData
	d := NewDispatcher(func(entries []ConfigEntry) error {
		saved = entries
		return nil
	})
	d.Handle(ActionRelay, func(cmd *Command) error {
		return cmd.DecodeData(&relay)
	})

	require.NoError(t, d.Dispatch("test", []byte(`{"config":[{"name":"hostname","value":"A"}]}`)))
	assert.Equal(t, []ConfigEntry{{Name: "hostname", Value: "A"}}, saved)

	require.NoError(t, d.Dispatch("test", []byte(`{"action":"relay","data":{"id":2,"status":0}}`)))
	assert.Equal(t, RelayData{ID: 2, Status: 0}, relay)

	err := d.Dispatch("test", []byte(`{"action":"dance"}`))
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Unknown action").Len())

	err = d.Dispatch("test", []byte(`garbage`))
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, 1, logs.FilterMessage("Dropping undecodable command").Len())
}
