package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/hydro-controller/internal/model"
)

func TestFanout(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	fan := Fanout{a, nil, b}

	fan.Emit(Event{Kind: KindDaemonStart})
	fan.Emit(Event{Kind: KindShutdown})

	assert.Equal(t, []Kind{KindDaemonStart, KindShutdown}, a.Kinds())
	assert.Equal(t, a.Events, b.Events)
}

func TestAbnormal(t *testing.T) {
	assert.False(t, Event{Kind: KindRelayState}.Abnormal())
	assert.False(t, Event{Kind: KindShutdown}.Abnormal())
	assert.True(t, Event{Kind: KindShutdown, Err: errors.New("bus")}.Abnormal())
	assert.True(t, Event{Kind: KindBusError}.Abnormal())
	assert.True(t, Event{Kind: KindAllOffFailed}.Abnormal())
}

func TestLogSink_RelayStateFields(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	LogSink{}.Emit(Event{
		Kind:   KindRelayState,
		Zone:   "tray-a",
		Group:  model.GroupPump,
		Relays: []int{2, 3},
		On:     true,
		Tick:   7,
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "relay_state", line["event"])
	assert.Equal(t, "tray-a", line["zone"])
	assert.Equal(t, "pump", line["group"])
	assert.Equal(t, []any{2.0, 3.0}, line["relays"])
	assert.Equal(t, true, line["on"])
	assert.Equal(t, 7.0, line["tick"])
	assert.Equal(t, "Relay group on", line["message"])
}

func TestLogSink_ShutdownWithError(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	LogSink{}.Emit(Event{Kind: KindShutdown, Detail: "bus error", Err: errors.New("nack")})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "nack", line["error"])
	assert.Equal(t, "bus error", line["detail"])
}
