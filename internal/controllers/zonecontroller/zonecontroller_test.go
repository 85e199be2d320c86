package zonecontroller

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/hydro-controller/internal/events"
	"github.com/thatsimonsguy/hydro-controller/internal/model"
	"github.com/thatsimonsguy/hydro-controller/internal/relay"
)

var testZone = model.ZoneConfig{
	ID:          "tray-a",
	LightRelays: model.NewRelaySet(1),
	Light:       model.Window{OnHour: 8, OffHour: 20},
	PumpRelays:  model.NewRelaySet(2, 3),
	Pump:        model.DutyCycle{OnTicks: 2, OffTicks: 3},
}

func newBank(t *testing.T) (*relay.Bank, *relay.FakeBus) {
	t.Helper()
	bus := relay.NewFakeBus()
	bank, err := relay.NewBank(bus, relay.Config{})
	require.NoError(t, err)
	return bank, bus
}

func TestStep_AppliesDecision(t *testing.T) {
	bank, bus := newBank(t)
	z := New(testZone)
	rec := &events.Recorder{}

	d, err := z.Step(bank, 19, 0, time.Now(), rec)
	require.NoError(t, err)

	assert.True(t, d.LightOn)
	assert.True(t, d.PumpOn)
	// light on clears bit 1, pump on clears bits 2 and 3
	assert.Equal(t, byte(0xF8), bank.Mask())
	assert.Equal(t, []byte{0xFF, 0xFE, 0xF8}, bus.Values())
	assert.Equal(t, 1, z.Runtime.PumpPhase)
}

func TestStep_LightWindowEdge(t *testing.T) {
	bank, _ := newBank(t)
	z := New(testZone)

	_, err := z.Step(bank, 19, 0, time.Now(), events.Discard)
	require.NoError(t, err)
	assert.Zero(t, bank.Mask()&0x01, "light relay should be energized at hour 19")

	_, err = z.Step(bank, 20, 1, time.Now(), events.Discard)
	require.NoError(t, err)
	assert.NotZero(t, bank.Mask()&0x01, "light relay should be released at hour 20")
}

func TestStep_PumpSequence(t *testing.T) {
	bank, _ := newBank(t)
	z := New(testZone)

	var pump []bool
	for tick := uint64(0); tick < 10; tick++ {
		_, err := z.Step(bank, 12, tick, time.Now(), events.Discard)
		require.NoError(t, err)
		pump = append(pump, bank.Mask()&0x06 == 0)
	}

	assert.Equal(t, []bool{true, true, false, false, false, true, true, false, false, false}, pump)
}

func TestStep_EmitsOnlyTransitions(t *testing.T) {
	bank, _ := newBank(t)
	z := New(testZone)
	rec := &events.Recorder{}

	for tick := uint64(0); tick < 3; tick++ {
		_, err := z.Step(bank, 12, tick, time.Now(), rec)
		require.NoError(t, err)
	}

	require.Len(t, rec.Events, 3)
	assert.Equal(t, model.GroupLight, rec.Events[0].Group)
	assert.True(t, rec.Events[0].On)
	assert.Equal(t, model.GroupPump, rec.Events[1].Group)
	assert.True(t, rec.Events[1].On)
	assert.Equal(t, []int{2, 3}, rec.Events[1].Relays)
	assert.Equal(t, model.GroupPump, rec.Events[2].Group)
	assert.False(t, rec.Events[2].On)
	assert.Equal(t, uint64(2), rec.Events[2].Tick)
	assert.Equal(t, "tray-a", rec.Events[2].Zone)
}

func TestStep_SkipsEmptyGroups(t *testing.T) {
	bank, bus := newBank(t)
	z := New(model.ZoneConfig{ID: "pump-only", PumpRelays: model.NewRelaySet(4), Pump: model.DutyCycle{OnTicks: 1}})
	rec := &events.Recorder{}

	_, err := z.Step(bank, 12, 0, time.Now(), rec)
	require.NoError(t, err)

	assert.Len(t, bus.Writes(), 2)
	require.Len(t, rec.Events, 1)
	assert.Equal(t, model.GroupPump, rec.Events[0].Group)
}

func TestStep_DegenerateCycleStaysOff(t *testing.T) {
	bank, _ := newBank(t)
	z := New(model.ZoneConfig{ID: "idle", PumpRelays: model.NewRelaySet(2)})

	for tick := uint64(0); tick < 5; tick++ {
		d, err := z.Step(bank, 12, tick, time.Now(), events.Discard)
		require.NoError(t, err)
		assert.False(t, d.PumpOn)
		assert.Equal(t, 0, z.Runtime.PumpPhase)
	}
	assert.NotZero(t, bank.Mask()&0x02)
}

func TestStep_BusErrorDoesNotAdvance(t *testing.T) {
	bank, bus := newBank(t)
	bus.Err = errors.New("nack")
	z := New(testZone)
	rec := &events.Recorder{}

	_, err := z.Step(bank, 12, 0, time.Now(), rec)

	var busErr *relay.BusError
	require.ErrorAs(t, err, &busErr)
	assert.Contains(t, err.Error(), "tray-a light")
	assert.Equal(t, 0, z.Runtime.PumpPhase)
	assert.Empty(t, rec.Events)
}
