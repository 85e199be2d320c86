package zonecontroller

import (
	"fmt"
	"time"

	"github.com/thatsimonsguy/hydro-controller/internal/datadog"
	"github.com/thatsimonsguy/hydro-controller/internal/events"
	"github.com/thatsimonsguy/hydro-controller/internal/model"
	"github.com/thatsimonsguy/hydro-controller/internal/schedule"
)

// Relays is the part of the relay bank a zone drives.
type Relays interface {
	On(model.RelaySet) error
	Off(model.RelaySet) error
}

// Zone pairs an immutable zone config with its runtime state.
type Zone struct {
	Config  model.ZoneConfig
	Runtime schedule.Runtime

	last *schedule.Decision
}

func New(cfg model.ZoneConfig) *Zone {
	return &Zone{Config: cfg}
}

// Step applies this tick's decision through relays and then advances the runtime.
// Transition events are emitted only when a group's state changes; the relays are
// written every tick regardless.
func (z *Zone) Step(relays Relays, hour int, tick uint64, now time.Time, sink events.Sink) (schedule.Decision, error) {
	d := schedule.Evaluate(z.Config, z.Runtime, hour)

	if err := apply(relays, z.Config.LightRelays, d.LightOn); err != nil {
		return d, fmt.Errorf("zone %s light: %w", z.Config.ID, err)
	}
	if err := apply(relays, z.Config.PumpRelays, d.PumpOn); err != nil {
		return d, fmt.Errorf("zone %s pump: %w", z.Config.ID, err)
	}

	z.report(sink, d, tick, now)
	z.Runtime.Advance(z.Config.Pump)
	return d, nil
}

func apply(relays Relays, set model.RelaySet, on bool) error {
	if set.Empty() {
		return nil
	}
	if on {
		return relays.On(set)
	}
	return relays.Off(set)
}

func (z *Zone) report(sink events.Sink, d schedule.Decision, tick uint64, now time.Time) {
	groups := []struct {
		group  model.Group
		relays model.RelaySet
		on     bool
		prev   func(schedule.Decision) bool
	}{
		{model.GroupLight, z.Config.LightRelays, d.LightOn, func(p schedule.Decision) bool { return p.LightOn }},
		{model.GroupPump, z.Config.PumpRelays, d.PumpOn, func(p schedule.Decision) bool { return p.PumpOn }},
	}

	for _, g := range groups {
		if g.relays.Empty() {
			continue
		}
		datadog.Gauge("zone.relay_state", boolGauge(g.on), "zone:"+z.Config.ID, "group:"+string(g.group))
		if z.last != nil && g.prev(*z.last) == g.on {
			continue
		}
		sink.Emit(events.Event{
			Time:   now,
			Kind:   events.KindRelayState,
			Zone:   z.Config.ID,
			Group:  g.group,
			Relays: g.relays.Ints(),
			On:     g.on,
			Tick:   tick,
		})
	}
	z.last = &d
}

func boolGauge(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
