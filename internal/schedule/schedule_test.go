package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/hydro-controller/internal/model"
)

func TestLightOn(t *testing.T) {
	tests := []struct {
		name   string
		window model.Window
		hour   int
		want   bool
	}{
		{"before window", model.Window{OnHour: 8, OffHour: 20}, 7, false},
		{"at on hour", model.Window{OnHour: 8, OffHour: 20}, 8, true},
		{"inside window", model.Window{OnHour: 8, OffHour: 20}, 19, true},
		{"at off hour", model.Window{OnHour: 8, OffHour: 20}, 20, false},
		{"after window", model.Window{OnHour: 8, OffHour: 20}, 23, false},
		{"midnight start", model.Window{OnHour: 0, OffHour: 1}, 0, true},
		{"crossing midnight late", model.Window{OnHour: 22, OffHour: 6}, 23, false},
		{"crossing midnight early", model.Window{OnHour: 22, OffHour: 6}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LightOn(tt.window, tt.hour))
		})
	}
}

func TestLightOn_AllHours(t *testing.T) {
	windows := []model.Window{
		{OnHour: 8, OffHour: 20},
		{OnHour: 0, OffHour: 23},
		{OnHour: 6, OffHour: 6},
		{OnHour: 22, OffHour: 6},
		{OnHour: 23, OffHour: 23},
	}

	for _, w := range windows {
		for h := 0; h < 24; h++ {
			assert.Equal(t, w.OnHour <= h && h < w.OffHour, LightOn(w, h), "window %+v hour %d", w, h)
		}
	}
}

func TestLightOn_EqualBoundsNeverOn(t *testing.T) {
	for bound := 0; bound < 24; bound++ {
		for h := 0; h < 24; h++ {
			assert.False(t, LightOn(model.Window{OnHour: bound, OffHour: bound}, h))
		}
	}
}

func TestPumpOn(t *testing.T) {
	cycle := model.DutyCycle{OnTicks: 2, OffTicks: 3}

	assert.True(t, PumpOn(cycle, 0))
	assert.True(t, PumpOn(cycle, 1))
	assert.False(t, PumpOn(cycle, 2))
	assert.False(t, PumpOn(cycle, 4))
	assert.False(t, PumpOn(model.DutyCycle{}, 0))
}

func TestDutyCycleSequence(t *testing.T) {
	cycle := model.DutyCycle{OnTicks: 2, OffTicks: 3}
	zone := model.ZoneConfig{ID: "a", Pump: cycle}
	rt := Runtime{}

	var got []bool
	for tick := 0; tick < 10; tick++ {
		got = append(got, Evaluate(zone, rt, 12).PumpOn)
		rt.Advance(cycle)
	}

	assert.Equal(t, []bool{true, true, false, false, false, true, true, false, false, false}, got)
}

func TestDutyCycleCounts(t *testing.T) {
	cycles := []model.DutyCycle{
		{OnTicks: 1, OffTicks: 0},
		{OnTicks: 0, OffTicks: 4},
		{OnTicks: 3, OffTicks: 7},
		{OnTicks: 15, OffTicks: 45},
	}

	for _, cycle := range cycles {
		rt := Runtime{}
		// start mid-cycle; any window of one period must hold the same counts
		for i := 0; i < cycle.Period()/2; i++ {
			rt.Advance(cycle)
		}

		on, off := 0, 0
		for tick := 0; tick < cycle.Period(); tick++ {
			if PumpOn(cycle, rt.PumpPhase) {
				on++
			} else {
				off++
			}
			rt.Advance(cycle)
			assert.GreaterOrEqual(t, rt.PumpPhase, 0)
			assert.Less(t, rt.PumpPhase, cycle.Period())
		}

		assert.Equal(t, cycle.OnTicks, on, "cycle %+v", cycle)
		assert.Equal(t, cycle.OffTicks, off, "cycle %+v", cycle)
	}
}

func TestDegenerateCycle(t *testing.T) {
	cycle := model.DutyCycle{}
	rt := Runtime{}

	for tick := 0; tick < 100; tick++ {
		assert.False(t, PumpOn(cycle, rt.PumpPhase))
		rt.Advance(cycle)
		assert.Equal(t, 0, rt.PumpPhase)
	}
}

func TestEvaluate_UsesPreAdvancePhase(t *testing.T) {
	cycle := model.DutyCycle{OnTicks: 1, OffTicks: 1}
	zone := model.ZoneConfig{Light: model.Window{OnHour: 8, OffHour: 20}, Pump: cycle}
	rt := Runtime{PumpPhase: 0}

	d := Evaluate(zone, rt, 19)
	rt.Advance(cycle)

	assert.Equal(t, Decision{LightOn: true, PumpOn: true}, d)
	assert.Equal(t, Decision{LightOn: false, PumpOn: false}, Evaluate(zone, rt, 20))
}
