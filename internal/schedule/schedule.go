// Package schedule decides the desired light and pump state of a zone for one tick.
//
// Light windows are half-open and do not wrap: a window of on_hour=22, off_hour=6 is
// off at every hour. This is a known limitation kept on purpose.
package schedule

import "github.com/thatsimonsguy/hydro-controller/internal/model"

// Decision is a zone's desired state for one tick.
type Decision struct {
	LightOn bool
	PumpOn  bool
}

// LightOn reports whether hour falls inside [OnHour, OffHour).
func LightOn(w model.Window, hour int) bool {
	return w.OnHour <= hour && hour < w.OffHour
}

// PumpOn reports whether phase falls in the on part of the cycle. A degenerate cycle is
// always off.
func PumpOn(d model.DutyCycle, phase int) bool {
	if d.Degenerate() {
		return false
	}
	return phase < d.OnTicks
}

// Evaluate computes the decision for a zone from its pre-advance runtime.
func Evaluate(z model.ZoneConfig, rt Runtime, hour int) Decision {
	return Decision{
		LightOn: LightOn(z.Light, hour),
		PumpOn:  PumpOn(z.Pump, rt.PumpPhase),
	}
}
