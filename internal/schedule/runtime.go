package schedule

import "github.com/thatsimonsguy/hydro-controller/internal/model"

// Runtime is the mutable per-zone state. PumpPhase stays in [0, period) and is 0 for a
// degenerate cycle.
type Runtime struct {
	PumpPhase int
}

// Advance moves the duty cycle forward one tick. Call it once per tick, after the
// decision for that tick has been read.
func (r *Runtime) Advance(d model.DutyCycle) {
	period := d.Period()
	if period <= 0 {
		r.PumpPhase = 0
		return
	}
	r.PumpPhase = (r.PumpPhase + 1) % period
}
