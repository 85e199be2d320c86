// Package events carries structured control-loop events to their sinks. Producers
// never format messages; sinks decide how an event is rendered.
package events

import (
	"time"

	"github.com/thatsimonsguy/hydro-controller/internal/model"
)

type Kind string

const (
	KindDaemonStart  Kind = "daemon_start"
	KindTimezoneSet  Kind = "timezone_set"
	KindDeviceOpened Kind = "device_opened"
	KindRelayState   Kind = "relay_state"
	KindBusError     Kind = "bus_error"
	KindShutdown     Kind = "shutdown"
	KindAllOffFailed Kind = "all_off_failed"
)

type Event struct {
	Time   time.Time
	Kind   Kind
	Zone   string
	Group  model.Group
	Relays []int
	On     bool
	Tick   uint64

	// Detail carries kind-specific context such as the timezone name, the device
	// address, the register state after a bus error, or the shutdown reason.
	Detail string
	Err    error
}

// Abnormal reports events that leave the rig needing attention.
func (e Event) Abnormal() bool {
	switch e.Kind {
	case KindBusError, KindAllOffFailed:
		return true
	case KindShutdown:
		return e.Err != nil
	}
	return false
}

type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

// Fanout delivers each event to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder keeps every event in memory, for tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// Kinds returns the kind of each recorded event in order.
func (r *Recorder) Kinds() []Kind {
	out := make([]Kind, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Kind
	}
	return out
}
