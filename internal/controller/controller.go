// Package controller runs the tick-driven control loop and owns its fail-safe exit.
//
// States move Starting → Settling → Running → ShuttingDown → Terminated. Every way out
// of Run, whether cancellation, a bus error or a panic, passes through ShuttingDown
// and its all-off write.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/internal/controllers/zonecontroller"
	"github.com/thatsimonsguy/hydro-controller/internal/datadog"
	"github.com/thatsimonsguy/hydro-controller/internal/events"
	"github.com/thatsimonsguy/hydro-controller/internal/model"
	"github.com/thatsimonsguy/hydro-controller/system/shutdown"
)

const (
	DefaultTick   = 60 * time.Second
	DefaultSettle = 5 * time.Second
)

// ErrFault wraps a panic recovered from the loop.
var ErrFault = errors.New("control loop fault")

type State int

const (
	Starting State = iota
	Settling
	Running
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Settling:
		return "settling"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting_down"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Bank is the relay bank as the loop sees it.
type Bank interface {
	zonecontroller.Relays
	AllOff() error
	Mask() byte
	Trusted() bool
}

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Options struct {
	Tick   time.Duration
	Settle time.Duration

	// Location sets the timezone for hour-of-day decisions; nil uses time.Local.
	Location *time.Location
	Clock    Clock
	Sink     events.Sink
}

type Loop struct {
	bank  Bank
	zones []*zonecontroller.Zone
	opts  Options

	state   State
	history []State
	tick    uint64

	// pending holds fault events until the relays have been released.
	pending []events.Event
}

// New builds a loop in the Starting state with every zone's runtime at phase 0.
func New(bank Bank, zones []model.ZoneConfig, opts Options) *Loop {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Sink == nil {
		opts.Sink = events.Discard
	}

	l := &Loop{bank: bank, opts: opts}
	for _, z := range zones {
		l.zones = append(l.zones, zonecontroller.New(z))
	}
	l.setState(Starting)
	return l
}

func (l *Loop) State() State {
	return l.state
}

// Ticks is the number of completed ticks.
func (l *Loop) Ticks() uint64 {
	return l.tick
}

func (l *Loop) Zones() []*zonecontroller.Zone {
	return l.zones
}

// Run settles the relays and drives the zones until ctx is cancelled or a fatal error
// occurs. It returns nil after a requested stop with a successful all-off.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFault, r)
		}
		l.setState(ShuttingDown)
		err = shutdown.Shutdown(l.bank, l.opts.Sink, err, l.pending...)
		l.pending = nil
		l.setState(Terminated)
	}()

	l.setState(Settling)
	if err := l.bank.AllOff(); err != nil {
		return l.busError("", err)
	}
	if !l.sleep(ctx, l.opts.Settle) {
		return nil
	}

	l.setState(Running)
	for {
		if err := l.runTick(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
		l.tick++
		datadog.Gauge("loop.tick", float64(l.tick))

		if !l.sleep(ctx, l.opts.Tick) {
			return nil
		}
	}
}

func (l *Loop) runTick(ctx context.Context) error {
	now := l.opts.Clock.Now()
	if l.opts.Location != nil {
		now = now.In(l.opts.Location)
	}
	hour := now.Hour()

	log.Debug().Uint64("tick", l.tick).Int("hour", hour).Msg("Evaluating zones")

	for _, z := range l.zones {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := z.Step(l.bank, hour, l.tick, now, l.opts.Sink); err != nil {
			return l.busError(z.Config.ID, err)
		}
	}
	return nil
}

// busError queues a bus_error event for delivery after the shutdown all-off.
func (l *Loop) busError(zone string, err error) error {
	detail := fmt.Sprintf("mask 0x%02X", l.bank.Mask())
	if !l.bank.Trusted() {
		detail += " untrusted"
	}
	l.pending = append(l.pending, events.Event{
		Time:   l.opts.Clock.Now(),
		Kind:   events.KindBusError,
		Zone:   zone,
		Tick:   l.tick,
		Detail: detail,
		Err:    err,
	})
	return err
}

// sleep reports false when ctx ended first.
func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-l.opts.Clock.After(d):
		return true
	}
}

func (l *Loop) setState(s State) {
	l.state = s
	l.history = append(l.history, s)
	log.Debug().Str("state", s.String()).Msg("Control loop state")
}
