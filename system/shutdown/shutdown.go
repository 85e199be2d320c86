package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/internal/datadog"
	"github.com/thatsimonsguy/hydro-controller/internal/events"
)

// ExitFunc is swapped out by tests.
var ExitFunc = os.Exit

// Releaser is the fail-safe half of the relay bank.
type Releaser interface {
	AllOff() error
}

// Shutdown releases every relay, then reports. cause is nil for a requested stop.
// prior holds events raised on the way here that have not been delivered yet; they go
// out after the all-off write so no sink can delay it. A failing all-off is terminal:
// it is reported and joined into the returned error, never retried here.
func Shutdown(r Releaser, sink events.Sink, cause error, prior ...events.Event) error {
	allOffErr := release(r)
	datadog.Incr("loop.shutdown")

	for _, e := range prior {
		emit(sink, e)
	}
	emit(sink, events.Event{
		Time:   time.Now(),
		Kind:   events.KindShutdown,
		Detail: Reason(cause),
		Err:    cause,
	})

	if allOffErr != nil {
		emit(sink, events.Event{
			Time: time.Now(),
			Kind: events.KindAllOffFailed,
			Err:  allOffErr,
		})
		return errors.Join(cause, allOffErr)
	}
	return cause
}

// release runs the all-off write, turning a panic into an error.
func release(r Releaser) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("all-off panicked: %v", p)
		}
	}()
	return r.AllOff()
}

// emit delivers e, containing any panic raised by a sink.
func emit(sink events.Sink, e events.Event) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Interface("panic", p).
				Str("event", string(e.Kind)).
				Msg("Event sink panicked during shutdown")
		}
	}()
	sink.Emit(e)
}

// Reason names why the loop stopped.
func Reason(cause error) string {
	switch {
	case cause == nil, errors.Is(cause, context.Canceled):
		return "termination requested"
	default:
		return "fatal error"
	}
}

// Exit ends the process: status 0 after a clean shutdown, 1 otherwise.
func Exit(err error) {
	if err != nil {
		log.Error().Err(err).Msg("Exit.")
		ExitFunc(1)
		return
	}
	log.Info().Msg("Exit.")
	ExitFunc(0)
}
