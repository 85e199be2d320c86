package events

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink renders events through the global zerolog logger.
type LogSink struct{}

func (LogSink) Emit(e Event) {
	var ev *zerolog.Event
	if e.Abnormal() {
		ev = log.Error()
	} else {
		ev = log.Info()
	}

	ev = ev.Str("event", string(e.Kind))
	if e.Zone != "" {
		ev = ev.Str("zone", e.Zone)
	}
	if e.Group != "" {
		ev = ev.Str("group", string(e.Group)).Ints("relays", e.Relays).Bool("on", e.On)
	}
	if e.Kind == KindRelayState || e.Kind == KindBusError {
		ev = ev.Uint64("tick", e.Tick)
	}
	if e.Detail != "" {
		ev = ev.Str("detail", e.Detail)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}

	ev.Msg(message(e))
}

func message(e Event) string {
	switch e.Kind {
	case KindDaemonStart:
		return "Hydro daemon started"
	case KindTimezoneSet:
		return "Timezone set"
	case KindDeviceOpened:
		return "Relay device opened"
	case KindRelayState:
		if e.On {
			return "Relay group on"
		}
		return "Relay group off"
	case KindBusError:
		return "Relay bus write failed"
	case KindShutdown:
		return "Shutting down, releasing all relays"
	case KindAllOffFailed:
		return "Final all-off write failed, relay state unknown"
	}
	return string(e.Kind)
}
