// Package mqtt publishes control-loop events to a broker for dashboards. Publishing is
// best effort; a broker outage never affects relay control.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/internal/events"
)

const (
	DefaultTopic    = "hydro/events"
	DefaultClientID = "hydro-controller"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	Publish(e events.Event) error
	Close() error
}

// Payload is the JSON body of every event message.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Zone      string `json:"zone,omitempty"`
	Group     string `json:"group,omitempty"`
	Relays    []int  `json:"relays,omitempty"`
	On        *bool  `json:"on,omitempty"`
	Tick      uint64 `json:"tick,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

func FormatPayload(e events.Event) ([]byte, error) {
	p := Payload{
		Timestamp: e.Time.UTC().Format(time.RFC3339),
		Event:     string(e.Kind),
		Zone:      e.Zone,
		Group:     string(e.Group),
		Relays:    e.Relays,
		Tick:      e.Tick,
		Detail:    e.Detail,
	}
	if e.Kind == events.KindRelayState {
		on := e.On
		p.On = &on
	}
	if e.Err != nil {
		p.Error = e.Err.Error()
	}
	return json.Marshal(p)
}

// Subtopic is the topic an event of kind is published under.
func Subtopic(base string, kind events.Kind) string {
	return base + "/" + string(kind)
}

// Sink adapts a Publisher to events.Sink, logging failed publishes.
type Sink struct {
	Publisher Publisher
}

func (s Sink) Emit(e events.Event) {
	if err := s.Publisher.Publish(e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Kind)).Msg("MQTT publish failed")
	}
}
