// Package startup assembles the daemon's collaborators before the control loop starts:
// event sinks, timezone, the bus handle and the relay bank.
package startup

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/db"
	"github.com/thatsimonsguy/hydro-controller/internal/config"
	"github.com/thatsimonsguy/hydro-controller/internal/datadog"
	"github.com/thatsimonsguy/hydro-controller/internal/events"
	"github.com/thatsimonsguy/hydro-controller/internal/mqtt"
	"github.com/thatsimonsguy/hydro-controller/internal/notifications"
	"github.com/thatsimonsguy/hydro-controller/internal/relay"
)

// BusCloser is an open bus handle.
type BusCloser interface {
	relay.Bus
	io.Closer
}

// BusOpener opens the bus on port.
type BusOpener func(port string) (BusCloser, error)

// MQTTDialer connects an MQTT publisher. It is a variable so tests can avoid a broker.
var MQTTDialer = func(broker, clientID, topic string) (mqtt.Publisher, error) {
	return mqtt.NewRealPublisher(broker, clientID, topic)
}

// Rig is everything the control loop needs, plus what must be closed after it ends.
type Rig struct {
	Bank     *relay.Bank
	Sink     events.Sink
	Location *time.Location

	closers []func() error
}

// Close releases the rig's resources in reverse order of acquisition.
func (r *Rig) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Start builds the rig from cfg. Any error leaves no relay energized: the bank is
// only constructed, with its all-released write, as the last step.
func Start(cfg *config.Config, open BusOpener) (*Rig, error) {
	rig := &Rig{Location: time.Local}
	rig.Sink = rig.sinks(cfg)

	rig.Sink.Emit(events.Event{Time: time.Now(), Kind: events.KindDaemonStart, Detail: cfg.ConfigFile})

	if cfg.Timezone != "" {
		loc, err := config.ApplyTimezone(cfg.Timezone)
		if err != nil {
			rig.Close()
			return nil, err
		}
		rig.Location = loc
		rig.Sink.Emit(events.Event{Time: time.Now(), Kind: events.KindTimezoneSet, Detail: cfg.Timezone})
	}

	bus, err := open(cfg.Bus.Port)
	if err != nil {
		rig.Close()
		return nil, fmt.Errorf("open relay device: %w", err)
	}
	rig.closers = append(rig.closers, bus.Close)
	rig.Sink.Emit(events.Event{
		Time:   time.Now(),
		Kind:   events.KindDeviceOpened,
		Detail: fmt.Sprintf("port %s address 0x%02X", cfg.Bus.Port, cfg.BusAddress()),
	})

	bank, err := relay.NewBank(bus, cfg.BankConfig())
	if err != nil {
		rig.Close()
		return nil, err
	}
	rig.Bank = bank
	return rig, nil
}

// sinks wires the log sink plus every optional sink the config enables.
func (r *Rig) sinks(cfg *config.Config) events.Sink {
	fan := events.Fanout{events.LogSink{}}

	if cfg.Metrics.Enabled {
		datadog.InitMetrics(cfg.Metrics.AgentAddr, cfg.Metrics.Namespace, cfg.Metrics.Tags)
		r.closers = append(r.closers, func() error {
			datadog.Close()
			return nil
		})
	}

	if cfg.Journal.Path != "" {
		conn, err := db.Open(cfg.Journal.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Journal.Path).Msg("Journal disabled")
		} else {
			j := db.NewJournal(conn)
			fan = append(fan, j)
			r.closers = append(r.closers, j.Close)
		}
	}

	if cfg.MQTT.Broker != "" {
		pub, err := MQTTDialer(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT publishing disabled")
		} else {
			fan = append(fan, mqtt.Sink{Publisher: pub})
			r.closers = append(r.closers, pub.Close)
		}
	}

	if n := notifications.New(cfg.Ntfy.Topic, cfg.Ntfy.BaseURL); n != nil {
		fan = append(fan, n)
	}

	return fan
}
