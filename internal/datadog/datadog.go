package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

var dogstatsd *statsd.Client

// InitMetrics connects to the DogStatsD agent. Until it succeeds every emit is a no-op.
func InitMetrics(addr, namespace string, tags []string) {
	client, err := statsd.New(addr, statsd.WithNamespace(namespace), statsd.WithTags(tags))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}
	dogstatsd = client

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")
}

// Close flushes and drops the client.
func Close() {
	if dogstatsd == nil {
		return
	}
	if err := dogstatsd.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close DogStatsD client")
	}
	dogstatsd = nil
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		if err := dogstatsd.Gauge(name, value, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

func Incr(name string, tags ...string) {
	if dogstatsd != nil {
		if err := dogstatsd.Incr(name, tags, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
		}
	}
}
