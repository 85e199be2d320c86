package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/thatsimonsguy/hydro-controller/internal/controller"
	"github.com/thatsimonsguy/hydro-controller/internal/model"
	"github.com/thatsimonsguy/hydro-controller/internal/relay"
)

const (
	DefaultBusPort      = "1"
	DefaultBusAddress   = "0x20"
	DefaultRelayCount   = relay.DefaultRelayCount
	DefaultWriteRetries = 3
	DefaultWriteTimeout = 2 * time.Second
	DefaultRetryDelay   = 200 * time.Millisecond
	DefaultTick         = controller.DefaultTick
	DefaultSettle       = controller.DefaultSettle
	MinTick             = time.Second
)

// ConfigError reports a configuration file that is missing or malformed.
type ConfigError struct {
	Path  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := "config"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Field != "" {
		msg += ": " + e.Field
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type Bus struct {
	Port         string        `yaml:"port"`
	Address      string        `yaml:"address"`
	Register     int           `yaml:"register"`
	RelayCount   int           `yaml:"relay_count"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	WriteRetries *int          `yaml:"write_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

type Timing struct {
	Tick   time.Duration `yaml:"tick"`
	Settle time.Duration `yaml:"settle"`
}

type Journal struct {
	Path string `yaml:"path"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type Ntfy struct {
	Topic   string `yaml:"topic"`
	BaseURL string `yaml:"base_url"`
}

type Metrics struct {
	Enabled   bool     `yaml:"enabled"`
	AgentAddr string   `yaml:"agent_addr"`
	Namespace string   `yaml:"namespace"`
	Tags      []string `yaml:"tags"`
}

type Light struct {
	Relays  Relays `yaml:"relays"`
	OnHour  *int   `yaml:"on_hour"`
	OffHour *int   `yaml:"off_hour"`
}

type Pump struct {
	Relays   Relays `yaml:"relays"`
	OnTicks  *int   `yaml:"on_ticks"`
	OffTicks *int   `yaml:"off_ticks"`
}

type Zone struct {
	ID    string `yaml:"id"`
	Light Light  `yaml:"light"`
	Pump  Pump   `yaml:"pump"`
}

type Config struct {
	ConfigFile string        `yaml:"-"`
	LogLevel   zerolog.Level `yaml:"-"`

	LogLevelName string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	Timezone     string `yaml:"timezone"`

	Bus     Bus     `yaml:"bus"`
	Timing  Timing  `yaml:"timing"`
	Journal Journal `yaml:"journal"`
	MQTT    MQTT    `yaml:"mqtt"`
	Ntfy    Ntfy    `yaml:"ntfy"`
	Metrics Metrics `yaml:"metrics"`

	Zones []Zone `yaml:"zones"`
}

// LoadFiles reads primary and falls back to fallback when primary cannot be loaded.
// When both fail the returned error joins both causes.
func LoadFiles(primary, fallback string) (*Config, error) {
	cfg, err := LoadFile(primary)
	if err == nil {
		return cfg, nil
	}
	if fallback == "" || fallback == primary {
		return nil, err
	}

	log.Warn().Err(err).Str("fallback", fallback).Msg("Primary config unusable, trying fallback")

	cfg, fallbackErr := LoadFile(fallback)
	if fallbackErr != nil {
		return nil, errors.Join(err, fallbackErr)
	}
	return cfg, nil
}

// LoadFile reads, defaults and validates a single config file.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	defer file.Close()

	var cfg Config
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}

	cfg.ConfigFile = path
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bus.Port == "" {
		cfg.Bus.Port = DefaultBusPort
	}
	if cfg.Bus.Address == "" {
		cfg.Bus.Address = DefaultBusAddress
	}
	if cfg.Bus.Register == 0 {
		cfg.Bus.Register = int(relay.DefaultRegister)
	}
	if cfg.Bus.RelayCount == 0 {
		cfg.Bus.RelayCount = DefaultRelayCount
	}
	if cfg.Bus.WriteTimeout == 0 {
		cfg.Bus.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Bus.WriteRetries == nil {
		retries := DefaultWriteRetries
		cfg.Bus.WriteRetries = &retries
	}
	if cfg.Bus.RetryDelay == 0 {
		cfg.Bus.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timing.Tick == 0 {
		cfg.Timing.Tick = DefaultTick
	}
	if cfg.Timing.Settle == 0 {
		cfg.Timing.Settle = DefaultSettle
	}
	if cfg.MQTT.Broker != "" && cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "hydro/events"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "hydro-controller"
	}
	if cfg.Metrics.AgentAddr == "" {
		cfg.Metrics.AgentAddr = "127.0.0.1:8125"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "hydro."
	}
	cfg.LogLevel = ParseLogLevel(cfg.LogLevelName)
}

// ParseLogLevel maps a level name to zerolog, defaulting to info.
func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() error {
	var errs []error
	fail := func(field string, format string, args ...any) {
		errs = append(errs, &ConfigError{Path: cfg.ConfigFile, Field: field, Err: fmt.Errorf(format, args...)})
	}

	if _, err := parseAddress(cfg.Bus.Address); err != nil {
		fail("bus.address", "%v", err)
	}
	if cfg.Bus.Register < 0 || cfg.Bus.Register > 0xFF {
		fail("bus.register", "register 0x%X does not fit in a byte", cfg.Bus.Register)
	}
	if cfg.Bus.RelayCount < 1 || cfg.Bus.RelayCount > model.MaxRelays {
		fail("bus.relay_count", "must be between 1 and %d, got %d", model.MaxRelays, cfg.Bus.RelayCount)
	}
	if *cfg.Bus.WriteRetries < 0 {
		fail("bus.write_retries", "must not be negative")
	}
	if cfg.Bus.WriteTimeout < 0 {
		fail("bus.write_timeout", "must not be negative")
	}
	if cfg.Timing.Tick < MinTick {
		fail("timing.tick", "must be at least %s, got %s", MinTick, cfg.Timing.Tick)
	}
	if cfg.Timing.Settle < 0 {
		fail("timing.settle", "must not be negative")
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			fail("timezone", "%v", err)
		}
	}

	if len(cfg.Zones) == 0 {
		fail("zones", "at least one zone is required")
	}

	ids := map[string]bool{}
	owners := map[int]string{}
	claim := func(field string, relays Relays) {
		for _, r := range relays {
			if r < 1 || r > cfg.Bus.RelayCount {
				fail(field, "relay %d outside 1..%d", r, cfg.Bus.RelayCount)
				continue
			}
			if other, exists := owners[r]; exists && other != field {
				fail(field, "relay %d already used by %s", r, other)
				continue
			}
			owners[r] = field
		}
	}

	for i, z := range cfg.Zones {
		prefix := fmt.Sprintf("zones[%d]", i)
		if z.ID == "" {
			fail(prefix+".id", "is required")
		} else if ids[z.ID] {
			fail(prefix+".id", "duplicate zone id %q", z.ID)
		}
		ids[z.ID] = true

		if len(z.Light.Relays) == 0 && len(z.Pump.Relays) == 0 {
			fail(prefix, "zone drives no relays")
		}

		if len(z.Light.Relays) > 0 {
			claim(prefix+".light.relays", z.Light.Relays)
			checkHour(fail, prefix+".light.on_hour", z.Light.OnHour)
			checkHour(fail, prefix+".light.off_hour", z.Light.OffHour)
			if z.Light.OnHour != nil && z.Light.OffHour != nil && *z.Light.OnHour >= *z.Light.OffHour {
				log.Warn().
					Str("zone", z.ID).
					Int("on_hour", *z.Light.OnHour).
					Int("off_hour", *z.Light.OffHour).
					Msg("Light window does not fit inside one day, light will stay off")
			}
		}

		if len(z.Pump.Relays) > 0 {
			claim(prefix+".pump.relays", z.Pump.Relays)
			checkTicks(fail, prefix+".pump.on_ticks", z.Pump.OnTicks)
			checkTicks(fail, prefix+".pump.off_ticks", z.Pump.OffTicks)
		}
	}

	return errors.Join(errs...)
}

func checkHour(fail func(string, string, ...any), field string, hour *int) {
	if hour == nil {
		fail(field, "is required")
		return
	}
	if *hour < 0 || *hour > 23 {
		fail(field, "hour %d outside 0..23", *hour)
	}
}

func checkTicks(fail func(string, string, ...any), field string, ticks *int) {
	if ticks == nil {
		fail(field, "is required")
		return
	}
	if *ticks < 0 {
		fail(field, "must not be negative, got %d", *ticks)
	}
}

func parseAddress(s string) (uint16, error) {
	addr, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid bus address %q", s)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("bus address 0x%X is not a 7-bit address", addr)
	}
	return uint16(addr), nil
}

// BusAddress is the validated device address.
func (cfg *Config) BusAddress() uint16 {
	addr, _ := parseAddress(cfg.Bus.Address)
	return addr
}

// BankConfig builds the relay bank settings.
func (cfg *Config) BankConfig() relay.Config {
	return relay.Config{
		Address:      cfg.BusAddress(),
		Register:     byte(cfg.Bus.Register),
		RelayCount:   cfg.Bus.RelayCount,
		WriteTimeout: cfg.Bus.WriteTimeout,
		Retries:      *cfg.Bus.WriteRetries,
		RetryDelay:   cfg.Bus.RetryDelay,
	}
}

// ZoneConfigs converts the validated zones into their immutable runtime form.
func (cfg *Config) ZoneConfigs() []model.ZoneConfig {
	out := make([]model.ZoneConfig, 0, len(cfg.Zones))
	for _, z := range cfg.Zones {
		zc := model.ZoneConfig{
			ID:          z.ID,
			LightRelays: z.Light.Relays.Set(),
			PumpRelays:  z.Pump.Relays.Set(),
		}
		if z.Light.OnHour != nil && z.Light.OffHour != nil {
			zc.Light = model.Window{OnHour: *z.Light.OnHour, OffHour: *z.Light.OffHour}
		}
		if z.Pump.OnTicks != nil && z.Pump.OffTicks != nil {
			zc.Pump = model.DutyCycle{OnTicks: *z.Pump.OnTicks, OffTicks: *z.Pump.OffTicks}
		}
		out = append(out, zc)
	}
	return out
}
