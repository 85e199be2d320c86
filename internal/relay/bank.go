// Package relay mirrors the expander's output register and pushes every change to the
// bus as a full-register write.
//
// The register uses inverted logic: a cleared bit energizes its relay, a set bit
// releases it.
package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/internal/datadog"
	"github.com/thatsimonsguy/hydro-controller/internal/model"
)

const (
	DefaultAddress    uint16 = 0x20
	DefaultRegister   byte   = 0x06
	DefaultRelayCount        = 4

	// allReleased is written at construction so nothing is energized until commanded.
	allReleased byte = 0xFF
)

var ErrWriteTimeout = errors.New("bus write timed out")

// Bus is the raw transport. It is used only by Bank.
type Bus interface {
	WriteRegister(addr uint16, reg, value byte) error
}

// BusError reports a write that failed after all retries. The bank's mask is not
// trustworthy until the next successful write.
type BusError struct {
	Op       string
	Mask     byte
	Attempts int
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus write %s (mask 0x%02X) failed after %d attempt(s): %v", e.Op, e.Mask, e.Attempts, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

type Config struct {
	Address    uint16
	Register   byte
	RelayCount int

	// WriteTimeout bounds a single write; zero disables the bound.
	WriteTimeout time.Duration
	Retries      int
	RetryDelay   time.Duration
}

// Bank owns the in-memory register mask and the bus handle. It is not safe for
// concurrent use; the control loop drives it from a single goroutine.
type Bank struct {
	bus     Bus
	cfg     Config
	mask    byte
	trusted bool

	// inflight holds a token while a write is on the bus, so a hung write makes later
	// writes fail instead of overlapping it.
	inflight chan struct{}
	sleep    func(time.Duration)
}

// NewBank wraps bus and releases every relay with an initial full write.
func NewBank(bus Bus, cfg Config) (*Bank, error) {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.Register == 0 {
		cfg.Register = DefaultRegister
	}
	if cfg.RelayCount <= 0 {
		cfg.RelayCount = DefaultRelayCount
	}
	if cfg.RelayCount > model.MaxRelays {
		return nil, fmt.Errorf("relay count %d exceeds register width %d", cfg.RelayCount, model.MaxRelays)
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	b := &Bank{
		bus:      bus,
		cfg:      cfg,
		mask:     allReleased,
		inflight: make(chan struct{}, 1),
		sleep:    time.Sleep,
	}
	if err := b.write("init"); err != nil {
		return nil, err
	}
	return b, nil
}

// On energizes relays and leaves every other bit untouched.
func (b *Bank) On(relays model.RelaySet) error {
	b.mask &^= relays.Mask()
	return b.write("on")
}

// Off releases relays and leaves every other bit untouched.
func (b *Bank) Off(relays model.RelaySet) error {
	b.mask |= relays.Mask()
	return b.write("off")
}

// AllOff releases every relay. It is the fail-safe terminal action.
func (b *Bank) AllOff() error {
	b.mask |= b.lowBits()
	return b.write("all_off")
}

func (b *Bank) AllOn() error {
	b.mask &^= b.lowBits()
	return b.write("all_on")
}

// Mask is the value last written, or being written, to the register.
func (b *Bank) Mask() byte {
	return b.mask
}

// Trusted is false after a failed write until the next write succeeds.
func (b *Bank) Trusted() bool {
	return b.trusted
}

func (b *Bank) lowBits() byte {
	return byte(1<<uint(b.cfg.RelayCount) - 1)
}

// write always sends the full register, even when nothing changed.
func (b *Bank) write(op string) error {
	attempts := b.cfg.Retries + 1
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		err = b.writeOnce(b.mask)
		if err == nil {
			b.trusted = true
			datadog.Incr("bus.write", "op:"+op)
			datadog.Gauge("relay.mask", float64(b.mask))
			log.Debug().
				Str("op", op).
				Str("mask", fmt.Sprintf("0x%02X", b.mask)).
				Msg("Relay register written")
			return nil
		}

		b.trusted = false
		datadog.Incr("bus.write_error", "op:"+op)
		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Relay register write failed")

		if attempt < attempts && b.cfg.RetryDelay > 0 {
			b.sleep(b.cfg.RetryDelay)
		}
	}

	return &BusError{Op: op, Mask: b.mask, Attempts: attempts, Err: err}
}

func (b *Bank) writeOnce(value byte) error {
	if b.cfg.WriteTimeout <= 0 {
		return b.bus.WriteRegister(b.cfg.Address, b.cfg.Register, value)
	}

	timer := time.NewTimer(b.cfg.WriteTimeout)
	defer timer.Stop()

	select {
	case b.inflight <- struct{}{}:
	case <-timer.C:
		return fmt.Errorf("%w: previous write still pending", ErrWriteTimeout)
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-b.inflight }()
		done <- b.bus.WriteRegister(b.cfg.Address, b.cfg.Register, value)
	}()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrWriteTimeout
	}
}
