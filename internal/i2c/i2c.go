// Package i2c opens the relay expander's bus through periph.io.
package i2c

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var initOnce sync.Once
var initErr error

// Bus is a register-write handle on one I2C port.
type Bus struct {
	bus i2c.BusCloser
}

// Open initialises the host drivers and opens port ("1", "/dev/i2c-1", or "" for the
// first available bus).
func Open(port string) (*Bus, error) {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("init host drivers: %w", initErr)
	}

	bus, err := i2creg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", port, err)
	}
	return &Bus{bus: bus}, nil
}

// WriteRegister writes a single byte to reg on the device at addr.
func (b *Bus) WriteRegister(addr uint16, reg, value byte) error {
	dev := i2c.Dev{Bus: b.bus, Addr: addr}
	if err := dev.Tx([]byte{reg, value}, nil); err != nil {
		return fmt.Errorf("write reg 0x%02X on 0x%02X: %w", reg, addr, err)
	}
	return nil
}

func (b *Bus) Close() error {
	return b.bus.Close()
}
