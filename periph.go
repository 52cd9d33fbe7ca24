package vl53l0x

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphBus implements Bus on a periph.io I2C bus. A write without stop is
// held back and sent together with the following read as one combined
// transaction, so register reads use a repeated start.
type PeriphBus struct {
	bus     i2c.Bus
	pending map[uint8][]byte
}

// NewPeriphBus returns a Bus on top of the periph.io bus
func NewPeriphBus(bus i2c.Bus) *PeriphBus {
	return &PeriphBus{
		bus:     bus,
		pending: make(map[uint8][]byte),
	}
}

// OpenPeriphBus initializes the host drivers and opens the named I2C bus, an
// empty name selects the first bus available
func OpenPeriphBus(name string) (*PeriphBus, i2c.BusCloser, error) {

	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("host init: %w", err)
	}

	bc, err := i2creg.Open(name)

	if err != nil {
		return nil, nil, fmt.Errorf("open I2C bus %q: %w", name, err)
	}

	return NewPeriphBus(bc), bc, nil
}

// WriteBytes implements Bus
func (p *PeriphBus) WriteBytes(addr uint8, buf []byte, sendStop bool) error {

	if !sendStop {
		held := make([]byte, len(buf))
		copy(held, buf)
		p.pending[addr] = held
		return nil
	}

	delete(p.pending, addr)

	return p.bus.Tx(uint16(addr), buf, nil)
}

// ReadBytes implements Bus
func (p *PeriphBus) ReadBytes(addr uint8, buf []byte) error {

	w := p.pending[addr]
	delete(p.pending, addr)

	return p.bus.Tx(uint16(addr), w, buf)
}
