package vl53l0x

import (
	"fmt"

	"github.com/swdee/go-i2c"
)

// I2CDevBus implements Bus on a Linux i2c-dev device using one connection per
// 7 bit address. i2c-dev ends every write with a stop condition, the sensor
// accepts the register index write followed by a separate read.
type I2CDevBus struct {
	dev   string
	conns map[uint8]*i2c.Options
}

// OpenI2CDevBus returns a bus on the i2c-dev device path, eg: /dev/i2c-1.
// Connections are opened on first use of an address.
func OpenI2CDevBus(dev string) *I2CDevBus {
	return &I2CDevBus{
		dev:   dev,
		conns: make(map[uint8]*i2c.Options),
	}
}

// NewI2CDevBus returns a bus that reuses an already open connection for its
// address
func NewI2CDevBus(conn *i2c.Options) (*I2CDevBus, error) {

	addr := conn.GetAddr()

	if addr == 0 {
		return nil, fmt.Errorf("I2C device is not initiated")
	}

	b := OpenI2CDevBus(conn.GetDev())
	b.conns[addr] = conn

	return b, nil
}

// conn returns the connection for addr, opening it when needed
func (b *I2CDevBus) conn(addr uint8) (*i2c.Options, error) {

	if c, ok := b.conns[addr]; ok {
		return c, nil
	}

	c, err := i2c.New(addr, b.dev)

	if err != nil {
		return nil, err
	}

	b.conns[addr] = c
	return c, nil
}

// WriteBytes implements Bus
func (b *I2CDevBus) WriteBytes(addr uint8, buf []byte, sendStop bool) error {

	c, err := b.conn(addr)

	if err != nil {
		return err
	}

	n, err := c.WriteBytes(buf)

	if err != nil {
		return err
	}

	if n < len(buf) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(buf))
	}

	return nil
}

// ReadBytes implements Bus
func (b *I2CDevBus) ReadBytes(addr uint8, buf []byte) error {

	c, err := b.conn(addr)

	if err != nil {
		return err
	}

	n, err := c.ReadBytes(buf)

	if err != nil {
		return err
	}

	if n < len(buf) {
		return fmt.Errorf("insufficient data: %d of %d bytes", n, len(buf))
	}

	return nil
}

// Close closes all connections opened on the bus
func (b *I2CDevBus) Close() error {

	var firstErr error

	for addr, c := range b.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(b.conns, addr)
	}

	return firstErr
}
