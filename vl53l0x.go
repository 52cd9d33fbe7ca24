// go-vl53l0x is a register level driver core for the ST VL53L0X time-of-flight
// sensor.
package vl53l0x

import (
	"fmt"
	"io"
	"log"
	"time"
)

const (
	// Address is the default 7 bit address of the sensor on I2C bus
	Address uint8 = 0x29
	// ModelID is the content of IDENTIFICATION_MODEL_ID on a VL53L0X
	ModelID uint8 = 0xEE
)

// VL53L0X represents a single VL53L0X sensor instance. The caller owns the
// handle and must not use it from more than one goroutine at a time.
type VL53L0X struct {
	// transport is the register interface shared by all sensors on the bus
	transport *Transport
	// addr is the 7 bit bus address of this sensor
	addr uint8

	// last timing budget applied in microseconds, 0 until known
	timingBudgetUs uint32

	// value read from the hidden stop variable register during Init
	stopVariable uint8

	// ioTimeout bounds register handshakes, readingTimeout bounds the wait
	// for a measurement
	ioTimeout      time.Duration
	readingTimeout time.Duration
	didTimeout     bool

	// limit check state, signalRateLimit is kept while the signal check is
	// disabled and the register holds zero
	signalCheck     bool
	sigmaCheck      bool
	signalRateLimit float32

	// log logger for debugging
	log *log.Logger
}

// New returns a new VL53L0X sensor instance at the given bus address and
// verifies the device identity
func New(t *Transport, addr uint8) (*VL53L0X, error) {

	v, err := new(t, addr)

	if err != nil {
		return nil, err
	}

	// create null logger
	v.log = log.New(io.Discard, "", log.LstdFlags)

	// finish device setup
	err = v.setup()

	return v, err
}

// NewWithLog creates sensor instance with logger to be used for debugging
func NewWithLog(t *Transport, addr uint8, log *log.Logger) (*VL53L0X, error) {

	v, err := new(t, addr)

	if err != nil {
		return nil, err
	}

	// set logger
	v.log = log

	// finish device setup
	err = v.setup()

	return v, err
}

// new returns a new VL53L0X sensor instance
func new(t *Transport, addr uint8) (*VL53L0X, error) {

	if t == nil {
		return nil, fmt.Errorf("register transport is not initiated: %w", ErrInvalidParameters)
	}

	if addr == 0 || addr > 0x7F {
		return nil, fmt.Errorf("address 0x%02X is not a 7 bit address: %w", addr, ErrInvalidParameters)
	}

	v := &VL53L0X{
		transport: t,
		addr:      addr,
	}

	return v, nil
}

// setup completes New instance creation and is a common function for New() and
// NewWithLog()
func (v *VL53L0X) setup() error {

	v.log.Printf("Starting Setup() at address 0x%02X", v.addr)

	// initialize device
	err := v.Init()

	if err != nil {
		return fmt.Errorf("Failed to Init device: %w", err)
	}

	v.log.Printf("Device Init()'d, timing budget %dus", v.timingBudgetUs)

	return nil
}

// Addr returns the bus address the handle currently talks to
func (v *VL53L0X) Addr() uint8 {
	return v.addr
}
