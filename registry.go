package vl53l0x

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// BootDelay is the time a sensor needs after its enable pin goes high before
// it answers on the bus
const BootDelay = 2 * time.Millisecond

// Registry tracks the sensors an orchestrator drives together with their
// enable (XSHUT) pins. All sensors boot at the default address, so sensors
// sharing a bus are brought up one at a time while the others are held in
// reset and moved to their own address.
type Registry struct {
	entries []*registryEntry
	sleep   func(time.Duration)
}

type registryEntry struct {
	name   string
	addr   uint8
	pin    gpio.PinOut
	sensor *VL53L0X
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{sleep: time.Sleep}
}

// Add registers a sensor to be brought up at addr. pin may be nil only for a
// sensor that stays at the default address.
func (r *Registry) Add(name string, addr uint8, pin gpio.PinOut) error {

	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("sensor %q: address 0x%02X is not a 7 bit address: %w", name, addr, ErrInvalidParameters)
	}

	if addr != Address && pin == nil {
		return fmt.Errorf("sensor %q: address 0x%02X requires an enable pin: %w", name, addr, ErrInvalidParameters)
	}

	for _, e := range r.entries {
		if e.name == name {
			return fmt.Errorf("sensor %q already registered: %w", name, ErrInvalidParameters)
		}

		if e.addr == addr {
			return fmt.Errorf("sensor %q: address 0x%02X already used by %q: %w", name, addr, e.name, ErrInvalidParameters)
		}
	}

	r.entries = append(r.entries, &registryEntry{name: name, addr: addr, pin: pin})
	return nil
}

// Len returns the number of registered sensors
func (r *Registry) Len() int {
	return len(r.entries)
}

// Sensor returns the sensor registered under name once it has been brought up
func (r *Registry) Sensor(name string) (*VL53L0X, bool) {

	for _, e := range r.entries {
		if e.name == name && e.sensor != nil {
			return e.sensor, true
		}
	}

	return nil, false
}

// Sensors returns the sensors brought up so far in registration order
func (r *Registry) Sensors() []*VL53L0X {

	out := make([]*VL53L0X, 0, len(r.entries))

	for _, e := range r.entries {
		if e.sensor != nil {
			out = append(out, e.sensor)
		}
	}

	return out
}

// DisableAll drives every enable pin low, holding those sensors in reset
func (r *Registry) DisableAll() error {

	for _, e := range r.entries {
		if e.pin == nil {
			continue
		}

		if err := e.pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("disable %q on %s: %w", e.name, e.pin, err)
		}

		e.sensor = nil
	}

	return nil
}

// Bringup holds all sensors in reset, then enables them one by one, creates
// the sensor handle at the default address and moves it to its registered
// address. logger may be nil.
func (r *Registry) Bringup(t *Transport, logger *log.Logger) error {

	if err := r.DisableAll(); err != nil {
		return err
	}

	for _, e := range r.entries {

		if e.pin != nil {
			if err := e.pin.Out(gpio.High); err != nil {
				return fmt.Errorf("enable %q on %s: %w", e.name, e.pin, err)
			}

			r.sleep(BootDelay)
		}

		var s *VL53L0X
		var err error

		if logger != nil {
			s, err = NewWithLog(t, Address, logger)
		} else {
			s, err = New(t, Address)
		}

		if err != nil {
			return fmt.Errorf("sensor %q: %w", e.name, err)
		}

		if e.addr != Address {
			if err := s.SetAddress(e.addr); err != nil {
				return fmt.Errorf("sensor %q: %w", e.name, err)
			}
		}

		e.sensor = s
	}

	return nil
}
