package vl53l0x

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

var errNack = errors.New("nack")

// busOp is one transfer seen by fakeBus
type busOp struct {
	addr  uint8
	write bool
	data  []byte
	stop  bool
}

// fakeDevice is a VL53L0X register file with the page select register and
// index auto increment. A device with a pin only answers while the pin is
// high. With startClears set a single shot start is acknowledged at once.
type fakeDevice struct {
	addr        uint8
	pin         *gpiotest.Pin
	page        uint8
	index       uint8
	regs        [2][256]byte
	startClears bool
}

func (d *fakeDevice) present() bool {
	return d.pin == nil || d.pin.Read() == gpio.High
}

func (d *fakeDevice) set(reg, value uint8) {
	d.regs[0][reg] = value
}

func (d *fakeDevice) set16(reg uint8, value uint16) {
	d.regs[0][reg] = byte(value >> 8)
	d.regs[0][reg+1] = byte(value)
}

func (d *fakeDevice) get(reg uint8) uint8 {
	return d.regs[0][reg]
}

func (d *fakeDevice) get16(reg uint8) uint16 {
	return uint16(d.regs[0][reg])<<8 | uint16(d.regs[0][reg+1])
}

func (d *fakeDevice) write(data []byte) {

	d.index = data[0]

	for i, b := range data[1:] {
		reg := d.index + uint8(i)

		switch reg {
		case PAGE_SELECT:
			d.page = b & 0x01
			d.regs[0][reg] = b
		case SYSRANGE_START:
			if d.page == 0 && d.startClears {
				b &^= 0x01
			}
			d.regs[d.page][reg] = b
		case I2C_SLAVE_DEVICE_ADDRESS:
			d.regs[d.page][reg] = b
			d.addr = b & 0x7F
		default:
			d.regs[d.page][reg] = b
		}
	}
}

func (d *fakeDevice) read(buf []byte) {
	for i := range buf {
		buf[i] = d.regs[d.page][d.index+uint8(i)]
	}
}

// fakeBus implements Bus over a set of fake devices and records every
// transfer. failOn, when set, is consulted before each transfer and a non nil
// result is returned instead of performing it.
type fakeBus struct {
	devices []*fakeDevice
	ops     []busOp
	failOn  func(n int, op busOp) error
}

func newFakeBus(devices ...*fakeDevice) *fakeBus {
	return &fakeBus{devices: devices}
}

func (b *fakeBus) device(addr uint8) (*fakeDevice, error) {

	var found *fakeDevice

	for _, d := range b.devices {
		if d.addr != addr || !d.present() {
			continue
		}

		if found != nil {
			return nil, fmt.Errorf("bus collision at 0x%02X", addr)
		}

		found = d
	}

	if found == nil {
		return nil, fmt.Errorf("address 0x%02X: %w", addr, errNack)
	}

	return found, nil
}

func (b *fakeBus) record(op busOp) error {

	if b.failOn != nil {
		if err := b.failOn(len(b.ops), op); err != nil {
			return err
		}
	}

	b.ops = append(b.ops, op)
	return nil
}

func (b *fakeBus) WriteBytes(addr uint8, buf []byte, sendStop bool) error {

	data := append([]byte(nil), buf...)

	if err := b.record(busOp{addr: addr, write: true, data: data, stop: sendStop}); err != nil {
		return err
	}

	d, err := b.device(addr)

	if err != nil {
		return err
	}

	if len(data) > 0 {
		d.write(data)
	}

	return nil
}

func (b *fakeBus) ReadBytes(addr uint8, buf []byte) error {

	if err := b.record(busOp{addr: addr, data: make([]byte, len(buf))}); err != nil {
		return err
	}

	d, err := b.device(addr)

	if err != nil {
		return err
	}

	d.read(buf)
	copy(b.ops[len(b.ops)-1].data, buf)

	return nil
}

// regWrites returns the single register writes seen at addr as reg/value
// pairs, multi byte writes are returned with their first data byte only
func (b *fakeBus) regWrites(addr uint8) []regWrite {

	var out []regWrite

	for _, op := range b.ops {
		if op.write && op.addr == addr && len(op.data) > 1 {
			out = append(out, regWrite{op.data[0], op.data[1]})
		}
	}

	return out
}

func (b *fakeBus) reset() {
	b.ops = nil
	b.failOn = nil
}

// failWrites returns a failOn hook that rejects writes to reg
func failWrites(reg uint8) func(int, busOp) error {
	return func(_ int, op busOp) error {
		if op.write && len(op.data) > 1 && op.data[0] == reg {
			return errNack
		}

		return nil
	}
}

// failAtByte returns a failOn hook that fails the transfer carrying the nth
// byte seen on the bus, counting from 1, and every transfer after it
func failAtByte(n int) func(int, busOp) error {

	seen := 0

	return func(_ int, op busOp) error {
		seen += len(op.data)

		if seen >= n {
			return errNack
		}

		return nil
	}
}

func (b *fakeBus) bytes() int {

	n := 0

	for _, op := range b.ops {
		n += len(op.data)
	}

	return n
}

// newScenarioDevice returns a device configured with DSS, pre range and final
// range enabled, 14/10 pclk VCSEL periods and a 41638us timing budget
func newScenarioDevice(addr uint8) *fakeDevice {

	d := &fakeDevice{addr: addr}

	d.set(IDENTIFICATION_MODEL_ID, ModelID)
	d.set(IDENTIFICATION_REVISION_ID, 0x10)
	d.regs[1][STOP_VARIABLE] = 0x3C

	d.set(SYSTEM_SEQUENCE_CONFIG, 0xE8)
	d.set(PRE_RANGE_CONFIG_VCSEL_PERIOD, 6)
	d.set(FINAL_RANGE_CONFIG_VCSEL_PERIOD, 4)
	d.set(MSRC_CONFIG_TIMEOUT_MACROP, 0x0B)
	d.set16(PRE_RANGE_CONFIG_TIMEOUT_MACROP_HI, 0x0145)
	d.set16(FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI, 0x02D6)

	return d
}

// newScenarioSensor returns an initialised sensor on a scenario device with
// the bus log cleared
func newScenarioSensor() (*VL53L0X, *fakeBus, *fakeDevice, error) {

	d := newScenarioDevice(Address)
	bus := newFakeBus(d)

	v, err := New(NewTransport(bus), Address)

	if err != nil {
		return nil, nil, nil, err
	}

	bus.reset()
	return v, bus, d, nil
}
