package vl53l0x

import "fmt"

const (
	SYSRANGE_START uint8 = 0x00

	// Sequence step configuration, one enable bit per step
	SYSTEM_SEQUENCE_CONFIG uint8 = 0x01

	SYSTEM_INTERMEASUREMENT_PERIOD uint8 = 0x04
	SYSTEM_INTERRUPT_CONFIG_GPIO   uint8 = 0x0A
	SYSTEM_INTERRUPT_CLEAR         uint8 = 0x0B

	// Crosstalk and part-to-part offset
	CROSSTALK_COMPENSATION_PEAK_RATE_MCPS uint8 = 0x20
	ALGO_PART_TO_PART_RANGE_OFFSET_MM     uint8 = 0x28

	// Phase calibration, ALGO_PHASECAL_LIM lives on page 1 at the same index
	ALGO_PHASECAL_CONFIG_TIMEOUT uint8 = 0x30
	ALGO_PHASECAL_LIM            uint8 = 0x30
	GLOBAL_CONFIG_VCSEL_WIDTH    uint8 = 0x32

	// Final range configuration
	FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT uint8 = 0x44
	FINAL_RANGE_CONFIG_VALID_PHASE_LOW          uint8 = 0x47
	FINAL_RANGE_CONFIG_VALID_PHASE_HIGH         uint8 = 0x48
	FINAL_RANGE_CONFIG_VCSEL_PERIOD             uint8 = 0x70
	FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI        uint8 = 0x71
	FINAL_RANGE_CONFIG_TIMEOUT_MACROP_LO        uint8 = 0x72

	// MSRC timeout, a single byte holding mclks - 1
	MSRC_CONFIG_TIMEOUT_MACROP uint8 = 0x46

	// Limit check control, a set bit disables the MSRC (bit 1) or pre range
	// (bit 4) signal rate check
	MSRC_CONFIG_CONTROL uint8 = 0x60

	// Pre range configuration
	PRE_RANGE_CONFIG_VCSEL_PERIOD      uint8 = 0x50
	PRE_RANGE_CONFIG_TIMEOUT_MACROP_HI uint8 = 0x51
	PRE_RANGE_CONFIG_TIMEOUT_MACROP_LO uint8 = 0x52
	PRE_RANGE_CONFIG_VALID_PHASE_LOW   uint8 = 0x56
	PRE_RANGE_CONFIG_VALID_PHASE_HIGH  uint8 = 0x57

	// Interrupt pin polarity, bit 4 set is active high
	GPIO_HV_MUX_ACTIVE_HIGH uint8 = 0x84

	// I2C address configuration
	I2C_SLAVE_DEVICE_ADDRESS uint8 = 0x8A

	// Identification
	IDENTIFICATION_MODEL_ID    uint8 = 0xC0
	IDENTIFICATION_REVISION_ID uint8 = 0xC2

	// Page select for the hidden register bank
	PAGE_SELECT uint8 = 0xFF
)

// MaxTransferSize is the largest payload, excluding the register index, that
// can be moved in a single bus transfer
const MaxTransferSize = 64

// Bus is the byte transfer primitive the register transport is built on. A
// write with sendStop false leaves the bus claimed so the following read is
// issued as a repeated start.
type Bus interface {
	WriteBytes(addr uint8, buf []byte, sendStop bool) error
	ReadBytes(addr uint8, buf []byte) error
}

// Transport moves big-endian values between host memory and 8 bit indexed
// device registers. It holds no per-device state and does not retry.
type Transport struct {
	bus Bus
}

// NewTransport returns a register transport on top of the given bus
func NewTransport(bus Bus) *Transport {
	return &Transport{bus: bus}
}

// WriteMulti writes data to consecutive registers starting at index as one
// bus transfer
func (t *Transport) WriteMulti(addr, index uint8, data []byte) error {

	if len(data) > MaxTransferSize {
		return fmt.Errorf("write of %d bytes exceeds %d byte limit: %w",
			len(data), MaxTransferSize, ErrInvalidParameters)
	}

	buf := make([]byte, len(data)+1)
	buf[0] = index
	copy(buf[1:], data)

	if err := t.bus.WriteBytes(addr, buf, true); err != nil {
		return fmt.Errorf("write register 0x%02X: %w: %w", index, ErrControlInterface, err)
	}

	return nil
}

// ReadMulti selects register index and reads len(buf) bytes back from it.
// buf is only modified when the whole transfer succeeds.
func (t *Transport) ReadMulti(addr, index uint8, buf []byte) error {

	if len(buf) > MaxTransferSize {
		return fmt.Errorf("read of %d bytes exceeds %d byte limit: %w",
			len(buf), MaxTransferSize, ErrInvalidParameters)
	}

	// no stop condition, the read must follow as a repeated start
	if err := t.bus.WriteBytes(addr, []byte{index}, false); err != nil {
		return fmt.Errorf("select register 0x%02X: %w: %w", index, ErrControlInterface, err)
	}

	scratch := make([]byte, len(buf))

	if err := t.bus.ReadBytes(addr, scratch); err != nil {
		return fmt.Errorf("read register 0x%02X: %w: %w", index, ErrControlInterface, err)
	}

	copy(buf, scratch)
	return nil
}

// WriteReg writes a 8 bit value to the register
func (t *Transport) WriteReg(addr, reg, value uint8) error {
	return t.WriteMulti(addr, reg, []byte{value})
}

// WriteReg16Bit writes a 16 bit value to the register
func (t *Transport) WriteReg16Bit(addr, reg uint8, value uint16) error {
	return t.WriteMulti(addr, reg, []byte{byte(value >> 8), byte(value)})
}

// WriteReg32Bit writes a 32 bit value to the register
func (t *Transport) WriteReg32Bit(addr, reg uint8, value uint32) error {

	buf := []byte{
		byte(value >> 24), byte(value >> 16),
		byte(value >> 8), byte(value),
	}

	return t.WriteMulti(addr, reg, buf)
}

// ReadReg reads an 8-bit value from the register
func (t *Transport) ReadReg(addr, reg uint8) (uint8, error) {

	buf := make([]byte, 1)

	if err := t.ReadMulti(addr, reg, buf); err != nil {
		return 0, err
	}

	return buf[0], nil
}

// ReadReg16Bit reads a 16-bit value from the register
func (t *Transport) ReadReg16Bit(addr, reg uint8) (uint16, error) {

	buf := make([]byte, 2)

	if err := t.ReadMulti(addr, reg, buf); err != nil {
		return 0, err
	}

	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// ReadReg32Bit reads a 32-bit value from the register
func (t *Transport) ReadReg32Bit(addr, reg uint8) (uint32, error) {

	buf := make([]byte, 4)

	if err := t.ReadMulti(addr, reg, buf); err != nil {
		return 0, err
	}

	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]), nil
}

// writeReg and friends address the handle's own device

func (v *VL53L0X) writeReg(reg, value uint8) error {
	return v.transport.WriteReg(v.addr, reg, value)
}

func (v *VL53L0X) writeReg16Bit(reg uint8, value uint16) error {
	return v.transport.WriteReg16Bit(v.addr, reg, value)
}

func (v *VL53L0X) readReg(reg uint8) (uint8, error) {
	return v.transport.ReadReg(v.addr, reg)
}

func (v *VL53L0X) readReg16Bit(reg uint8) (uint16, error) {
	return v.transport.ReadReg16Bit(v.addr, reg)
}
