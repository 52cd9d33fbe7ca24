package vl53l0x

import (
	"fmt"
	"strings"
	"time"
)

// SenseMode represents a preset ranging profile of the sensor
type SenseMode int

const (
	// SenseDefault leaves the timing configuration as it is
	SenseDefault SenseMode = iota
	// SenseLongRange lowers the return signal limit and lengthens the VCSEL
	// pulse periods, 18 pclks pre range and 14 pclks final range
	SenseLongRange
	// SenseHighSpeed uses a 20ms timing budget
	SenseHighSpeed
	// SenseHighAccuracy uses a 200ms timing budget
	SenseHighAccuracy
)

const (
	// HighSpeedBudget is the timing budget of SenseHighSpeed in microseconds
	HighSpeedBudget uint32 = 20000
	// HighAccuracyBudget is the timing budget of SenseHighAccuracy in
	// microseconds
	HighAccuracyBudget uint32 = 200000
	// LongRangeSignalRateLimit is the return signal limit of SenseLongRange in
	// MCPS
	LongRangeSignalRateLimit float32 = 0.1
	// DefaultSignalRateLimit is the return signal limit restored by
	// SetSignalCheck when the sensor held none
	DefaultSignalRateLimit float32 = 0.25

	// MaxSignalRateLimit is the largest value the Q9.7 limit register holds
	MaxSignalRateLimit float32 = 511.99

	// MinOffsetCalibration and MaxOffsetCalibration bound the part to part
	// offset in micrometers
	MinOffsetCalibration int32 = -512000
	MaxOffsetCalibration int32 = 511000

	// MaxCrosstalkCompensation is the largest value the Q3.13 crosstalk
	// register holds in MCPS
	MaxCrosstalkCompensation float32 = 7.99
)

var senseModeNames = map[SenseMode]string{
	SenseDefault:      "default",
	SenseLongRange:    "long_range",
	SenseHighSpeed:    "high_speed",
	SenseHighAccuracy: "high_accuracy",
}

// String implement Stringer interface for SenseMode
func (m SenseMode) String() string {
	if name, ok := senseModeNames[m]; ok {
		return name
	}

	return "unknown"
}

// ParseSenseMode returns the SenseMode for its name, an empty name is
// SenseDefault
func ParseSenseMode(name string) (SenseMode, error) {

	name = strings.ToLower(strings.TrimSpace(name))

	if name == "" {
		return SenseDefault, nil
	}

	for mode, n := range senseModeNames {
		if n == name {
			return mode, nil
		}
	}

	return SenseDefault, fmt.Errorf("unrecognized sense mode %q: %w", name, ErrInvalidParameters)
}

// ApplySenseMode configures the sensor for the given preset
func (v *VL53L0X) ApplySenseMode(mode SenseMode) error {

	v.log.Printf("Applying sense mode %s", mode)

	switch mode {
	case SenseDefault:
		return nil

	case SenseLongRange:
		if err := v.SetSignalRateLimit(LongRangeSignalRateLimit); err != nil {
			return err
		}

		if err := v.SetVcselPulsePeriod(VcselPeriodPreRange, 18); err != nil {
			return err
		}

		return v.SetVcselPulsePeriod(VcselPeriodFinalRange, 14)

	case SenseHighSpeed:
		return v.SetMeasurementTimingBudget(HighSpeedBudget)

	case SenseHighAccuracy:
		return v.SetMeasurementTimingBudget(HighAccuracyBudget)

	default:
		return fmt.Errorf("unrecognized sense mode %d: %w", mode, ErrInvalidParameters)
	}
}

// SetSignalRateLimit sets the return signal rate limit check value in MCPS.
// A lower limit increases the potential range of the sensor but also the
// likelihood of inaccurate readings. With the signal check disabled the limit
// is only kept until the check is enabled again.
func (v *VL53L0X) SetSignalRateLimit(limitMcps float32) error {

	if limitMcps < 0 || limitMcps > MaxSignalRateLimit {
		return fmt.Errorf("signal rate limit %.2f outside 0..%.2f MCPS: %w",
			limitMcps, MaxSignalRateLimit, ErrInvalidParameters)
	}

	if !v.signalCheck {
		v.log.Printf("Signal check disabled, keeping limit %.2f MCPS", limitMcps)
		v.signalRateLimit = limitMcps
		return nil
	}

	if err := v.writeReg16Bit(FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT, encodeSignalRateLimit(limitMcps)); err != nil {
		return err
	}

	v.signalRateLimit = limitMcps
	return nil
}

// GetSignalRateLimit returns the return signal rate limit check value in MCPS
func (v *VL53L0X) GetSignalRateLimit() (float32, error) {

	if !v.signalCheck {
		return v.signalRateLimit, nil
	}

	raw, err := v.readReg16Bit(FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT)

	if err != nil {
		return 0, err
	}

	return decodeSignalRateLimit(raw), nil
}

// encodeSignalRateLimit converts MCPS to Q9.7 fixed point format (9 integer
// bits, 7 fractional bits)
func encodeSignalRateLimit(limitMcps float32) uint16 {
	return uint16(limitMcps * (1 << 7))
}

func decodeSignalRateLimit(raw uint16) float32 {
	return float32(raw) / (1 << 7)
}

// SetOffsetCalibration writes the part to part range offset in micrometers
func (v *VL53L0X) SetOffsetCalibration(offsetUm int32) error {

	if offsetUm < MinOffsetCalibration || offsetUm > MaxOffsetCalibration {
		return fmt.Errorf("offset %dum outside %d..%dum: %w",
			offsetUm, MinOffsetCalibration, MaxOffsetCalibration, ErrInvalidParameters)
	}

	return v.writeReg16Bit(ALGO_PART_TO_PART_RANGE_OFFSET_MM, encodeOffset(offsetUm))
}

// GetOffsetCalibration returns the part to part range offset in micrometers
func (v *VL53L0X) GetOffsetCalibration() (int32, error) {

	raw, err := v.readReg16Bit(ALGO_PART_TO_PART_RANGE_OFFSET_MM)

	if err != nil {
		return 0, err
	}

	return decodeOffset(raw), nil
}

// SetCrosstalkCompensation writes the crosstalk compensation peak rate in
// MCPS, zero disables compensation
func (v *VL53L0X) SetCrosstalkCompensation(rateMcps float32) error {

	if rateMcps < 0 || rateMcps > MaxCrosstalkCompensation {
		return fmt.Errorf("crosstalk rate %.3f outside 0..%.2f MCPS: %w",
			rateMcps, MaxCrosstalkCompensation, ErrInvalidParameters)
	}

	// Q3.13 fixed point format
	return v.writeReg16Bit(CROSSTALK_COMPENSATION_PEAK_RATE_MCPS, uint16(rateMcps*(1<<13)))
}

// encodeOffset encodes micrometers as 12 bit two's complement in 1/4 mm units
func encodeOffset(offsetUm int32) uint16 {
	return uint16(offsetUm/250) & 0x0FFF
}

func decodeOffset(regVal uint16) int32 {

	val := int32(regVal & 0x0FFF)

	if val > 0x07FF {
		val -= 0x1000
	}

	return val * 250
}

// Settings bundles the user facing timing parameters applied by Configure.
// Zero values and nil pointers leave the corresponding settings unchanged.
type Settings struct {
	SenseMode             SenseMode
	SignalRateLimit       float32
	SignalCheck           *bool
	SigmaCheck            *bool
	PreRangeVcselPeriod   uint8
	FinalRangeVcselPeriod uint8
	OffsetCalibrationUm   *int32
	CrosstalkMcps         *float32
	TimingBudgetUs        uint32

	IOTimeout      time.Duration
	ReadingTimeout time.Duration
}

// validate checks every value so Configure fails before touching the bus
func (s Settings) validate() error {

	if _, ok := senseModeNames[s.SenseMode]; !ok {
		return fmt.Errorf("unrecognized sense mode %d: %w", s.SenseMode, ErrInvalidParameters)
	}

	if s.SignalRateLimit < 0 || s.SignalRateLimit > MaxSignalRateLimit {
		return fmt.Errorf("signal rate limit %.2f outside 0..%.2f MCPS: %w",
			s.SignalRateLimit, MaxSignalRateLimit, ErrInvalidParameters)
	}

	if s.PreRangeVcselPeriod != 0 {
		if err := ValidVcselPeriod(VcselPeriodPreRange, s.PreRangeVcselPeriod); err != nil {
			return err
		}
	}

	if s.FinalRangeVcselPeriod != 0 {
		if err := ValidVcselPeriod(VcselPeriodFinalRange, s.FinalRangeVcselPeriod); err != nil {
			return err
		}
	}

	if o := s.OffsetCalibrationUm; o != nil && (*o < MinOffsetCalibration || *o > MaxOffsetCalibration) {
		return fmt.Errorf("offset %dum outside %d..%dum: %w",
			*o, MinOffsetCalibration, MaxOffsetCalibration, ErrInvalidParameters)
	}

	if c := s.CrosstalkMcps; c != nil && (*c < 0 || *c > MaxCrosstalkCompensation) {
		return fmt.Errorf("crosstalk rate %.3f outside 0..%.2f MCPS: %w",
			*c, MaxCrosstalkCompensation, ErrInvalidParameters)
	}

	if s.TimingBudgetUs != 0 && s.TimingBudgetUs < MinTimingBudget {
		return fmt.Errorf("timing budget %dus below %dus: %w",
			s.TimingBudgetUs, MinTimingBudget, ErrInvalidParameters)
	}

	for _, d := range []time.Duration{s.IOTimeout, s.ReadingTimeout} {
		if d < 0 || d > MaxTimeout {
			return fmt.Errorf("timeout %s outside 0..%s: %w", d, MaxTimeout, ErrInvalidParameters)
		}
	}

	return nil
}

// Configure applies the settings in order: timeouts, sense mode, signal rate
// limit, limit checks, VCSEL periods, offset, crosstalk and finally the timing
// budget
func (v *VL53L0X) Configure(s Settings) error {

	if err := s.validate(); err != nil {
		return err
	}

	if s.IOTimeout != 0 {
		v.SetTimeout(s.IOTimeout)
	}

	if s.ReadingTimeout != 0 {
		v.SetReadingTimeout(s.ReadingTimeout)
	}

	if err := v.ApplySenseMode(s.SenseMode); err != nil {
		return fmt.Errorf("sense mode: %w", err)
	}

	if s.SignalRateLimit > 0 {
		if err := v.SetSignalRateLimit(s.SignalRateLimit); err != nil {
			return err
		}
	}

	if s.SignalCheck != nil {
		if err := v.SetSignalCheck(*s.SignalCheck); err != nil {
			return err
		}
	}

	if s.SigmaCheck != nil {
		v.SetSigmaCheck(*s.SigmaCheck)
	}

	if s.PreRangeVcselPeriod != 0 {
		if err := v.SetVcselPulsePeriod(VcselPeriodPreRange, s.PreRangeVcselPeriod); err != nil {
			return err
		}
	}

	if s.FinalRangeVcselPeriod != 0 {
		if err := v.SetVcselPulsePeriod(VcselPeriodFinalRange, s.FinalRangeVcselPeriod); err != nil {
			return err
		}
	}

	if s.OffsetCalibrationUm != nil {
		if err := v.SetOffsetCalibration(*s.OffsetCalibrationUm); err != nil {
			return err
		}
	}

	if s.CrosstalkMcps != nil {
		if err := v.SetCrosstalkCompensation(*s.CrosstalkMcps); err != nil {
			return err
		}
	}

	if s.TimingBudgetUs != 0 {
		return v.SetMeasurementTimingBudget(s.TimingBudgetUs)
	}

	return nil
}
