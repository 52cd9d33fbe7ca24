package vl53l0x

import "fmt"

// VcselPeriodType selects the ranging phase a VCSEL pulse period applies to
type VcselPeriodType int

const (
	// VcselPeriodPreRange is the pre-range phase, valid periods 12 to 18 pclks
	VcselPeriodPreRange VcselPeriodType = iota
	// VcselPeriodFinalRange is the final-range phase, valid periods 8 to 14 pclks
	VcselPeriodFinalRange
)

// String implement Stringer interface for VcselPeriodType
func (t VcselPeriodType) String() string {
	switch t {
	case VcselPeriodPreRange:
		return "pre-range"
	case VcselPeriodFinalRange:
		return "final-range"
	default:
		return "unknown"
	}
}

// Measurement timing budget overheads given in microseconds
const (
	StartOverhead      uint32 = 1910
	EndOverhead        uint32 = 960
	MsrcOverhead       uint32 = 660
	TccOverhead        uint32 = 590
	DssOverhead        uint32 = 690
	PreRangeOverhead   uint32 = 660
	FinalRangeOverhead uint32 = 550
)

// MinTimingBudget is the smallest measurement timing budget in microseconds
// SetMeasurementTimingBudget accepts
const MinTimingBudget uint32 = 20000

// SequenceStepEnables holds which ranging phases are active
type SequenceStepEnables struct {
	TCC        bool
	MSRC       bool
	DSS        bool
	PreRange   bool
	FinalRange bool
}

// SequenceStepTimeouts holds the VCSEL periods and per phase timeouts derived
// from the device registers
type SequenceStepTimeouts struct {
	PreRangeVcselPeriodPclks   uint8
	FinalRangeVcselPeriodPclks uint8

	MsrcDssTccMclks uint32
	PreRangeMclks   uint32
	FinalRangeMclks uint32

	MsrcDssTccUs uint32
	PreRangeUs   uint32
	FinalRangeUs uint32
}

// TimingSnapshot is the timing configuration read in one pass
type TimingSnapshot struct {
	Enables  SequenceStepEnables
	Timeouts SequenceStepTimeouts
	BudgetUs uint32
}

type regWrite struct {
	reg   uint8
	value uint8
}

// phase registers to rewrite for each supported VCSEL period
var (
	preRangePhaseWrites = map[uint8][]regWrite{
		12: {{PRE_RANGE_CONFIG_VALID_PHASE_HIGH, 0x18}, {PRE_RANGE_CONFIG_VALID_PHASE_LOW, 0x08}},
		14: {{PRE_RANGE_CONFIG_VALID_PHASE_HIGH, 0x30}, {PRE_RANGE_CONFIG_VALID_PHASE_LOW, 0x08}},
		16: {{PRE_RANGE_CONFIG_VALID_PHASE_HIGH, 0x40}, {PRE_RANGE_CONFIG_VALID_PHASE_LOW, 0x08}},
		18: {{PRE_RANGE_CONFIG_VALID_PHASE_HIGH, 0x50}, {PRE_RANGE_CONFIG_VALID_PHASE_LOW, 0x08}},
	}

	finalRangePhaseWrites = map[uint8][]regWrite{
		8:  finalRangePhase(0x10, 0x02, 0x0C, 0x30),
		10: finalRangePhase(0x28, 0x03, 0x09, 0x20),
		12: finalRangePhase(0x38, 0x03, 0x08, 0x20),
		14: finalRangePhase(0x48, 0x03, 0x07, 0x20),
	}
)

func finalRangePhase(phaseHigh, vcselWidth, phasecalTimeout, phasecalLim uint8) []regWrite {
	return []regWrite{
		{FINAL_RANGE_CONFIG_VALID_PHASE_HIGH, phaseHigh},
		{FINAL_RANGE_CONFIG_VALID_PHASE_LOW, 0x08},
		{GLOBAL_CONFIG_VCSEL_WIDTH, vcselWidth},
		{ALGO_PHASECAL_CONFIG_TIMEOUT, phasecalTimeout},
		{PAGE_SELECT, 0x01},
		{ALGO_PHASECAL_LIM, phasecalLim},
		{PAGE_SELECT, 0x00},
	}
}

// ValidVcselPeriod checks that pclks is an even period supported by the phase,
// 12 to 18 for pre range and 8 to 14 for final range
func ValidVcselPeriod(t VcselPeriodType, pclks uint8) error {

	var ok bool

	switch t {
	case VcselPeriodPreRange:
		_, ok = preRangePhaseWrites[pclks]
	case VcselPeriodFinalRange:
		_, ok = finalRangePhaseWrites[pclks]
	default:
		return fmt.Errorf("unrecognized VCSEL period type %d: %w", t, ErrInvalidParameters)
	}

	if !ok {
		return fmt.Errorf("%s VCSEL period %d pclks not supported: %w", t, pclks, ErrInvalidParameters)
	}

	return nil
}

// GetSequenceStepEnables returns which sequence steps are enabled
func (v *VL53L0X) GetSequenceStepEnables() (SequenceStepEnables, error) {

	cfg, err := v.readReg(SYSTEM_SEQUENCE_CONFIG)

	if err != nil {
		return SequenceStepEnables{}, err
	}

	return decodeSequenceStepEnables(cfg), nil
}

func decodeSequenceStepEnables(cfg uint8) SequenceStepEnables {
	return SequenceStepEnables{
		TCC:        (cfg>>4)&0x01 != 0,
		DSS:        (cfg>>3)&0x01 != 0,
		MSRC:       (cfg>>2)&0x01 != 0,
		PreRange:   (cfg>>6)&0x01 != 0,
		FinalRange: (cfg>>7)&0x01 != 0,
	}
}

// GetSequenceStepTimeouts reads the VCSEL periods and timeouts of all steps.
// The read order is fixed, later steps are derived from earlier ones.
func (v *VL53L0X) GetSequenceStepTimeouts(enables SequenceStepEnables) (SequenceStepTimeouts, error) {

	var t SequenceStepTimeouts

	preVcsel, err := v.GetVcselPulsePeriod(VcselPeriodPreRange)

	if err != nil {
		return SequenceStepTimeouts{}, err
	}

	t.PreRangeVcselPeriodPclks = preVcsel

	msrc, err := v.readReg(MSRC_CONFIG_TIMEOUT_MACROP)

	if err != nil {
		return SequenceStepTimeouts{}, err
	}

	t.MsrcDssTccMclks = uint32(msrc) + 1
	t.MsrcDssTccUs = timeoutMclksToMicroseconds(t.MsrcDssTccMclks, preVcsel)

	preRaw, err := v.readReg16Bit(PRE_RANGE_CONFIG_TIMEOUT_MACROP_HI)

	if err != nil {
		return SequenceStepTimeouts{}, err
	}

	t.PreRangeMclks = decodeTimeout(preRaw)
	t.PreRangeUs = timeoutMclksToMicroseconds(t.PreRangeMclks, preVcsel)

	finalVcsel, err := v.GetVcselPulsePeriod(VcselPeriodFinalRange)

	if err != nil {
		return SequenceStepTimeouts{}, err
	}

	t.FinalRangeVcselPeriodPclks = finalVcsel

	finalRaw, err := v.readReg16Bit(FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI)

	if err != nil {
		return SequenceStepTimeouts{}, err
	}

	t.FinalRangeMclks = decodeTimeout(finalRaw)

	// the final range register includes the pre range time when pre range
	// is enabled
	if enables.PreRange {
		if t.FinalRangeMclks > t.PreRangeMclks {
			t.FinalRangeMclks -= t.PreRangeMclks
		} else {
			t.FinalRangeMclks = 0
		}
	}

	t.FinalRangeUs = timeoutMclksToMicroseconds(t.FinalRangeMclks, finalVcsel)

	return t, nil
}

// GetVcselPulsePeriod returns the VCSEL pulse period in PCLKs for the given
// phase
func (v *VL53L0X) GetVcselPulsePeriod(t VcselPeriodType) (uint8, error) {

	var reg uint8

	switch t {
	case VcselPeriodPreRange:
		reg = PRE_RANGE_CONFIG_VCSEL_PERIOD
	case VcselPeriodFinalRange:
		reg = FINAL_RANGE_CONFIG_VCSEL_PERIOD
	default:
		return 0, fmt.Errorf("unrecognized VCSEL period type %d: %w", t, ErrInvalidParameters)
	}

	raw, err := v.readReg(reg)

	if err != nil {
		return 0, err
	}

	return decodeVcselPeriod(raw), nil
}

// SetVcselPulsePeriod sets the VCSEL pulse period of the given phase in PCLKs,
// rewrites the registers derived from it and reapplies the measurement timing
// budget that was in effect before the change
func (v *VL53L0X) SetVcselPulsePeriod(t VcselPeriodType, pclks uint8) error {

	if err := ValidVcselPeriod(t, pclks); err != nil {
		return err
	}

	budget := v.timingBudgetUs

	if budget == 0 {
		var err error

		if budget, err = v.GetMeasurementTimingBudget(); err != nil {
			return err
		}
	}

	// a budget read back from the sensor can round below the minimum
	if budget < MinTimingBudget {
		budget = MinTimingBudget
	}

	enables, err := v.GetSequenceStepEnables()

	if err != nil {
		return err
	}

	timeouts, err := v.GetSequenceStepTimeouts(enables)

	if err != nil {
		return err
	}

	switch t {
	case VcselPeriodPreRange:

		if err := v.writeRegs(preRangePhaseWrites[pclks]); err != nil {
			return err
		}

		if err := v.writeReg(PRE_RANGE_CONFIG_VCSEL_PERIOD, encodeVcselPeriod(pclks)); err != nil {
			return err
		}

		// keep the pre range and MSRC timeouts at the same duration
		preMclks := timeoutMicrosecondsToMclks(timeouts.PreRangeUs, pclks)

		if err := v.writeReg16Bit(PRE_RANGE_CONFIG_TIMEOUT_MACROP_HI, encodeTimeout(preMclks)); err != nil {
			return err
		}

		msrcMclks := timeoutMicrosecondsToMclks(timeouts.MsrcDssTccUs, pclks)

		if err := v.writeReg(MSRC_CONFIG_TIMEOUT_MACROP, encodeMsrcTimeout(msrcMclks)); err != nil {
			return err
		}

	case VcselPeriodFinalRange:

		if err := v.writeRegs(finalRangePhaseWrites[pclks]); err != nil {
			return err
		}

		if err := v.writeReg(FINAL_RANGE_CONFIG_VCSEL_PERIOD, encodeVcselPeriod(pclks)); err != nil {
			return err
		}

		finalMclks := timeoutMicrosecondsToMclks(timeouts.FinalRangeUs, pclks)

		if enables.PreRange {
			finalMclks += timeouts.PreRangeMclks
		}

		if err := v.writeReg16Bit(FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI, encodeTimeout(finalMclks)); err != nil {
			return err
		}
	}

	v.log.Printf("%s VCSEL period set to %d pclks, reapplying %dus budget", t, pclks, budget)

	return v.SetMeasurementTimingBudget(budget)
}

// GetMeasurementTimingBudget returns the current timing budget in microseconds
func (v *VL53L0X) GetMeasurementTimingBudget() (uint32, error) {

	enables, err := v.GetSequenceStepEnables()

	if err != nil {
		return 0, err
	}

	timeouts, err := v.GetSequenceStepTimeouts(enables)

	if err != nil {
		return 0, err
	}

	return measurementTimingBudget(enables, timeouts), nil
}

// SetMeasurementTimingBudget sets the time in microseconds allowed for one
// measurement. Only the final range timeout is adjusted, all other steps keep
// their current timeouts.
func (v *VL53L0X) SetMeasurementTimingBudget(budgetUs uint32) error {

	if budgetUs < MinTimingBudget {
		return fmt.Errorf("timing budget %dus below %dus: %w", budgetUs, MinTimingBudget, ErrInvalidParameters)
	}

	enables, err := v.GetSequenceStepEnables()

	if err != nil {
		return err
	}

	timeouts, err := v.GetSequenceStepTimeouts(enables)

	if err != nil {
		return err
	}

	if !enables.FinalRange {
		v.log.Printf("Final range disabled, timing budget %dus not applied", budgetUs)
		return nil
	}

	used := stepOverheads(enables, timeouts) + FinalRangeOverhead

	if used > budgetUs {
		return fmt.Errorf("timing budget %dus below %dus used by enabled steps: %w",
			budgetUs, used, ErrInvalidParameters)
	}

	finalMclks := timeoutMicrosecondsToMclks(budgetUs-used, timeouts.FinalRangeVcselPeriodPclks)

	// the final range register includes the pre range time
	if enables.PreRange {
		finalMclks += timeouts.PreRangeMclks
	}

	if err := v.writeReg16Bit(FINAL_RANGE_CONFIG_TIMEOUT_MACROP_HI, encodeTimeout(finalMclks)); err != nil {
		return err
	}

	v.timingBudgetUs = budgetUs
	v.log.Printf("Timing budget set to %dus, final range %d mclks", budgetUs, finalMclks)

	return nil
}

// Snapshot returns the sequence step enables, timeouts and the timing budget
// derived from a single read of the timing registers
func (v *VL53L0X) Snapshot() (TimingSnapshot, error) {

	enables, err := v.GetSequenceStepEnables()

	if err != nil {
		return TimingSnapshot{}, err
	}

	timeouts, err := v.GetSequenceStepTimeouts(enables)

	if err != nil {
		return TimingSnapshot{}, err
	}

	return TimingSnapshot{
		Enables:  enables,
		Timeouts: timeouts,
		BudgetUs: measurementTimingBudget(enables, timeouts),
	}, nil
}

// stepOverheads sums the fixed overheads and the timeouts of all enabled steps
// except final range
func stepOverheads(enables SequenceStepEnables, timeouts SequenceStepTimeouts) uint32 {

	used := StartOverhead + EndOverhead

	if enables.TCC {
		used += timeouts.MsrcDssTccUs + TccOverhead
	}

	if enables.DSS {
		used += 2 * (timeouts.MsrcDssTccUs + DssOverhead)
	} else if enables.MSRC {
		used += timeouts.MsrcDssTccUs + MsrcOverhead
	}

	if enables.PreRange {
		used += timeouts.PreRangeUs + PreRangeOverhead
	}

	return used
}

func measurementTimingBudget(enables SequenceStepEnables, timeouts SequenceStepTimeouts) uint32 {

	budget := stepOverheads(enables, timeouts)

	if enables.FinalRange {
		budget += timeouts.FinalRangeUs + FinalRangeOverhead
	}

	return budget
}

func (v *VL53L0X) writeRegs(writes []regWrite) error {

	for _, w := range writes {
		if err := v.writeReg(w.reg, w.value); err != nil {
			return err
		}
	}

	return nil
}

// decodeVcselPeriod decode VCSEL pulse period in PCLKs from register value
func decodeVcselPeriod(regVal uint8) uint8 {
	return (regVal + 1) << 1
}

// encodeVcselPeriod encode VCSEL pulse period register value from period in
// PCLKs
func encodeVcselPeriod(pclks uint8) uint8 {
	return (pclks >> 1) - 1
}

// encodeMsrcTimeout encode the single byte MSRC timeout register value, which
// holds mclks - 1 and saturates at 255
func encodeMsrcTimeout(mclks uint32) uint8 {

	switch {
	case mclks > 256:
		return 255
	case mclks == 0:
		return 0
	default:
		return uint8(mclks - 1)
	}
}

// decodeTimeout decode sequence step timeout in MCLKs from register value,
// MSByte is the exponent and LSByte the mantissa
func decodeTimeout(regVal uint16) uint32 {
	return (uint32(regVal&0xFF) << (regVal >> 8)) + 1
}

// encodeTimeout encode sequence step timeout register value from timeout in
// MCLKs
func encodeTimeout(timeoutMclks uint32) uint16 {
	var lsByte uint32
	var msByte uint16 = 0

	if timeoutMclks > 0 {
		lsByte = timeoutMclks - 1

		for lsByte&0xFFFFFF00 > 0 {
			lsByte >>= 1
			msByte++
		}

		return (msByte << 8) | uint16(lsByte&0xFF)
	}

	return 0
}

// calcMacroPeriod calculate macro period in nanoseconds from VCSEL period in
// PCLKs: 2304 VCSEL periods per macro period, 1655 ps PLL period
func calcMacroPeriod(vcselPeriodPclks uint8) uint32 {
	return ((2304*uint32(vcselPeriodPclks)*1655)+500) / 1000
}

// timeoutMclksToMicroseconds convert sequence step timeout from macro periods
// to microseconds with given VCSEL period in PCLKs
func timeoutMclksToMicroseconds(timeoutMclks uint32, vcselPeriodPclks uint8) uint32 {

	macroPeriodNs := uint64(calcMacroPeriod(vcselPeriodPclks))

	return uint32((uint64(timeoutMclks)*macroPeriodNs + macroPeriodNs/2) / 1000)
}

// timeoutMicrosecondsToMclks convert sequence step timeout from microseconds
// to macro periods with given VCSEL period in PCLKs
func timeoutMicrosecondsToMclks(timeoutUs uint32, vcselPeriodPclks uint8) uint32 {

	macroPeriodNs := uint64(calcMacroPeriod(vcselPeriodPclks))

	if macroPeriodNs == 0 {
		return 0
	}

	return uint32((uint64(timeoutUs)*1000 + macroPeriodNs/2) / macroPeriodNs)
}
