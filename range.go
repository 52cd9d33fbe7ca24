package vl53l0x

const (
	RESULT_INTERRUPT_STATUS uint8 = 0x13
	RESULT_RANGE_STATUS     uint8 = 0x14
	OSC_CALIBRATE_VAL       uint8 = 0xF8

	// stop variable register, reached through the hidden page
	STOP_VARIABLE uint8 = 0x91

	// resultBlockSize is the length of the result block read from
	// RESULT_RANGE_STATUS
	resultBlockSize = 12
)

// RangeStatus classifies the device range status of a measurement
type RangeStatus uint8

const (
	RangeValid   RangeStatus = 0
	SigmaFail    RangeStatus = 1
	SignalFail   RangeStatus = 2
	MinRangeFail RangeStatus = 3
	PhaseFail    RangeStatus = 4
	HardwareFail RangeStatus = 5
	NoneStatus   RangeStatus = 255
)

var rangeStatusNames = map[RangeStatus]string{
	RangeValid:   "range valid",
	SigmaFail:    "sigma fail",
	SignalFail:   "signal fail",
	MinRangeFail: "min range fail",
	PhaseFail:    "phase fail",
	HardwareFail: "hardware fail",
	NoneStatus:   "no update",
}

// String implement Stringer interface for RangeStatus
func (s RangeStatus) String() string {
	if name, ok := rangeStatusNames[s]; ok {
		return name
	}

	return "unknown status"
}

// RangingData is one measurement decoded from the result block
type RangingData struct {
	RangeMM     uint16
	RangeStatus RangeStatus
	// signal and ambient return rates in MCPS
	PeakSignalCountRateMCPS float32
	AmbientCountRateMCPS    float32
	EffectiveSpadRtnCount   float32
}

// StartContinuous begins continuous ranging. With periodMs 0 the sensor
// ranges back-to-back, otherwise it waits periodMs between measurements.
func (v *VL53L0X) StartContinuous(periodMs uint32) error {

	v.log.Printf("Start continuous mode, period %dms", periodMs)

	if err := v.writeStopVariable(v.stopVariable); err != nil {
		return err
	}

	if periodMs == 0 {
		// 0x02 is back-to-back mode
		return v.writeReg(SYSRANGE_START, 0x02)
	}

	oscCal, err := v.readReg16Bit(OSC_CALIBRATE_VAL)

	if err != nil {
		return err
	}

	period := periodMs

	if oscCal != 0 {
		period *= uint32(oscCal)
	}

	if err := v.transport.WriteReg32Bit(v.addr, SYSTEM_INTERMEASUREMENT_PERIOD, period); err != nil {
		return err
	}

	// 0x04 is timed mode
	return v.writeReg(SYSRANGE_START, 0x04)
}

// StopContinuous returns the sensor to single shot mode, which ends ranging
// after the measurement in progress
func (v *VL53L0X) StopContinuous() error {

	v.log.Print("Stopping continuous ranging")

	if err := v.writeReg(SYSRANGE_START, 0x01); err != nil {
		return err
	}

	return v.writeStopVariable(0x00)
}

// Read returns the latest measurement and clears the interrupt. With blocking
// set it first polls the interrupt status until a new measurement is ready or
// the reading timeout expires.
func (v *VL53L0X) Read(blocking bool) (RangingData, error) {

	if blocking {
		if err := v.pollUntil("data", v.readingTimeout, v.dataReady); err != nil {
			return RangingData{}, err
		}
	}

	buf := make([]byte, resultBlockSize)

	if err := v.transport.ReadMulti(v.addr, RESULT_RANGE_STATUS, buf); err != nil {
		return RangingData{}, err
	}

	rData := decodeRangingData(buf, v.sigmaCheck)

	if err := v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01); err != nil {
		return RangingData{}, err
	}

	return rData, nil
}

// ReadRangeContinuousMillimeters waits for the next continuous mode
// measurement and returns its range in millimeters
func (v *VL53L0X) ReadRangeContinuousMillimeters() (uint16, error) {
	rData, err := v.Read(true)
	return rData.RangeMM, err
}

// ReadRangeSingleMillimeters performs a single shot measurement and returns
// its range in millimeters. The start handshake is bounded by the I/O timeout
// and the measurement by the reading timeout.
func (v *VL53L0X) ReadRangeSingleMillimeters() (uint16, error) {

	if err := v.writeStopVariable(v.stopVariable); err != nil {
		return 0, err
	}

	if err := v.writeReg(SYSRANGE_START, 0x01); err != nil {
		return 0, err
	}

	// the sensor clears bit 0 once the measurement has started
	started := func() (bool, error) {
		start, err := v.readReg(SYSRANGE_START)
		return start&0x01 == 0, err
	}

	if err := v.pollUntil("single shot start", v.ioTimeout, started); err != nil {
		return 0, err
	}

	return v.ReadRangeContinuousMillimeters()
}

// dataReady checks if the sensor has a new reading available
func (v *VL53L0X) dataReady() (bool, error) {

	status, err := v.readReg(RESULT_INTERRUPT_STATUS)

	if err != nil {
		return false, err
	}

	return (status & 0x07) != 0, nil
}

// readStopVariable reads the value the sensor expects back when ranging is
// started, it lives on the hidden register page
func (v *VL53L0X) readStopVariable() (uint8, error) {

	enter := []regWrite{{0x88, 0x00}, {0x80, 0x01}, {PAGE_SELECT, 0x01}, {0x00, 0x00}}

	if err := v.writeRegs(enter); err != nil {
		return 0, err
	}

	stop, err := v.readReg(STOP_VARIABLE)

	if err != nil {
		return 0, err
	}

	leave := []regWrite{{0x00, 0x01}, {PAGE_SELECT, 0x00}, {0x80, 0x00}}

	if err := v.writeRegs(leave); err != nil {
		return 0, err
	}

	return stop, nil
}

// writeStopVariable writes value to the stop variable on the hidden page
func (v *VL53L0X) writeStopVariable(value uint8) error {
	return v.writeRegs([]regWrite{
		{0x80, 0x01},
		{PAGE_SELECT, 0x01},
		{0x00, 0x00},
		{STOP_VARIABLE, value},
		{0x00, 0x01},
		{PAGE_SELECT, 0x00},
		{0x80, 0x00},
	})
}

// decodeRangingData gets range, status and rates from the result block based
// on VL53L0X_GetRangingMeasurementData()
func decodeRangingData(buf []byte, sigmaCheck bool) RangingData {

	rData := RangingData{
		RangeMM:                 uint16(buf[10])<<8 | uint16(buf[11]),
		RangeStatus:             rangeStatus(buf[0], sigmaCheck),
		PeakSignalCountRateMCPS: countRateFixedToFloat(uint16(buf[6])<<8 | uint16(buf[7])),
		AmbientCountRateMCPS:    countRateFixedToFloat(uint16(buf[8])<<8 | uint16(buf[9])),
		// 8.8 format
		EffectiveSpadRtnCount: float32(uint16(buf[2])<<8|uint16(buf[3])) / float32(1<<8),
	}

	return rData
}

// rangeStatus maps the device range status to RangeStatus. The device sigma
// threshold status is a SigmaFail while the sigma check is enabled and a
// valid range otherwise.
func rangeStatus(deviceStatus uint8, sigmaCheck bool) RangeStatus {

	switch (deviceStatus & 0x78) >> 3 {
	case 0, 5, 12, 13, 14, 15:
		return NoneStatus
	case 7:
		if sigmaCheck {
			return SigmaFail
		}
		return RangeValid
	case 1, 2, 3:
		return HardwareFail
	case 6, 9:
		return PhaseFail
	case 8, 10:
		return MinRangeFail
	case 4:
		return SignalFail
	default:
		return RangeValid
	}
}

// countRateFixedToFloat converts a Q9.7 rate to MCPS
func countRateFixedToFloat(countRateFixed uint16) float32 {
	return float32(countRateFixed) / float32(1<<7)
}
