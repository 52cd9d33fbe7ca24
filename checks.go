package vl53l0x

const (
	// MSRC_CONFIG_CONTROL bits disabling the signal rate checks
	msrcSignalCheckDisable     uint8 = 0x02
	preRangeSignalCheckDisable uint8 = 0x10
)

// SetSignalCheck enables or disables the return signal rate limit checks of
// the MSRC, pre range and final range steps. The final range check is
// disabled by zeroing its limit register, the limit set with
// SetSignalRateLimit is restored when the check is enabled again.
func (v *VL53L0X) SetSignalCheck(enable bool) error {

	v.log.Printf("Signal rate check enabled: %t", enable)

	ctrl, err := v.readReg(MSRC_CONFIG_CONTROL)

	if err != nil {
		return err
	}

	mask := msrcSignalCheckDisable | preRangeSignalCheckDisable

	if enable {
		ctrl &^= mask
	} else {
		ctrl |= mask
	}

	if err := v.writeReg(MSRC_CONFIG_CONTROL, ctrl); err != nil {
		return err
	}

	limit := uint16(0)

	if enable {
		limit = encodeSignalRateLimit(v.signalRateLimit)
	}

	if err := v.writeReg16Bit(FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT, limit); err != nil {
		return err
	}

	v.signalCheck = enable
	return nil
}

// SignalCheck reports whether the signal rate limit checks are enabled
func (v *VL53L0X) SignalCheck() bool {
	return v.signalCheck
}

// SetSigmaCheck enables or disables the sigma estimate check. The check has
// no register of its own, with it disabled measurements that failed the
// device sigma threshold are reported as valid.
func (v *VL53L0X) SetSigmaCheck(enable bool) {
	v.log.Printf("Sigma check enabled: %t", enable)
	v.sigmaCheck = enable
}

// SigmaCheck reports whether the sigma estimate check is enabled
func (v *VL53L0X) SigmaCheck() bool {
	return v.sigmaCheck
}

// loadLimitChecks reads the check state the sensor is currently configured
// with
func (v *VL53L0X) loadLimitChecks() error {

	ctrl, err := v.readReg(MSRC_CONFIG_CONTROL)

	if err != nil {
		return err
	}

	raw, err := v.readReg16Bit(FINAL_RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT)

	if err != nil {
		return err
	}

	v.signalCheck = ctrl&(msrcSignalCheckDisable|preRangeSignalCheckDisable) == 0
	v.sigmaCheck = true

	v.signalRateLimit = decodeSignalRateLimit(raw)

	if raw == 0 {
		v.signalRateLimit = DefaultSignalRateLimit
	}

	return nil
}
