// internal/config/validate.go
package config

import (
	"fmt"

	vl53l0x "github.com/swdee/go-vl53l0x"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Sensors) == 0 {
		return fmt.Errorf("at least one sensor required")
	}

	names := make(map[string]struct{})

	// key = driver | bus | address
	addrOwner := make(map[string]string)

	for _, s := range cfg.Sensors {
		if s.Name == "" {
			return fmt.Errorf("sensor name required")
		}

		if _, exists := names[s.Name]; exists {
			return fmt.Errorf("sensor %q: duplicate name", s.Name)
		}
		names[s.Name] = struct{}{}

		// ------------------------------------------------------------
		// BUS
		// ------------------------------------------------------------

		driver := effectiveDriver(s)
		if driver != DriverI2CDev && driver != DriverPeriph {
			return fmt.Errorf("sensor %q: unknown driver %q", s.Name, s.Driver)
		}

		addr := effectiveAddress(s)
		if addr < 0x08 || addr > 0x77 {
			return fmt.Errorf("sensor %q: address 0x%02X outside 0x08..0x77", s.Name, addr)
		}

		// readdressing needs the sensor held in reset while others boot
		if addr != vl53l0x.Address && s.EnablePin == "" {
			return fmt.Errorf(
				"sensor %q: address 0x%02X other than 0x%02X requires enable_pin",
				s.Name,
				addr,
				vl53l0x.Address,
			)
		}

		key := fmt.Sprintf("%s|%s|%d", driver, effectiveBus(s), addr)
		if prev, exists := addrOwner[key]; exists {
			return fmt.Errorf(
				"address collision: bus=%s address=0x%02X used by sensors %q and %q",
				effectiveBus(s),
				addr,
				prev,
				s.Name,
			)
		}
		addrOwner[key] = s.Name

		// ------------------------------------------------------------
		// TIMING
		// ------------------------------------------------------------

		if err := validateTiming(s.Timing); err != nil {
			return fmt.Errorf("sensor %q: %w", s.Name, err)
		}
	}

	return nil
}

func validateTiming(t TimingConfig) error {
	if _, err := vl53l0x.ParseSenseMode(t.SenseMode); err != nil {
		return err
	}

	if l := t.SignalRateLimit; l != nil && (*l <= 0 || *l >= 512) {
		return fmt.Errorf("signal_rate_limit %.2f outside (0, 512)", *l)
	}

	if b := t.TimingBudgetUs; b != nil && *b < MinTimingBudget {
		return fmt.Errorf("timing_budget_us %d below %d", *b, MinTimingBudget)
	}

	if t.PreRangeVcselPeriod != 0 {
		if err := vl53l0x.ValidVcselPeriod(vl53l0x.VcselPeriodPreRange, t.PreRangeVcselPeriod); err != nil {
			return err
		}
	}

	if t.FinalRangeVcselPeriod != 0 {
		if err := vl53l0x.ValidVcselPeriod(vl53l0x.VcselPeriodFinalRange, t.FinalRangeVcselPeriod); err != nil {
			return err
		}
	}

	if o := t.OffsetCalibrationUm; o != nil && (*o < vl53l0x.MinOffsetCalibration || *o > vl53l0x.MaxOffsetCalibration) {
		return fmt.Errorf("offset_calibration_um %d outside %d..%d",
			*o, vl53l0x.MinOffsetCalibration, vl53l0x.MaxOffsetCalibration)
	}

	if c := t.CrosstalkMcps; c != nil && (*c < 0 || *c > vl53l0x.MaxCrosstalkCompensation) {
		return fmt.Errorf("crosstalk_compensation_mcps %.3f outside 0..%.2f", *c, vl53l0x.MaxCrosstalkCompensation)
	}

	if t.Timeout < 0 || t.Timeout > vl53l0x.MaxTimeout {
		return fmt.Errorf("timeout %s outside 0..%s", t.Timeout, vl53l0x.MaxTimeout)
	}

	// zero means not set
	if r := t.ReadingTimeout; r != 0 && (r < MinReadingTimeout || r > vl53l0x.MaxTimeout) {
		return fmt.Errorf("reading_timeout %s outside %s..%s", r, MinReadingTimeout, vl53l0x.MaxTimeout)
	}

	return nil
}

func effectiveDriver(s SensorConfig) string {
	if s.Driver == "" {
		return DriverI2CDev
	}
	return s.Driver
}

func effectiveAddress(s SensorConfig) uint8 {
	if s.Address == 0 {
		return vl53l0x.Address
	}
	return s.Address
}

func effectiveBus(s SensorConfig) string {
	if s.Bus == "" && effectiveDriver(s) == DriverI2CDev {
		return DefaultBus
	}
	return s.Bus
}
