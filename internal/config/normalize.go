// internal/config/normalize.go
package config

import vl53l0x "github.com/swdee/go-vl53l0x"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for i := range cfg.Sensors {
		s := &cfg.Sensors[i]

		s.Driver = effectiveDriver(*s)
		s.Address = effectiveAddress(*s)
		s.Bus = effectiveBus(*s)

		if s.Timing.SenseMode == "" {
			s.Timing.SenseMode = "default"
		}

		// long_range brings its own signal limit
		mode, _ := vl53l0x.ParseSenseMode(s.Timing.SenseMode)

		if s.Timing.SignalRateLimit == nil && mode != vl53l0x.SenseLongRange {
			l := DefaultSignalRateLimit
			s.Timing.SignalRateLimit = &l
		}

		if s.Timing.SignalCheck == nil {
			on := true
			s.Timing.SignalCheck = &on
		}

		if s.Timing.SigmaCheck == nil {
			on := true
			s.Timing.SigmaCheck = &on
		}

		if s.Timing.Timeout == 0 {
			s.Timing.Timeout = vl53l0x.DefaultTimeout
		}

		if s.Timing.ReadingTimeout == 0 {
			s.Timing.ReadingTimeout = vl53l0x.DefaultReadingTimeout
		}
	}
}
