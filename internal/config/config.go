// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	vl53l0x "github.com/swdee/go-vl53l0x"
)

// Bus drivers a sensor can be attached with
const (
	DriverI2CDev = "i2cdev"
	DriverPeriph = "periph"
)

const (
	// DefaultBus is the i2c-dev device used when none is given
	DefaultBus = "/dev/i2c-1"
	// DefaultSignalRateLimit is the return signal rate limit in MCPS
	DefaultSignalRateLimit = vl53l0x.DefaultSignalRateLimit
	// MinTimingBudget is the smallest timing budget accepted in microseconds
	MinTimingBudget = vl53l0x.MinTimingBudget
	// MinReadingTimeout is the shortest reading timeout accepted
	MinReadingTimeout = time.Second
)

type Config struct {
	Sensors []SensorConfig `yaml:"sensors"`
}

// ---- SENSOR ----

type SensorConfig struct {
	Name    string `yaml:"name"`
	Driver  string `yaml:"driver"` // i2cdev | periph
	Bus     string `yaml:"bus"`
	Address uint8  `yaml:"address"`

	// XSHUT pin name as known to periph gpioreg (optional)
	EnablePin string `yaml:"enable_pin"`

	Timing TimingConfig `yaml:"timing"`
}

// ---- TIMING ----

type TimingConfig struct {
	SenseMode             string   `yaml:"sense_mode"`
	SignalRateLimit       *float32 `yaml:"signal_rate_limit"`
	TimingBudgetUs        *uint32  `yaml:"timing_budget_us"`
	PreRangeVcselPeriod   uint8    `yaml:"pre_range_vcsel_period"`
	FinalRangeVcselPeriod uint8    `yaml:"final_range_vcsel_period"`
	OffsetCalibrationUm   *int32   `yaml:"offset_calibration_um"`
	CrosstalkMcps         *float32 `yaml:"crosstalk_compensation_mcps"`

	// limit checks, both enabled when omitted
	SignalCheck *bool `yaml:"enable_signal_check"`
	SigmaCheck  *bool `yaml:"enable_sigma_check"`

	// durations such as "10ms" or "5s"
	Timeout        time.Duration `yaml:"timeout"`
	ReadingTimeout time.Duration `yaml:"reading_timeout"`
}

// Load reads and decodes the YAML file at path. Unknown keys are rejected.
// Load does not validate.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &cfg, nil
}

// Settings converts the timing section into driver settings.
// It must be called on a validated configuration.
func (s SensorConfig) Settings() (vl53l0x.Settings, error) {
	mode, err := vl53l0x.ParseSenseMode(s.Timing.SenseMode)
	if err != nil {
		return vl53l0x.Settings{}, err
	}

	out := vl53l0x.Settings{
		SenseMode:             mode,
		PreRangeVcselPeriod:   s.Timing.PreRangeVcselPeriod,
		FinalRangeVcselPeriod: s.Timing.FinalRangeVcselPeriod,
		OffsetCalibrationUm:   s.Timing.OffsetCalibrationUm,
		CrosstalkMcps:         s.Timing.CrosstalkMcps,
		SignalCheck:           s.Timing.SignalCheck,
		SigmaCheck:            s.Timing.SigmaCheck,
		IOTimeout:             s.Timing.Timeout,
		ReadingTimeout:        s.Timing.ReadingTimeout,
	}

	if s.Timing.SignalRateLimit != nil {
		out.SignalRateLimit = *s.Timing.SignalRateLimit
	}

	if s.Timing.TimingBudgetUs != nil {
		out.TimingBudgetUs = *s.Timing.TimingBudgetUs
	}

	return out, nil
}
