// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vl53l0x "github.com/swdee/go-vl53l0x"
)

// helper to build a sensor quickly
func sensor(name string, addr uint8, pin string) SensorConfig {
	return SensorConfig{
		Name:      name,
		Address:   addr,
		EnablePin: pin,
	}
}

func f32(v float32) *float32 { return &v }
func u32(v uint32) *uint32   { return &v }
func i32(v int32) *int32     { return &v }

// ---- tests ----

func TestValidate_SingleDefaultSensor(t *testing.T) {
	cfg := &Config{Sensors: []SensorConfig{{Name: "front"}}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Empty(t *testing.T) {
	if err := Validate(&Config{}); err == nil {
		t.Fatalf("expected error for empty config")
	}

	if err := Validate(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestValidate_DuplicateName(t *testing.T) {
	cfg := &Config{
		Sensors: []SensorConfig{
			sensor("front", 0x30, "GPIO17"),
			sensor("front", 0x31, "GPIO27"),
		},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestValidate_AddressRequiresEnablePin(t *testing.T) {
	cfg := &Config{
		Sensors: []SensorConfig{
			sensor("front", 0x30, ""),
		},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected enable_pin error")
	}
}

func TestValidate_AddressOutOfRange(t *testing.T) {
	cfg := &Config{
		Sensors: []SensorConfig{
			sensor("front", 0x78, "GPIO17"),
		},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected address range error")
	}
}

func TestValidate_AddressCollisionSameBus(t *testing.T) {
	cfg := &Config{
		Sensors: []SensorConfig{
			sensor("left", 0x30, "GPIO17"),
			sensor("right", 0x30, "GPIO27"),
		},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected address collision error")
	}
}

func TestValidate_SameAddressDifferentBus(t *testing.T) {
	right := sensor("right", 0x30, "GPIO27")
	right.Bus = "/dev/i2c-0"

	cfg := &Config{
		Sensors: []SensorConfig{
			sensor("left", 0x30, "GPIO17"),
			right,
		},
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	s := sensor("front", 0, "")
	s.Driver = "spi"

	if err := Validate(&Config{Sensors: []SensorConfig{s}}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestValidate_Timing(t *testing.T) {
	tests := map[string]struct {
		timing TimingConfig
		ok     bool
	}{
		"defaults":              {TimingConfig{}, true},
		"long range":            {TimingConfig{SenseMode: "long_range"}, true},
		"bad sense mode":        {TimingConfig{SenseMode: "turbo"}, false},
		"signal limit":          {TimingConfig{SignalRateLimit: f32(0.1)}, true},
		"signal limit zero":     {TimingConfig{SignalRateLimit: f32(0)}, false},
		"signal limit too high": {TimingConfig{SignalRateLimit: f32(512)}, false},
		"budget":                {TimingConfig{TimingBudgetUs: u32(33000)}, true},
		"budget too small":      {TimingConfig{TimingBudgetUs: u32(19999)}, false},
		"pre vcsel":             {TimingConfig{PreRangeVcselPeriod: 18}, true},
		"pre vcsel odd":         {TimingConfig{PreRangeVcselPeriod: 15}, false},
		"final vcsel":           {TimingConfig{FinalRangeVcselPeriod: 8}, true},
		"final vcsel too long":  {TimingConfig{FinalRangeVcselPeriod: 18}, false},
		"offset":                {TimingConfig{OffsetCalibrationUm: i32(-25000)}, true},
		"offset too large":      {TimingConfig{OffsetCalibrationUm: i32(600000)}, false},
		"crosstalk":             {TimingConfig{CrosstalkMcps: f32(0.5)}, true},
		"crosstalk negative":    {TimingConfig{CrosstalkMcps: f32(-1)}, false},
		"timeout":               {TimingConfig{Timeout: 10 * time.Millisecond}, true},
		"timeout negative":      {TimingConfig{Timeout: -time.Millisecond}, false},
		"timeout too long":      {TimingConfig{Timeout: 61 * time.Second}, false},
		"reading timeout":       {TimingConfig{ReadingTimeout: 5 * time.Second}, true},
		"reading timeout short": {TimingConfig{ReadingTimeout: 500 * time.Millisecond}, false},
		"reading timeout long":  {TimingConfig{ReadingTimeout: 61 * time.Second}, false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := sensor("front", 0, "")
			s.Timing = tc.timing

			err := Validate(&Config{Sensors: []SensorConfig{s}})

			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := &Config{Sensors: []SensorConfig{{Name: "front"}}}

	Normalize(cfg)

	s := cfg.Sensors[0]

	assert.Equal(t, DriverI2CDev, s.Driver)
	assert.Equal(t, vl53l0x.Address, s.Address)
	assert.Equal(t, DefaultBus, s.Bus)
	assert.Equal(t, "default", s.Timing.SenseMode)
	require.NotNil(t, s.Timing.SignalRateLimit)
	assert.Equal(t, DefaultSignalRateLimit, *s.Timing.SignalRateLimit)
	require.NotNil(t, s.Timing.SignalCheck)
	assert.True(t, *s.Timing.SignalCheck)
	require.NotNil(t, s.Timing.SigmaCheck)
	assert.True(t, *s.Timing.SigmaCheck)
	assert.Equal(t, vl53l0x.DefaultTimeout, s.Timing.Timeout)
	assert.Equal(t, vl53l0x.DefaultReadingTimeout, s.Timing.ReadingTimeout)
}

func TestNormalize_PeriphKeepsEmptyBus(t *testing.T) {
	cfg := &Config{Sensors: []SensorConfig{{Name: "front", Driver: DriverPeriph}}}

	Normalize(cfg)

	assert.Equal(t, "", cfg.Sensors[0].Bus)
}

func TestNormalize_LongRangeKeepsSignalLimit(t *testing.T) {
	cfg := &Config{Sensors: []SensorConfig{{Name: "front", Timing: TimingConfig{SenseMode: "long_range"}}}}

	Normalize(cfg)

	if cfg.Sensors[0].Timing.SignalRateLimit != nil {
		t.Fatalf("expected no default signal limit for long_range")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vl53l0x.yaml")

	data := `
sensors:
  - name: left
    bus: /dev/i2c-1
    address: 0x30
    enable_pin: GPIO17
    timing:
      sense_mode: high_accuracy
      signal_rate_limit: 0.1
      final_range_vcsel_period: 14
      offset_calibration_um: -2500
      enable_sigma_check: false
      timeout: 20ms
      reading_timeout: 2s
  - name: right
    driver: periph
    address: 0x31
    enable_pin: GPIO27
    timing:
      timing_budget_us: 33000
`

	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	Normalize(cfg)

	require.Len(t, cfg.Sensors, 2)

	left, err := cfg.Sensors[0].Settings()
	require.NoError(t, err)

	assert.Equal(t, uint8(0x30), cfg.Sensors[0].Address)
	assert.Equal(t, vl53l0x.SenseHighAccuracy, left.SenseMode)
	assert.Equal(t, float32(0.1), left.SignalRateLimit)
	assert.Equal(t, uint8(14), left.FinalRangeVcselPeriod)
	require.NotNil(t, left.OffsetCalibrationUm)
	assert.Equal(t, int32(-2500), *left.OffsetCalibrationUm)
	assert.Zero(t, left.TimingBudgetUs)
	require.NotNil(t, left.SigmaCheck)
	assert.False(t, *left.SigmaCheck)
	require.NotNil(t, left.SignalCheck)
	assert.True(t, *left.SignalCheck)
	assert.Equal(t, 20*time.Millisecond, left.IOTimeout)
	assert.Equal(t, 2*time.Second, left.ReadingTimeout)

	right, err := cfg.Sensors[1].Settings()
	require.NoError(t, err)

	assert.Equal(t, DriverPeriph, cfg.Sensors[1].Driver)
	assert.Equal(t, uint32(33000), right.TimingBudgetUs)
	assert.Equal(t, DefaultSignalRateLimit, right.SignalRateLimit)
	assert.Equal(t, vl53l0x.DefaultTimeout, right.IOTimeout)
	assert.Equal(t, vl53l0x.DefaultReadingTimeout, right.ReadingTimeout)
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vl53l0x.yaml")

	data := `
sensors:
  - name: left
    timing:
      timeout: soon
`

	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	if _, err := Load(path); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vl53l0x.yaml")

	data := `
sensors:
  - name: left
    timeout_ms: 10
`

	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field error")
	}
}
