package vl53l0x

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeout is the I/O timeout set by Init
	DefaultTimeout = 10 * time.Millisecond
	// DefaultReadingTimeout is the measurement timeout set by Init
	DefaultReadingTimeout = 5 * time.Second
	// MaxTimeout is the longest I/O or reading timeout accepted
	MaxTimeout = 60 * time.Second
)

// SetTimeout sets how long register handshakes such as starting a single
// shot measurement wait for the sensor, 0 waits forever
func (v *VL53L0X) SetTimeout(timeout time.Duration) {
	v.ioTimeout = timeout
}

// SetReadingTimeout sets how long a blocking Read waits for a measurement to
// complete, 0 waits forever
func (v *VL53L0X) SetReadingTimeout(timeout time.Duration) {
	v.readingTimeout = timeout
}

// TimeoutOccurred reports whether a timeout has occurred since the last call
func (v *VL53L0X) TimeoutOccurred() bool {
	tmp := v.didTimeout
	v.didTimeout = false
	return tmp
}

// pollUntil calls ready every millisecond until it reports true, returns an
// error or timeout expires
func (v *VL53L0X) pollUntil(what string, timeout time.Duration, ready func() (bool, error)) error {

	start := time.Now()

	for {
		ok, err := ready()

		if err != nil {
			return err
		}

		if ok {
			return nil
		}

		if timeout > 0 && time.Since(start) > timeout {
			v.didTimeout = true
			return fmt.Errorf("timeout waiting for %s after %s", what, timeout)
		}

		time.Sleep(time.Millisecond)
	}
}
