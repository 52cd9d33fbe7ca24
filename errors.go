package vl53l0x

import "errors"

var (
	// ErrInvalidParameters is returned when a caller supplied value is out of
	// range or too long. It is always detected before any register is written.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrControlInterface is returned when the underlying bus transfer fails
	// (NACK, arbitration loss, bus timeout). The bus error is wrapped with it.
	ErrControlInterface = errors.New("control interface error")

	// ErrUnexpectedModelID is returned by Init when the device at the handle's
	// address does not identify as a VL53L0X
	ErrUnexpectedModelID = errors.New("unexpected model ID")
)
