package vl53l0x

import "fmt"

// Init checks the device identity, saves the stop variable used to start
// ranging, routes the new sample interrupt to GPIO1 and loads the limit
// checks and measurement timing budget the sensor is currently configured
// with. The tuning table and reference SPAD setup are left as the sensor
// firmware boots them.
func (v *VL53L0X) Init() error {

	v.SetTimeout(DefaultTimeout)
	v.SetReadingTimeout(DefaultReadingTimeout)

	// check model ID register (value specified in datasheet)
	model, err := v.readReg(IDENTIFICATION_MODEL_ID)

	if err != nil {
		return err
	}

	if model != ModelID {
		return fmt.Errorf("%w: 0x%02X", ErrUnexpectedModelID, model)
	}

	revision, err := v.readReg(IDENTIFICATION_REVISION_ID)

	if err != nil {
		return err
	}

	v.log.Printf("Model 0x%02X revision 0x%02X", model, revision)

	stop, err := v.readStopVariable()

	if err != nil {
		return fmt.Errorf("Error reading stop variable, %w", err)
	}

	v.stopVariable = stop

	if err := v.configureInterrupt(); err != nil {
		return fmt.Errorf("Error configuring interrupt, %w", err)
	}

	if err := v.loadLimitChecks(); err != nil {
		return fmt.Errorf("Error reading limit checks, %w", err)
	}

	budget, err := v.GetMeasurementTimingBudget()

	if err != nil {
		return fmt.Errorf("Error reading timing budget, %w", err)
	}

	v.timingBudgetUs = budget
	return nil
}

// configureInterrupt raises the interrupt on a new sample ready with the GPIO1
// pin active low and clears any pending interrupt
func (v *VL53L0X) configureInterrupt() error {

	if err := v.writeReg(SYSTEM_INTERRUPT_CONFIG_GPIO, 0x04); err != nil {
		return err
	}

	mux, err := v.readReg(GPIO_HV_MUX_ACTIVE_HIGH)

	if err != nil {
		return err
	}

	if err := v.writeReg(GPIO_HV_MUX_ACTIVE_HIGH, mux&^0x10); err != nil {
		return err
	}

	return v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01)
}

// SetAddress changes the bus address of the sensor. Subsequent operations on
// the handle use the new address.
func (v *VL53L0X) SetAddress(newAddr uint8) error {

	if newAddr == 0 || newAddr > 0x7F {
		return fmt.Errorf("address 0x%02X is not a 7 bit address: %w", newAddr, ErrInvalidParameters)
	}

	if err := v.writeReg(I2C_SLAVE_DEVICE_ADDRESS, newAddr&0x7F); err != nil {
		return err
	}

	v.log.Printf("Address changed 0x%02X -> 0x%02X", v.addr, newAddr)

	v.addr = newAddr
	return nil
}
