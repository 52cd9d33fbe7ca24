package vl53l0x

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestRegistryAdd(t *testing.T) {

	r := NewRegistry()
	pin := &gpiotest.Pin{N: "GPIO17"}

	require.NoError(t, r.Add("front", Address, nil))
	require.NoError(t, r.Add("rear", 0x30, pin))

	assert.Equal(t, 2, r.Len())

	assert.ErrorIs(t, r.Add("front", 0x31, &gpiotest.Pin{N: "GPIO22"}), ErrInvalidParameters, "duplicate name")
	assert.ErrorIs(t, r.Add("left", 0x30, &gpiotest.Pin{N: "GPIO22"}), ErrInvalidParameters, "duplicate address")
	assert.ErrorIs(t, r.Add("right", 0x31, nil), ErrInvalidParameters, "readdress without pin")
	assert.ErrorIs(t, r.Add("top", 0x80, &gpiotest.Pin{N: "GPIO22"}), ErrInvalidParameters, "not 7 bit")

	assert.Equal(t, 2, r.Len())

	_, ok := r.Sensor("front")
	assert.False(t, ok, "not brought up yet")
}

func TestRegistryBringup(t *testing.T) {

	pinA := &gpiotest.Pin{N: "GPIO17", L: gpio.High}
	pinB := &gpiotest.Pin{N: "GPIO27", L: gpio.High}

	// both sensors boot at the default address
	devA := newScenarioDevice(Address)
	devA.pin = pinA
	devB := newScenarioDevice(Address)
	devB.pin = pinB

	bus := newFakeBus(devA, devB)

	r := NewRegistry()

	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	require.NoError(t, r.Add("left", 0x30, pinA))
	require.NoError(t, r.Add("right", 0x31, pinB))

	require.NoError(t, r.Bringup(NewTransport(bus), nil))

	assert.Equal(t, uint8(0x30), devA.addr)
	assert.Equal(t, uint8(0x31), devB.addr)
	assert.Equal(t, gpio.High, pinA.Read())
	assert.Equal(t, gpio.High, pinB.Read())
	assert.Equal(t, []time.Duration{BootDelay, BootDelay}, slept)

	left, ok := r.Sensor("left")
	require.True(t, ok)
	assert.Equal(t, uint8(0x30), left.Addr())

	sensors := r.Sensors()
	require.Len(t, sensors, 2)
	assert.Equal(t, uint8(0x31), sensors[1].Addr())

	// the handles talk to their new addresses
	budget, err := sensors[1].GetMeasurementTimingBudget()
	require.NoError(t, err)
	assert.Equal(t, uint32(41638), budget)

	require.NoError(t, r.DisableAll())
	assert.Equal(t, gpio.Low, pinA.Read())
	assert.Empty(t, r.Sensors())
}

func TestRegistryBringupFailure(t *testing.T) {

	pin := &gpiotest.Pin{N: "GPIO17"}

	// nothing answers at the default address
	bus := newFakeBus()

	r := NewRegistry()
	r.sleep = func(time.Duration) {}

	require.NoError(t, r.Add("left", 0x30, pin))

	err := r.Bringup(NewTransport(bus), nil)

	assert.ErrorIs(t, err, ErrControlInterface)
	assert.ErrorContains(t, err, "left")

	_, ok := r.Sensor("left")
	assert.False(t, ok)
}

func TestNewWrongModel(t *testing.T) {

	d := newScenarioDevice(Address)
	d.set(IDENTIFICATION_MODEL_ID, 0xEA)

	_, err := New(NewTransport(newFakeBus(d)), Address)

	assert.ErrorIs(t, err, ErrUnexpectedModelID)
}

func TestNewInvalidParameters(t *testing.T) {

	_, err := New(nil, Address)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = New(NewTransport(newFakeBus()), 0x80)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestSetAddress(t *testing.T) {

	v, _, d, err := newScenarioSensor()
	require.NoError(t, err)

	require.NoError(t, v.SetAddress(0x40))

	assert.Equal(t, uint8(0x40), v.Addr())
	assert.Equal(t, uint8(0x40), d.addr)

	assert.ErrorIs(t, v.SetAddress(0), ErrInvalidParameters)
	assert.Equal(t, uint8(0x40), v.Addr())
}
