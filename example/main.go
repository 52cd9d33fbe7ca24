package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/swdee/go-vl53l0x"
	"github.com/swdee/go-vl53l0x/internal/config"
)

func main() {

	cfgPath := flag.String("c", "vl53l0x.yaml", "Path to sensor configuration file")
	verbose := flag.Bool("v", false, "Log driver debug output")
	single := flag.Bool("r", false, "Take a single shot reading from each sensor")
	flag.Parse()

	if err := run(*cfgPath, *verbose, *single); err != nil {
		log.Fatal(err)
	}
}

// run brings up the configured sensors and prints their timing, the buses
// are closed on every return path
func run(cfgPath string, verbose, single bool) error {

	// Load + validate config
	cfg, err := config.Load(cfgPath)

	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	config.Normalize(cfg)

	logger := log.New(io.Discard, "", log.LstdFlags)

	if verbose {
		logger = log.New(os.Stderr, "vl53l0x: ", log.LstdFlags)
	}

	// enable pins are looked up through periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init failed: %w", err)
	}

	// one transport and registry per physical bus
	type busKey struct{ driver, bus string }

	registries := make(map[busKey]*vl53l0x.Registry)
	transports := make(map[busKey]*vl53l0x.Transport)

	for _, s := range cfg.Sensors {

		key := busKey{s.Driver, s.Bus}

		if _, ok := transports[key]; !ok {
			bus, closeBus, err := openBus(s.Driver, s.Bus)

			if err != nil {
				return fmt.Errorf("open bus failed (sensor=%s): %w", s.Name, err)
			}

			defer closeBus()

			transports[key] = vl53l0x.NewTransport(bus)
			registries[key] = vl53l0x.NewRegistry()
		}

		var pin gpio.PinOut

		if s.EnablePin != "" {
			p := gpioreg.ByName(s.EnablePin)

			if p == nil {
				return fmt.Errorf("enable pin %q not found (sensor=%s)", s.EnablePin, s.Name)
			}

			pin = p
		}

		if err := registries[key].Add(s.Name, s.Address, pin); err != nil {
			return err
		}
	}

	for key, reg := range registries {
		if err := reg.Bringup(transports[key], logger); err != nil {
			return fmt.Errorf("bringup failed (bus=%s): %w", key.bus, err)
		}
	}

	for _, s := range cfg.Sensors {

		sensor, ok := registries[busKey{s.Driver, s.Bus}].Sensor(s.Name)

		if !ok {
			return fmt.Errorf("sensor %s was not brought up", s.Name)
		}

		settings, err := s.Settings()

		if err != nil {
			return err
		}

		if err := sensor.Configure(settings); err != nil {
			return fmt.Errorf("configure failed (sensor=%s): %w", s.Name, err)
		}

		snap, err := sensor.Snapshot()

		if err != nil {
			return fmt.Errorf("read timing failed (sensor=%s): %w", s.Name, err)
		}

		printSnapshot(s.Name, sensor.Addr(), snap)

		if !single {
			continue
		}

		mm, err := sensor.ReadRangeSingleMillimeters()

		if err != nil {
			return fmt.Errorf("reading failed (sensor=%s): %w", s.Name, err)
		}

		fmt.Printf("  range: %d mm\n", mm)
	}

	return nil
}

// openBus returns the register bus for the driver and a function closing it
func openBus(driver, name string) (vl53l0x.Bus, func(), error) {

	switch driver {
	case config.DriverPeriph:
		bus, closer, err := vl53l0x.OpenPeriphBus(name)

		if err != nil {
			return nil, nil, err
		}

		return bus, func() { closer.Close() }, nil

	default:
		bus := vl53l0x.OpenI2CDevBus(name)
		return bus, func() { bus.Close() }, nil
	}
}

func printSnapshot(name string, addr uint8, snap vl53l0x.TimingSnapshot) {

	e, t := snap.Enables, snap.Timeouts

	fmt.Printf("%s @ 0x%02X\n", name, addr)
	fmt.Printf("  steps: tcc=%t msrc=%t dss=%t pre_range=%t final_range=%t\n",
		e.TCC, e.MSRC, e.DSS, e.PreRange, e.FinalRange)
	fmt.Printf("  vcsel: pre_range=%d final_range=%d pclks\n",
		t.PreRangeVcselPeriodPclks, t.FinalRangeVcselPeriodPclks)
	fmt.Printf("  msrc/dss/tcc: %d mclks %d us\n", t.MsrcDssTccMclks, t.MsrcDssTccUs)
	fmt.Printf("  pre range:    %d mclks %d us\n", t.PreRangeMclks, t.PreRangeUs)
	fmt.Printf("  final range:  %d mclks %d us\n", t.FinalRangeMclks, t.FinalRangeUs)
	fmt.Printf("  timing budget: %d us\n", snap.BudgetUs)
}
