package battery

import (
	"fmt"
	"io"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ina219"
	"periph.io/x/host/v3"

	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/metrics"
)

// powerSensor is the slice of the INA219 driver the backend needs.
// Tests substitute a fake.
type powerSensor interface {
	Sense() (ina219.PowerMonitor, error)
}

// idleThresholdMA is the current magnitude below which the optional
// status heuristic reports Idle instead of Charging/Discharging, to
// keep sensor noise from flapping the status.
const idleThresholdMA = 10.0

// SensorChipBackend reads an INA219 current/voltage monitor on the
// I2C bus. The chip has no notion of remaining capacity, so percentage
// is never reported, and status only when the current-direction
// heuristic is enabled in the configuration.
type SensorChipBackend struct {
	// The I2C bus is a shared transport, so reads are serialized.
	mu     sync.Mutex
	sensor powerSensor
	closer io.Closer

	addr         int
	invert       bool
	deriveStatus bool
}

// probeSensorChip tries to bind an INA219 at the configured address
// (default 0x40) with the configured shunt calibration (default
// 0.1 ohms). Any failure along the way, including an unresponsive
// address, declines rather than erroring.
func probeSensorChip(cfg config.Config) (Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, nil
	}

	opts := ina219.DefaultOpts
	opts.Address = cfg.SensorAddress()
	opts.SenseResistor = physic.ElectricResistance(cfg.ShuntOhms() * float64(physic.Ohm))

	dev, err := ina219.New(bus, &opts)
	if err != nil {
		_ = bus.Close()
		return nil, nil
	}

	b := &SensorChipBackend{
		sensor:       dev,
		closer:       bus,
		addr:         opts.Address,
		invert:       cfg.InvertSensorPolarity(),
		deriveStatus: cfg.DeriveSensorStatus(),
	}

	// A wired-but-dead address often only surfaces on the first
	// register access, so verify with a test read before claiming the
	// hardware.
	if _, err := dev.Sense(); err != nil {
		_ = bus.Close()
		return nil, nil
	}

	return b, nil
}

func (b *SensorChipBackend) Name() string {
	return fmt.Sprintf("ina219(0x%02x)", b.addr)
}

func (b *SensorChipBackend) Read() (metrics.Reading, error) {
	b.mu.Lock()
	pm, err := b.sensor.Sense()
	b.mu.Unlock()
	if err != nil {
		return metrics.Reading{}, pkgerrors.Wrap(err, "ina219 read")
	}

	volts := float64(pm.Voltage) / float64(physic.Volt)
	ma := float64(pm.Current) / float64(physic.MilliAmpere)
	if b.invert {
		// The chip has no inherent sign semantics; with the shunt
		// wired backwards this restores negative = net discharge.
		ma = -ma
	}
	watts := volts * ma / 1_000

	r := metrics.Reading{
		Available: true,
		Backend:   b.Name(),
		Voltage:   &volts,
		Current:   &ma,
		Power:     &watts,
	}

	if b.deriveStatus {
		status := metrics.StatusIdle
		switch {
		case ma > idleThresholdMA:
			status = metrics.StatusCharging
		case ma < -idleThresholdMA:
			status = metrics.StatusDischarging
		}
		r.Status = &status
	}

	return r, nil
}

// Close releases the underlying I2C bus.
func (b *SensorChipBackend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
