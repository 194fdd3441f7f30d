// Package battery implements battery metrics monitoring for
// single-board devices with various battery HATs, UPS modules, or
// power management systems.
//
// Metrics are obtained through one of several mutually-exclusive
// backends: the kernel power-supply class, an INA219 current/voltage
// sensor on the I2C bus, or custom backends registered by the
// embedding program. Detection runs once per process and gracefully
// handles hosts with no battery hardware at all.
package battery

import (
	"sync"

	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/metrics"
)

// Backend is one strategy for obtaining battery metrics from a
// specific hardware access path. A Backend is bound to its hardware at
// probe time and must be safe for concurrent Read calls; if the
// underlying transport cannot be shared, the Backend serializes its
// own reads.
type Backend interface {
	// Name identifies the backend and, where applicable, the device
	// node it bound to, e.g. "power_supply(BAT0)" or "ina219(0x40)".
	Name() string

	// Read performs one synchronous hardware read and returns a
	// populated reading with Available set. Read reports failures
	// (device disappeared, I/O error, malformed data) to the caller;
	// absence of hardware is a probe-time concern, not a read error.
	Read() (metrics.Reading, error)
}

// Factory inspects the hardware described by cfg and returns a bound
// Backend, or nil if this kind of hardware is not present. Absence of
// hardware is not an error: a Factory returning an error (or
// panicking) is treated as a decline and the detection chain moves on.
type Factory func(cfg config.Config) (Backend, error)

// NamedFactory pairs a Factory with the identifier used in logs while
// probing.
type NamedFactory struct {
	Name    string
	Factory Factory
}

// DefaultChain returns the built-in detection order: the kernel
// power-supply class first (most common and cheapest to probe), then
// the INA219 sensor chip. Custom factories registered with
// RegisterBackend are tried after the chain, in registration order.
func DefaultChain() []NamedFactory {
	return []NamedFactory{
		{Name: "power_supply", Factory: probePowerSupply},
		{Name: "ina219", Factory: probeSensorChip},
	}
}

var (
	registryMu sync.Mutex
	registry   []NamedFactory
)

// RegisterBackend adds a custom backend factory to the end of the
// detection chain. Factories are probed in registration order. To take
// effect, registration must happen before the monitor's first
// detection run (or before an explicit re-probe).
func RegisterBackend(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, NamedFactory{Name: name, Factory: f})
}

func registeredBackends() []NamedFactory {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]NamedFactory, len(registry))
	copy(out, registry)
	return out
}
