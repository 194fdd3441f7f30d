package battery

import (
	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"

	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/metrics"
)

// getAllBatteries is a variable so tests can stub out the OS battery
// enumeration.
var getAllBatteries = battery.GetAll

// PortableBackend reads whatever battery the host OS exposes, via the
// cross-platform distatus/battery library. It is registered as a
// custom backend when the portableFallback config toggle is on, and
// doubles as the in-tree example of the RegisterBackend extension
// point: it follows exactly the contract a third-party backend would.
type PortableBackend struct{}

// PortableFactory probes the OS battery enumeration. Like every
// factory, it declines (nil, nil) when no battery is found.
func PortableFactory(_ config.Config) (Backend, error) {
	bats, err := getAllBatteries()
	if err != nil || len(bats) == 0 {
		return nil, nil
	}
	return &PortableBackend{}, nil
}

func (*PortableBackend) Name() string {
	return "portable"
}

func (p *PortableBackend) Read() (metrics.Reading, error) {
	bats, err := getAllBatteries()
	if err != nil {
		return metrics.Reading{}, pkgerrors.Wrap(err, "enumerate host batteries")
	}
	if len(bats) == 0 {
		return metrics.Reading{}, pkgerrors.New("host battery disappeared")
	}

	// The library reports per-battery data; like the power-supply
	// backend we bind to the first battery only.
	bat := bats[0]

	r := metrics.Reading{Available: true, Backend: p.Name()}

	status := portableStatus(bat.State.Raw)
	r.Status = &status

	if bat.Full > 0 {
		pct := bat.Current / bat.Full * 100
		r.Percentage = &pct
	}
	if bat.Voltage > 0 {
		v := bat.Voltage
		r.Voltage = &v
	}

	// ChargeRate is an unsigned magnitude in watts; the state carries
	// the direction. Derive signed power and current (mA) from it so
	// the sign convention matches the other backends.
	if bat.ChargeRate > 0 && bat.Voltage > 0 {
		w := bat.ChargeRate
		if status == metrics.StatusDischarging {
			w = -w
		}
		ma := w / bat.Voltage * 1_000
		r.Power = &w
		r.Current = &ma
	}

	return r, nil
}

func portableStatus(s battery.AgnosticState) metrics.Status {
	switch s {
	case battery.Charging:
		return metrics.StatusCharging
	case battery.Discharging, battery.Empty:
		return metrics.StatusDischarging
	case battery.Full:
		return metrics.StatusFull
	case battery.Idle:
		return metrics.StatusIdle
	default:
		return metrics.StatusUnknown
	}
}
