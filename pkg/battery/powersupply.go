package battery

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/metrics"
)

// sysfsRoot is the kernel power-supply class enumeration point. It is
// a variable so tests can point it at a fake tree.
var sysfsRoot = "/sys/class/power_supply"

// PowerSupplyBackend reads the power-supply class entry it was bound
// to at probe time. The kernel exposes one attribute file per metric;
// most are optional, so each is read opportunistically.
type PowerSupplyBackend struct {
	entry string // entry name under sysfsRoot, e.g. BAT0
	path  string
}

// probePowerSupply scans the power-supply class for entries of type
// "Battery" (mains and USB supplies are skipped). When several battery
// entries exist, the lexicographically first name wins so the bound
// backend identity is stable across restarts.
func probePowerSupply(_ config.Config) (Backend, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		// The class directory not existing just means this access
		// path is absent on this kernel.
		return nil, nil
	}

	var batteries []string
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(sysfsRoot, e.Name(), "type"))
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(string(raw)), "Battery") {
			batteries = append(batteries, e.Name())
		}
	}
	if len(batteries) == 0 {
		return nil, nil
	}

	sort.Strings(batteries)
	entry := batteries[0]

	return &PowerSupplyBackend{
		entry: entry,
		path:  filepath.Join(sysfsRoot, entry),
	}, nil
}

func (b *PowerSupplyBackend) Name() string {
	return "power_supply(" + b.entry + ")"
}

// Entry returns the power-supply entry name this backend bound to.
func (b *PowerSupplyBackend) Entry() string {
	return b.entry
}

// Read parses the entry's attribute files. Kernel units: capacity is
// an 0-100 integer, voltage_now is µV, current_now is µA, temp is
// tenths of a degree Celsius.
func (b *PowerSupplyBackend) Read() (metrics.Reading, error) {
	if _, err := os.Stat(b.path); err != nil {
		return metrics.Reading{}, pkgerrors.Wrapf(err, "power supply %s disappeared", b.entry)
	}

	r := metrics.Reading{Available: true, Backend: b.Name()}

	// An unrecognized status string maps to Unknown instead of failing
	// the read.
	status := metrics.StatusUnknown
	haveStatus := false
	if s, ok := b.attr("status"); ok {
		status = metrics.ParseStatus(s)
		r.Status = &status
		haveStatus = true
	}

	if s, ok := b.attr("capacity"); ok {
		pct, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return metrics.Reading{}, pkgerrors.Wrapf(err, "malformed capacity %q", s)
		}
		r.Percentage = &pct
	}

	if s, ok := b.attr("voltage_now"); ok {
		uv, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return metrics.Reading{}, pkgerrors.Wrapf(err, "malformed voltage_now %q", s)
		}
		v := uv / 1_000_000
		r.Voltage = &v
	}

	if s, ok := b.attr("current_now"); ok {
		ua, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return metrics.Reading{}, pkgerrors.Wrapf(err, "malformed current_now %q", s)
		}
		ma := ua / 1_000
		// Some supplies report current_now unsigned and carry the
		// direction in the status attribute instead. Negative always
		// means net discharge.
		if haveStatus {
			switch status {
			case metrics.StatusDischarging:
				ma = -math.Abs(ma)
			case metrics.StatusCharging:
				ma = math.Abs(ma)
			}
		}
		r.Current = &ma
	}

	if r.Voltage != nil && r.Current != nil {
		w := *r.Voltage * *r.Current / 1_000
		r.Power = &w
	}

	// Temperature is rarely wired up. Its absence, or garbage in it,
	// never fails the read.
	if s, ok := b.attr("temp"); ok {
		if tenths, err := strconv.ParseFloat(s, 64); err == nil {
			t := tenths / 10
			r.Temperature = &t
		}
	}

	return r, nil
}

func (b *PowerSupplyBackend) attr(name string) (string, bool) {
	raw, err := os.ReadFile(filepath.Join(b.path, name))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(raw)), true
}
