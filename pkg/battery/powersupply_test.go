package battery

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/inkypi/battmon/pkg/metrics"
)

func setTestSysfsRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	oldRoot := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() {
		sysfsRoot = oldRoot
	})

	return root
}

func writeSupplyEntry(t *testing.T, root, name, typ string, attrs map[string]string) {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "type"), []byte(typ+"\n"), 0o644); err != nil {
		t.Fatalf("write type: %v", err)
	}
	for attr, value := range attrs {
		if err := os.WriteFile(filepath.Join(dir, attr), []byte(value+"\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", attr, err)
		}
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestProbeSkipsNonBatterySupplies(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeSupplyEntry(t, root, "AC", "Mains", nil)
	writeSupplyEntry(t, root, "ucsi-source-psy-1", "USB", nil)

	b, err := probePowerSupply(nil)
	if err != nil {
		t.Fatalf("probe returned error: %v", err)
	}
	if b != nil {
		t.Fatalf("probe bound %s, want decline", b.Name())
	}
}

func TestProbeDeclinesWhenRootMissing(t *testing.T) {
	oldRoot := sysfsRoot
	sysfsRoot = filepath.Join(t.TempDir(), "nope")
	t.Cleanup(func() { sysfsRoot = oldRoot })

	b, err := probePowerSupply(nil)
	if err != nil {
		t.Fatalf("probe returned error: %v", err)
	}
	if b != nil {
		t.Fatal("probe should decline when the class directory is absent")
	}
}

func TestProbePicksLexicographicallyFirstBattery(t *testing.T) {
	root := setTestSysfsRoot(t)
	// Written out of order on purpose; selection must not depend on
	// directory enumeration order.
	writeSupplyEntry(t, root, "BAT1", "Battery", map[string]string{"capacity": "50"})
	writeSupplyEntry(t, root, "AC", "Mains", nil)
	writeSupplyEntry(t, root, "BAT0", "Battery", map[string]string{"capacity": "80"})

	for i := 0; i < 5; i++ {
		b, err := probePowerSupply(nil)
		if err != nil {
			t.Fatalf("probe returned error: %v", err)
		}
		if b == nil {
			t.Fatal("probe declined, want BAT0")
		}
		if got := b.Name(); got != "power_supply(BAT0)" {
			t.Fatalf("run %d bound %s, want power_supply(BAT0)", i, got)
		}
	}
}

func TestReadConvertsKernelUnits(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeSupplyEntry(t, root, "BAT0", "Battery", map[string]string{
		"capacity":    "76",
		"voltage_now": "4150000",
		"current_now": "-450000",
		"status":      "Discharging",
		"temp":        "305",
	})

	b, err := probePowerSupply(nil)
	if err != nil || b == nil {
		t.Fatalf("probe failed: backend=%v err=%v", b, err)
	}

	r, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if !r.Available {
		t.Error("reading should be available")
	}
	if r.Percentage == nil || *r.Percentage != 76 {
		t.Errorf("Percentage = %v, want 76", r.Percentage)
	}
	if r.Voltage == nil || !almostEqual(*r.Voltage, 4.15) {
		t.Errorf("Voltage = %v, want 4.15", r.Voltage)
	}
	if r.Current == nil || !almostEqual(*r.Current, -450) {
		t.Errorf("Current = %v, want -450", r.Current)
	}
	if r.Power == nil || !almostEqual(*r.Power, -1.8675) {
		t.Errorf("Power = %v, want -1.8675", r.Power)
	}
	if r.Status == nil || *r.Status != metrics.StatusDischarging {
		t.Errorf("Status = %v, want Discharging", r.Status)
	}
	if r.Temperature == nil || !almostEqual(*r.Temperature, 30.5) {
		t.Errorf("Temperature = %v, want 30.5", r.Temperature)
	}
}

func TestReadForcesDischargeCurrentNegative(t *testing.T) {
	root := setTestSysfsRoot(t)
	// Unsigned current with the direction carried by status only.
	writeSupplyEntry(t, root, "BAT0", "Battery", map[string]string{
		"voltage_now": "3700000",
		"current_now": "250000",
		"status":      "Discharging",
	})

	b, _ := probePowerSupply(nil)
	r, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Current == nil || *r.Current != -250 {
		t.Errorf("Current = %v, want -250", r.Current)
	}
	if r.Power == nil || *r.Power >= 0 {
		t.Errorf("Power = %v, want negative", r.Power)
	}
}

func TestReadToleratesMissingAttributes(t *testing.T) {
	root := setTestSysfsRoot(t)
	// Capacity only: no voltage, current, status, or temp.
	writeSupplyEntry(t, root, "BAT0", "Battery", map[string]string{
		"capacity": "42",
	})

	b, _ := probePowerSupply(nil)
	r, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Percentage == nil || *r.Percentage != 42 {
		t.Errorf("Percentage = %v, want 42", r.Percentage)
	}
	if r.Voltage != nil || r.Current != nil || r.Power != nil || r.Status != nil || r.Temperature != nil {
		t.Errorf("missing attributes must stay absent, got %+v", r)
	}
}

func TestReadMapsUnrecognizedStatusToUnknown(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeSupplyEntry(t, root, "BAT0", "Battery", map[string]string{
		"capacity": "10",
		"status":   "Recalibrating",
	})

	b, _ := probePowerSupply(nil)
	r, err := b.Read()
	if err != nil {
		t.Fatalf("unrecognized status must not fail the read: %v", err)
	}
	if r.Status == nil || *r.Status != metrics.StatusUnknown {
		t.Errorf("Status = %v, want Unknown", r.Status)
	}
}

func TestReadFailsOnMalformedNumericAttribute(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeSupplyEntry(t, root, "BAT0", "Battery", map[string]string{
		"voltage_now": "garbage",
	})

	b, _ := probePowerSupply(nil)
	if _, err := b.Read(); err == nil {
		t.Fatal("Read should fail on malformed voltage_now")
	}
}

func TestReadFailsWhenDeviceDisappears(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeSupplyEntry(t, root, "BAT0", "Battery", map[string]string{"capacity": "99"})

	b, _ := probePowerSupply(nil)
	if err := os.RemoveAll(filepath.Join(root, "BAT0")); err != nil {
		t.Fatalf("remove entry: %v", err)
	}

	if _, err := b.Read(); err == nil {
		t.Fatal("Read should fail after the device disappears")
	}
}
