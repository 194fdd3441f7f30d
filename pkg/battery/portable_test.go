package battery

import (
	"testing"

	"github.com/distatus/battery"

	"github.com/inkypi/battmon/pkg/metrics"
)

func stubHostBatteries(t *testing.T, bats []*battery.Battery, err error) {
	t.Helper()

	old := getAllBatteries
	getAllBatteries = func() ([]*battery.Battery, error) {
		return bats, err
	}
	t.Cleanup(func() {
		getAllBatteries = old
	})
}

func TestPortableFactoryDeclinesWithoutBatteries(t *testing.T) {
	stubHostBatteries(t, nil, nil)

	b, err := PortableFactory(nil)
	if err != nil {
		t.Fatalf("factory returned error: %v", err)
	}
	if b != nil {
		t.Fatal("factory should decline when the host has no batteries")
	}
}

func TestPortableReadMapsStateAndSigns(t *testing.T) {
	stubHostBatteries(t, []*battery.Battery{{
		State:      battery.State{Raw: battery.Discharging},
		Current:    30000, // mWh remaining
		Full:       50000,
		Voltage:    11.4,
		ChargeRate: 11.4, // magnitude in W
	}}, nil)

	b, err := PortableFactory(nil)
	if err != nil || b == nil {
		t.Fatalf("factory failed: backend=%v err=%v", b, err)
	}

	r, err := b.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if r.Status == nil || *r.Status != metrics.StatusDischarging {
		t.Errorf("Status = %v, want Discharging", r.Status)
	}
	if r.Percentage == nil || !almostEqual(*r.Percentage, 60) {
		t.Errorf("Percentage = %v, want 60", r.Percentage)
	}
	if r.Power == nil || !almostEqual(*r.Power, -11.4) {
		t.Errorf("Power = %v, want -11.4 (discharge is negative)", r.Power)
	}
	if r.Current == nil || !almostEqual(*r.Current, -1000) {
		t.Errorf("Current = %v, want -1000 mA", r.Current)
	}
}

func TestPortableReadErrorPropagates(t *testing.T) {
	stubHostBatteries(t, []*battery.Battery{{}}, nil)

	b, err := PortableFactory(nil)
	if err != nil || b == nil {
		t.Fatalf("factory failed: backend=%v err=%v", b, err)
	}

	stubHostBatteries(t, nil, nil)
	if _, err := b.Read(); err == nil {
		t.Fatal("Read should fail when the host battery disappears")
	}
}
