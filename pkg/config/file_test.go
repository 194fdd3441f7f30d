package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "battmon.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultsWhenFileMissing(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if got := f.SensorAddress(); got != 0x40 {
		t.Errorf("SensorAddress() = 0x%02x, want 0x40", got)
	}
	if got := f.ShuntOhms(); got != 0.1 {
		t.Errorf("ShuntOhms() = %g, want 0.1", got)
	}
	if f.LogSystemStats() {
		t.Error("LogSystemStats() should default to false")
	}
	if got := f.StatsSchedule(); got != "@every 1m" {
		t.Errorf("StatsSchedule() = %q, want \"@every 1m\"", got)
	}
}

func TestDefaultsWhenFileEmpty(t *testing.T) {
	f, err := NewFile(writeConfigFile(t, "  \n"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if got := f.SensorAddress(); got != 0x40 {
		t.Errorf("SensorAddress() = 0x%02x, want 0x40", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	f, err := NewFile(writeConfigFile(t, `{
  "sensorAddress": 65,
  "shuntOhms": 0.05,
  "logSystemStats": true,
  "statsSchedule": "@every 30s"
}`))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if got := f.SensorAddress(); got != 0x41 {
		t.Errorf("SensorAddress() = 0x%02x, want 0x41", got)
	}
	if got := f.ShuntOhms(); got != 0.05 {
		t.Errorf("ShuntOhms() = %g, want 0.05", got)
	}
	if !f.LogSystemStats() {
		t.Error("LogSystemStats() = false, want true")
	}
	if got := f.StatsSchedule(); got != "@every 30s" {
		t.Errorf("StatsSchedule() = %q, want \"@every 30s\"", got)
	}
	// Untouched options keep their defaults.
	if f.InvertSensorPolarity() {
		t.Error("InvertSensorPolarity() should default to false")
	}
}

func TestLoadRejectsMalformedConfig(t *testing.T) {
	cases := map[string]string{
		"non-numeric shunt":    `{"shuntOhms": "0.1"}`,
		"negative shunt":       `{"shuntOhms": -1}`,
		"zero shunt":           `{"shuntOhms": 0}`,
		"address out of range": `{"sensorAddress": 512}`,
		"reserved address":     `{"sensorAddress": 1}`,
		"bad schedule":         `{"statsSchedule": "every minute or so"}`,
		"not json":             `sensorAddress = 0x40`,
	}

	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewFile(writeConfigFile(t, contents)); err == nil {
				t.Fatalf("NewFile accepted %s", contents)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battmon.json")
	f := NewFileFromConfig(&RawFileConfig{}, path)

	f.SetSensorAddress(0x44)
	f.SetShuntOhms(0.02)
	f.SetLogSystemStats(true)
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if got := g.SensorAddress(); got != 0x44 {
		t.Errorf("SensorAddress() = 0x%02x, want 0x44", got)
	}
	if got := g.ShuntOhms(); got != 0.02 {
		t.Errorf("ShuntOhms() = %g, want 0.02", got)
	}
	if !g.LogSystemStats() {
		t.Error("LogSystemStats() = false, want true")
	}
}

func TestSaveOmitsUnsetOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battmon.json")
	f := NewFileFromConfig(&RawFileConfig{}, path)
	f.SetLogSystemStats(true)
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Contains(string(b), "sensorAddress") {
		t.Errorf("unset sensorAddress should not be persisted: %s", b)
	}
}

func TestSetterPanicsOnInvalidValue(t *testing.T) {
	f := NewFileFromConfig(&RawFileConfig{}, "")

	defer func() {
		if recover() == nil {
			t.Fatal("SetShuntOhms(-1) should panic")
		}
	}()
	f.SetShuntOhms(-1)
}
