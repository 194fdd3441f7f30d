package uptime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "uptime.json"))
}

func TestSnapshotOfFreshState(t *testing.T) {
	tr := newTestTracker(t)

	snap := tr.Snapshot()
	if snap.TotalRuntime != 0 {
		t.Errorf("TotalRuntime = %v, want 0", snap.TotalRuntime)
	}
	if snap.SinceFullCharge != nil {
		t.Errorf("SinceFullCharge = %v, want nil before any full charge", snap.SinceFullCharge)
	}
}

func TestRecordSliceAccumulates(t *testing.T) {
	tr := newTestTracker(t)

	// First slice establishes the baseline only.
	if _, err := tr.RecordSlice(); err != nil {
		t.Fatalf("RecordSlice: %v", err)
	}

	// Backdate last_update so the next slice counts a known delta.
	raw, err := os.ReadFile(tr.path)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var s state
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	s.LastUpdate = s.LastUpdate.Add(-90 * time.Second)
	raw, _ = json.Marshal(&s)
	if err := os.WriteFile(tr.path, raw, 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}

	total, err := tr.RecordSlice()
	if err != nil {
		t.Fatalf("RecordSlice: %v", err)
	}
	if total < 90*time.Second || total > 95*time.Second {
		t.Errorf("TotalRuntime = %v, want about 90s", total)
	}
}

func TestRecordSliceDropsNegativeDelta(t *testing.T) {
	tr := newTestTracker(t)
	if _, err := tr.RecordSlice(); err != nil {
		t.Fatalf("RecordSlice: %v", err)
	}

	raw, _ := os.ReadFile(tr.path)
	var s state
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	s.LastUpdate = s.LastUpdate.Add(time.Hour) // clock stepped backwards
	raw, _ = json.Marshal(&s)
	if err := os.WriteFile(tr.path, raw, 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}

	total, err := tr.RecordSlice()
	if err != nil {
		t.Fatalf("RecordSlice: %v", err)
	}
	if total != 0 {
		t.Errorf("TotalRuntime = %v, want 0 after negative delta", total)
	}
}

func TestSetFullChargeResetsRuntime(t *testing.T) {
	tr := newTestTracker(t)
	if _, err := tr.RecordSlice(); err != nil {
		t.Fatalf("RecordSlice: %v", err)
	}

	if _, err := tr.SetFullChargeNow(); err != nil {
		t.Fatalf("SetFullChargeNow: %v", err)
	}

	snap := tr.Snapshot()
	if snap.TotalRuntime != 0 {
		t.Errorf("TotalRuntime = %v, want 0 after full charge", snap.TotalRuntime)
	}
	if snap.SinceFullCharge == nil {
		t.Fatal("SinceFullCharge should be set after full charge")
	}
	if *snap.SinceFullCharge > time.Minute {
		t.Errorf("SinceFullCharge = %v, want recent", *snap.SinceFullCharge)
	}
}

func TestCorruptStateFileStartsFresh(t *testing.T) {
	tr := newTestTracker(t)
	if err := os.WriteFile(tr.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt state: %v", err)
	}

	snap := tr.Snapshot()
	if snap.TotalRuntime != 0 || snap.SinceFullCharge != nil {
		t.Errorf("corrupt state should read as fresh, got %+v", snap)
	}

	if _, err := tr.RecordSlice(); err != nil {
		t.Fatalf("RecordSlice after corrupt state: %v", err)
	}
}

func TestFormatHMS(t *testing.T) {
	cases := map[time.Duration]string{
		0:                "0h 0m 0s",
		61 * time.Second: "0h 1m 1s",
		3*time.Hour + 2*time.Minute + time.Second: "3h 2m 1s",
		-5 * time.Second: "0h 0m 0s",
	}
	for in, want := range cases {
		if got := FormatHMS(in); got != want {
			t.Errorf("FormatHMS(%v) = %q, want %q", in, got, want)
		}
	}
}
