// Package uptime persists cumulative runtime since the battery was
// last fully charged, so operators can gauge real-world battery life
// across reboots.
package uptime

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type state struct {
	BatteryFullChargeTime *time.Time `json:"battery_full_charge_time"`
	TotalRuntimeSeconds   int64      `json:"total_runtime_seconds"`
	LastUpdate            time.Time  `json:"last_update"`
}

// Snapshot is a read-only view of the tracker state.
type Snapshot struct {
	// TotalRuntime is the accumulated on-time since the last full
	// charge, across reboots.
	TotalRuntime time.Duration
	// SinceFullCharge is the wall-clock time since the last full
	// charge, or nil if a full charge was never observed.
	SinceFullCharge *time.Duration
}

// Tracker accumulates runtime slices into a JSON state file. All
// methods are safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Tracker {
	return &Tracker{path: path}
}

// RecordSlice adds the wall-clock time elapsed since the previous
// update to the accumulated runtime and returns the new total.
// Negative deltas (clock stepped backwards) are dropped.
func (t *Tracker) RecordSlice() (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.load()
	now := time.Now().UTC()

	if !s.LastUpdate.IsZero() {
		if delta := now.Sub(s.LastUpdate); delta > 0 {
			s.TotalRuntimeSeconds += int64(delta.Seconds())
		}
	}
	s.LastUpdate = now

	if err := t.save(s); err != nil {
		return 0, err
	}
	return time.Duration(s.TotalRuntimeSeconds) * time.Second, nil
}

// SetFullChargeNow marks the battery as fully charged right now,
// zeroing the accumulated runtime.
func (t *Tracker) SetFullChargeNow() (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.load()
	now := time.Now().UTC()
	s.BatteryFullChargeTime = &now
	s.TotalRuntimeSeconds = 0
	s.LastUpdate = now

	if err := t.save(s); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// Snapshot returns the current tracker state without modifying it.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.load()
	snap := Snapshot{
		TotalRuntime: time.Duration(s.TotalRuntimeSeconds) * time.Second,
	}
	if s.BatteryFullChargeTime != nil {
		since := time.Since(*s.BatteryFullChargeTime)
		snap.SinceFullCharge = &since
	}
	return snap
}

// load reads the state file. A missing or corrupt file yields a fresh
// state rather than an error; the tracker is informational and must
// never wedge the daemon.
func (t *Tracker) load() *state {
	b, err := os.ReadFile(t.path)
	if err != nil {
		return &state{}
	}

	s := &state{}
	if err := json.Unmarshal(b, s); err != nil {
		logrus.Warnf("uptime state file %s is corrupt, starting fresh: %v", t.path, err)
		return &state{}
	}
	return s
}

func (t *Tracker) save(s *state) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to encode uptime state")
	}
	if err := os.WriteFile(t.path, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write uptime state to %s", t.path)
	}
	return nil
}

// FormatHMS renders a duration as "3h 2m 1s".
func FormatHMS(d time.Duration) string {
	sec := int64(d.Seconds())
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%dh %dm %ds", sec/3600, (sec%3600)/60, sec%60)
}
