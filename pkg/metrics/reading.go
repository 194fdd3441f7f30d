package metrics

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Status represents the charge direction of the battery.
type Status string

const (
	// StatusCharging indicates net current is flowing into the battery.
	StatusCharging Status = "Charging"
	// StatusDischarging indicates the battery is powering the system.
	StatusDischarging Status = "Discharging"
	// StatusFull indicates the battery is fully charged.
	StatusFull Status = "Full"
	// StatusIdle indicates no significant current in either direction.
	StatusIdle Status = "Idle"
	// StatusUnknown is used for any status the hardware reports that we
	// do not recognize.
	StatusUnknown Status = "Unknown"
)

// ParseStatus maps a raw status string onto the Status enum,
// case-insensitively. The kernel's "Not charging" is treated as Idle.
// Unrecognized strings map to StatusUnknown instead of failing the
// read.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "charging":
		return StatusCharging
	case "discharging":
		return StatusDischarging
	case "full":
		return StatusFull
	case "idle", "not charging":
		return StatusIdle
	default:
		return StatusUnknown
	}
}

// Reading is the normalized battery metrics shape every backend
// produces. It is constructed fresh on every read and never mutated
// afterwards.
//
// Units:
// - Percentage: 0-100
// - Voltage: Volts
// - Current: mA, negative means net discharge
// - Power: Watts
// - Temperature: Celsius
//
// All fields except Available and Backend are optional. They are
// pointers so that an absent value is distinguishable from zero and is
// omitted from JSON entirely, never null-filled.
type Reading struct {
	Available   bool     `json:"available"`
	Backend     string   `json:"backend"`
	Percentage  *float64 `json:"percentage,omitempty"`
	Voltage     *float64 `json:"voltage,omitempty"`
	Current     *float64 `json:"current,omitempty"`
	Power       *float64 `json:"power,omitempty"`
	Status      *Status  `json:"status,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Unavailable returns the reading reported when no backend can supply
// metrics. It carries the backend identifier only; every other field
// stays absent.
func Unavailable(backend string) Reading {
	return Reading{Available: false, Backend: backend}
}

// LogrusFields flattens the reading for structured log records. Absent
// fields are left out of the record, mirroring the JSON shape.
func (r Reading) LogrusFields() logrus.Fields {
	fields := logrus.Fields{
		"available": r.Available,
		"backend":   r.Backend,
	}
	if r.Percentage != nil {
		fields["percentage"] = *r.Percentage
	}
	if r.Voltage != nil {
		fields["voltage"] = *r.Voltage
	}
	if r.Current != nil {
		fields["current"] = *r.Current
	}
	if r.Power != nil {
		fields["power"] = *r.Power
	}
	if r.Status != nil {
		fields["status"] = string(*r.Status)
	}
	if r.Temperature != nil {
		fields["temperature"] = *r.Temperature
	}
	return fields
}
