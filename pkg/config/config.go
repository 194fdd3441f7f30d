package config

import "github.com/sirupsen/logrus"

// Config is the settings store consumed by the battery monitor and the
// daemon. Hardware overrides (sensor address, shunt calibration) are
// read at probe time; toggles are read on every cycle.
type Config interface {
	SensorAddress() int
	ShuntOhms() float64
	InvertSensorPolarity() bool
	DeriveSensorStatus() bool
	PortableFallback() bool
	LogSystemStats() bool
	StatsSchedule() string
	AllowNonRootAccess() bool

	SetSensorAddress(int)
	SetShuntOhms(float64)
	SetInvertSensorPolarity(bool)
	SetDeriveSensorStatus(bool)
	SetPortableFallback(bool)
	SetLogSystemStats(bool)
	SetStatsSchedule(string)
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error

	// LogrusFields flattens the effective configuration for logging.
	LogrusFields() logrus.Fields
}
