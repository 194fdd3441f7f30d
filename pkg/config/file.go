package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/inkypi/battmon/pkg/utils/ptr"
)

// Defaults match the documented hardware defaults: an INA219 on I2C
// address 0x40 with a 0.1 ohm shunt.
var (
	defaultFileConfig = &RawFileConfig{
		SensorAddress:        ptr.To(0x40),
		ShuntOhms:            ptr.To(0.1),
		InvertSensorPolarity: ptr.To(false),
		DeriveSensorStatus:   ptr.To(false),
		PortableFallback:     ptr.To(false),
		LogSystemStats:       ptr.To(false),
		StatsSchedule:        ptr.To("@every 1m"),
		AllowNonRootAccess:   ptr.To(false),
	}

	// scheduleParser accepts the same syntax the stats logger uses.
	scheduleParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = defaultFileConfig
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// RawFileConfig is the on-disk JSON shape. Fields are pointers so an
// absent option falls back to the documented default instead of the
// zero value.
type RawFileConfig struct {
	SensorAddress        *int     `json:"sensorAddress,omitempty"`
	ShuntOhms            *float64 `json:"shuntOhms,omitempty"`
	InvertSensorPolarity *bool    `json:"invertSensorPolarity,omitempty"`
	DeriveSensorStatus   *bool    `json:"deriveSensorStatus,omitempty"`
	PortableFallback     *bool    `json:"portableFallback,omitempty"`
	LogSystemStats       *bool    `json:"logSystemStats,omitempty"`
	StatsSchedule        *string  `json:"statsSchedule,omitempty"`
	AllowNonRootAccess   *bool    `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		SensorAddress:        ptr.To(c.SensorAddress()),
		ShuntOhms:            ptr.To(c.ShuntOhms()),
		InvertSensorPolarity: ptr.To(c.InvertSensorPolarity()),
		DeriveSensorStatus:   ptr.To(c.DeriveSensorStatus()),
		PortableFallback:     ptr.To(c.PortableFallback()),
		LogSystemStats:       ptr.To(c.LogSystemStats()),
		StatsSchedule:        ptr.To(c.StatsSchedule()),
		AllowNonRootAccess:   ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

// Validate rejects malformed overrides before any hardware probing
// happens, so a typo in the config never gets silently ignored.
func (c *RawFileConfig) Validate() error {
	if c.SensorAddress != nil {
		if err := ValidateSensorAddress(*c.SensorAddress); err != nil {
			return err
		}
	}
	if c.ShuntOhms != nil {
		if err := ValidateShuntOhms(*c.ShuntOhms); err != nil {
			return err
		}
	}
	if c.StatsSchedule != nil {
		if err := ValidateStatsSchedule(*c.StatsSchedule); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSensorAddress checks that the I2C address override is within
// the 7-bit addressable range (0x08-0x77 is reserved-free on most
// buses; 0x03-0x77 is what the kernel accepts).
func ValidateSensorAddress(addr int) error {
	if addr < 0x03 || addr > 0x77 {
		return fmt.Errorf("sensorAddress must be a 7-bit I2C address between 0x03 and 0x77, got 0x%02x", addr)
	}
	return nil
}

// ValidateShuntOhms checks the shunt calibration override.
func ValidateShuntOhms(ohms float64) error {
	if ohms <= 0 {
		return fmt.Errorf("shuntOhms must be greater than 0, got %g", ohms)
	}
	return nil
}

// ValidateStatsSchedule checks the periodic logging schedule.
func ValidateStatsSchedule(schedule string) error {
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return pkgerrors.Wrapf(err, "statsSchedule %q is not a valid cron expression", schedule)
	}
	return nil
}

func (f *File) SensorAddress() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.SensorAddress != nil {
		return *f.c.SensorAddress
	}
	return *defaultFileConfig.SensorAddress
}

func (f *File) ShuntOhms() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.ShuntOhms != nil {
		return *f.c.ShuntOhms
	}
	return *defaultFileConfig.ShuntOhms
}

func (f *File) InvertSensorPolarity() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.InvertSensorPolarity != nil {
		return *f.c.InvertSensorPolarity
	}
	return *defaultFileConfig.InvertSensorPolarity
}

func (f *File) DeriveSensorStatus() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.DeriveSensorStatus != nil {
		return *f.c.DeriveSensorStatus
	}
	return *defaultFileConfig.DeriveSensorStatus
}

func (f *File) PortableFallback() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.PortableFallback != nil {
		return *f.c.PortableFallback
	}
	return *defaultFileConfig.PortableFallback
}

func (f *File) LogSystemStats() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.LogSystemStats != nil {
		return *f.c.LogSystemStats
	}
	return *defaultFileConfig.LogSystemStats
}

func (f *File) StatsSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.StatsSchedule != nil {
		return *f.c.StatsSchedule
	}
	return *defaultFileConfig.StatsSchedule
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.AllowNonRootAccess != nil {
		return *f.c.AllowNonRootAccess
	}
	return *defaultFileConfig.AllowNonRootAccess
}

func (f *File) SetSensorAddress(addr int) {
	if f.c == nil {
		panic("config is nil")
	}

	if err := ValidateSensorAddress(addr); err != nil {
		panic(err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SensorAddress = &addr
}

func (f *File) SetShuntOhms(ohms float64) {
	if f.c == nil {
		panic("config is nil")
	}

	if err := ValidateShuntOhms(ohms); err != nil {
		panic(err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ShuntOhms = &ohms
}

func (f *File) SetInvertSensorPolarity(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.InvertSensorPolarity = &b
}

func (f *File) SetDeriveSensorStatus(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.DeriveSensorStatus = &b
}

func (f *File) SetPortableFallback(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.PortableFallback = &b
}

func (f *File) SetLogSystemStats(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.LogSystemStats = &b
}

func (f *File) SetStatsSchedule(schedule string) {
	if f.c == nil {
		panic("config is nil")
	}

	if err := ValidateStatsSchedule(schedule); err != nil {
		panic(err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.StatsSchedule = &schedule
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AllowNonRootAccess = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}
	configString := string(b)

	if strings.TrimSpace(configString) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}

	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.filepath)
	}

	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"sensorAddress":        fmt.Sprintf("0x%02x", f.SensorAddress()),
		"shuntOhms":            f.ShuntOhms(),
		"invertSensorPolarity": f.InvertSensorPolarity(),
		"deriveSensorStatus":   f.DeriveSensorStatus(),
		"portableFallback":     f.PortableFallback(),
		"logSystemStats":       f.LogSystemStats(),
		"statsSchedule":        f.StatsSchedule(),
		"allowNonRootAccess":   f.AllowNonRootAccess(),
	}
}
