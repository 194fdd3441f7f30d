package client

import (
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/metrics"
)

// GetBattery fetches the current metrics reading from the daemon.
func (c *Client) GetBattery() (*metrics.Reading, error) {
	ret, err := c.Get("/battery")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get battery status")
	}

	var r metrics.Reading
	if err := json.Unmarshal([]byte(ret), &r); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery status")
	}
	return &r, nil
}

// RawBattery fetches the reading as the daemon serialized it, for
// --json output.
func (c *Client) RawBattery() (string, error) {
	return c.Get("/battery")
}

// Reprobe asks the daemon to run hardware detection again and returns
// the fresh reading.
func (c *Client) Reprobe() (*metrics.Reading, error) {
	ret, err := c.Post("/reprobe", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to re-probe battery hardware")
	}

	var r metrics.Reading
	if err := json.Unmarshal([]byte(ret), &r); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery status")
	}
	return &r, nil
}

// Uptime mirrors the daemon's /uptime response.
type Uptime struct {
	TotalRuntime    string `json:"totalRuntime"`
	SinceFullCharge string `json:"sinceFullCharge,omitempty"`
}

func (c *Client) GetUptime() (*Uptime, error) {
	ret, err := c.Get("/uptime")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get uptime")
	}

	var u Uptime
	if err := json.Unmarshal([]byte(ret), &u); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal uptime")
	}
	return &u, nil
}

func (c *Client) SetFullCharge() (string, error) {
	return c.Put("/full-charge", "")
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var fc config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &fc); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	return &fc, nil
}

func (c *Client) SetLogSystemStats(enabled bool) (string, error) {
	return c.Put("/log-system-stats", strconv.FormatBool(enabled))
}

func (c *Client) SetStatsSchedule(schedule string) (string, error) {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return "", err
	}
	return c.Put("/stats-schedule", string(payload))
}

func (c *Client) SetSensorAddress(addr int) (string, error) {
	return c.Put("/sensor-address", strconv.Itoa(addr))
}

func (c *Client) SetShuntOhms(ohms float64) (string, error) {
	return c.Put("/shunt-ohms", strconv.FormatFloat(ohms, 'g', -1, 64))
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get daemon version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal daemon version")
	}
	return v, nil
}
