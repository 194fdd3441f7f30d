package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewLogSystemStatsCommand() *cobra.Command {
	return newEnableDisableCommand(
		"log-system-stats",
		"periodic battery stats logging",
		`Enable or disable the periodic battery stats log.

When enabled, the daemon writes one structured log record per cycle
with the full battery reading, on the configured schedule.`,
		func() (string, error) { return apiClient.SetLogSystemStats(true) },
		func() (string, error) { return apiClient.SetLogSystemStats(false) },
	)
}

func NewStatsScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "stats-schedule [schedule]",
		Short:   "Set the stats logging schedule",
		GroupID: gAdvanced,
		Long: `Set the stats logging schedule.

Accepts cron expressions and descriptors, e.g. "@every 5m" or
"*/10 * * * *".`,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("invalid number of arguments")
			}
			schedule := strings.TrimSpace(args[0])

			ret, err := apiClient.SetStatsSchedule(schedule)
			if err != nil {
				return fmt.Errorf("failed to set stats schedule: %v", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set stats schedule to %q", schedule)
			return nil
		},
	}
}

func NewSensorAddressCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "sensor-address [address]",
		Short:   "Set the I2C address of the current sensor",
		GroupID: gAdvanced,
		Long: `Set the I2C address the sensor-chip backend probes.

The default is 64 (0x40). Takes effect on the next re-probe or daemon
restart.`,
		RunE: func(_ *cobra.Command, args []string) error {
			addr, err := parseIntArg(args, "sensor address")
			if err != nil {
				return err
			}

			ret, err := apiClient.SetSensorAddress(addr)
			if err != nil {
				return fmt.Errorf("failed to set sensor address: %v", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set sensor address to 0x%02x", addr)
			return nil
		},
	}
}

func NewShuntOhmsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "shunt-ohms [ohms]",
		Short:   "Set the shunt resistance calibration",
		GroupID: gAdvanced,
		Long: `Set the shunt resistance (in ohms) the sensor-chip backend uses to
convert the measured voltage drop into current.

The default is 0.1. Takes effect on the next re-probe or daemon
restart.`,
		RunE: func(_ *cobra.Command, args []string) error {
			ohms, err := parseFloatArg(args, "shunt resistance")
			if err != nil {
				return err
			}

			ret, err := apiClient.SetShuntOhms(ohms)
			if err != nil {
				return fmt.Errorf("failed to set shunt resistance: %v", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set shunt resistance to %g ohms", ohms)
			return nil
		},
	}
}

func NewFullChargeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "full-charge",
		Short:   "Mark the battery as fully charged now",
		GroupID: gAdvanced,
		Long: `Mark the battery as fully charged now, zeroing the runtime counter.

Normally the daemon records this automatically when the battery
reports Full; use this on hardware that never does.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.SetFullCharge()
			if err != nil {
				return fmt.Errorf("failed to set full charge: %v", err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			return nil
		},
	}
}
