package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkypi/battmon/internal/client"
	"github.com/inkypi/battmon/pkg/metrics"
)

type statusData struct {
	reading *metrics.Reading
	uptime  *client.Uptime
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	reading, err := apiClient.GetBattery()
	if err != nil {
		return nil, fmt.Errorf("failed to get battery status: %w", err)
	}

	up, err := apiClient.GetUptime()
	if err != nil {
		return nil, fmt.Errorf("failed to get uptime: %w", err)
	}

	return &statusData{
		reading: reading,
		uptime:  up,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	jsonOutput := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current battery status",
		Long:    `Get battery metrics, the active monitoring backend, and runtime since the last full charge.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOutput {
				raw, err := apiClient.RawBattery()
				if err != nil {
					return fmt.Errorf("failed to get battery status: %w", err)
				}
				cmd.Println(raw)
				return nil
			}

			data, err := fetchStatusData()
			if err != nil {
				return err
			}
			r := data.reading

			cmd.Println(bold("Battery:"))
			if !r.Available {
				if r.Backend == "none" {
					cmd.Println("  No battery monitoring hardware detected.")
					cmd.Println("  Metrics are not available on this device.")
				} else {
					cmd.Println("  Backend: " + errText(r.Backend))
					cmd.Println("  The bound hardware failed to respond. Check the daemon log.")
				}
			} else {
				cmd.Println("  Backend: " + r.Backend)
				if r.Percentage != nil {
					cmd.Printf("  Charge: %s\n", percentText(*r.Percentage))
				}
				if r.Status != nil {
					cmd.Printf("  Status: %s\n", statusText(*r.Status))
				}
				if r.Voltage != nil {
					cmd.Printf("  Voltage: %.3f V\n", *r.Voltage)
				}
				if r.Current != nil {
					cmd.Printf("  Current: %.1f mA\n", *r.Current)
				}
				if r.Power != nil {
					cmd.Printf("  Power: %.3f W\n", *r.Power)
				}
				if r.Temperature != nil {
					cmd.Printf("  Temperature: %.1f °C\n", *r.Temperature)
				}
			}

			cmd.Println()
			cmd.Println(bold("Uptime:"))
			cmd.Println("  Runtime since full charge: " + data.uptime.TotalRuntime)
			if data.uptime.SinceFullCharge != "" {
				cmd.Println("  Last full charge: " + data.uptime.SinceFullCharge + " ago")
			} else {
				cmd.Println("  Last full charge: never observed")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw metrics JSON instead of formatted output.")

	return cmd
}

func NewReprobeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reprobe",
		GroupID: gAdvanced,
		Short:   "Re-run battery hardware detection",
		Long: `Re-run battery hardware detection.

Detection normally happens once per daemon lifetime. Use this after
attaching hardware or changing the sensor address / shunt resistance.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := apiClient.Reprobe()
			if err != nil {
				return fmt.Errorf("failed to re-probe: %w", err)
			}
			if r.Available {
				cmd.Println("Bound backend: " + r.Backend)
			} else {
				cmd.Println("No battery monitoring hardware detected.")
			}
			return nil
		},
	}
}
