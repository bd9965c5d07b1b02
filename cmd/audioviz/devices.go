package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/petems/audioviz/internal/audio"
	"github.com/petems/audioviz/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newDevicesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return err
			}

			backend, err := audio.New(cfg.Backend(), zerolog.Nop())
			if err != nil {
				return fmt.Errorf("failed to initialize audio: %w", err)
			}
			defer backend.Close()

			devices, err := backend.Devices()
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}
			return printDevices(cmd, backend.Name(), devices)
		},
	}
}

func printDevices(cmd *cobra.Command, backend string, devices []audio.Device) error {
	out := cmd.OutOrStdout()
	if len(devices) == 0 {
		_, err := fmt.Fprintf(out, "No capture devices found (%s)\n", backend)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEFAULT")
	for _, d := range devices {
		def := ""
		if d.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, def)
	}
	return tw.Flush()
}
