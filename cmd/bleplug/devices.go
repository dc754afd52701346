package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/srg/bleplug/pkg/ble"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected or paired devices",
	Long: `List the devices the platform reports as connected to this host.

With --paired the paired (bonded) devices are listed instead. Paired
enumeration is not available on every platform.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

var devicesPaired bool

func init() {
	initDevicesFlags()
}

func initDevicesFlags() {
	devicesCmd.Flags().BoolVar(&devicesPaired, "paired", false, "List paired devices instead of connected ones")
}

func runDevices(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()

	var devices []*ble.Device
	kind := "connected"
	if devicesPaired {
		kind = "paired"
		devices, err = s.adapter.GetPairedDevices(ctx)
	} else {
		devices, err = s.adapter.GetConnectedDevices(ctx)
	}
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Fprintf(s.out, "No %s devices\n", kind)
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tID")
	for _, d := range devices {
		name := d.Name()
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, d.Address(), d.ID())
	}
	return tw.Flush()
}
