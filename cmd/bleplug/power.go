package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var powerCmd = &cobra.Command{
	Use:       "power <on|off>",
	Short:     "Switch the Bluetooth radio on or off",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE:      runPower,
}

func runPower(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()

	if err := s.adapter.Resolve(ctx); err != nil {
		return err
	}
	if err := s.adapter.SetAdapterState(ctx, args[0] == "on"); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Status: %s\n", newPainter(s.out).adapterStatus(s.adapter.Status()))
	return nil
}
