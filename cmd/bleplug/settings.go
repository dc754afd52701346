package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Open the system Bluetooth settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := interruptible(cmd)
		defer cancel()

		if err := s.adapter.OpenSettings(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Opened Bluetooth settings")
		return nil
	},
}
