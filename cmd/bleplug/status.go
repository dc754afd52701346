package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the adapter power status",
	Long: `Show the local adapter name, its power status and the features it supports.

With --watch the command keeps running and prints every status change
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusWatch bool

func init() {
	initStatusFlags()
}

func initStatusFlags() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Print status changes until interrupted")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible(cmd)
	defer cancel()

	p := newPainter(s.out)

	if statusWatch {
		sub := s.adapter.WhenStatusChanged(ctx)
		defer sub.Close()
		for st := range sub.C() {
			fmt.Fprintf(s.out, "Status: %s\n", p.adapterStatus(st))
		}
		return sub.Err()
	}

	if err := s.adapter.Resolve(ctx); err != nil {
		return err
	}

	features := featureNames(s.adapter.Features())
	if len(features) == 0 {
		features = []string{"none"}
	}
	fmt.Fprintf(s.out, "Adapter:  %s\n", s.adapter.DeviceName())
	fmt.Fprintf(s.out, "Status:   %s\n", p.adapterStatus(s.adapter.Status()))
	fmt.Fprintf(s.out, "Features: %s\n", strings.Join(features, ", "))
	return nil
}
