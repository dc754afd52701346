package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bleplug/internal/device"
	goble "github.com/srg/bleplug/internal/device/go-ble"
	"github.com/srg/bleplug/pkg/ble"
	"github.com/srg/bleplug/pkg/config"
	"golang.org/x/term"
)

// newStack creates the native stack commands run against. Tests replace it.
var newStack = func(logger *logrus.Logger) device.NativeStack {
	return goble.NewStack(logger)
}

// session bundles what every command needs.
type session struct {
	cfg     *config.Config
	logger  *logrus.Logger
	adapter *ble.Adapter
	out     io.Writer
}

// newSession loads configuration, configures logging and creates the adapter.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	// Flags are valid from here on
	cmd.SilenceUsage = true

	return &session{
		cfg:     cfg,
		logger:  logger,
		adapter: ble.NewAdapter(newStack(logger), logger),
		out:     cmd.OutOrStdout(),
	}, nil
}

// interruptible returns a context cancelled by Ctrl+C or SIGTERM.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// painter colours output only when it goes to a terminal.
type painter struct {
	enabled bool
}

func newPainter(w io.Writer) painter {
	return painter{enabled: isTerminal(w) && !color.NoColor}
}

func (p painter) paint(attr color.Attribute, s string) string {
	if !p.enabled {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func (p painter) adapterStatus(s ble.AdapterStatus) string {
	switch s {
	case ble.AdapterPoweredOn:
		return p.paint(color.FgGreen, s.String())
	case ble.AdapterPoweredOff:
		return p.paint(color.FgRed, s.String())
	default:
		return p.paint(color.FgYellow, s.String())
	}
}

func (p painter) connectionStatus(s ble.ConnectionStatus) string {
	switch s {
	case ble.Connected:
		return p.paint(color.FgGreen, s.String())
	case ble.Disconnected:
		return p.paint(color.FgRed, s.String())
	default:
		return p.paint(color.FgYellow, s.String())
	}
}

// featureNames lists the set flags of f in a fixed order.
func featureNames(f ble.AdapterFeatures) []string {
	all := []struct {
		flag ble.AdapterFeatures
		name string
	}{
		{device.FeatureScan, "scan"},
		{device.FeatureConnect, "connect"},
		{device.FeatureGattServer, "gatt-server"},
		{device.FeatureAdvertise, "advertise"},
		{device.FeatureSetState, "set-state"},
		{device.FeatureOpenSettings, "open-settings"},
	}
	var names []string
	for _, e := range all {
		if f.Has(e.flag) {
			names = append(names, e.name)
		}
	}
	return names
}
