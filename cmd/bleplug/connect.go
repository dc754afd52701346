package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/srg/bleplug/internal/bledb"
	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/stream"
	"github.com/srg/bleplug/pkg/ble"
)

var connectCmd = &cobra.Command{
	Use:   "connect <address|id>",
	Short: "Connect to a device and list its GATT services",
	Long: `Connect to a BLE device, discover its GATT services and print them.

The device is given by its radio address (AA:BB:CC:DD:EE:FF) or by the
device ID printed by 'scan --format json'.

With --watch the connection is kept open and status changes are printed
until interrupted. --notify SERVICE:CHAR additionally subscribes to a
characteristic and prints every notification as hex.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

var (
	connectTimeout time.Duration
	connectWatch   bool
	connectNotify  string
)

func init() {
	initConnectFlags()
}

func initConnectFlags() {
	connectCmd.Flags().DurationVarP(&connectTimeout, "timeout", "t", 0, "Connection timeout (default from config, 30s)")
	connectCmd.Flags().BoolVarP(&connectWatch, "watch", "w", false, "Stay connected and print status changes")
	connectCmd.Flags().StringVarP(&connectNotify, "notify", "n", "", "Subscribe to SERVICE:CHAR notifications")
}

// parseDeviceID accepts a device ID or a radio address.
func parseDeviceID(arg string) (uuid.UUID, error) {
	arg = strings.TrimSpace(arg)
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	return device.IDFromAddress(arg)
}

// parseNotifyTarget splits SERVICE:CHAR into validated UUIDs.
func parseNotifyTarget(target string) (string, string, error) {
	svc, char, ok := strings.Cut(target, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid --notify value %q: expected SERVICE:CHAR", target)
	}
	uuids, err := device.ValidateUUID(svc, char)
	if err != nil {
		return "", "", fmt.Errorf("invalid --notify value %q: %w", target, err)
	}
	return uuids[0], uuids[1], nil
}

func runConnect(cmd *cobra.Command, args []string) error {
	id, err := parseDeviceID(args[0])
	if err != nil {
		return err
	}
	var notifySvc, notifyChar string
	if connectNotify != "" {
		if notifySvc, notifyChar, err = parseNotifyTarget(connectNotify); err != nil {
			return err
		}
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	timeout := s.cfg.ConnectTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = connectTimeout
	}

	ctx, cancel := interruptible(cmd)
	defer cancel()

	dev, err := s.adapter.GetKnownDevice(ctx, id)
	if err != nil {
		return err
	}
	defer dev.Disconnect(context.Background())

	// Subscribe before connecting so no transition is missed
	statuses := dev.WhenStatusChanged(ctx)
	defer statuses.Close()

	services, err := connectAndDiscover(ctx, dev, timeout)
	if err != nil {
		return err
	}

	p := newPainter(s.out)
	printServices(s.out, dev, services)

	if notifyChar != "" {
		ch, err := ble.FindCharacteristic(services, notifySvc, notifyChar)
		if err != nil {
			return err
		}
		err = ch.EnableNotifications(ctx, !ch.CanNotify() && ch.CanIndicate(), func(data []byte) {
			fmt.Fprintf(s.out, "%s: % x\n", ch.UUID(), data)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", notifyChar, err)
		}
	}

	if !connectWatch && notifyChar == "" {
		return nil
	}
	return watchConnection(ctx, s.out, p, statuses)
}

func connectAndDiscover(ctx context.Context, dev *ble.Device, timeout time.Duration) ([]*ble.GattService, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := dev.Connect(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("connection to %s timed out after %s", dev.Address(), timeout)
		}
		return nil, err
	}
	return dev.DiscoverServices(ctx, ble.CacheCached)
}

// watchConnection prints status changes until ctx is done or the link drops.
func watchConnection(ctx context.Context, w io.Writer, p painter, statuses *stream.Subscription[ble.ConnectionStatus]) error {
	sawConnected := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-statuses.C():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "Status: %s\n", p.connectionStatus(st))
			switch st {
			case ble.Connected:
				sawConnected = true
			case ble.Disconnected:
				if sawConnected {
					return ErrConnectionLost
				}
			}
		}
	}
}

func printServices(w io.Writer, dev *ble.Device, services []*ble.GattService) {
	name := dev.Name()
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(w, "Connected to %s (%s)\n", name, dev.Address())
	if len(services) == 0 {
		fmt.Fprintln(w, "No services discovered")
		return
	}
	for _, svc := range services {
		fmt.Fprintf(w, "Service %s%s\n", svc.UUID(), knownName(bledb.LookupService(svc.UUID())))
		for _, ch := range svc.Characteristics() {
			var props []string
			if ch.CanNotify() {
				props = append(props, "notify")
			}
			if ch.CanIndicate() {
				props = append(props, "indicate")
			}
			line := fmt.Sprintf("  Characteristic %s%s", ch.UUID(), knownName(bledb.LookupCharacteristic(ch.UUID())))
			if len(props) > 0 {
				line += " [" + strings.Join(props, ",") + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
}

func knownName(name string) string {
	if name == "" {
		return ""
	}
	return " (" + name + ")"
}
