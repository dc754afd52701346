package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/pkg/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for and display Bluetooth Low Energy devices in the vicinity.

Devices are listed in the order they were first seen, with the name,
address, signal strength and advertised services of their latest
advertisement. Press Ctrl+C to stop early.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration   time.Duration
	scanFormat     string
	scanServices   []string
	scanDuplicates bool
)

var validFormats = []string{"table", "json"}

func init() {
	initScanFlags()
}

func initScanFlags() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (default from config, 10s)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "Output format (table, json)")
	scanCmd.Flags().StringSliceVarP(&scanServices, "services", "s", nil, "Filter by service UUIDs")
	scanCmd.Flags().BoolVar(&scanDuplicates, "duplicates", false, "Report every advertisement, not only the first per device")
}

// scanEntry is the JSON form of a discovered device.
type scanEntry struct {
	ID            string                `json:"id"`
	Address       string                `json:"address"`
	Name          string                `json:"name,omitempty"`
	RSSI          int                   `json:"rssi"`
	Advertisement ble.AdvertisementData `json:"advertisement"`
}

func runScan(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	format := s.cfg.OutputFormat
	if cmd.Flags().Changed("format") {
		format = scanFormat
	}
	if !isValidFormat(format) {
		return fmt.Errorf("invalid format '%s': must be one of %v", format, validFormats)
	}

	duration := s.cfg.ScanTimeout
	if cmd.Flags().Changed("duration") {
		duration = scanDuration
	}

	scanCfg := ble.DefaultScanConfig()
	scanCfg.AllowDuplicates = s.cfg.AllowDuplicates
	if cmd.Flags().Changed("duplicates") {
		scanCfg.AllowDuplicates = scanDuplicates
	}
	scanCfg.BufferSize = s.cfg.ScanBuffer
	scanCfg.Duration = duration
	if len(scanServices) > 0 {
		uuids, err := device.ValidateUUID(scanServices...)
		if err != nil {
			return fmt.Errorf("invalid service UUID: %w", err)
		}
		scanCfg.ServiceUUIDs = uuids
	}

	ctx, cancel := interruptible(cmd)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	var progressOut io.Writer
	if isTerminal(cmd.ErrOrStderr()) {
		progressOut = cmd.ErrOrStderr()
	}
	progress := NewProgressPrinter(progressOut, "Scanning for BLE devices", duration)

	found, err := collectScan(ctx, s.adapter, scanCfg, progress)
	if err != nil {
		return err
	}

	if format == "json" {
		return displayScanJSON(s.out, found)
	}
	return displayScanTable(s.out, found)
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// collectScan runs one scan session until ctx is done and keeps the latest
// result per device, in discovery order.
func collectScan(ctx context.Context, adapter *ble.Adapter, cfg *ble.ScanConfig, progress *ProgressPrinter) (*orderedmap.OrderedMap[string, ble.ScanResult], error) {
	results, err := adapter.Scan(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer results.Close()

	progress.Start()
	defer progress.Stop()

	found := orderedmap.New[string, ble.ScanResult]()
	for r := range results.Results() {
		found.Set(r.Device.Address(), r)
		progress.SetFound(found.Len())
	}
	return found, results.Err()
}

func displayScanTable(w io.Writer, found *orderedmap.OrderedMap[string, ble.ScanResult]) error {
	if found.Len() == 0 {
		fmt.Fprintln(w, "No devices discovered")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tRSSI\tSERVICES")
	for pair := found.Oldest(); pair != nil; pair = pair.Next() {
		r := pair.Value
		name := r.Device.Name()
		if name == "" {
			name = "-"
		}
		services := strings.Join(r.Advertisement.ServiceUUIDs, ",")
		fmt.Fprintf(tw, "%s\t%s\t%d dBm\t%s\n", truncate(name, 20), r.Device.Address(), r.RSSI, truncate(services, 30))
	}
	return tw.Flush()
}

func displayScanJSON(w io.Writer, found *orderedmap.OrderedMap[string, ble.ScanResult]) error {
	entries := make([]scanEntry, 0, found.Len())
	for pair := found.Oldest(); pair != nil; pair = pair.Next() {
		r := pair.Value
		entries = append(entries, scanEntry{
			ID:            r.Device.ID().String(),
			Address:       r.Device.Address(),
			Name:          r.Device.Name(),
			RSSI:          r.RSSI,
			Advertisement: r.Advertisement,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
