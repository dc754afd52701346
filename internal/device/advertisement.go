package device

import (
	"sort"
	"time"
)

// TxPowerUnknown is what native stacks report when the advertisement carries no TX power.
const TxPowerUnknown = 127

// Advertisement is the parsed payload of one advertisement as seen by a native stack.
type Advertisement interface {
	LocalName() string
	ManufacturerData() []byte
	ServiceData() []struct {
		UUID string
		Data []byte
	}

	Services() []string
	OverflowService() []string
	TxPowerLevel() int
	Connectable() bool
	SolicitedService() []string

	RSSI() int
	Addr() string
}

// AdvertisementData is the portable, immutable copy of an advertisement payload.
type AdvertisementData struct {
	LocalName        string            `json:"local_name,omitempty"`
	ManufacturerData []byte            `json:"manufacturer_data,omitempty"`
	ServiceUUIDs     []string          `json:"service_uuids,omitempty"`
	SolicitedUUIDs   []string          `json:"solicited_uuids,omitempty"`
	ServiceData      map[string][]byte `json:"service_data,omitempty"`
	TxPower          *int              `json:"tx_power,omitempty"`
	Connectable      bool              `json:"connectable"`
}

// NewAdvertisementData copies adv into a portable AdvertisementData. Service UUIDs
// are normalized and sorted; overflow services are merged into ServiceUUIDs.
func NewAdvertisementData(adv Advertisement) AdvertisementData {
	data := AdvertisementData{
		LocalName:   adv.LocalName(),
		Connectable: adv.Connectable(),
	}

	if mfg := adv.ManufacturerData(); len(mfg) > 0 {
		data.ManufacturerData = append([]byte(nil), mfg...)
	}

	all := append(append([]string(nil), adv.Services()...), adv.OverflowService()...)
	seen := make(map[string]struct{}, len(all))
	for _, u := range all {
		n := NormalizeUUID(u)
		if _, dup := seen[n]; dup || n == "" {
			continue
		}
		seen[n] = struct{}{}
		data.ServiceUUIDs = append(data.ServiceUUIDs, n)
	}
	sort.Strings(data.ServiceUUIDs)

	for _, u := range adv.SolicitedService() {
		if n := NormalizeUUID(u); n != "" {
			data.SolicitedUUIDs = append(data.SolicitedUUIDs, n)
		}
	}

	if sd := adv.ServiceData(); len(sd) > 0 {
		data.ServiceData = make(map[string][]byte, len(sd))
		for _, entry := range sd {
			data.ServiceData[NormalizeUUID(entry.UUID)] = append([]byte(nil), entry.Data...)
		}
	}

	if tx := adv.TxPowerLevel(); tx != TxPowerUnknown {
		data.TxPower = &tx
	}

	return data
}

// HasService reports whether the advertisement lists the given service UUID.
func (a AdvertisementData) HasService(uuid string) bool {
	n := NormalizeUUID(uuid)
	for _, s := range a.ServiceUUIDs {
		if s == n {
			return true
		}
	}
	return false
}

// ScanMode is an opaque hint passed to the native watcher.
type ScanMode int

const (
	ScanBalanced ScanMode = iota
	ScanLowPower
	ScanLowLatency
)

// ScanConfig configures a scan session.
type ScanConfig struct {
	ServiceUUIDs    []string      // only report devices advertising one of these; empty means all
	AllowDuplicates bool          // report every advertisement, not only the first per device
	Mode            ScanMode      // native scan mode hint
	BufferSize      int           // scan result buffer; oldest results are dropped when full
	Duration        time.Duration // 0 means until stopped
}

// DefaultScanConfig returns a scan configuration reporting every advertisement.
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		AllowDuplicates: true,
		Mode:            ScanBalanced,
		BufferSize:      128,
	}
}

// Matches applies the service filter to an advertisement.
func (c *ScanConfig) Matches(adv Advertisement) bool {
	if c == nil || len(c.ServiceUUIDs) == 0 {
		return true
	}
	advertised := make(map[string]struct{})
	for _, s := range adv.Services() {
		advertised[NormalizeUUID(s)] = struct{}{}
	}
	for _, s := range adv.OverflowService() {
		advertised[NormalizeUUID(s)] = struct{}{}
	}
	for _, required := range c.ServiceUUIDs {
		if _, ok := advertised[NormalizeUUID(required)]; ok {
			return true
		}
	}
	return false
}
