//go:build test

package testutils

import "github.com/srg/bleplug/internal/device"

// FakeAdvertisement is a device.Advertisement built field by field.
type FakeAdvertisement struct {
	Name      string
	Address   string
	Signal    int
	UUIDs     []string
	Overflow  []string
	Solicited []string
	MfgData   []byte
	SvcData   map[string][]byte
	TxPower   int
	CanConn   bool
}

// NewAdvertisement creates an advertisement for address with unknown TX power.
func NewAdvertisement(address string) *FakeAdvertisement {
	return &FakeAdvertisement{Address: address, TxPower: device.TxPowerUnknown, CanConn: true}
}

func (a *FakeAdvertisement) WithName(name string) *FakeAdvertisement {
	a.Name = name
	return a
}

func (a *FakeAdvertisement) WithRSSI(rssi int) *FakeAdvertisement {
	a.Signal = rssi
	return a
}

func (a *FakeAdvertisement) WithServices(uuids ...string) *FakeAdvertisement {
	a.UUIDs = append(a.UUIDs, uuids...)
	return a
}

func (a *FakeAdvertisement) WithManufacturerData(data []byte) *FakeAdvertisement {
	a.MfgData = data
	return a
}

func (a *FakeAdvertisement) WithServiceData(uuid string, data []byte) *FakeAdvertisement {
	if a.SvcData == nil {
		a.SvcData = make(map[string][]byte)
	}
	a.SvcData[uuid] = data
	return a
}

func (a *FakeAdvertisement) WithTxPower(power int) *FakeAdvertisement {
	a.TxPower = power
	return a
}

// Raw wraps the advertisement the way a native watcher reports it.
func (a *FakeAdvertisement) Raw() device.RawAdvertisement {
	return device.RawAdvertisement{Address: a.Address, RSSI: a.Signal, Advertisement: a}
}

func (a *FakeAdvertisement) LocalName() string          { return a.Name }
func (a *FakeAdvertisement) ManufacturerData() []byte   { return a.MfgData }
func (a *FakeAdvertisement) Services() []string         { return a.UUIDs }
func (a *FakeAdvertisement) OverflowService() []string  { return a.Overflow }
func (a *FakeAdvertisement) SolicitedService() []string { return a.Solicited }
func (a *FakeAdvertisement) TxPowerLevel() int          { return a.TxPower }
func (a *FakeAdvertisement) Connectable() bool          { return a.CanConn }
func (a *FakeAdvertisement) RSSI() int                  { return a.Signal }
func (a *FakeAdvertisement) Addr() string               { return a.Address }

func (a *FakeAdvertisement) ServiceData() []struct {
	UUID string
	Data []byte
} {
	out := make([]struct {
		UUID string
		Data []byte
	}, 0, len(a.SvcData))
	for u, d := range a.SvcData {
		out = append(out, struct {
			UUID string
			Data []byte
		}{UUID: u, Data: d})
	}
	return out
}
