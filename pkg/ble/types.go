package ble

import "github.com/srg/bleplug/internal/device"

type (
	AdapterStatus     = device.AdapterStatus
	ConnectionStatus  = device.ConnectionStatus
	AdapterFeatures   = device.AdapterFeatures
	ScanConfig        = device.ScanConfig
	ScanMode          = device.ScanMode
	CacheMode         = device.CacheMode
	AdvertisementData = device.AdvertisementData
	ServiceDefinition = device.ServiceDefinition

	CharacteristicDefinition = device.CharacteristicDefinition
)

const (
	AdapterUnknown    = device.AdapterUnknown
	AdapterPoweredOff = device.AdapterPoweredOff
	AdapterPoweredOn  = device.AdapterPoweredOn

	Disconnected  = device.Disconnected
	Disconnecting = device.Disconnecting
	Connecting    = device.Connecting
	Connected     = device.Connected

	CacheCached   = device.CacheCached
	CacheUncached = device.CacheUncached
)

// DefaultScanConfig returns a scan configuration reporting every advertisement.
func DefaultScanConfig() *ScanConfig {
	return device.DefaultScanConfig()
}
