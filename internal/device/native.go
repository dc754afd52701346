package device

import (
	"context"
)

// HandlerToken identifies a handler registered on a native event source.
// Removing an unknown token is always allowed and does nothing.
type HandlerToken uint64

// CacheMode hints whether service discovery may be served from the native cache.
type CacheMode int

const (
	CacheCached CacheMode = iota
	CacheUncached
)

// DeviceSelector chooses which devices FindDevices enumerates.
type DeviceSelector int

const (
	SelectConnected DeviceSelector = iota
	SelectPaired
)

func (s DeviceSelector) String() string {
	if s == SelectPaired {
		return "paired"
	}
	return "connected"
}

// NativeStack is the platform BLE stack the adapter layer delegates to.
type NativeStack interface {
	// DefaultAdapter resolves the default local adapter. Returns ErrNoAdapter
	// when the platform has none.
	DefaultAdapter(ctx context.Context) (NativeAdapter, error)

	// DeviceFromAddress resolves a device handle for a fixed radio address.
	// Returns a *NotFoundError when the stack does not know the address.
	DeviceFromAddress(ctx context.Context, address string) (NativeDevice, error)

	// FindDevices enumerates device descriptors (addresses) matching selector.
	FindDevices(ctx context.Context, selector DeviceSelector) ([]string, error)

	// NewAdvertisementWatcher creates an inactive advertisement watcher.
	NewAdvertisementWatcher(cfg *ScanConfig) (AdvertisementWatcher, error)

	// OpenSettings opens the platform Bluetooth settings.
	OpenSettings(ctx context.Context) error
}

// NativeAdapter is a resolved local adapter.
type NativeAdapter interface {
	Name() string
	Capabilities() Capabilities
	Radio(ctx context.Context) (Radio, error)
	NewGattServer() (NativeGattServer, error)
}

// Radio is the power-controllable radio behind an adapter.
type Radio interface {
	Name() string
	State() RadioState
	SetState(ctx context.Context, state RadioState) error
	AddStateChangedHandler(h func(RadioState)) HandlerToken
	RemoveStateChangedHandler(token HandlerToken)
}

// NativeDevice is a native handle for a remote device. A handle is never
// reused after Close; reconnecting resolves a new one.
type NativeDevice interface {
	Address() string
	Name() string
	ConnectionStatus() NativeConnectionStatus
	AddConnectionStatusChangedHandler(h func()) HandlerToken
	RemoveConnectionStatusChangedHandler(token HandlerToken)

	// DiscoverServices lists the GATT services. Calling it establishes the
	// physical link when none exists.
	DiscoverServices(ctx context.Context, mode CacheMode) ([]NativeService, error)

	Close() error
}

// NativeService is a discovered GATT service.
type NativeService interface {
	UUID() string
	Characteristics() []NativeCharacteristic
}

// NativeCharacteristic is a discovered GATT characteristic.
type NativeCharacteristic interface {
	UUID() string
	CanNotify() bool
	CanIndicate() bool
	Subscribe(ctx context.Context, indicate bool, h func([]byte)) error
	Unsubscribe(ctx context.Context) error
}

// RawAdvertisement is one advertisement event as delivered by the native watcher.
type RawAdvertisement struct {
	Address       string
	RSSI          int
	Advertisement Advertisement
}

// AdvertisementWatcher delivers advertisement events.
type AdvertisementWatcher interface {
	// Watch blocks, invoking h for every advertisement, until ctx is done.
	// A cancelled ctx is a normal stop and returns nil.
	Watch(ctx context.Context, h func(RawAdvertisement)) error
}

// CharacteristicDefinition describes a characteristic hosted by a GATT server.
type CharacteristicDefinition struct {
	UUID    string
	Value   []byte            // served to reads; nil disables reads
	OnWrite func(data []byte) // nil disables writes
	Notify  bool
}

// ServiceDefinition describes a service hosted by a GATT server.
type ServiceDefinition struct {
	UUID            string
	Characteristics []CharacteristicDefinition
}

// NativeGattServer hosts local services.
type NativeGattServer interface {
	AddService(svc ServiceDefinition) error
	RemoveAllServices() error
	// Advertise blocks advertising name and the hosted services until ctx is done.
	Advertise(ctx context.Context, name string, serviceUUIDs []string) error
}
