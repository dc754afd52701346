package ble

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/stream"
)

// Device is a remote BLE device.
type Device struct {
	id  uuid.UUID
	ctx *DeviceContext

	mu   sync.Mutex
	name string
	rssi int
}

func newDevice(address string, native device.NativeDevice, cache *AdapterContext, logger *logrus.Logger) (*Device, error) {
	id, err := device.IDFromAddress(address)
	if err != nil {
		return nil, err
	}
	return &Device{
		id:   id,
		ctx:  newDeviceContext(address, native, cache, logger),
		name: native.Name(),
	}, nil
}

// ID returns the stable device identifier.
func (d *Device) ID() uuid.UUID { return d.id }

// Address returns the radio address.
func (d *Device) Address() string { return d.ctx.Address() }

// Context returns the device's connection lifecycle.
func (d *Device) Context() *DeviceContext { return d.ctx }

// Name returns the native name, falling back to the last advertised one.
func (d *Device) Name() string {
	if native := d.ctx.handle(); native != nil {
		if name := native.Name(); name != "" {
			return name
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// RSSI returns the signal strength of the last advertisement seen.
func (d *Device) RSSI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rssi
}

func (d *Device) observe(name string, rssi int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name != "" {
		d.name = name
	}
	d.rssi = rssi
}

func (d *Device) Status() ConnectionStatus { return d.ctx.Status() }

func (d *Device) WhenStatusChanged(ctx context.Context) *stream.Subscription[ConnectionStatus] {
	return d.ctx.WhenStatusChanged(ctx)
}

func (d *Device) Connect(ctx context.Context) error { return d.ctx.Connect(ctx) }

func (d *Device) Disconnect(ctx context.Context) { d.ctx.Disconnect(ctx) }

// DiscoverServices lists the device's GATT services. With CacheCached the
// services discovered earlier on the same link are returned.
func (d *Device) DiscoverServices(ctx context.Context, mode CacheMode) ([]*GattService, error) {
	c := d.ctx
	c.mu.Lock()
	native := c.native
	cached := c.services
	c.mu.Unlock()

	if native == nil {
		return nil, device.ErrNotConnected
	}
	if mode == device.CacheCached && cached != nil {
		return cached, nil
	}

	natives, err := native.DiscoverServices(ctx, mode)
	if err != nil {
		return nil, err
	}

	services := make([]*GattService, 0, len(natives))
	for _, ns := range natives {
		services = append(services, newGattService(ns, c))
	}

	c.mu.Lock()
	if c.native == native {
		c.services = services
	}
	c.mu.Unlock()
	return services, nil
}

// FindCharacteristic looks a characteristic up by service and characteristic UUID.
func FindCharacteristic(services []*GattService, serviceUUID, charUUID string) (*GattCharacteristic, error) {
	su, cu := device.NormalizeUUID(serviceUUID), device.NormalizeUUID(charUUID)
	for _, svc := range services {
		if svc.UUID() != su {
			continue
		}
		for _, ch := range svc.Characteristics() {
			if ch.UUID() == cu {
				return ch, nil
			}
		}
		return nil, &device.NotFoundError{Resource: "characteristic", IDs: []string{serviceUUID, charUUID}}
	}
	return nil, &device.NotFoundError{Resource: "service", IDs: []string{serviceUUID}}
}
