package ble

import (
	"context"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
)

// AdapterContext caches the devices an adapter has resolved, keyed by
// normalized address.
type AdapterContext struct {
	stack  device.NativeStack
	logger *logrus.Logger

	mu      sync.Mutex
	devices *hashmap.Map[string, *Device]
}

func newAdapterContext(stack device.NativeStack, logger *logrus.Logger) *AdapterContext {
	return &AdapterContext{
		stack:   stack,
		logger:  logger,
		devices: hashmap.New[string, *Device](),
	}
}

// Clear forgets every cached device. Devices keep their connections.
func (c *AdapterContext) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = hashmap.New[string, *Device]()
}

// Get returns the cached device for address.
func (c *AdapterContext) Get(address string) (*Device, bool) {
	return c.cache().Get(device.NormalizeAddress(address))
}

// GetOrAdd returns the cached device for address, resolving and caching it
// through the native stack when missing.
func (c *AdapterContext) GetOrAdd(ctx context.Context, address string) (*Device, error) {
	key := device.NormalizeAddress(address)
	if dev, ok := c.cache().Get(key); ok {
		return dev, nil
	}

	native, err := c.stack.DeviceFromAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if native == nil {
		return nil, &device.NotFoundError{Resource: "device", IDs: []string{address}}
	}

	dev, err := newDevice(address, native, c, c.logger)
	if err != nil {
		_ = native.Close()
		return nil, err
	}

	actual, loaded := c.cache().GetOrInsert(key, dev)
	// The stack may hand out the same live handle for a connected peer.
	if loaded && actual.ctx.handle() != native {
		_ = native.Close()
	}
	return actual, nil
}

// RemoveDevice drops the device driven by owner from the cache. A different
// device cached under the same address since a Clear is left in place.
func (c *AdapterContext) RemoveDevice(owner *DeviceContext) {
	m := c.cache()
	key := device.NormalizeAddress(owner.Address())
	if cur, ok := m.Get(key); ok && cur.ctx == owner {
		m.Del(key)
	}
}

// Len returns the number of cached devices.
func (c *AdapterContext) Len() int {
	return c.cache().Len()
}

// CreateAdvertisementWatcher creates a native watcher for cfg.
func (c *AdapterContext) CreateAdvertisementWatcher(cfg *ScanConfig) (device.AdvertisementWatcher, error) {
	return c.stack.NewAdvertisementWatcher(cfg)
}

func (c *AdapterContext) cache() *hashmap.Map[string, *Device] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devices
}
