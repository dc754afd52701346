package ble

import (
	"context"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/stream"
)

// DeviceContext drives the connection lifecycle of one remote device.
//
// It owns at most one native handle at a time, the set of characteristics
// with notifications enabled, and the stream of connection status changes.
// Reconnecting always resolves a fresh native handle.
type DeviceContext struct {
	address string
	stack   device.NativeStack
	cache   *AdapterContext
	logger  *logrus.Entry

	op sync.Mutex // serializes Connect and Disconnect

	mu        sync.Mutex
	native    device.NativeDevice
	services  []*GattService
	notifying *orderedmap.OrderedMap[*GattCharacteristic, struct{}]

	events   stream.Listener[device.NativeDevice]
	statuses *stream.Broadcast[ConnectionStatus]
}

func newDeviceContext(address string, native device.NativeDevice, cache *AdapterContext, logger *logrus.Logger) *DeviceContext {
	return &DeviceContext{
		address:   address,
		stack:     cache.stack,
		cache:     cache,
		logger:    logger.WithField("address", address),
		native:    native,
		notifying: orderedmap.New[*GattCharacteristic, struct{}](),
		statuses:  stream.NewBroadcast[ConnectionStatus](stream.DefaultBufferSize),
	}
}

// Address returns the fixed radio address of the device.
func (c *DeviceContext) Address() string {
	return c.address
}

// Status returns the connection status as reported by the native handle.
func (c *DeviceContext) Status() ConnectionStatus {
	c.mu.Lock()
	native := c.native
	c.mu.Unlock()
	return statusOf(native)
}

func statusOf(native device.NativeDevice) ConnectionStatus {
	if native != nil && native.ConnectionStatus() == device.NativeConnected {
		return Connected
	}
	return Disconnected
}

// Connect establishes the link. It does nothing if the device is already
// connected. On failure Disconnected is published and the error returned.
func (c *DeviceContext) Connect(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	old := c.native
	c.mu.Unlock()
	if statusOf(old) == Connected {
		c.logger.Debug("Already connected")
		return nil
	}

	c.statuses.Publish(Connecting)
	c.logger.Info("Connecting...")

	native, err := c.stack.DeviceFromAddress(ctx, c.address)
	if err == nil && native == nil {
		err = &device.NotFoundError{Resource: "device", IDs: []string{c.address}}
	}
	if err != nil {
		c.logger.WithError(err).Error("Failed to resolve device")
		c.statuses.Publish(Disconnected)
		return err
	}

	c.mu.Lock()
	c.native = native
	c.services = nil
	c.mu.Unlock()

	if old != nil && old != native {
		if err := old.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to release previous device handle")
		}
	}
	c.listen(native)

	// Service discovery is what establishes the physical link.
	if _, err := native.DiscoverServices(ctx, device.CacheUncached); err != nil {
		c.logger.WithError(err).Error("Failed to connect")
		c.statuses.Publish(Disconnected)
		return err
	}

	c.logger.Info("Connected")
	return nil
}

// Disconnect tears down notifications and releases the native handle.
// Cleanup failures are logged and never returned.
func (c *DeviceContext) Disconnect(ctx context.Context) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	native := c.native
	chars := make([]*GattCharacteristic, 0, c.notifying.Len())
	for pair := c.notifying.Oldest(); pair != nil; pair = pair.Next() {
		chars = append(chars, pair.Key)
	}
	c.mu.Unlock()

	if native == nil {
		return
	}

	c.statuses.Publish(Disconnecting)
	c.logger.Info("Disconnecting...")

	for _, ch := range chars {
		if err := ch.Disconnect(ctx); err != nil {
			c.logger.WithError(err).WithField("char_uuid", ch.UUID()).Warn("Failed to tear down notifications")
		}
	}

	c.mu.Lock()
	c.notifying = orderedmap.New[*GattCharacteristic, struct{}]()
	c.mu.Unlock()

	c.cache.RemoveDevice(c)
	c.events.Detach()

	if err := native.Close(); err != nil {
		c.logger.WithError(err).Warn("Failed to release device handle")
	}

	c.mu.Lock()
	c.native = nil
	c.services = nil
	c.mu.Unlock()

	c.statuses.Publish(Disconnected)
	c.logger.Info("Disconnected")
}

// SetNotifyCharacteristic records ch as notifying or not, following
// ch.IsNotifying().
func (c *DeviceContext) SetNotifyCharacteristic(ch *GattCharacteristic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch.IsNotifying() {
		c.notifying.Set(ch, struct{}{})
	} else {
		c.notifying.Delete(ch)
	}
}

// NotifyingCharacteristics returns the characteristics with notifications
// enabled, in the order they were enabled.
func (c *DeviceContext) NotifyingCharacteristics() []*GattCharacteristic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*GattCharacteristic, 0, c.notifying.Len())
	for pair := c.notifying.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// WhenStatusChanged subscribes to connection status changes. The current
// status is delivered first.
func (c *DeviceContext) WhenStatusChanged(ctx context.Context) *stream.Subscription[ConnectionStatus] {
	c.mu.Lock()
	native := c.native
	c.mu.Unlock()
	if native != nil {
		c.listen(native)
	}
	return c.statuses.Subscribe(ctx, statusOf(native))
}

// handle returns the current native handle.
func (c *DeviceContext) handle() device.NativeDevice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.native
}

// listen moves the native status listener to native. It is a no-op when
// already listening there.
func (c *DeviceContext) listen(native device.NativeDevice) {
	c.events.Attach(native, func(d device.NativeDevice) func() {
		token := d.AddConnectionStatusChangedHandler(c.onNativeStatus)
		return func() { d.RemoveConnectionStatusChangedHandler(token) }
	})
}

func (c *DeviceContext) onNativeStatus() {
	status := c.Status()
	c.logger.WithField("status", status).Debug("Native connection status changed")
	c.statuses.Publish(status)
}
