package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/srg/bleplug/internal/device"
)

// GattService is a discovered GATT service.
type GattService struct {
	uuid  string
	chars []*GattCharacteristic
}

func newGattService(native device.NativeService, owner *DeviceContext) *GattService {
	svc := &GattService{uuid: device.NormalizeUUID(native.UUID())}
	for _, nc := range native.Characteristics() {
		svc.chars = append(svc.chars, &GattCharacteristic{
			native:  nc,
			service: svc,
			owner:   owner,
		})
	}
	return svc
}

func (s *GattService) UUID() string                           { return s.uuid }
func (s *GattService) Characteristics() []*GattCharacteristic { return s.chars }

// GattCharacteristic is a discovered GATT characteristic.
//
// Every change of its notification state is reported to the owning
// DeviceContext so that Disconnect can tear notifications down.
type GattCharacteristic struct {
	native  device.NativeCharacteristic
	service *GattService
	owner   *DeviceContext

	mu        sync.Mutex
	notifying bool
}

func (c *GattCharacteristic) UUID() string          { return device.NormalizeUUID(c.native.UUID()) }
func (c *GattCharacteristic) Service() *GattService { return c.service }
func (c *GattCharacteristic) CanNotify() bool       { return c.native.CanNotify() }
func (c *GattCharacteristic) CanIndicate() bool     { return c.native.CanIndicate() }

func (c *GattCharacteristic) IsNotifying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifying
}

// EnableNotifications subscribes handler to notifications, or indications
// when indicate is set.
func (c *GattCharacteristic) EnableNotifications(ctx context.Context, indicate bool, handler func([]byte)) error {
	if c.IsNotifying() {
		return fmt.Errorf("%w: notifications already enabled on %s", device.ErrAlreadyConnected, c.UUID())
	}
	if err := c.native.Subscribe(ctx, indicate, handler); err != nil {
		return err
	}
	c.setNotifying(true)
	return nil
}

// DisableNotifications unsubscribes. On failure the characteristic stays notifying.
func (c *GattCharacteristic) DisableNotifications(ctx context.Context) error {
	if !c.IsNotifying() {
		return nil
	}
	if err := c.native.Unsubscribe(ctx); err != nil {
		return err
	}
	c.setNotifying(false)
	return nil
}

// Disconnect tears down an active subscription. The characteristic is no
// longer notifying afterwards even if the native unsubscribe failed.
func (c *GattCharacteristic) Disconnect(ctx context.Context) error {
	if !c.IsNotifying() {
		return nil
	}
	err := c.native.Unsubscribe(ctx)
	c.setNotifying(false)
	return err
}

func (c *GattCharacteristic) setNotifying(v bool) {
	c.mu.Lock()
	c.notifying = v
	c.mu.Unlock()
	c.owner.SetNotifyCharacteristic(c)
}
