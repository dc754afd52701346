package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newPlatformDevice

// Stack implements device.NativeStack on top of go-ble.
//
// go-ble exposes a single HCI/CoreBluetooth device per process, so the stack
// owns at most one live ble.Device, shared by the adapter, the radio, the
// advertisement watchers and every peripheral link.
type Stack struct {
	logger *logrus.Logger

	mu      sync.Mutex
	dev     ble.Device
	stopped bool // powered off through the radio; only SetState(RadioOn) reopens
	radio   *radio

	links *hashmap.Map[string, *Peripheral]
}

// NewStack creates a go-ble stack. The platform device is opened lazily.
func NewStack(logger *logrus.Logger) *Stack {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Stack{
		logger: logger,
		links:  hashmap.New[string, *Peripheral](),
	}
	s.radio = newRadio(s)
	return s
}

// DefaultAdapter opens the platform device if needed.
// A powered-off controller still yields an adapter whose radio reports Off.
func (s *Stack) DefaultAdapter(ctx context.Context) (device.NativeAdapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, err := s.device()
	switch {
	case err == nil:
		s.radio.set(device.RadioOn)
	case isBluetoothOff(err):
		s.logger.WithError(err).Debug("Bluetooth is off, adapter resolved with radio off")
		s.radio.set(device.RadioOff)
	default:
		return nil, err
	}
	return &adapter{stack: s}, nil
}

// DeviceFromAddress returns the handle holding the live link to address, if
// any, else a lazy handle whose link is dialed on service discovery.
func (s *Stack) DeviceFromAddress(ctx context.Context, address string) (device.NativeDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &device.NotFoundError{Resource: "device"}
	}
	if p, ok := s.links.Get(device.NormalizeAddress(address)); ok && !p.isClosed() {
		return p, nil
	}
	return newPeripheral(s, address), nil
}

// FindDevices enumerates connected peers. go-ble has no bonding database, so
// paired enumeration is unsupported.
func (s *Stack) FindDevices(ctx context.Context, selector device.DeviceSelector) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if selector != device.SelectConnected {
		return nil, fmt.Errorf("%w: go-ble cannot enumerate %s devices", device.ErrUnsupported, selector)
	}

	var out []string
	s.links.Range(func(_ string, p *Peripheral) bool {
		if p.ConnectionStatus() == device.NativeConnected {
			out = append(out, p.Address())
		}
		return true
	})
	return out, nil
}

// NewAdvertisementWatcher creates a watcher bound to the live device.
func (s *Stack) NewAdvertisementWatcher(cfg *device.ScanConfig) (device.AdvertisementWatcher, error) {
	dev, err := s.device()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = device.DefaultScanConfig()
	}
	return &watcher{dev: dev, cfg: cfg, logger: s.logger}, nil
}

// OpenSettings opens the platform Bluetooth settings.
func (s *Stack) OpenSettings(ctx context.Context) error {
	return openSettings(ctx)
}

// device returns the live ble.Device, opening it through DeviceFactory if
// needed. It fails with ErrBluetoothOff after the radio was powered off.
func (s *Stack) device() (ble.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, fmt.Errorf("%w: radio was powered off", device.ErrBluetoothOff)
	}
	return s.deviceLocked()
}

// start opens the device even after a power off.
func (s *Stack) start() (ble.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, err := s.deviceLocked()
	if err == nil {
		s.stopped = false
	}
	return dev, err
}

func (s *Stack) deviceLocked() (ble.Device, error) {
	if s.dev != nil {
		return s.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		err = NormalizeError(err)
		s.logger.WithError(err).Debug("Failed to create BLE device")
		return nil, err
	}
	s.dev = dev
	return dev, nil
}

// stop shuts the live device down and drops every link.
func (s *Stack) stop() error {
	s.mu.Lock()
	dev := s.dev
	s.dev = nil
	s.stopped = true
	s.mu.Unlock()

	s.links.Range(func(_ string, p *Peripheral) bool {
		_ = p.Close()
		return true
	})
	if dev == nil {
		return nil
	}
	return NormalizeError(dev.Stop())
}

func (s *Stack) track(p *Peripheral) {
	s.links.Set(device.NormalizeAddress(p.Address()), p)
}

func (s *Stack) untrack(p *Peripheral) {
	key := device.NormalizeAddress(p.Address())
	if cur, ok := s.links.Get(key); ok && cur == p {
		s.links.Del(key)
	}
}

func isBluetoothOff(err error) bool {
	return errors.Is(err, device.ErrBluetoothOff)
}
