package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/groutine"
)

// Peripheral is a go-ble handle for one remote device. The link is dialed by
// the first DiscoverServices call and released by Close.
type Peripheral struct {
	stack    *Stack
	address  string
	logger   *logrus.Entry
	handlers *handlerSet[func()]

	mu      sync.Mutex
	name    string
	client  ble.Client
	dialing chan struct{} // closed when the dial in flight finishes
	closed  bool
	cancel  context.CancelFunc
	monitor sync.WaitGroup
}

func newPeripheral(stack *Stack, address string) *Peripheral {
	return &Peripheral{
		stack:    stack,
		address:  address,
		logger:   stack.logger.WithField("address", address),
		handlers: newHandlerSet[func()](),
	}
}

func (p *Peripheral) Address() string { return p.address }

func (p *Peripheral) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *Peripheral) ConnectionStatus() device.NativeConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.linkedLocked() {
		return device.NativeConnected
	}
	return device.NativeDisconnected
}

func (p *Peripheral) AddConnectionStatusChangedHandler(h func()) device.HandlerToken {
	return p.handlers.add(h)
}

func (p *Peripheral) RemoveConnectionStatusChangedHandler(token device.HandlerToken) {
	p.handlers.remove(token)
}

// DiscoverServices dials the device if there is no live link, then returns its
// GATT profile. CacheUncached forces a fresh discovery.
func (p *Peripheral) DiscoverServices(ctx context.Context, mode device.CacheMode) ([]device.NativeService, error) {
	client, dialed, err := p.ensureLink(ctx)
	if err != nil {
		return nil, err
	}

	profile := client.Profile()
	if profile == nil || mode == device.CacheUncached || dialed {
		p.logger.Debug("Discovering services and characteristics...")
		profile, err = client.DiscoverProfile(true)
		if err != nil {
			err = NormalizeError(err)
			p.logger.WithError(err).Error("Failed to discover profile")
			if dialed {
				p.release()
			}
			return nil, fmt.Errorf("failed to discover profile: %w", err)
		}
	}

	services := make([]device.NativeService, 0, len(profile.Services))
	for _, svc := range profile.Services {
		services = append(services, newService(p, client, svc))
	}

	p.logger.WithField("services", len(services)).Debug("Profile discovered successfully")
	return services, nil
}

// Close releases the link. The handle cannot be used afterwards.
func (p *Peripheral) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.release()
	p.handlers.clear()
	return err
}

// ensureLink returns the live client, dialing one if needed. The dial runs
// without p.mu held; concurrent callers wait for it to finish.
func (p *Peripheral) ensureLink(ctx context.Context) (ble.Client, bool, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, false, p.closedError()
		}
		if p.linkedLocked() {
			client := p.client
			p.mu.Unlock()
			return client, false, nil
		}
		if wait := p.dialing; wait != nil {
			p.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}
		done := make(chan struct{})
		p.dialing = done
		p.mu.Unlock()

		client, err := p.dial(ctx)

		p.mu.Lock()
		p.dialing = nil
		close(done)
		if err != nil {
			p.mu.Unlock()
			return nil, false, err
		}
		if p.closed {
			p.mu.Unlock()
			if cerr := NormalizeError(client.CancelConnection()); cerr != nil {
				p.logger.WithError(cerr).Warn("Failed to cancel connection dialed after close")
			}
			return nil, false, p.closedError()
		}
		p.client = client
		if name := client.Name(); name != "" {
			p.name = name
		}
		p.startMonitorLocked(client)
		p.mu.Unlock()

		p.stack.track(p)
		groutine.Go(context.Background(), "ble-connection-notify", func(context.Context) {
			p.notify()
		})
		return client, true, nil
	}
}

func (p *Peripheral) dial(ctx context.Context) (ble.Client, error) {
	dev, err := p.stack.device()
	if err != nil {
		return nil, err
	}

	p.logger.Info("Connecting to BLE device...")
	client, err := dev.Dial(ctx, ble.NewAddr(p.address))
	if err != nil {
		err = NormalizeError(err)
		p.logger.WithError(err).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", p.address, err)
	}
	return client, nil
}

func (p *Peripheral) closedError() error {
	return fmt.Errorf("%w: device handle %s is closed", device.ErrNotInitialized, p.address)
}

// isClosed reports whether Close has been called.
func (p *Peripheral) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// startMonitorLocked watches the client's Disconnected channel, when the
// platform client exposes one, and reports remote disconnects.
func (p *Peripheral) startMonitorLocked(client ble.Client) {
	dc, ok := client.(interface{ Disconnected() <-chan struct{} })
	if !ok {
		p.logger.Debug("Client does not support Disconnected() channel")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	groutine.GoWait(ctx, "ble-connection-monitor", &p.monitor, func(ctx context.Context) {
		select {
		case <-dc.Disconnected():
			p.logger.Warn("Remote device disconnected")
			p.mu.Lock()
			if p.client == client {
				p.client = nil
			}
			p.mu.Unlock()
			p.stack.untrack(p)
			// Handlers may Close this handle, which waits for the monitor.
			groutine.Go(context.Background(), "ble-connection-notify", func(context.Context) {
				p.notify()
			})
		case <-ctx.Done():
		}
	})
}

// release cancels the connection and stops the monitor.
func (p *Peripheral) release() error {
	p.mu.Lock()
	client := p.client
	cancel := p.cancel
	p.client = nil
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.monitor.Wait()
	p.stack.untrack(p)

	if client == nil {
		return nil
	}
	err := NormalizeError(client.CancelConnection())
	if err != nil {
		p.logger.WithError(err).Warn("BLE device disconnected with errors")
	} else {
		p.logger.Info("BLE device disconnected successfully")
	}
	p.notify()
	return err
}

func (p *Peripheral) linkedLocked() bool {
	if p.client == nil {
		return false
	}
	if dc, ok := p.client.(interface{ Disconnected() <-chan struct{} }); ok {
		select {
		case <-dc.Disconnected():
			return false
		default:
		}
	}
	return true
}

func (p *Peripheral) notify() {
	for _, h := range p.handlers.snapshot() {
		h()
	}
}
