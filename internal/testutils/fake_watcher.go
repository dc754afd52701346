//go:build test

package testutils

import (
	"context"
	"sync"

	"github.com/srg/bleplug/internal/device"
)

// FakeWatcher is a device.AdvertisementWatcher driven by the test.
type FakeWatcher struct {
	mu      sync.Mutex
	cfg     *device.ScanConfig
	handler func(device.RawAdvertisement)
	stale   func(device.RawAdvertisement)
	started chan struct{}
	end     chan error
	watches int
	lingers bool
}

func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{started: make(chan struct{}, 16), end: make(chan error, 1)}
}

// Lingering keeps the last handler reachable after Watch returns, so
// Advertise can model a native event racing with stop.
func (w *FakeWatcher) Lingering() *FakeWatcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lingers = true
	return w
}

func (w *FakeWatcher) configure(cfg *device.ScanConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg = cfg
}

// Config returns the configuration of the last created watcher.
func (w *FakeWatcher) Config() *device.ScanConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Watches returns how many times Watch was called.
func (w *FakeWatcher) Watches() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watches
}

func (w *FakeWatcher) Watch(ctx context.Context, h func(device.RawAdvertisement)) error {
	w.mu.Lock()
	w.handler = h
	w.stale = nil
	w.watches++
	w.mu.Unlock()

	w.started <- struct{}{}

	var err error
	select {
	case <-ctx.Done():
	case err = <-w.end:
	}

	w.mu.Lock()
	if w.lingers {
		w.stale = w.handler
	}
	w.handler = nil
	w.mu.Unlock()
	return err
}

// WaitStarted blocks until Watch has been entered, or ctx is done.
func (w *FakeWatcher) WaitStarted(ctx context.Context) bool {
	select {
	case <-w.started:
		return true
	case <-ctx.Done():
		return false
	}
}

// Advertise delivers adv to the active handler, or to the lingering one
// after stop. Returns false if no handler was reachable.
func (w *FakeWatcher) Advertise(adv device.RawAdvertisement) bool {
	w.mu.Lock()
	h := w.handler
	if h == nil {
		h = w.stale
	}
	w.mu.Unlock()
	if h == nil {
		return false
	}
	h(adv)
	return true
}

// End makes the running Watch return err.
func (w *FakeWatcher) End(err error) {
	w.end <- err
}

// FakeGattServer records hosted services and advertising.
type FakeGattServer struct {
	mu          sync.Mutex
	services    []device.ServiceDefinition
	advertising []string
	addErr      error
}

func NewFakeGattServer() *FakeGattServer {
	return &FakeGattServer{}
}

func (g *FakeGattServer) WithAddError(err error) *FakeGattServer {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addErr = err
	return g
}

func (g *FakeGattServer) AddService(svc device.ServiceDefinition) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.addErr != nil {
		return g.addErr
	}
	g.services = append(g.services, svc)
	return nil
}

func (g *FakeGattServer) RemoveAllServices() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.services = nil
	return nil
}

func (g *FakeGattServer) Advertise(ctx context.Context, name string, serviceUUIDs []string) error {
	g.mu.Lock()
	g.advertising = append([]string{name}, serviceUUIDs...)
	g.mu.Unlock()
	<-ctx.Done()
	return nil
}

// Hosted returns the hosted service definitions.
func (g *FakeGattServer) Hosted() []device.ServiceDefinition {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]device.ServiceDefinition(nil), g.services...)
}

// Advertised returns the name followed by the service UUIDs last advertised.
func (g *FakeGattServer) Advertised() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.advertising...)
}
