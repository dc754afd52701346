//go:build test

package testutils

import (
	"context"
	"sync"

	"github.com/srg/bleplug/internal/device"
)

// FakePeer is a remote device. Its link state is shared by every handle
// resolved for it, like a real peer.
type FakePeer struct {
	address string
	name    string

	mu          sync.Mutex
	connected   bool
	connects    int
	discoverErr error
	services    []*FakeService
	block       chan struct{}
}

func newFakePeer(address, name string) *FakePeer {
	return &FakePeer{address: address, name: name}
}

// WithService adds a service with the given characteristics.
func (p *FakePeer) WithService(uuid string, chars ...*FakeCharacteristic) *FakePeer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.services = append(p.services, &FakeService{uuid: uuid, chars: chars})
	return p
}

// WithDiscoverError makes service discovery, and thus connecting, fail.
func (p *FakePeer) WithDiscoverError(err error) *FakePeer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discoverErr = err
	return p
}

// BlockResolution makes DeviceFromAddress wait until the returned func is
// called or the caller's context is done.
func (p *FakePeer) BlockResolution() (release func()) {
	ch := make(chan struct{})
	p.mu.Lock()
	p.block = ch
	p.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (p *FakePeer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Connects returns how many times a link was established.
func (p *FakePeer) Connects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connects
}

// FakeDevice is one native handle for a FakePeer.
type FakeDevice struct {
	peer *FakePeer

	mu            sync.Mutex
	handlers      map[device.HandlerToken]func()
	next          device.HandlerToken
	registrations int
	closed        bool
	linked        bool
}

func (d *FakeDevice) Address() string { return d.peer.address }
func (d *FakeDevice) Name() string    { return d.peer.name }

func (d *FakeDevice) ConnectionStatus() device.NativeConnectionStatus {
	d.mu.Lock()
	linked := d.linked && !d.closed
	d.mu.Unlock()
	if linked && d.peer.Connected() {
		return device.NativeConnected
	}
	return device.NativeDisconnected
}

func (d *FakeDevice) AddConnectionStatusChangedHandler(h func()) device.HandlerToken {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.registrations++
	d.handlers[d.next] = h
	return d.next
}

func (d *FakeDevice) RemoveConnectionStatusChangedHandler(token device.HandlerToken) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, token)
}

func (d *FakeDevice) DiscoverServices(ctx context.Context, _ device.CacheMode) ([]device.NativeService, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := d.peer
	p.mu.Lock()
	if p.discoverErr != nil {
		err := p.discoverErr
		p.mu.Unlock()
		return nil, err
	}
	established := !p.connected
	if established {
		p.connected = true
		p.connects++
	}
	services := make([]device.NativeService, 0, len(p.services))
	for _, s := range p.services {
		services = append(services, s)
	}
	p.mu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, device.ErrNotInitialized
	}
	d.linked = true
	d.mu.Unlock()

	if established {
		d.fire()
	}
	return services, nil
}

func (d *FakeDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	linked := d.linked
	d.mu.Unlock()

	if linked {
		d.peer.mu.Lock()
		d.peer.connected = false
		d.peer.mu.Unlock()
	}
	return nil
}

// Closed reports whether the handle was released.
func (d *FakeDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// LiveHandlers returns the number of registered connection handlers.
func (d *FakeDevice) LiveHandlers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

// Registrations returns how many handlers were ever registered.
func (d *FakeDevice) Registrations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registrations
}

// DropLink simulates the remote end going away.
func (d *FakeDevice) DropLink() {
	d.peer.mu.Lock()
	d.peer.connected = false
	d.peer.mu.Unlock()
	d.fire()
}

// FireStatusChanged invokes every handler without changing state.
func (d *FakeDevice) FireStatusChanged() {
	d.fire()
}

func (d *FakeDevice) fire() {
	d.mu.Lock()
	hs := make([]func(), 0, len(d.handlers))
	for _, h := range d.handlers {
		hs = append(hs, h)
	}
	d.mu.Unlock()
	for _, h := range hs {
		h()
	}
}

// FakeService is a GATT service of a FakePeer.
type FakeService struct {
	uuid  string
	chars []*FakeCharacteristic
}

func (s *FakeService) UUID() string { return s.uuid }

func (s *FakeService) Characteristics() []device.NativeCharacteristic {
	out := make([]device.NativeCharacteristic, 0, len(s.chars))
	for _, c := range s.chars {
		out = append(out, c)
	}
	return out
}

// FakeCharacteristic records subscription calls.
type FakeCharacteristic struct {
	uuid     string
	notify   bool
	indicate bool

	mu           sync.Mutex
	handler      func([]byte)
	subscribes   int
	unsubscribes int
	unsubErr     error
}

// NewFakeCharacteristic creates a characteristic supporting notify.
func NewFakeCharacteristic(uuid string) *FakeCharacteristic {
	return &FakeCharacteristic{uuid: uuid, notify: true}
}

// WithIndicate enables indications.
func (c *FakeCharacteristic) WithIndicate() *FakeCharacteristic {
	c.indicate = true
	return c
}

// WithUnsubscribeError makes Unsubscribe fail with err.
func (c *FakeCharacteristic) WithUnsubscribeError(err error) *FakeCharacteristic {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubErr = err
	return c
}

func (c *FakeCharacteristic) UUID() string      { return c.uuid }
func (c *FakeCharacteristic) CanNotify() bool   { return c.notify }
func (c *FakeCharacteristic) CanIndicate() bool { return c.indicate }

func (c *FakeCharacteristic) Subscribe(ctx context.Context, indicate bool, h func([]byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if indicate && !c.indicate || !indicate && !c.notify {
		return device.ErrUnsupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
	c.subscribes++
	return nil
}

func (c *FakeCharacteristic) Unsubscribe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribes++
	if c.unsubErr != nil {
		return c.unsubErr
	}
	c.handler = nil
	return nil
}

// Emit delivers a notification to the subscribed handler, if any.
func (c *FakeCharacteristic) Emit(data []byte) bool {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h(data)
	return true
}

func (c *FakeCharacteristic) Subscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribes
}

func (c *FakeCharacteristic) Unsubscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribes
}
