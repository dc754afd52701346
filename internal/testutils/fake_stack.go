//go:build test

package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/srg/bleplug/internal/device"
)

// FakeStack is an in-memory device.NativeStack.
//
// Remote devices are described by peers. Every DeviceFromAddress call
// resolves a new FakeDevice handle, so tests can count resolutions and
// handler registrations per handle.
type FakeStack struct {
	mu          sync.Mutex
	adapter     *FakeAdapter
	adapterErr  error
	peers       map[string]*FakePeer
	strict      bool
	handles     []*FakeDevice
	resolutions map[string]int
	paired      []string
	findErr     error
	settings    atomic.Int32
	settingsErr error

	Watcher *FakeWatcher
}

// NewFakeStack creates a stack with a powered-on adapter.
func NewFakeStack() *FakeStack {
	return &FakeStack{
		adapter:     NewFakeAdapter(),
		peers:       make(map[string]*FakePeer),
		resolutions: make(map[string]int),
		Watcher:     NewFakeWatcher(),
	}
}

// WithoutAdapter makes DefaultAdapter report that no adapter exists.
func (s *FakeStack) WithoutAdapter() *FakeStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapter = nil
	return s
}

// WithAdapterError makes DefaultAdapter fail with err.
func (s *FakeStack) WithAdapterError(err error) *FakeStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapterErr = err
	return s
}

// Strict makes unknown addresses unresolvable instead of creating empty peers.
func (s *FakeStack) Strict() *FakeStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strict = true
	return s
}

// WithPaired lists addresses reported by paired enumeration.
func (s *FakeStack) WithPaired(addresses ...string) *FakeStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paired = append(s.paired, addresses...)
	return s
}

// WithFindError makes FindDevices fail with err.
func (s *FakeStack) WithFindError(err error) *FakeStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findErr = err
	return s
}

// WithSettingsError makes OpenSettings fail with err.
func (s *FakeStack) WithSettingsError(err error) *FakeStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsErr = err
	return s
}

// Adapter returns the fake adapter, nil if removed.
func (s *FakeStack) Adapter() *FakeAdapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter
}

// AddPeer registers a remote device.
func (s *FakeStack) AddPeer(address, name string) *FakePeer {
	p := newFakePeer(address, name)
	s.mu.Lock()
	s.peers[device.NormalizeAddress(address)] = p
	s.mu.Unlock()
	return p
}

// Peer returns the peer registered for address.
func (s *FakeStack) Peer(address string) *FakePeer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[device.NormalizeAddress(address)]
}

// Resolutions returns how many handles were resolved for address.
func (s *FakeStack) Resolutions(address string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolutions[device.NormalizeAddress(address)]
}

// Handles returns every handle resolved for address, oldest first.
func (s *FakeStack) Handles(address string) []*FakeDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := device.NormalizeAddress(address)
	var out []*FakeDevice
	for _, h := range s.handles {
		if device.NormalizeAddress(h.peer.address) == key {
			out = append(out, h)
		}
	}
	return out
}

// LiveHandlers returns the connection handlers registered across every
// handle resolved for address.
func (s *FakeStack) LiveHandlers(address string) int {
	n := 0
	for _, h := range s.Handles(address) {
		n += h.LiveHandlers()
	}
	return n
}

// SettingsOpened returns how many times OpenSettings succeeded.
func (s *FakeStack) SettingsOpened() int {
	return int(s.settings.Load())
}

func (s *FakeStack) DefaultAdapter(ctx context.Context) (device.NativeAdapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapterErr != nil {
		return nil, s.adapterErr
	}
	if s.adapter == nil {
		return nil, device.ErrNoAdapter
	}
	s.adapter.resolved.Add(1)
	return s.adapter, nil
}

func (s *FakeStack) DeviceFromAddress(ctx context.Context, address string) (device.NativeDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := device.NormalizeAddress(address)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.peers[key]
	if !ok {
		if s.strict {
			return nil, &device.NotFoundError{Resource: "device", IDs: []string{address}}
		}
		p = newFakePeer(address, "")
		s.peers[key] = p
	}
	if p.block != nil {
		block := p.block
		s.mu.Unlock()
		select {
		case <-block:
		case <-ctx.Done():
			s.mu.Lock()
			return nil, ctx.Err()
		}
		s.mu.Lock()
	}

	h := &FakeDevice{peer: p, handlers: make(map[device.HandlerToken]func())}
	s.handles = append(s.handles, h)
	s.resolutions[key]++
	return h, nil
}

func (s *FakeStack) FindDevices(ctx context.Context, selector device.DeviceSelector) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	if selector == device.SelectPaired {
		return append([]string(nil), s.paired...), nil
	}

	var out []string
	for _, p := range s.peers {
		if p.Connected() {
			out = append(out, p.address)
		}
	}
	return out, nil
}

func (s *FakeStack) NewAdvertisementWatcher(cfg *device.ScanConfig) (device.AdvertisementWatcher, error) {
	s.Watcher.configure(cfg)
	return s.Watcher, nil
}

func (s *FakeStack) OpenSettings(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	err := s.settingsErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.settings.Add(1)
	return nil
}

// FakeAdapter is an in-memory device.NativeAdapter.
type FakeAdapter struct {
	NameValue string
	Caps      device.Capabilities
	Power     *FakeRadio
	Server    *FakeGattServer

	resolved atomic.Int32
}

// NewFakeAdapter creates a dual-role adapter with a powered-on radio.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		NameValue: "fake0",
		Caps:      device.Capabilities{LowEnergy: true, Central: true, Peripheral: true},
		Power:     NewFakeRadio(device.RadioOn),
		Server:    NewFakeGattServer(),
	}
}

// Resolved returns how many times the adapter was handed out.
func (a *FakeAdapter) Resolved() int { return int(a.resolved.Load()) }

func (a *FakeAdapter) Name() string                       { return a.NameValue }
func (a *FakeAdapter) Capabilities() device.Capabilities { return a.Caps }

func (a *FakeAdapter) Radio(ctx context.Context) (device.Radio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Power == nil {
		return nil, nil
	}
	return a.Power, nil
}

func (a *FakeAdapter) NewGattServer() (device.NativeGattServer, error) {
	return a.Server, nil
}

// FakeRadio is an in-memory device.Radio.
type FakeRadio struct {
	mu            sync.Mutex
	state         device.RadioState
	handlers      map[device.HandlerToken]func(device.RadioState)
	next          device.HandlerToken
	registrations int
	setErr        error
}

func NewFakeRadio(state device.RadioState) *FakeRadio {
	return &FakeRadio{state: state, handlers: make(map[device.HandlerToken]func(device.RadioState))}
}

// WithSetStateError makes SetState fail with err.
func (r *FakeRadio) WithSetStateError(err error) *FakeRadio {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setErr = err
	return r
}

func (r *FakeRadio) Name() string { return "fake-radio" }

func (r *FakeRadio) State() device.RadioState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *FakeRadio) SetState(ctx context.Context, state device.RadioState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	err := r.setErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.Fire(state)
	return nil
}

func (r *FakeRadio) AddStateChangedHandler(h func(device.RadioState)) device.HandlerToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.registrations++
	r.handlers[r.next] = h
	return r.next
}

func (r *FakeRadio) RemoveStateChangedHandler(token device.HandlerToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, token)
}

// Fire changes the state and invokes every handler, like a native event.
func (r *FakeRadio) Fire(state device.RadioState) {
	r.mu.Lock()
	r.state = state
	hs := make([]func(device.RadioState), 0, len(r.handlers))
	for _, h := range r.handlers {
		hs = append(hs, h)
	}
	r.mu.Unlock()
	for _, h := range hs {
		h(state)
	}
}

// LiveHandlers returns the number of registered handlers.
func (r *FakeRadio) LiveHandlers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// Registrations returns how many handlers were ever registered.
func (r *FakeRadio) Registrations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registrations
}
