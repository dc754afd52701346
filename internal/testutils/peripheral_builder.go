//go:build test

package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	blelib "github.com/go-ble/ble"
	"github.com/srg/bleplug/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
)

// PeripheralDeviceBuilder builds a mocked ble.Device that dials one remote
// peripheral with a fixed GATT profile.
type PeripheralDeviceBuilder struct {
	name        string
	services    []*blelib.Service
	ads         []blelib.Advertisement
	dialErr     error
	discoverErr error
}

// NewPeripheralDeviceBuilder creates a builder for a peripheral named name.
func NewPeripheralDeviceBuilder(name string) *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{name: name}
}

// WithService adds a service to the profile.
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	b.services = append(b.services, &blelib.Service{UUID: blelib.MustParse(uuid)})
	return b
}

// WithCharacteristic adds a characteristic to the last added service.
// properties is a comma separated list of read, write, notify, indicate.
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string) *PeripheralDeviceBuilder {
	if len(b.services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	svc := b.services[len(b.services)-1]
	svc.Characteristics = append(svc.Characteristics, &blelib.Characteristic{
		UUID:     blelib.MustParse(uuid),
		Property: parseProperties(properties),
	})
	return b
}

// WithScanAdvertisements makes Scan deliver ads.
func (b *PeripheralDeviceBuilder) WithScanAdvertisements(ads ...blelib.Advertisement) *PeripheralDeviceBuilder {
	b.ads = append(b.ads, ads...)
	return b
}

// WithDialError makes every Dial fail with err.
func (b *PeripheralDeviceBuilder) WithDialError(err error) *PeripheralDeviceBuilder {
	b.dialErr = err
	return b
}

// WithDiscoverError makes profile discovery fail with err.
func (b *PeripheralDeviceBuilder) WithDiscoverError(err error) *PeripheralDeviceBuilder {
	b.discoverErr = err
	return b
}

func parseProperties(props string) blelib.Property {
	var p blelib.Property
	for _, name := range strings.Split(props, ",") {
		switch strings.TrimSpace(name) {
		case "read":
			p |= blelib.CharRead
		case "write":
			p |= blelib.CharWrite
		case "notify":
			p |= blelib.CharNotify
		case "indicate":
			p |= blelib.CharIndicate
		case "":
		default:
			panic(fmt.Sprintf("parseProperties: unknown property %q", name))
		}
	}
	return p
}

// Build creates the mocked device. Every Dial returns a fresh MockClient.
func (b *PeripheralDeviceBuilder) Build() *MockedPeripheral {
	mp := &MockedPeripheral{
		Device:   &mocks.MockDevice{},
		Profile:  &blelib.Profile{Services: b.services},
		name:     b.name,
		discover: b.discoverErr,
		gate:     closedGate(),
		handlers: make(map[*blelib.Characteristic]blelib.NotificationHandler),
	}

	mp.Device.On("Dial", mock.Anything, mock.Anything).Return(
		func(ctx context.Context, _ blelib.Addr) (blelib.Client, error) {
			mp.mu.Lock()
			gate := mp.gate
			mp.dials++
			mp.mu.Unlock()

			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if b.dialErr != nil {
				return nil, b.dialErr
			}
			return mp.newClient(), nil
		})

	ads := b.ads
	mp.Device.On("Scan", mock.Anything, mock.Anything, mock.Anything).Return(
		func(_ context.Context, _ bool, h blelib.AdvHandler) error {
			for _, a := range ads {
				h(a)
			}
			return nil
		})
	mp.Device.On("Stop").Return(nil)
	return mp
}

func closedGate() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// MockedPeripheral is a mocked ble.Device plus the clients it has dialed.
type MockedPeripheral struct {
	Device  *mocks.MockDevice
	Profile *blelib.Profile

	name     string
	discover error

	mu       sync.Mutex
	gate     chan struct{}
	dials    int
	clients  []*mocks.MockClient
	droppers []func()
	handlers map[*blelib.Characteristic]blelib.NotificationHandler
}

func (mp *MockedPeripheral) newClient() *mocks.MockClient {
	link := make(chan struct{})
	var once sync.Once
	drop := func() { once.Do(func() { close(link) }) }

	c := &mocks.MockClient{}
	c.On("Name").Return(mp.name)
	c.On("Profile").Return(mp.Profile)
	c.On("Disconnected").Return(link)
	if mp.discover != nil {
		c.On("DiscoverProfile", true).Return(nil, mp.discover)
	} else {
		c.On("DiscoverProfile", true).Return(mp.Profile, nil)
	}
	c.On("CancelConnection").Run(func(mock.Arguments) { drop() }).Return(nil)
	c.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mp.mu.Lock()
		defer mp.mu.Unlock()
		mp.handlers[args.Get(0).(*blelib.Characteristic)] = args.Get(2).(blelib.NotificationHandler)
	}).Return(nil)

	mp.mu.Lock()
	mp.clients = append(mp.clients, c)
	mp.droppers = append(mp.droppers, drop)
	mp.mu.Unlock()
	return c
}

// HoldDial makes Dial block until the returned release is called.
func (mp *MockedPeripheral) HoldDial() (release func()) {
	gate := make(chan struct{})
	mp.mu.Lock()
	mp.gate = gate
	mp.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(gate)
			mp.mu.Lock()
			mp.gate = closedGate()
			mp.mu.Unlock()
		})
	}
}

// Dials returns how many times Dial was called.
func (mp *MockedPeripheral) Dials() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.dials
}

// Clients returns every client dialed so far.
func (mp *MockedPeripheral) Clients() []*mocks.MockClient {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]*mocks.MockClient(nil), mp.clients...)
}

// LastClient returns the most recently dialed client, or nil.
func (mp *MockedPeripheral) LastClient() *mocks.MockClient {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if len(mp.clients) == 0 {
		return nil
	}
	return mp.clients[len(mp.clients)-1]
}

// DropLink simulates the remote side closing the most recent link.
func (mp *MockedPeripheral) DropLink() {
	mp.mu.Lock()
	var drop func()
	if n := len(mp.droppers); n > 0 {
		drop = mp.droppers[n-1]
	}
	mp.mu.Unlock()
	if drop != nil {
		drop()
	}
}

// Notify delivers data to the handler subscribed on the characteristic
// with the given UUID. Returns false if none is subscribed.
func (mp *MockedPeripheral) Notify(uuid string, data []byte) bool {
	want := blelib.MustParse(uuid)
	mp.mu.Lock()
	var h blelib.NotificationHandler
	for c, handler := range mp.handlers {
		if c.UUID.Equal(want) {
			h = handler
		}
	}
	mp.mu.Unlock()
	if h == nil {
		return false
	}
	h(data)
	return true
}
