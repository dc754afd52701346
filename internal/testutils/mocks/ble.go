//go:build test

// Package mocks holds testify mocks of the go-ble interfaces.
//
// Return values may be given either as values or, mockery style, as functions
// with the method's signature, which are called with the actual arguments.
package mocks

import (
	"context"

	blelib "github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockDevice is a mock of ble.Device.
type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) AddService(svc *blelib.Service) error {
	return m.Called(svc).Error(0)
}

func (m *MockDevice) RemoveAllServices() error {
	return m.Called().Error(0)
}

func (m *MockDevice) SetServices(svcs []*blelib.Service) error {
	return m.Called(svcs).Error(0)
}

func (m *MockDevice) Stop() error {
	return m.Called().Error(0)
}

func (m *MockDevice) Advertise(ctx context.Context, adv blelib.Advertisement) error {
	return m.Called(ctx, adv).Error(0)
}

// AdvertiseNameAndServices records uuids as a single []ble.UUID argument.
func (m *MockDevice) AdvertiseNameAndServices(ctx context.Context, name string, uuids ...blelib.UUID) error {
	ret := m.Called(ctx, name, uuids)
	if rf, ok := ret.Get(0).(func(context.Context, string, []blelib.UUID) error); ok {
		return rf(ctx, name, uuids)
	}
	return ret.Error(0)
}

func (m *MockDevice) AdvertiseMfgData(ctx context.Context, id uint16, b []byte) error {
	return m.Called(ctx, id, b).Error(0)
}

func (m *MockDevice) AdvertiseServiceData16(ctx context.Context, id uint16, b []byte) error {
	return m.Called(ctx, id, b).Error(0)
}

func (m *MockDevice) AdvertiseIBeaconData(ctx context.Context, b []byte) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockDevice) AdvertiseIBeacon(ctx context.Context, u blelib.UUID, major, minor uint16, pwr int8) error {
	return m.Called(ctx, u, major, minor, pwr).Error(0)
}

func (m *MockDevice) Scan(ctx context.Context, allowDup bool, h blelib.AdvHandler) error {
	ret := m.Called(ctx, allowDup, h)
	if rf, ok := ret.Get(0).(func(context.Context, bool, blelib.AdvHandler) error); ok {
		return rf(ctx, allowDup, h)
	}
	return ret.Error(0)
}

func (m *MockDevice) Dial(ctx context.Context, a blelib.Addr) (blelib.Client, error) {
	ret := m.Called(ctx, a)
	if rf, ok := ret.Get(0).(func(context.Context, blelib.Addr) (blelib.Client, error)); ok {
		return rf(ctx, a)
	}
	var client blelib.Client
	if c := ret.Get(0); c != nil {
		client = c.(blelib.Client)
	}
	return client, ret.Error(1)
}

// MockClient is a mock of ble.Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Addr() blelib.Addr {
	ret := m.Called()
	if a := ret.Get(0); a != nil {
		return a.(blelib.Addr)
	}
	return nil
}

func (m *MockClient) Name() string {
	return m.Called().String(0)
}

func (m *MockClient) Profile() *blelib.Profile {
	ret := m.Called()
	if rf, ok := ret.Get(0).(func() *blelib.Profile); ok {
		return rf()
	}
	if p := ret.Get(0); p != nil {
		return p.(*blelib.Profile)
	}
	return nil
}

func (m *MockClient) DiscoverProfile(force bool) (*blelib.Profile, error) {
	ret := m.Called(force)
	var p *blelib.Profile
	if v := ret.Get(0); v != nil {
		p = v.(*blelib.Profile)
	}
	return p, ret.Error(1)
}

func (m *MockClient) DiscoverServices(filter []blelib.UUID) ([]*blelib.Service, error) {
	ret := m.Called(filter)
	var out []*blelib.Service
	if v := ret.Get(0); v != nil {
		out = v.([]*blelib.Service)
	}
	return out, ret.Error(1)
}

func (m *MockClient) DiscoverIncludedServices(filter []blelib.UUID, s *blelib.Service) ([]*blelib.Service, error) {
	ret := m.Called(filter, s)
	var out []*blelib.Service
	if v := ret.Get(0); v != nil {
		out = v.([]*blelib.Service)
	}
	return out, ret.Error(1)
}

func (m *MockClient) DiscoverCharacteristics(filter []blelib.UUID, s *blelib.Service) ([]*blelib.Characteristic, error) {
	ret := m.Called(filter, s)
	var out []*blelib.Characteristic
	if v := ret.Get(0); v != nil {
		out = v.([]*blelib.Characteristic)
	}
	return out, ret.Error(1)
}

func (m *MockClient) DiscoverDescriptors(filter []blelib.UUID, c *blelib.Characteristic) ([]*blelib.Descriptor, error) {
	ret := m.Called(filter, c)
	var out []*blelib.Descriptor
	if v := ret.Get(0); v != nil {
		out = v.([]*blelib.Descriptor)
	}
	return out, ret.Error(1)
}

func (m *MockClient) ReadCharacteristic(c *blelib.Characteristic) ([]byte, error) {
	ret := m.Called(c)
	var b []byte
	if v := ret.Get(0); v != nil {
		b = v.([]byte)
	}
	return b, ret.Error(1)
}

func (m *MockClient) ReadLongCharacteristic(c *blelib.Characteristic) ([]byte, error) {
	ret := m.Called(c)
	var b []byte
	if v := ret.Get(0); v != nil {
		b = v.([]byte)
	}
	return b, ret.Error(1)
}

func (m *MockClient) WriteCharacteristic(c *blelib.Characteristic, value []byte, noRsp bool) error {
	return m.Called(c, value, noRsp).Error(0)
}

func (m *MockClient) ReadDescriptor(d *blelib.Descriptor) ([]byte, error) {
	ret := m.Called(d)
	var b []byte
	if v := ret.Get(0); v != nil {
		b = v.([]byte)
	}
	return b, ret.Error(1)
}

func (m *MockClient) WriteDescriptor(d *blelib.Descriptor, v []byte) error {
	return m.Called(d, v).Error(0)
}

func (m *MockClient) ReadRSSI() int {
	return m.Called().Int(0)
}

func (m *MockClient) ExchangeMTU(rxMTU int) (int, error) {
	ret := m.Called(rxMTU)
	return ret.Int(0), ret.Error(1)
}

func (m *MockClient) Subscribe(c *blelib.Characteristic, ind bool, h blelib.NotificationHandler) error {
	return m.Called(c, ind, h).Error(0)
}

func (m *MockClient) Unsubscribe(c *blelib.Characteristic, ind bool) error {
	return m.Called(c, ind).Error(0)
}

func (m *MockClient) ClearSubscriptions() error {
	return m.Called().Error(0)
}

func (m *MockClient) CancelConnection() error {
	return m.Called().Error(0)
}

// Disconnected accepts either a chan struct{} or a <-chan struct{} return value.
func (m *MockClient) Disconnected() <-chan struct{} {
	ret := m.Called()
	switch ch := ret.Get(0).(type) {
	case chan struct{}:
		return ch
	case <-chan struct{}:
		return ch
	}
	return nil
}

func (m *MockClient) Conn() blelib.Conn {
	ret := m.Called()
	if c := ret.Get(0); c != nil {
		return c.(blelib.Conn)
	}
	return nil
}

// Advertisement is a canned ble.Advertisement.
type Advertisement struct {
	Address   string
	Name      string
	Signal    int
	MfgData   []byte
	SvcData   []blelib.ServiceData
	UUIDs     []blelib.UUID
	Overflow  []blelib.UUID
	Solicited []blelib.UUID
	TxPower   int
	CanConn   bool
}

func (a *Advertisement) LocalName() string                 { return a.Name }
func (a *Advertisement) ManufacturerData() []byte          { return a.MfgData }
func (a *Advertisement) ServiceData() []blelib.ServiceData { return a.SvcData }
func (a *Advertisement) Services() []blelib.UUID           { return a.UUIDs }
func (a *Advertisement) OverflowService() []blelib.UUID    { return a.Overflow }
func (a *Advertisement) TxPowerLevel() int                 { return a.TxPower }
func (a *Advertisement) Connectable() bool                 { return a.CanConn }
func (a *Advertisement) SolicitedService() []blelib.UUID   { return a.Solicited }
func (a *Advertisement) RSSI() int                         { return a.Signal }
func (a *Advertisement) Addr() blelib.Addr                 { return blelib.NewAddr(a.Address) }
