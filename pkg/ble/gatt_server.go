package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
)

// GattServer hosts local GATT services and advertises them.
type GattServer struct {
	native device.NativeGattServer
	logger *logrus.Logger

	mu       sync.Mutex
	services []ServiceDefinition
}

func newGattServer(native device.NativeGattServer, logger *logrus.Logger) *GattServer {
	return &GattServer{native: native, logger: logger}
}

// AddService hosts svc. UUIDs are validated before anything reaches the stack.
func (s *GattServer) AddService(svc ServiceDefinition) error {
	uuids := []string{svc.UUID}
	for _, c := range svc.Characteristics {
		uuids = append(uuids, c.UUID)
	}
	if _, err := device.ValidateUUID(uuids...); err != nil {
		return err
	}

	if err := s.native.AddService(svc); err != nil {
		return err
	}

	s.mu.Lock()
	s.services = append(s.services, svc)
	s.mu.Unlock()
	return nil
}

// RemoveAllServices stops hosting every service.
func (s *GattServer) RemoveAllServices() error {
	if err := s.native.RemoveAllServices(); err != nil {
		return fmt.Errorf("failed to remove services: %w", err)
	}
	s.mu.Lock()
	s.services = nil
	s.mu.Unlock()
	return nil
}

// Services returns the hosted service definitions.
func (s *GattServer) Services() []ServiceDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ServiceDefinition(nil), s.services...)
}

// Advertise advertises name and the hosted services until ctx is done.
func (s *GattServer) Advertise(ctx context.Context, name string) error {
	services := s.Services()
	uuids := make([]string, 0, len(services))
	for _, svc := range services {
		uuids = append(uuids, svc.UUID)
	}
	s.logger.WithFields(logrus.Fields{"name": name, "services": len(uuids)}).Debug("Starting advertisement")
	return s.native.Advertise(ctx, name, uuids)
}
