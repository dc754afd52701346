package goble

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
)

// gattServer hosts local services on the shared go-ble device.
type gattServer struct {
	dev    ble.Device
	logger *logrus.Logger
}

func newGattServer(dev ble.Device, logger *logrus.Logger) *gattServer {
	return &gattServer{dev: dev, logger: logger}
}

func (g *gattServer) AddService(def device.ServiceDefinition) error {
	svc, err := buildService(def, g.logger)
	if err != nil {
		return err
	}
	if err := NormalizeError(g.dev.AddService(svc)); err != nil {
		return fmt.Errorf("failed to add service %s: %w", def.UUID, err)
	}
	g.logger.WithFields(logrus.Fields{
		"service_uuid":    def.UUID,
		"characteristics": len(def.Characteristics),
	}).Debug("Service added")
	return nil
}

func (g *gattServer) RemoveAllServices() error {
	return NormalizeError(g.dev.RemoveAllServices())
}

func (g *gattServer) Advertise(ctx context.Context, name string, serviceUUIDs []string) error {
	uuids := make([]ble.UUID, 0, len(serviceUUIDs))
	for _, s := range serviceUUIDs {
		u, err := ble.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid service UUID %q: %w", s, err)
		}
		uuids = append(uuids, u)
	}

	g.logger.WithFields(logrus.Fields{"name": name, "services": serviceUUIDs}).Info("Advertising...")
	err := g.dev.AdvertiseNameAndServices(ctx, name, uuids...)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return NormalizeError(err)
	}
	return nil
}

func buildService(def device.ServiceDefinition, logger *logrus.Logger) (*ble.Service, error) {
	su, err := ble.Parse(def.UUID)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", def.UUID, err)
	}
	svc := ble.NewService(su)

	for _, cd := range def.Characteristics {
		cu, err := ble.Parse(cd.UUID)
		if err != nil {
			return nil, fmt.Errorf("invalid characteristic UUID %q: %w", cd.UUID, err)
		}
		c := svc.NewCharacteristic(cu)
		log := logger.WithField("char_uuid", cd.UUID)

		if cd.Value != nil {
			value := cd.Value
			c.HandleRead(ble.ReadHandlerFunc(func(_ ble.Request, rsp ble.ResponseWriter) {
				if _, err := rsp.Write(value); err != nil {
					log.WithError(err).Warn("Failed to serve read")
				}
			}))
		}
		if cd.OnWrite != nil {
			onWrite := cd.OnWrite
			c.HandleWrite(ble.WriteHandlerFunc(func(req ble.Request, _ ble.ResponseWriter) {
				onWrite(req.Data())
			}))
		}
		if cd.Notify {
			value := cd.Value
			c.HandleNotify(ble.NotifyHandlerFunc(func(_ ble.Request, n ble.Notifier) {
				log.Debug("Central subscribed")
				if value != nil {
					if _, err := n.Write(value); err != nil {
						log.WithError(err).Warn("Failed to send notification")
					}
				}
				<-n.Context().Done()
				log.Debug("Central unsubscribed")
			}))
		}
	}
	return svc, nil
}
