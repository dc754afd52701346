package goble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
)

type service struct {
	uuid  string
	chars []device.NativeCharacteristic
}

func newService(p *Peripheral, client ble.Client, svc *ble.Service) *service {
	s := &service{uuid: device.NormalizeUUID(svc.UUID.String())}
	for _, c := range svc.Characteristics {
		s.chars = append(s.chars, &characteristic{
			uuid:   device.NormalizeUUID(c.UUID.String()),
			char:   c,
			client: client,
			logger: p.logger.WithFields(logrus.Fields{"service_uuid": s.uuid, "char_uuid": c.UUID.String()}),
		})
	}
	return s
}

func (s *service) UUID() string                                   { return s.uuid }
func (s *service) Characteristics() []device.NativeCharacteristic { return s.chars }

type characteristic struct {
	uuid   string
	char   *ble.Characteristic
	client ble.Client
	logger *logrus.Entry
}

func (c *characteristic) UUID() string      { return c.uuid }
func (c *characteristic) CanNotify() bool   { return c.char.Property&ble.CharNotify != 0 }
func (c *characteristic) CanIndicate() bool { return c.char.Property&ble.CharIndicate != 0 }

func (c *characteristic) Subscribe(ctx context.Context, indicate bool, h func([]byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if indicate && !c.CanIndicate() || !indicate && !c.CanNotify() {
		return fmt.Errorf("%w: characteristic %s does not support %s", device.ErrUnsupported, c.uuid, mode(indicate))
	}
	if err := NormalizeError(c.client.Subscribe(c.char, indicate, h)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.uuid, err)
	}
	c.logger.WithField("mode", mode(indicate)).Debug("Subscribed to characteristic")
	return nil
}

// Unsubscribe tries both notify and indicate and fails only if both fail.
func (c *characteristic) Unsubscribe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err1 := NormalizeError(c.client.Unsubscribe(c.char, false))
	err2 := NormalizeError(c.client.Unsubscribe(c.char, true))
	if err1 != nil && err2 != nil {
		c.logger.WithFields(logrus.Fields{
			"notifyErr":   err1,
			"indicateErr": err2,
		}).Error("Failed to unsubscribe from characteristic notifications")
		return fmt.Errorf("%s: notify=%v, indicate=%w", c.uuid, err1, err2)
	}

	c.logger.Debug("Unsubscribed from characteristic notifications")
	return nil
}

func mode(indicate bool) string {
	if indicate {
		return "indicate"
	}
	return "notify"
}
