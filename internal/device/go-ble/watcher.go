package goble

import (
	"context"
	"errors"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
)

// watcher runs go-ble scans and forwards matching advertisements.
type watcher struct {
	dev    ble.Device
	cfg    *device.ScanConfig
	logger *logrus.Logger
}

func (w *watcher) Watch(ctx context.Context, h func(device.RawAdvertisement)) error {
	if w.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Duration)
		defer cancel()
	}

	w.logger.WithFields(logrus.Fields{
		"duplicates": w.cfg.AllowDuplicates,
		"services":   w.cfg.ServiceUUIDs,
		"mode":       w.cfg.Mode,
	}).Debug("Starting BLE scan...")

	err := w.dev.Scan(ctx, w.cfg.AllowDuplicates, func(a ble.Advertisement) {
		adv := NewAdvertisement(a)
		if !w.cfg.Matches(adv) {
			return
		}
		h(device.RawAdvertisement{
			Address:       adv.Addr(),
			RSSI:          adv.RSSI(),
			Advertisement: adv,
		})
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		err = NormalizeError(err)
		w.logger.WithError(err).Error("BLE scan failed")
		return err
	}
	w.logger.Debug("BLE scan stopped")
	return nil
}
