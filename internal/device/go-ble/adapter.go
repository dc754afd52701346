package goble

import (
	"context"

	"github.com/srg/bleplug/internal/device"
)

// adapter is the single adapter go-ble exposes.
type adapter struct {
	stack *Stack
}

func (a *adapter) Name() string { return "go-ble" }

// Capabilities reports what go-ble supports on darwin and linux: both roles over LE.
func (a *adapter) Capabilities() device.Capabilities {
	return device.Capabilities{LowEnergy: true, Central: true, Peripheral: true}
}

func (a *adapter) Radio(ctx context.Context) (device.Radio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.stack.radio, nil
}

func (a *adapter) NewGattServer() (device.NativeGattServer, error) {
	dev, err := a.stack.device()
	if err != nil {
		return nil, err
	}
	return newGattServer(dev, a.stack.logger), nil
}
