package goble

import (
	"errors"
	"testing"

	"github.com/srg/bleplug/internal/device"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name   string
		input  error
		target error
	}{
		{name: "darwin powered off", input: errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"), target: device.ErrBluetoothOff},
		{name: "generic powered off", input: errors.New("Bluetooth is turned off"), target: device.ErrBluetoothOff},
		{name: "no hci devices", input: errors.New("can't init hci: no devices available: (hci0: can't down device: no such device)"), target: device.ErrNoAdapter},
		{name: "no LE support", input: errors.New("controller does not support LE"), target: device.ErrNoAdapter},
		{name: "not connected", input: errors.New("device not connected"), target: device.ErrNotConnected},
		{name: "disconnected", input: errors.New("remote Disconnected"), target: device.ErrNotConnected},
		{name: "already connected", input: errors.New("device already connected"), target: device.ErrAlreadyConnected},
		{name: "not initialized", input: errors.New("connection is not initialized"), target: device.ErrNotInitialized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeError(tt.input)
			assert.ErrorIs(t, got, tt.target)
			assert.Contains(t, got.Error(), tt.input.Error(), "normalized error MUST keep the native message")
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, NormalizeError(nil))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		orig := errors.New("att: attribute not found")
		assert.Same(t, orig, NormalizeError(orig))
	})
}

func TestIsBluetoothOff(t *testing.T) {
	assert.True(t, isBluetoothOff(NormalizeError(errors.New("bluetooth is turned off"))))
	assert.False(t, isBluetoothOff(errors.New("other")))
}
