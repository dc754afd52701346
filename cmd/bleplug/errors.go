package main

import (
	"errors"
	"fmt"

	"github.com/srg/bleplug/internal/device"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the link dropped while a command was still using it.
	ErrConnectionLost = errors.New("connection lost")
)

// FormatUserError turns library errors into a message with a hint for the user.
func FormatUserError(err error) string {
	var nf *device.NotFoundError
	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off. Run 'bleplug power on' or enable it in the system settings."
	case errors.Is(err, device.ErrNoAdapter):
		return "No Bluetooth adapter found."
	case errors.Is(err, device.ErrAlreadyScanning):
		return "A scan is already running."
	case errors.Is(err, device.ErrAdapterNotReady):
		return "The adapter is not ready yet."
	case errors.Is(err, device.ErrUnsupported):
		return fmt.Sprintf("Not supported on this platform (%v).", err)
	case errors.Is(err, ErrConnectionLost):
		return "The connection to the device was lost."
	case errors.As(err, &nf):
		return fmt.Sprintf("%s. Make sure the device is powered and in range.", capitalize(nf.Error()))
	default:
		return err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
