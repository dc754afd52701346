package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/srg/bleplug/internal/device"
)

// radio models the controller power state. go-ble has no power API, so
// turning the radio off stops the device and turning it on opens a new one.
type radio struct {
	stack    *Stack
	handlers *handlerSet[func(device.RadioState)]

	mu    sync.Mutex
	state device.RadioState
}

func newRadio(stack *Stack) *radio {
	return &radio{
		stack:    stack,
		handlers: newHandlerSet[func(device.RadioState)](),
		state:    device.RadioUnknown,
	}
}

func (r *radio) Name() string { return "go-ble" }

func (r *radio) State() device.RadioState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *radio) SetState(ctx context.Context, state device.RadioState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch state {
	case device.RadioOn:
		if _, err := r.stack.start(); err != nil {
			if isBluetoothOff(err) {
				r.set(device.RadioOff)
			}
			return err
		}
		r.set(device.RadioOn)
	case device.RadioOff:
		err := r.stack.stop()
		r.set(device.RadioOff)
		if err != nil {
			return fmt.Errorf("failed to stop BLE device: %w", err)
		}
	default:
		return fmt.Errorf("%w: radio state %s cannot be requested", device.ErrUnsupported, state)
	}
	return nil
}

func (r *radio) AddStateChangedHandler(h func(device.RadioState)) device.HandlerToken {
	return r.handlers.add(h)
}

func (r *radio) RemoveStateChangedHandler(token device.HandlerToken) {
	r.handlers.remove(token)
}

// set records state and notifies handlers when it changed.
func (r *radio) set(state device.RadioState) {
	r.mu.Lock()
	changed := r.state != state
	r.state = state
	r.mu.Unlock()

	if !changed {
		return
	}
	for _, h := range r.handlers.snapshot() {
		h(state)
	}
}
