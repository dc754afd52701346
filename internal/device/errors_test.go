package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  *NotFoundError
		want string
	}{
		{name: "no ids", err: &NotFoundError{Resource: "adapter"}, want: "adapter not found"},
		{name: "single id", err: &NotFoundError{Resource: "device", IDs: []string{"AA:BB"}}, want: `device "AA:BB" not found`},
		{name: "characteristic in service", err: &NotFoundError{Resource: "characteristic", IDs: []string{"180d", "2a37"}}, want: `characteristic "2a37" not found in service "180d"`},
		{name: "descriptor in characteristic", err: &NotFoundError{Resource: "descriptor", IDs: []string{"2a37", "2902"}}, want: `descriptor "2902" not found in characteristic "2a37"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConnectionErrorIs(t *testing.T) {
	err := fmt.Errorf("read: %w", &ConnectionError{State: NotConnected, Msg: "link lost"})

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NotErrorIs(t, err, ErrAlreadyConnected)
	assert.True(t, IsConnectionState(err, NotConnected))
	assert.False(t, IsConnectionState(errors.New("other"), NotConnected))
	assert.Equal(t, "not_connected: link lost", errors.Unwrap(err).Error())
}

func TestInvalidOperationError(t *testing.T) {
	err := fmt.Errorf("scan: %w", ErrAlreadyScanning)

	assert.ErrorIs(t, err, &InvalidOperationError{State: AlreadyScanning})
	assert.NotErrorIs(t, err, ErrAdapterNotReady)
	assert.True(t, IsInvalidOperation(err))
	assert.False(t, IsInvalidOperation(ErrNoAdapter))
	assert.Equal(t, "invalid operation: adapter_not_ready", (&InvalidOperationError{State: AdapterNotReady}).Error())
}
