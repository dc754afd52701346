//go:build test

package goble

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/testutils/mocks"
)

func newTestCharacteristic(props ble.Property) (*characteristic, *mocks.MockClient, *ble.Characteristic) {
	c := &ble.Characteristic{UUID: ble.UUID16(0x2a37), Property: props}
	client := &mocks.MockClient{}
	return &characteristic{
		uuid:   "2a37",
		char:   c,
		client: client,
		logger: logrus.NewEntry(logrus.New()),
	}, client, c
}

func TestCharacteristic_SubscribeDeliversNotifications(t *testing.T) {
	ch, client, c := newTestCharacteristic(ble.CharNotify)

	var handler ble.NotificationHandler
	client.On("Subscribe", c, false, mock.Anything).Run(func(args mock.Arguments) {
		handler = args.Get(2).(ble.NotificationHandler)
	}).Return(nil)

	var got []byte
	require.NoError(t, ch.Subscribe(context.Background(), false, func(b []byte) { got = b }))
	require.NotNil(t, handler)

	handler([]byte{0x06, 0x48})
	assert.Equal(t, []byte{0x06, 0x48}, got)
	client.AssertExpectations(t)
}

func TestCharacteristic_SubscribeRejectsUnsupportedMode(t *testing.T) {
	ch, client, _ := newTestCharacteristic(ble.CharNotify)

	err := ch.Subscribe(context.Background(), true, func([]byte) {})
	assert.ErrorIs(t, err, device.ErrUnsupported)
	client.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything)
}

func TestCharacteristic_SubscribeErrorIsNormalized(t *testing.T) {
	ch, client, c := newTestCharacteristic(ble.CharIndicate)
	client.On("Subscribe", c, true, mock.Anything).Return(errors.New("device not connected"))

	err := ch.Subscribe(context.Background(), true, func([]byte) {})
	assert.ErrorIs(t, err, device.ErrNotConnected)
}

func TestCharacteristic_Unsubscribe(t *testing.T) {
	failed := errors.New("att: write failed")
	tests := []struct {
		name        string
		notifyErr   error
		indicateErr error
		wantErr     bool
	}{
		{name: "both succeed"},
		{name: "notify only", indicateErr: failed},
		{name: "indicate only", notifyErr: failed},
		{name: "both fail", notifyErr: failed, indicateErr: failed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, client, c := newTestCharacteristic(ble.CharNotify | ble.CharIndicate)
			client.On("Unsubscribe", c, false).Return(tt.notifyErr)
			client.On("Unsubscribe", c, true).Return(tt.indicateErr)

			err := ch.Unsubscribe(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, failed)
			} else {
				assert.NoError(t, err)
			}
			client.AssertExpectations(t)
		})
	}
}

func TestCharacteristic_CancelledContext(t *testing.T) {
	ch, client, _ := newTestCharacteristic(ble.CharNotify)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, ch.Subscribe(ctx, false, func([]byte) {}), context.Canceled)
	assert.ErrorIs(t, ch.Unsubscribe(ctx), context.Canceled)
	client.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything)
}
