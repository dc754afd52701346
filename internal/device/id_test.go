package device

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "colon MAC", address: "AA:BB:CC:DD:EE:FF", want: "00000000-0000-0000-0000-aabbccddeeff"},
		{name: "dash MAC", address: "01-02-03-04-05-06", want: "00000000-0000-0000-0000-010203040506"},
		{name: "platform UUID", address: "6E400001-B5A3-F393-E0A9-E50E24DCCA9E", want: "6e400001-b5a3-f393-e0a9-e50e24dcca9e"},
		{name: "EUI-64 is rejected", address: "01:02:03:04:05:06:07:08", wantErr: true},
		{name: "garbage", address: "not an address", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := IDFromAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestAddressFromID_RoundTrip(t *testing.T) {
	id, err := IDFromAddress("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", AddressFromID(id))

	platform := uuid.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	assert.Equal(t, platform.String(), AddressFromID(platform), "non-MAC IDs MUST map to themselves")
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", NormalizeAddress(" AA:BB:CC:DD:EE:FF "))
}
