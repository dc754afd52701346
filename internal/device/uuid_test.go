package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "16-bit UUID", input: "2902", expected: "2902"},
		{name: "16-bit UUID uppercase", input: "180D", expected: "180d"},
		{name: "16-bit UUID with 0X prefix", input: "0X2902", expected: "2902"},
		{name: "32-bit UUID", input: "0000180D", expected: "0000180d"},
		{name: "SIG base UUID with dashes", input: "0000180d-0000-1000-8000-00805f9b34fb", expected: "180d"},
		{name: "SIG base UUID uppercase", input: "00002902-0000-1000-8000-00805F9B34FB", expected: "2902"},
		{name: "SIG base UUID without dashes", input: "0000290200001000800000805f9b34fb", expected: "2902"},
		{name: "custom UUID keeps full form", input: "6e400001-b5a3-f393-e0a9-e50e24dcca9e", expected: "6e400001b5a3f393e0a9e50e24dcca9e"},
		{name: "SIG suffix with wrong prefix", input: "AA002902-0000-1000-8000-00805f9b34fb", expected: "aa00290200001000800000805f9b34fb"},
		{name: "surrounding whitespace", input: "  2a37 ", expected: "2a37"},
		{name: "empty", input: "", expected: ""},
		{name: "wrong length", input: "12345", expected: ""},
		{name: "not hex", input: "zzzz", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

func TestValidateUUID(t *testing.T) {
	got, err := ValidateUUID("180D", "0x2A37")
	require.NoError(t, err)
	assert.Equal(t, []string{"180d", "2a37"}, got)

	_, err = ValidateUUID()
	assert.Error(t, err, "at least one UUID MUST be required")

	_, err = ValidateUUID("180D", "")
	assert.ErrorContains(t, err, "index 1")

	_, err = ValidateUUID("not-a-uuid")
	assert.ErrorContains(t, err, "invalid UUID format")
}

func TestNormalizeUUIDs(t *testing.T) {
	assert.Equal(t, []string{"180d", ""}, NormalizeUUIDs([]string{"180D", "bogus"}))
	assert.Empty(t, NormalizeUUIDs(nil))
}
