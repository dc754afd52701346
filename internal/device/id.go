package device

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

// IDFromAddress maps a native radio address to a stable device ID.
// A MAC address becomes a UUID whose last six bytes are the MAC and whose
// other bytes are zero. Platforms that address peers by UUID (CoreBluetooth)
// keep that UUID as the ID.
func IDFromAddress(address string) (uuid.UUID, error) {
	if id, err := uuid.Parse(address); err == nil {
		return id, nil
	}

	mac, err := net.ParseMAC(address)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid device address %q: %w", address, err)
	}
	if len(mac) != 6 {
		return uuid.Nil, fmt.Errorf("invalid device address %q: expected 6 bytes, got %d", address, len(mac))
	}

	var id uuid.UUID
	copy(id[10:], mac)
	return id, nil
}

// AddressFromID reverses IDFromAddress.
func AddressFromID(id uuid.UUID) string {
	for _, b := range id[:10] {
		if b != 0 {
			return id.String()
		}
	}
	return strings.ToUpper(net.HardwareAddr(id[10:]).String())
}

// NormalizeAddress returns the canonical cache key for a radio address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
