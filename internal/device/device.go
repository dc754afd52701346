package device

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a BLE resource is not found
type NotFoundError struct {
	Resource string   // "adapter", "device", "service", "characteristic"
	IDs      []string // One or more identifiers (e.g., [address] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.IDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.IDs[0])
	}
	parentResource := "service"
	if e.Resource == "descriptor" {
		parentResource = "characteristic"
	}
	return fmt.Sprintf("%s %q not found in %s %q", e.Resource, e.IDs[len(e.IDs)-1], parentResource, e.IDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// OperationState names a precondition that an adapter operation requires.
type OperationState string

const (
	AlreadyScanning OperationState = "already_scanning"
	AdapterNotReady OperationState = "adapter_not_ready"
)

// InvalidOperationError is returned synchronously when an operation is requested
// in a state that does not allow it. No state is changed when it is returned.
type InvalidOperationError struct {
	State OperationState
	Msg   string
}

func (e *InvalidOperationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return "invalid operation: " + string(e.State)
	}
	return fmt.Sprintf("invalid operation: %s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare InvalidOperationError values by State
func (e *InvalidOperationError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*InvalidOperationError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
)

// Predefined sentinel errors for adapter preconditions
var (
	ErrAlreadyScanning = &InvalidOperationError{State: AlreadyScanning, Msg: "there is already an active scan"}
	ErrAdapterNotReady = &InvalidOperationError{State: AdapterNotReady, Msg: "no adapter has been resolved yet"}
)

// Resolution and platform errors
var (
	ErrNoAdapter    = errors.New("no bluetooth adapter found")
	ErrBluetoothOff = errors.New("bluetooth is turned off")
	ErrUnsupported  = errors.New("unsupported")
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// IsInvalidOperation reports whether err is a precondition violation
func IsInvalidOperation(err error) bool {
	var ierr *InvalidOperationError
	return errors.As(err, &ierr)
}

// ContainsIgnoreCase checks substring case-insensitively
func ContainsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
