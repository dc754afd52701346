package device

// AdapterStatus is the portable power state of the local adapter.
type AdapterStatus int

const (
	AdapterUnknown AdapterStatus = iota
	AdapterPoweredOff
	AdapterPoweredOn
)

func (s AdapterStatus) String() string {
	switch s {
	case AdapterPoweredOff:
		return "PoweredOff"
	case AdapterPoweredOn:
		return "PoweredOn"
	default:
		return "Unknown"
	}
}

// ConnectionStatus is the portable connection state of a remote device.
// Connecting and Disconnecting are only ever produced locally; native stacks
// report Connected or Disconnected.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Disconnecting
	Connecting
	Connected
)

func (s ConnectionStatus) String() string {
	switch s {
	case Disconnecting:
		return "Disconnecting"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

// RadioState is the native radio power state.
type RadioState int

const (
	RadioUnknown RadioState = iota
	RadioOn
	RadioOff
	RadioDisabled
)

func (s RadioState) String() string {
	switch s {
	case RadioOn:
		return "on"
	case RadioOff:
		return "off"
	case RadioDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// StatusFromRadio maps a native radio state to the portable adapter status.
func StatusFromRadio(state RadioState) AdapterStatus {
	switch state {
	case RadioOff, RadioDisabled:
		return AdapterPoweredOff
	case RadioUnknown:
		return AdapterUnknown
	default:
		return AdapterPoweredOn
	}
}

// NativeConnectionStatus is what a native device handle reports about its link.
type NativeConnectionStatus int

const (
	NativeDisconnected NativeConnectionStatus = iota
	NativeConnected
)

// AdapterFeatures is a set of capabilities exposed by an adapter.
type AdapterFeatures uint32

const (
	FeatureScan AdapterFeatures = 1 << iota
	FeatureConnect
	FeatureGattServer
	FeatureAdvertise
	FeatureSetState
	FeatureOpenSettings

	FeaturesNone        AdapterFeatures = 0
	FeaturesAllClient   AdapterFeatures = FeatureScan | FeatureConnect
	FeaturesAllServer   AdapterFeatures = FeatureGattServer | FeatureAdvertise
	FeaturesAllControls AdapterFeatures = FeatureSetState | FeatureOpenSettings
)

// Has reports whether all flags in f are set.
func (a AdapterFeatures) Has(f AdapterFeatures) bool {
	return a&f == f
}

// Capabilities describes which roles the native adapter supports.
type Capabilities struct {
	LowEnergy  bool
	Central    bool
	Peripheral bool
}

// Features derives the portable feature set from native capabilities.
func (c Capabilities) Features() AdapterFeatures {
	if !c.LowEnergy {
		return FeaturesNone
	}

	features := FeaturesAllClient
	if !c.Central {
		features &^= FeaturesAllClient
	}
	if c.Peripheral {
		features |= FeaturesAllServer
	}
	if c.Central || c.Peripheral {
		features |= FeaturesAllControls
	}
	return features
}
