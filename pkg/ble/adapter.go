package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleplug/internal/device"
	"github.com/srg/bleplug/internal/groutine"
	"github.com/srg/bleplug/internal/stream"
)

// statusBufferSize bounds how many unread status changes a subscriber keeps.
const statusBufferSize = 8

// Adapter is the local Bluetooth adapter.
//
// The native adapter and its radio are resolved lazily by the first
// operation that needs them and cached afterwards.
type Adapter struct {
	stack  device.NativeStack
	logger *logrus.Logger
	ctx    *AdapterContext

	scanning atomic.Bool

	mu     sync.Mutex
	native device.NativeAdapter
	radio  device.Radio
	scan   *ScanStream

	status      *stream.Replay[AdapterStatus]
	radioEvents stream.Listener[device.Radio]
	emitGen     uint64
	emitStatus  func(AdapterStatus)
}

// NewAdapter creates an adapter over stack.
func NewAdapter(stack device.NativeStack, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	a := &Adapter{
		stack:  stack,
		logger: logger,
	}
	a.ctx = newAdapterContext(stack, logger)
	a.status = stream.NewReplay[AdapterStatus]("adapter-status", a.produceStatus,
		stream.WithDistinct(func(x, y AdapterStatus) bool { return x == y }),
		stream.WithBuffer[AdapterStatus](statusBufferSize))
	return a
}

// Context returns the adapter's device cache.
func (a *Adapter) Context() *AdapterContext {
	return a.ctx
}

// Status returns the current power status. It is Unknown until the radio
// has been resolved.
func (a *Adapter) Status() AdapterStatus {
	a.mu.Lock()
	r := a.radio
	a.mu.Unlock()
	if r == nil {
		return AdapterUnknown
	}
	return device.StatusFromRadio(r.State())
}

// Features returns what the resolved adapter supports; none until resolved.
func (a *Adapter) Features() AdapterFeatures {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.native == nil {
		return device.FeaturesNone
	}
	return a.native.Capabilities().Features()
}

// DeviceName returns the adapter name, or "" until resolved.
func (a *Adapter) DeviceName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.native == nil {
		return ""
	}
	return a.native.Name()
}

// IsScanning reports whether a scan stream is active.
func (a *Adapter) IsScanning() bool {
	return a.scanning.Load()
}

// Resolve resolves the native adapter and radio now instead of on first use.
func (a *Adapter) Resolve(ctx context.Context) error {
	_, err := a.whenRadioReady(ctx)
	return err
}

// Scan starts a scan session. Only one scan can be active: a second call
// fails with ErrAlreadyScanning and leaves the running scan untouched.
//
// The session ends when the returned stream is closed, StopScan is called,
// ctx is done or the configured duration elapses.
func (a *Adapter) Scan(ctx context.Context, cfg *ScanConfig) (*ScanStream, error) {
	if !a.scanning.CompareAndSwap(false, true) {
		return nil, device.ErrAlreadyScanning
	}
	if cfg == nil {
		cfg = DefaultScanConfig()
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s := newScanStream(a, cancel, cfg.BufferSize)

	a.mu.Lock()
	a.scan = s
	a.mu.Unlock()

	groutine.GoWait(scanCtx, "scan-watcher", &s.wg, func(ctx context.Context) {
		err := a.runScan(ctx, cfg, s)
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			err = nil
		}
		s.end(err)
	})

	a.logger.WithFields(logrus.Fields{
		"services":   cfg.ServiceUUIDs,
		"duplicates": cfg.AllowDuplicates,
	}).Debug("Scan started")
	return s, nil
}

// StopScan stops the active scan, if any. When it returns no further result
// is delivered.
func (a *Adapter) StopScan() {
	a.mu.Lock()
	s := a.scan
	a.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

func (a *Adapter) runScan(ctx context.Context, cfg *ScanConfig, s *ScanStream) error {
	if _, err := a.whenRadioReady(ctx); err != nil {
		return err
	}

	a.ctx.Clear()
	w, err := a.ctx.CreateAdvertisementWatcher(cfg)
	if err != nil {
		return fmt.Errorf("failed to create advertisement watcher: %w", err)
	}

	return w.Watch(ctx, func(raw device.RawAdvertisement) {
		if !s.active() {
			a.logger.WithField("address", raw.Address).Debug("Dropping advertisement after scan stop")
			return
		}
		if raw.Advertisement != nil && !cfg.Matches(raw.Advertisement) {
			return
		}

		dev, err := a.ctx.GetOrAdd(ctx, raw.Address)
		if err != nil {
			a.logger.WithError(err).WithField("address", raw.Address).Debug("Failed to resolve advertised device")
			return
		}

		result := ScanResult{Device: dev, RSSI: raw.RSSI}
		if raw.Advertisement != nil {
			result.Advertisement = device.NewAdvertisementData(raw.Advertisement)
			dev.observe(result.Advertisement.LocalName, raw.RSSI)
		}
		s.deliver(result)
	})
}

// scanEnded clears the scanning flag if s is still the active scan.
func (a *Adapter) scanEnded(s *ScanStream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scan == s {
		a.scan = nil
		a.scanning.Store(false)
	}
}

// WhenStatusChanged subscribes to power status changes.
//
// All subscribers share one producer, started by the first subscriber and
// stopped when the last one leaves. A new subscriber first receives the
// latest status; consecutive duplicates are dropped. If the radio cannot be
// resolved every subscriber ends with the error.
func (a *Adapter) WhenStatusChanged(ctx context.Context) *stream.Subscription[AdapterStatus] {
	return a.status.Subscribe(ctx)
}

func (a *Adapter) produceStatus(ctx context.Context, emit func(AdapterStatus)) error {
	a.mu.Lock()
	a.emitGen++
	gen := a.emitGen
	a.emitStatus = emit
	a.mu.Unlock()

	// Ownership is checked and released under a.mu, the same lock the
	// attach below holds, so a stale producer cannot detach a newer one.
	defer func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.emitGen == gen {
			a.emitStatus = nil
			a.radioEvents.Detach()
		}
	}()

	emit(a.Status())

	r, err := a.whenRadioReady(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	attached := a.emitGen == gen && a.radioEvents.Attach(r, a.attachRadio)
	a.mu.Unlock()
	if attached {
		a.logger.WithField("radio", r.Name()).Debug("Listening for radio state changes")
	}
	emit(device.StatusFromRadio(r.State()))

	<-ctx.Done()
	return nil
}

func (a *Adapter) attachRadio(r device.Radio) func() {
	token := r.AddStateChangedHandler(a.onRadioState)
	return func() { r.RemoveStateChangedHandler(token) }
}

func (a *Adapter) onRadioState(state device.RadioState) {
	a.mu.Lock()
	emit := a.emitStatus
	a.mu.Unlock()
	if emit != nil {
		emit(device.StatusFromRadio(state))
	}
}

// whenRadioReady resolves and caches the native adapter and its radio.
func (a *Adapter) whenRadioReady(ctx context.Context) (device.Radio, error) {
	a.mu.Lock()
	if a.radio != nil {
		r := a.radio
		a.mu.Unlock()
		return r, nil
	}
	a.mu.Unlock()

	native, err := a.stack.DefaultAdapter(ctx)
	if err != nil {
		return nil, err
	}
	if native == nil {
		return nil, device.ErrNoAdapter
	}
	r, err := native.Radio(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve radio: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: adapter %s has no radio", device.ErrNoAdapter, native.Name())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.radio == nil {
		a.native = native
		a.radio = r
		a.logger.WithFields(logrus.Fields{
			"adapter": native.Name(),
			"radio":   r.State(),
		}).Debug("Adapter resolved")
	}
	return a.radio, nil
}

// GetKnownDevice returns the device with the given ID.
func (a *Adapter) GetKnownDevice(ctx context.Context, id uuid.UUID) (*Device, error) {
	return a.ctx.GetOrAdd(ctx, device.AddressFromID(id))
}

// GetConnectedDevices returns the devices the platform reports as connected.
func (a *Adapter) GetConnectedDevices(ctx context.Context) ([]*Device, error) {
	return a.findDevices(ctx, device.SelectConnected)
}

// GetPairedDevices returns the devices the platform reports as paired.
func (a *Adapter) GetPairedDevices(ctx context.Context) ([]*Device, error) {
	return a.findDevices(ctx, device.SelectPaired)
}

func (a *Adapter) findDevices(ctx context.Context, selector device.DeviceSelector) ([]*Device, error) {
	addresses, err := a.stack.FindDevices(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s devices: %w", selector, err)
	}

	devices := make([]*Device, 0, len(addresses))
	for _, address := range addresses {
		dev, err := a.ctx.GetOrAdd(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.WithError(err).WithField("address", address).Warn("Skipping unresolvable device")
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// OpenSettings opens the platform Bluetooth settings.
func (a *Adapter) OpenSettings(ctx context.Context) error {
	return a.stack.OpenSettings(ctx)
}

// SetAdapterState powers the radio on or off. It fails with
// ErrAdapterNotReady until the radio has been resolved.
func (a *Adapter) SetAdapterState(ctx context.Context, enable bool) error {
	a.mu.Lock()
	r := a.radio
	a.mu.Unlock()
	if r == nil {
		return device.ErrAdapterNotReady
	}

	state := device.RadioOff
	if enable {
		state = device.RadioOn
	}
	if err := r.SetState(ctx, state); err != nil {
		return fmt.Errorf("failed to set radio %s: %w", state, err)
	}
	return nil
}

// CreateGattServer creates a server hosting local services.
func (a *Adapter) CreateGattServer(ctx context.Context) (*GattServer, error) {
	if _, err := a.whenRadioReady(ctx); err != nil {
		return nil, err
	}
	if !a.Features().Has(device.FeatureGattServer) {
		return nil, fmt.Errorf("%w: adapter %s cannot host a GATT server", device.ErrUnsupported, a.DeviceName())
	}

	a.mu.Lock()
	native := a.native
	a.mu.Unlock()

	srv, err := native.NewGattServer()
	if err != nil {
		return nil, fmt.Errorf("failed to create GATT server: %w", err)
	}
	return newGattServer(srv, a.logger), nil
}
