package ble

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/srg/bleplug/internal/stream"
)

// ScanResult is one advertisement observed during a scan.
type ScanResult struct {
	Device        *Device
	RSSI          int
	Advertisement AdvertisementData
}

// ScanStream delivers the results of one scan session.
//
// Results arrive on Results(). When the session ends the channel is closed,
// Done() is closed and Err() tells why: nil for a normal stop, otherwise the
// failure that ended it.
type ScanStream struct {
	adapter *Adapter
	cancel  context.CancelFunc
	results *stream.RingChannel[ScanResult]
	done    chan struct{}
	wg      sync.WaitGroup

	closed atomic.Bool
	mu     sync.Mutex // serializes delivery with termination
	err    error
}

func newScanStream(a *Adapter, cancel context.CancelFunc, capacity int) *ScanStream {
	if capacity <= 0 {
		capacity = stream.DefaultBufferSize
	}
	return &ScanStream{
		adapter: a,
		cancel:  cancel,
		results: stream.NewRingChannel[ScanResult](capacity),
		done:    make(chan struct{}),
	}
}

// Results returns the result channel. It is closed when the scan ends.
func (s *ScanStream) Results() <-chan ScanResult {
	return s.results.C()
}

// Done is closed when the scan ends.
func (s *ScanStream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the scan, or nil.
func (s *ScanStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns how many results were overwritten because the consumer lagged.
func (s *ScanStream) Dropped() int64 {
	return s.results.GetMetrics().Overwritten
}

// Close stops the scan and waits for the watcher to stop. It is idempotent
// and safe to call after the scan has ended.
func (s *ScanStream) Close() {
	s.terminate(nil)
	s.wg.Wait()
}

func (s *ScanStream) active() bool {
	return !s.closed.Load()
}

// deliver hands r to the consumer unless the scan has been stopped.
func (s *ScanStream) deliver(r ScanResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.results.Send(r)
	return true
}

// end is called by the watcher goroutine when the watch returns.
func (s *ScanStream) end(err error) {
	s.terminate(err)
}

func (s *ScanStream) terminate(err error) {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return
	}
	s.closed.Store(true)
	s.err = err
	s.results.Close()
	close(s.done)
	s.mu.Unlock()

	s.cancel()
	s.adapter.scanEnded(s)
}
