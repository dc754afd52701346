package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter keeps one status line updated with a counter.
//
// Usage:
//
//	p := NewProgressPrinter(w, "Scanning", 10*time.Second)
//	p.Start()
//	defer p.Stop()
//
// With a zero duration it counts elapsed seconds, otherwise it counts down.
// A ProgressPrinter is single-use; Stop may be called any number of times.
type ProgressPrinter struct {
	w        io.Writer
	prefix   string
	duration time.Duration
	found    atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewProgressPrinter creates a printer writing to w. A nil w disables it.
func NewProgressPrinter(w io.Writer, prefix string, duration time.Duration) *ProgressPrinter {
	return &ProgressPrinter{
		w:        w,
		prefix:   prefix,
		duration: duration,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetFound updates the number shown next to the counter.
func (p *ProgressPrinter) SetFound(n int) {
	p.found.Store(int64(n))
}

// Start begins updating the line in a background goroutine.
func (p *ProgressPrinter) Start() {
	p.startOnce.Do(func() {
		if p.w == nil {
			close(p.done)
			return
		}
		go p.loop(time.Now())
	})
}

func (p *ProgressPrinter) loop(started time.Time) {
	defer close(p.done)

	ticker := time.NewTicker(progressUpdateInterval)
	defer ticker.Stop()

	p.print(started)
	for {
		select {
		case <-p.stop:
			fmt.Fprint(p.w, clearLineSequence)
			return
		case <-ticker.C:
			p.print(started)
		}
	}
}

func (p *ProgressPrinter) print(started time.Time) {
	elapsed := time.Since(started)
	var seconds int
	if p.duration > 0 {
		if remaining := p.duration - elapsed; remaining > 0 {
			// round to the nearest second
			seconds = int(remaining.Seconds() + 0.5)
		}
	} else {
		seconds = int(elapsed.Seconds())
	}
	fmt.Fprintf(p.w, "\r%s (%ds, %d found)   ", p.prefix, seconds, p.found.Load())
}

// Stop clears the line and waits for the goroutine to exit.
func (p *ProgressPrinter) Stop() {
	p.startOnce.Do(func() { close(p.done) })
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
	})
}
