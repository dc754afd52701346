package stream

import "sync"

// Listener keeps at most one handler registration against a replaceable event
// source. Attaching to the source already held is a no-op; attaching to a
// different source detaches from the old one first, so a handler is never
// registered twice and never left behind on a replaced source.
type Listener[S comparable] struct {
	mu       sync.Mutex
	source   S
	detach   func()
	attached bool
}

// Attach registers on source using attach, which must return the matching
// detach function. Returns true if a new registration was made.
func (l *Listener[S]) Attach(source S, attach func(S) func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.attached && l.source == source {
		return false
	}
	l.detachLocked()

	l.source = source
	l.detach = attach(source)
	l.attached = true
	return true
}

// Detach removes the current registration, if any.
func (l *Listener[S]) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.detachLocked()
}

// Source returns the source currently attached to.
func (l *Listener[S]) Source() (S, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.source, l.attached
}

func (l *Listener[S]) detachLocked() {
	if !l.attached {
		return
	}
	if l.detach != nil {
		l.detach()
	}
	var zero S
	l.source = zero
	l.detach = nil
	l.attached = false
}
