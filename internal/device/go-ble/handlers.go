package goble

import (
	"sync"

	"github.com/srg/bleplug/internal/device"
)

// handlerSet is a token-keyed registry of native event handlers.
type handlerSet[F any] struct {
	mu       sync.Mutex
	next     device.HandlerToken
	handlers map[device.HandlerToken]F
}

func newHandlerSet[F any]() *handlerSet[F] {
	return &handlerSet[F]{handlers: make(map[device.HandlerToken]F)}
}

func (s *handlerSet[F]) add(h F) device.HandlerToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.handlers[s.next] = h
	return s.next
}

func (s *handlerSet[F]) remove(token device.HandlerToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, token)
}

func (s *handlerSet[F]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = make(map[device.HandlerToken]F)
}

// snapshot returns the handlers so they can be invoked without holding the lock.
func (s *handlerSet[F]) snapshot() []F {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]F, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out
}
