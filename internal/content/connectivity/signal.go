package connectivity

import (
	"sync"
)

// Signal is a source of connectivity changes, e.g. a network probe.
type Signal interface {
	// Current reports whether the platform believes it is online.
	Current() bool

	// Subscribe registers fn for every change. Changes are delivered in the
	// order they are raised. The returned func removes the subscription.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// ManualSignal is a Signal driven by explicit Set calls.
type ManualSignal struct {
	deliver sync.Mutex

	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
}

// NewManualSignal creates a signal with the given initial state.
func NewManualSignal(online bool) *ManualSignal {
	return &ManualSignal{
		online: online,
		subs:   make(map[int]func(bool)),
	}
}

// Current implements Signal.
func (s *ManualSignal) Current() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Subscribe implements Signal.
func (s *ManualSignal) Subscribe(fn func(online bool)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Set changes the state and notifies subscribers synchronously. Setting the
// current state again is a no-op. Subscribers must not call Set.
func (s *ManualSignal) Set(online bool) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	subs := make([]func(bool), 0, len(s.subs))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}
