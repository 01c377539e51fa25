// Package connectivity tracks online/offline transitions and lets callers
// skip the network when it is known to be unreachable.
package connectivity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/noor/internal/content/metrics"
)

// State is the monitor's view of connectivity.
type State struct {
	Online         bool      `json:"online"`
	WasOffline     bool      `json:"was_offline"`
	TransitionedAt time.Time `json:"transitioned_at"`
}

// Monitor follows a Signal. WasOffline turns true on every OFFLINE -> ONLINE
// transition and stays true until Acknowledge is called.
type Monitor struct {
	deliver sync.Mutex

	mu          sync.RWMutex
	state       State
	listeners   []func(State)
	unsubscribe func()

	now func() time.Time
	log *slog.Logger
}

// NewMonitor creates a monitor whose initial state is signal.Current().
func NewMonitor(signal Signal, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		now: time.Now,
		log: logger.With("component", "connectivity"),
	}

	// Subscribe before reading Current so no transition falls in between.
	// Deliveries wait on the lock until the initial state is set.
	m.deliver.Lock()
	defer m.deliver.Unlock()
	unsubscribe := signal.Subscribe(m.handle)

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.state = State{Online: signal.Current(), TransitionedAt: m.now()}
	m.mu.Unlock()

	setGauge(m.state.Online)
	return m
}

// IsOnline reports whether the device is online.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Online
}

// IsOffline reports whether the device is offline.
func (m *Monitor) IsOffline() bool {
	return !m.IsOnline()
}

// WasOffline reports whether an offline period ended since the last
// Acknowledge.
func (m *Monitor) WasOffline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.WasOffline
}

// State returns a snapshot.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Acknowledge clears WasOffline, e.g. when the user presses retry or
// dismisses the reconnection banner.
func (m *Monitor) Acknowledge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.WasOffline = false
}

// OnChange registers fn for every transition. Listeners run in
// registration order, after the new state is visible to readers.
func (m *Monitor) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Close detaches the monitor from its signal.
func (m *Monitor) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *Monitor) handle(online bool) {
	m.deliver.Lock()
	defer m.deliver.Unlock()

	m.mu.Lock()
	if m.state.Online == online {
		m.mu.Unlock()
		return
	}
	m.state.Online = online
	if online {
		m.state.WasOffline = true
	}
	m.state.TransitionedAt = m.now()
	snapshot := m.state
	listeners := append(([]func(State))(nil), m.listeners...)
	m.mu.Unlock()

	setGauge(online)
	if online {
		m.log.Info("Connectivity restored")
	} else {
		m.log.Warn("Connectivity lost")
	}

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func setGauge(online bool) {
	if online {
		metrics.ConnectivityOnline.Set(1)
	} else {
		metrics.ConnectivityOnline.Set(0)
	}
}
