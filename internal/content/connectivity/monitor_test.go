package connectivity

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_InitialState(t *testing.T) {
	m := NewMonitor(NewManualSignal(true), nil)
	assert.True(t, m.IsOnline())
	assert.False(t, m.IsOffline())
	assert.False(t, m.WasOffline())

	m = NewMonitor(NewManualSignal(false), nil)
	assert.True(t, m.IsOffline())
	assert.False(t, m.WasOffline())
}

// lateSignal drops offline while the subscription is being registered,
// before the new subscriber can be told.
type lateSignal struct {
	*ManualSignal
}

func (s lateSignal) Subscribe(fn func(bool)) func() {
	s.ManualSignal.Set(false)
	return s.ManualSignal.Subscribe(fn)
}

func TestMonitor_TransitionDuringSubscribe(t *testing.T) {
	m := NewMonitor(lateSignal{NewManualSignal(true)}, nil)
	assert.True(t, m.IsOffline())
}

func TestMonitor_ConcurrentTransitionsDuringConstruction(t *testing.T) {
	for i := 0; i < 50; i++ {
		sig := NewManualSignal(true)
		done := make(chan struct{})
		go func() {
			defer close(done)
			sig.Set(false)
			sig.Set(true)
			sig.Set(false)
		}()
		m := NewMonitor(sig, nil)
		<-done
		assert.True(t, m.IsOffline(), "iteration %d", i)
	}
}

func TestMonitor_WasOfflineIsSticky(t *testing.T) {
	sig := NewManualSignal(true)
	m := NewMonitor(sig, nil)

	sig.Set(false)
	assert.True(t, m.IsOffline())
	assert.False(t, m.WasOffline())

	sig.Set(true)
	assert.True(t, m.IsOnline())
	assert.True(t, m.WasOffline())

	// Another full cycle does not clear it.
	sig.Set(false)
	sig.Set(true)
	assert.True(t, m.WasOffline())

	m.Acknowledge()
	assert.False(t, m.WasOffline())
	assert.True(t, m.IsOnline())
}

func TestMonitor_ListenersSeeTransitionsInOrder(t *testing.T) {
	sig := NewManualSignal(true)
	m := NewMonitor(sig, nil)

	var seen []bool
	m.OnChange(func(s State) {
		// The state is already visible to readers when listeners run.
		assert.Equal(t, s.Online, m.IsOnline())
		seen = append(seen, s.Online)
	})

	sig.Set(false)
	sig.Set(false) // duplicate, ignored
	sig.Set(true)
	sig.Set(false)

	assert.Equal(t, []bool{false, true, false}, seen)
}

func TestMonitor_TransitionTimestamp(t *testing.T) {
	sig := NewManualSignal(true)
	m := NewMonitor(sig, nil)
	now := time.Date(2024, 3, 1, 4, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	sig.Set(false)
	assert.Equal(t, now, m.State().TransitionedAt)
}

func TestMonitor_Close(t *testing.T) {
	sig := NewManualSignal(true)
	m := NewMonitor(sig, nil)
	m.Close()

	sig.Set(false)
	assert.True(t, m.IsOnline(), "closed monitor must not follow the signal")
}

func TestProbe_Check(t *testing.T) {
	var fail atomic.Bool
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		if fail.Load() {
			return nil, errors.New("network is unreachable")
		}
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}

	p := NewProbe(ProbeConfig{Address: "127.0.0.1:1"}, dial, nil)
	m := NewMonitor(p, nil)
	require.True(t, m.IsOnline())

	fail.Store(true)
	assert.False(t, p.Check(context.Background()))
	assert.True(t, m.IsOffline())

	fail.Store(false)
	assert.True(t, p.Check(context.Background()))
	assert.True(t, m.IsOnline())
	assert.True(t, m.WasOffline())
}

func TestProbe_CancelledCheckKeepsState(t *testing.T) {
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p := NewProbe(ProbeConfig{}, dial, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, p.Check(ctx))
	assert.True(t, p.Current())
}

func TestProbe_Run(t *testing.T) {
	var calls atomic.Int32
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		calls.Add(1)
		return nil, errors.New("no route to host")
	}
	p := NewProbe(ProbeConfig{Interval: 10 * time.Millisecond}, dial, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.False(t, p.Current())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
