// Package notify is the single-slot transient message surface the UI reads
// to report degraded or failed states.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/noor/internal/content/metrics"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 3 * time.Second

// Severity orders notifications by importance.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// MarshalText lets severities render as names in JSON.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Mode decides what happens to an offer while another notification is shown.
type Mode string

const (
	// ModeReplace drops the current notification in favour of the new one.
	ModeReplace Mode = "replace"
	// ModeQueue shows offers one after another, each for its full duration.
	ModeQueue Mode = "queue"
)

// ParseMode validates a configured mode; empty means ModeReplace.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeQueue:
		return ModeQueue, nil
	default:
		return "", fmt.Errorf("unknown notification mode %q", s)
	}
}

// Notification is one message in the display slot.
type Notification struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	duration time.Duration
}

// Channel owns the display slot. The slot is written only through Offer
// and cleared by expiry or Dismiss.
type Channel struct {
	mu          sync.Mutex
	mode        Mode
	current     *Notification
	queue       []Notification
	timer       *time.Timer
	subscribers []func(*Notification)
	closed      bool

	now func() time.Time
	log *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.log = logger
		}
	}
}

// NewChannel creates a channel in the given mode.
func NewChannel(mode Mode, opts ...Option) *Channel {
	if mode == "" {
		mode = ModeReplace
	}
	c := &Channel{
		mode: mode,
		now:  time.Now,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "notify")
	return c
}

// Offer shows text for duration (DefaultDuration when <= 0). In replace
// mode it takes the slot immediately; in queue mode it waits for the
// notifications offered before it.
func (c *Channel) Offer(text string, severity Severity, duration time.Duration) Notification {
	if duration <= 0 {
		duration = DefaultDuration
	}

	c.mu.Lock()
	now := c.now()
	expired := c.advanceLocked(now)

	n := Notification{
		ID:        uuid.NewString(),
		Text:      text,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
		duration:  duration,
	}

	changed := true
	if c.mode == ModeQueue && c.current != nil {
		c.queue = append(c.queue, n)
		changed = expired
	} else {
		c.current = &n
	}
	c.scheduleLocked(now)
	notifyFn := c.snapshotLocked(changed)
	c.mu.Unlock()

	metrics.NotificationsTotal.WithLabelValues(severity.String()).Inc()
	c.log.Debug("Notification offered", "id", n.ID, "severity", severity.String(), "text", text)
	notifyFn()
	return n
}

// Dismiss clears the slot early. In queue mode the next notification, if
// any, is shown right away.
func (c *Channel) Dismiss() {
	c.mu.Lock()
	now := c.now()
	changed := c.advanceLocked(now) || c.current != nil
	c.current = nil
	c.promoteLocked(now)
	c.scheduleLocked(now)
	notifyFn := c.snapshotLocked(changed)
	c.mu.Unlock()

	notifyFn()
}

// Current returns the notification occupying the slot.
func (c *Channel) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(c.now())
	if c.current == nil {
		return Notification{}, false
	}
	return *c.current, true
}

// Pending returns how many offers wait behind the current one.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(c.now())
	return len(c.queue)
}

// Subscribe registers fn for every slot change; fn receives nil when the
// slot clears.
func (c *Channel) Subscribe(fn func(*Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Close stops the expiry timer.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// advanceLocked expires the current notification and, in queue mode,
// promotes waiting ones. A promoted notification starts when its
// predecessor ended.
func (c *Channel) advanceLocked(now time.Time) bool {
	changed := false
	for c.current != nil && !now.Before(c.current.ExpiresAt) {
		ended := c.current.ExpiresAt
		c.current = nil
		changed = true
		c.promoteLocked(ended)
	}
	return changed
}

func (c *Channel) promoteLocked(start time.Time) {
	if c.current != nil || len(c.queue) == 0 {
		return
	}
	next := c.queue[0]
	c.queue = c.queue[1:]
	next.ExpiresAt = start.Add(next.duration)
	c.current = &next
}

func (c *Channel) scheduleLocked(now time.Time) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.closed || c.current == nil {
		return
	}
	c.timer = time.AfterFunc(c.current.ExpiresAt.Sub(now), c.expire)
}

func (c *Channel) expire() {
	c.mu.Lock()
	now := c.now()
	changed := c.advanceLocked(now)
	c.scheduleLocked(now)
	notifyFn := c.snapshotLocked(changed)
	c.mu.Unlock()

	notifyFn()
}

// snapshotLocked captures what subscribers should see so they can be
// called after the lock is released.
func (c *Channel) snapshotLocked(changed bool) func() {
	if !changed || len(c.subscribers) == 0 {
		return func() {}
	}
	subs := append(([]func(*Notification))(nil), c.subscribers...)
	var cur *Notification
	if c.current != nil {
		n := *c.current
		cur = &n
	}
	return func() {
		for _, fn := range subs {
			fn(cur)
		}
	}
}
