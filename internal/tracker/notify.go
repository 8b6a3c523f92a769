package tracker

import (
	"sync"
	"time"
)

// DefaultNotificationTTL is how long a notification stays pending before it
// clears itself.
const DefaultNotificationTTL = 4 * time.Second

// NotificationKind distinguishes level ups from badge unlocks.
type NotificationKind string

const (
	NotifyLevelUp NotificationKind = "levelUp"
	NotifyBadge   NotificationKind = "badge"
)

// Notification is a one-shot gamification event.
type Notification struct {
	Kind  NotificationKind
	Level int
	Badge BadgeRule
	At    time.Time
}

// Notifier holds at most one pending notification. A newer notification
// replaces an undismissed one; pending state ends on Dismiss or after the TTL.
type Notifier struct {
	ttl      time.Duration
	onNotify func(Notification)

	mu      sync.Mutex
	current *Notification
	seq     uint64
	timer   *time.Timer
}

// NewNotifier creates a notifier. onNotify, when set, is called for every
// notification outside the notifier's lock.
func NewNotifier(ttl time.Duration, onNotify func(Notification)) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Notifier{ttl: ttl, onNotify: onNotify}
}

// Notify makes note the pending notification.
func (n *Notifier) Notify(note Notification) {
	if note.At.IsZero() {
		note.At = time.Now()
	}

	n.mu.Lock()
	n.seq++
	seq := n.seq
	n.current = &note
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(seq) })
	n.mu.Unlock()

	if n.onNotify != nil {
		n.onNotify(note)
	}
}

// Pending returns the pending notification, if any.
func (n *Notifier) Pending() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// Dismiss returns the notifier to idle.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq == seq {
		n.current = nil
		n.timer = nil
	}
}
