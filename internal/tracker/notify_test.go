package tracker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierExpires(t *testing.T) {
	n := NewNotifier(20*time.Millisecond, nil)
	n.Notify(Notification{Kind: NotifyLevelUp, Level: 2})

	got, ok := n.Pending()
	require.True(t, ok)
	assert.Equal(t, 2, got.Level)
	assert.False(t, got.At.IsZero())

	assert.Eventually(t, func() bool {
		_, ok := n.Pending()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNotifierNewerOverwrites(t *testing.T) {
	n := NewNotifier(time.Minute, nil)
	n.Notify(Notification{Kind: NotifyLevelUp, Level: 3})
	n.Notify(Notification{Kind: NotifyBadge, Badge: BadgeRule{ID: "hydrated"}})

	got, ok := n.Pending()
	require.True(t, ok)
	assert.Equal(t, NotifyBadge, got.Kind)
	assert.Equal(t, "hydrated", got.Badge.ID)

	n.Dismiss()
	_, ok = n.Pending()
	assert.False(t, ok)
}

func TestNotifierStaleTimerKeepsNewer(t *testing.T) {
	n := NewNotifier(30*time.Millisecond, nil)
	n.Notify(Notification{Kind: NotifyLevelUp, Level: 2})
	time.Sleep(20 * time.Millisecond)
	n.Notify(Notification{Kind: NotifyLevelUp, Level: 3})
	time.Sleep(15 * time.Millisecond)

	got, ok := n.Pending()
	require.True(t, ok, "the first timer must not clear the second notification")
	assert.Equal(t, 3, got.Level)
}

func TestNotifierHook(t *testing.T) {
	var calls atomic.Int32
	n := NewNotifier(0, func(Notification) { calls.Add(1) })
	assert.Equal(t, DefaultNotificationTTL, n.ttl)

	n.Notify(Notification{Kind: NotifyLevelUp, Level: 2})
	n.Notify(Notification{Kind: NotifyLevelUp, Level: 3})
	assert.Equal(t, int32(2), calls.Load())
	n.Dismiss()
}
