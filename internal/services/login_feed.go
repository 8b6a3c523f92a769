package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// LoginChannel is the Redis channel login events are published on.
const LoginChannel = "wellsync:logins"

const subscriberBuffer = 16

// LoginFeed fans login events out to local subscribers (admin websockets).
// With a Redis client, events travel through LoginChannel so every server
// instance sees every login; without one they are delivered in-process.
type LoginFeed struct {
	client *redis.Client
	log    logrus.FieldLogger

	mu   sync.RWMutex
	subs map[chan models.LoginLog]struct{}
	once sync.Once
}

func NewLoginFeed(client *redis.Client, log logrus.FieldLogger) *LoginFeed {
	return &LoginFeed{
		client: client,
		log:    log,
		subs:   make(map[chan models.LoginLog]struct{}),
	}
}

// Subscribe registers a listener. Slow listeners miss events rather than
// blocking the feed. The returned func unsubscribes and closes the channel.
func (f *LoginFeed) Subscribe() (<-chan models.LoginLog, func()) {
	ch := make(chan models.LoginLog, subscriberBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers is the number of registered listeners.
func (f *LoginFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Publish announces a login.
func (f *LoginFeed) Publish(ctx context.Context, entry models.LoginLog) error {
	if f.client == nil {
		f.fanOut(entry)
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, LoginChannel, data).Err()
}

// Start launches the shared Redis listener once. It is a no-op without Redis.
func (f *LoginFeed) Start(ctx context.Context) {
	if f.client == nil {
		return
	}
	f.once.Do(func() {
		go f.run(ctx)
	})
}

func (f *LoginFeed) fanOut(entry models.LoginLog) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs {
		select {
		case ch <- entry:
		default:
			f.log.WithField("username", entry.Username).Debug("login feed subscriber lagging, event dropped")
		}
	}
}

func (f *LoginFeed) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f.listen(ctx, &backoff)
	}
}

func (f *LoginFeed) listen(ctx context.Context, backoff *time.Duration) {
	pubsub := f.client.Subscribe(ctx, LoginChannel)
	defer pubsub.Close()

	f.log.WithField("channel", LoginChannel).Info("login feed subscriber started")

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.WithError(err).Warn("login feed subscriber error")
			select {
			case <-ctx.Done():
			case <-time.After(*backoff):
			}
			*backoff *= 2
			if *backoff > 30*time.Second {
				*backoff = 30 * time.Second
			}
			return
		}
		*backoff = time.Second

		var entry models.LoginLog
		if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
			f.log.WithError(err).Warn("malformed login event")
			continue
		}
		f.fanOut(entry)
	}
}
