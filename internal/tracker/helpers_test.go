package tracker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/remote"
	"github.com/AnshRaj112/wellsync/internal/slot"
)

const testEndpoint = "https://remote.test/exec"

type call struct {
	kind     CommandKind
	typ      string
	payload  any
	endpoint string
	user     models.Identity
}

// spyRemote records every transport call instead of doing network I/O.
type spyRemote struct {
	mu       sync.Mutex
	calls    []call
	pulls    int
	fail     bool
	snapshot *remote.Snapshot
	pullGate chan struct{}
}

func (r *spyRemote) record(c call) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return !r.fail
}

func (r *spyRemote) Push(_ context.Context, endpoint, collectionType string, payload any, identity models.Identity) bool {
	return r.record(call{kind: KindPush, typ: collectionType, payload: payload, endpoint: endpoint, user: identity})
}

func (r *spyRemote) Clear(_ context.Context, endpoint, collectionType string, identity models.Identity) bool {
	return r.record(call{kind: KindClear, typ: collectionType, endpoint: endpoint, user: identity})
}

func (r *spyRemote) LogLogin(_ context.Context, endpoint string, identity models.Identity) bool {
	return r.record(call{kind: KindLoginLog, typ: models.LoginLogType, payload: identity, endpoint: endpoint, user: identity})
}

func (r *spyRemote) PullAll(ctx context.Context, _ string, _ models.Identity) *remote.Snapshot {
	r.mu.Lock()
	r.pulls++
	gate := r.pullGate
	snap := r.snapshot
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil
		}
	}
	return snap
}

func (r *spyRemote) callsOf(kind CommandKind, typ string) []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []call
	for _, c := range r.calls {
		if c.kind == kind && (typ == "" || c.typ == typ) {
			out = append(out, c)
		}
	}
	return out
}

func (r *spyRemote) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *spyRemote) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.pulls = 0
}

// countingStore counts writes on top of an in-memory store.
type countingStore struct {
	*slot.Memory
	mu    sync.Mutex
	saves int
}

func (c *countingStore) Save(key string, value []byte) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.Memory.Save(key, value)
}

func (c *countingStore) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// plainRules has the thresholds used throughout the tests and no xp or
// badges, so ledger side effects stay out of the way.
func plainRules() *Rules {
	return &Rules{Thresholds: []int{0, 100, 300, 500, 900}, XP: map[string]int{}}
}

type fixture struct {
	s     *Session
	spy   *spyRemote
	store *countingStore

	mu    sync.Mutex
	notes []Notification
}

func (f *fixture) notifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.notes...)
}

func newFixture(t *testing.T, rules *Rules) *fixture {
	t.Helper()
	if rules == nil {
		rules = plainRules()
	}
	logger, _ := logtest.NewNullLogger()
	f := &fixture{
		spy:   &spyRemote{snapshot: &remote.Snapshot{Collections: map[models.CollectionType][]json.RawMessage{}}},
		store: &countingStore{Memory: slot.NewMemory()},
	}
	f.s = New(Options{
		Store:            f.store,
		Remote:           f.spy,
		Rules:            rules,
		Logger:           logger,
		CommandTimeout:   time.Second,
		CompletionBuffer: 256,
		NotificationTTL:  time.Minute,
		OnNotify: func(n Notification) {
			f.mu.Lock()
			f.notes = append(f.notes, n)
			f.mu.Unlock()
		},
	})
	t.Cleanup(f.s.Wait)
	return f
}

// loginWithEndpoint logs id in with the endpoint configured and clears the
// calls made along the way.
func (f *fixture) loginWithEndpoint(t *testing.T, id models.Identity) {
	t.Helper()
	if err := f.s.SetEndpoint(context.Background(), testEndpoint); err != nil {
		t.Fatalf("set endpoint: %v", err)
	}
	if err := f.s.Login(id); err != nil {
		t.Fatalf("login: %v", err)
	}
	f.s.Wait()
	f.spy.reset()
}

func drain(ch <-chan Completion) []Completion {
	var out []Completion
	for {
		select {
		case c := <-ch:
			out = append(out, c)
		default:
			return out
		}
	}
}

var (
	userA = models.Identity{Username: "u_a", DisplayName: "Ada", Avatar: "🌿", Role: models.RoleUser}
	userB = models.Identity{Username: "u_b", DisplayName: "Bo", Avatar: "🔥", Role: models.RoleUser}
	admin = models.Identity{Username: "u_admin", DisplayName: "Admin", Role: models.RoleAdmin}
	guest = models.Identity{Username: "u_guest", DisplayName: "Guest", Role: models.RoleGuest}
)
