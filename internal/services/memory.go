package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/AnshRaj112/wellsync/internal/models"
)

// MemoryStore keeps everything in process memory. It backs STORAGE=memory and
// the handler tests.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]ProfileRecord
	collections map[string]map[models.CollectionType][]json.RawMessage
	logins      []models.LoginLog
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]ProfileRecord),
		collections: make(map[string]map[models.CollectionType][]json.RawMessage),
		now:         time.Now,
	}
}

func (m *MemoryStore) SaveProfile(_ context.Context, user models.Identity, profile models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile.Badges = append([]string{}, profile.Badges...)
	m.profiles[user.Username] = ProfileRecord{User: user, Profile: profile, UpdatedAt: m.now().UTC()}
	return nil
}

func (m *MemoryStore) SaveCollection(_ context.Context, username string, t models.CollectionType, entries []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byType, ok := m.collections[username]
	if !ok {
		byType = make(map[models.CollectionType][]json.RawMessage)
		m.collections[username] = byType
	}
	byType[t] = cloneEntries(entries)
	return nil
}

func (m *MemoryStore) ClearCollection(ctx context.Context, username string, t models.CollectionType) error {
	return m.SaveCollection(ctx, username, t, []json.RawMessage{})
}

func (m *MemoryStore) LoadUser(_ context.Context, username string) (*UserData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data := &UserData{Collections: make(map[models.CollectionType][]json.RawMessage)}
	if rec, ok := m.profiles[username]; ok {
		p := rec.Profile
		data.Profile = &p
	}
	for t, entries := range m.collections[username] {
		data.Collections[t] = cloneEntries(entries)
	}
	return data, nil
}

func (m *MemoryStore) LoadAll(_ context.Context) (*Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds := &Dataset{Collections: make(map[models.CollectionType][]json.RawMessage)}
	for _, rec := range m.profiles {
		ds.Profiles = append(ds.Profiles, rec)
	}
	sort.Slice(ds.Profiles, func(i, j int) bool {
		return ds.Profiles[i].User.Username < ds.Profiles[j].User.Username
	})

	usernames := make([]string, 0, len(m.collections))
	for u := range m.collections {
		usernames = append(usernames, u)
	}
	sort.Strings(usernames)
	for _, u := range usernames {
		for t, entries := range m.collections[u] {
			for _, e := range entries {
				if tagged, ok := tagEntry(e, u); ok {
					ds.Collections[t] = append(ds.Collections[t], tagged)
				}
			}
		}
	}
	return ds, nil
}

func (m *MemoryStore) Record(_ context.Context, entry models.LoginLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, entry)
	return nil
}

// Recent returns up to limit login logs, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]models.LoginLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LoginLog, len(m.logins))
	copy(out, m.logins)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneEntries(entries []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, append(json.RawMessage(nil), e...))
	}
	return out
}
