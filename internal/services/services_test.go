package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeUploader struct {
	calls []string
	err   error
}

func (f *fakeUploader) UploadAvatar(_ context.Context, _ string, username string) (string, error) {
	f.calls = append(f.calls, username)
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + username + ".png", nil
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func nullLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

var alice = models.Identity{Username: "alice", DisplayName: "Alice", Avatar: "🌿", Role: models.RoleUser}

func save(t *testing.T, svc *SyncService, typ string, payload any, user models.Identity) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, svc.Apply(context.Background(), SyncRequest{Action: ActionSave, Type: typ, Payload: raw, User: user}))
}

func TestSyncServiceSaveAndSnapshot(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Logger: nullLogger()})

	profile := models.DefaultProfile()
	profile.XP = 120
	profile.Badges = []string{"first-step"}
	save(t, svc, models.ProfileType, profile, alice)
	save(t, svc, string(models.WaterHistory), []map[string]any{
		{"id": "w2", "date": "2026-03-02T08:00:00Z", "amount": 500},
		{"id": "w1", "date": "2026-03-01T08:00:00Z", "amount": 250},
	}, alice)

	data, err := svc.Snapshot(context.Background(), "alice")
	require.NoError(t, err)

	root := gjson.ParseBytes(data)
	assert.Equal(t, int64(120), root.Get("profile.xp").Int())
	assert.Equal(t, "first-step", root.Get("profile.badges.0").String())
	assert.Equal(t, []any{"w2", "w1"}, root.Get("waterHistory.#.id").Value())
	assert.True(t, root.Get("sleepHistory").IsArray())
	assert.Len(t, root.Get("sleepHistory").Array(), 0)
}

func TestSyncServiceUnknownUserHasNullProfile(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Logger: nullLogger()})

	data, err := svc.Snapshot(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, gjson.Null, gjson.GetBytes(data, "profile").Type)
	assert.True(t, gjson.GetBytes(data, "bmiHistory").IsArray())
}

func TestSyncServiceClear(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Logger: nullLogger()})
	save(t, svc, string(models.MoodHistory), []map[string]any{{"id": "m1", "mood": 3}}, alice)

	require.NoError(t, svc.Apply(context.Background(), SyncRequest{Action: ActionClear, Type: string(models.MoodHistory), User: alice}))

	user, err := store.LoadUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, user.Collections[models.MoodHistory])
}

func TestSyncServiceTruncatesToCap(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Logger: nullLogger()})

	entries := make([]map[string]any, models.QuizHistory.Cap()+5)
	for i := range entries {
		entries[i] = map[string]any{"id": i}
	}
	save(t, svc, string(models.QuizHistory), entries, alice)

	user, err := store.LoadUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, user.Collections[models.QuizHistory], models.QuizHistory.Cap())
}

func TestSyncServiceRejectsBadRequests(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Logger: nullLogger()})
	ctx := context.Background()

	cases := []SyncRequest{
		{Action: ActionSave, Type: "bmiHistory", Payload: json.RawMessage(`[]`)},
		{Action: "drop", Type: "bmiHistory", User: alice},
		{Action: ActionSave, Type: "diary", Payload: json.RawMessage(`[]`), User: alice},
		{Action: ActionSave, Type: "bmiHistory", Payload: json.RawMessage(`{"id":1}`), User: alice},
		{Action: ActionSave, Type: models.ProfileType, Payload: json.RawMessage(`[1,2]`), User: alice},
		{Action: ActionClear, Type: models.ProfileType, User: alice},
	}
	for _, req := range cases {
		err := svc.Apply(ctx, req)
		require.Error(t, err, "%+v", req)
		assert.True(t, IsRequestError(err), "%+v", req)
	}
}

func TestSyncServiceLoginLogPublishes(t *testing.T) {
	store := NewMemoryStore()
	feed := NewLoginFeed(nil, nullLogger())
	events, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Feed: feed, Logger: nullLogger()})
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	save(t, svc, models.LoginLogType, alice, alice)

	select {
	case got := <-events:
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, fixed, got.CreatedAt)
	case <-time.After(time.Second):
		t.Fatal("login event not delivered")
	}

	logs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RoleUser, logs[0].Role)
}

func TestSyncServiceOffloadsImageAvatars(t *testing.T) {
	store := NewMemoryStore()
	uploader := &fakeUploader{}
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Avatars: uploader, Logger: nullLogger()})

	save(t, svc, models.ProfileType, models.DefaultProfile(), alice)
	assert.Empty(t, uploader.calls, "emoji avatars pass through")

	withImage := alice
	withImage.Avatar = "data:image/png;base64,iVBORw0KGgo="
	save(t, svc, models.ProfileType, models.DefaultProfile(), withImage)
	assert.Equal(t, []string{"alice"}, uploader.calls)

	ds, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Profiles, 1)
	assert.Equal(t, "https://cdn.example.com/alice.png", ds.Profiles[0].User.Avatar)
}

func TestSyncServiceKeepsAvatarWhenUploadFails(t *testing.T) {
	store := NewMemoryStore()
	uploader := &fakeUploader{err: errors.New("quota exceeded")}
	log, hook := logtest.NewNullLogger()
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Avatars: uploader, Logger: log})

	withImage := alice
	withImage.Avatar = "data:image/png;base64,iVBORw0KGgo="
	save(t, svc, models.ProfileType, models.DefaultProfile(), withImage)

	ds, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, withImage.Avatar, ds.Profiles[0].User.Avatar)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestSyncServiceCacheInvalidation(t *testing.T) {
	store := NewMemoryStore()
	cache := NewRedisCache(newRedis(t), time.Minute)
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Cache: cache, Logger: nullLogger()})
	ctx := context.Background()

	first, err := svc.Snapshot(ctx, "alice")
	require.NoError(t, err)
	cached, ok, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(first), string(cached))

	save(t, svc, string(models.SleepHistory), []map[string]any{{"id": "s1", "hours": 7.5}}, alice)
	_, ok, err = cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "save drops the cached reply")

	second, err := svc.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 7.5, gjson.GetBytes(second, "sleepHistory.0.hours").Float())
}

func TestSyncServiceEverything(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(SyncOptions{Sheets: store, Logins: store, Logger: nullLogger()})
	bob := models.Identity{Username: "bob", DisplayName: "Bob", Role: models.RoleUser}

	save(t, svc, models.ProfileType, models.DefaultProfile(), alice)
	save(t, svc, string(models.WaterHistory), []map[string]any{{"id": "a1", "amount": 300}}, alice)
	save(t, svc, string(models.WaterHistory), []map[string]any{{"id": "b1", "amount": 200}}, bob)
	save(t, svc, models.LoginLogType, bob, bob)

	data, err := svc.Everything(context.Background())
	require.NoError(t, err)

	root := gjson.ParseBytes(data)
	assert.Equal(t, "alice", root.Get("profiles.0.username").String())
	assert.Equal(t, int64(30), root.Get("profiles.0.age").Int())
	assert.Equal(t, []any{"alice", "bob"}, root.Get("waterHistory.#.username").Value())
	assert.Equal(t, "bob", root.Get("loginLogs.0.username").String())
	assert.True(t, root.Get("quizHistory").IsArray())
}

func TestRedisCacheTTLClamp(t *testing.T) {
	client := newRedis(t)
	assert.Equal(t, DefaultCacheTTL, NewRedisCache(client, 0).TTL())
	assert.Equal(t, MinCacheTTL, NewRedisCache(client, time.Second).TTL())
	assert.Equal(t, MaxCacheTTL, NewRedisCache(client, 24*time.Hour).TTL())
}

func TestRedisCacheMiss(t *testing.T) {
	cache := NewRedisCache(newRedis(t), time.Minute)
	data, ok, err := cache.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestTagEntry(t *testing.T) {
	tagged, ok := tagEntry(json.RawMessage(`{"id":"x","amount":1}`), "alice")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"x","amount":1,"username":"alice"}`, string(tagged))

	_, ok = tagEntry(json.RawMessage(`[1]`), "alice")
	assert.False(t, ok)
	_, ok = tagEntry(json.RawMessage(`null`), "alice")
	assert.False(t, ok)
}
