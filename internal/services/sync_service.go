package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/wellsync/internal/metrics"
	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/sirupsen/logrus"
)

// Wire actions of the sync API.
const (
	ActionSave       = "save"
	ActionClear      = "clear"
	ActionGetAllData = "getAllData"
)

// SyncRequest is the POST body of the sync API.
type SyncRequest struct {
	Action  string          `json:"action"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	User    models.Identity `json:"user"`
}

// RequestError is a client mistake; handlers answer it with 400.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) error {
	return &RequestError{Message: fmt.Sprintf(format, args...)}
}

// IsRequestError reports whether err is a client mistake.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// SyncOptions wires a SyncService. Cache, Avatars and Feed are optional.
type SyncOptions struct {
	Sheets  SheetStore
	Logins  LoginLogStore
	Cache   SnapshotCache
	Avatars AvatarUploader
	Feed    *LoginFeed
	Logger  logrus.FieldLogger
}

// SyncService applies sync API requests to storage.
type SyncService struct {
	sheets  SheetStore
	logins  LoginLogStore
	cache   SnapshotCache
	avatars AvatarUploader
	feed    *LoginFeed
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewSyncService(opts SyncOptions) *SyncService {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SyncService{
		sheets:  opts.Sheets,
		logins:  opts.Logins,
		cache:   opts.Cache,
		avatars: opts.Avatars,
		feed:    opts.Feed,
		log:     log,
		now:     time.Now,
	}
}

// Apply executes one save or clear request.
func (s *SyncService) Apply(ctx context.Context, req SyncRequest) (err error) {
	defer func() {
		metrics.RecordSyncAction(label(req.Action, ActionSave, ActionClear), label(req.Type, knownTypes...), err == nil)
	}()

	req.User.Username = strings.TrimSpace(req.User.Username)
	if req.User.Username == "" {
		return badRequest("user.username is required")
	}
	req.User.Role = models.NormalizeRole(string(req.User.Role))

	switch req.Action {
	case ActionSave:
		err = s.save(ctx, req)
	case ActionClear:
		err = s.clear(ctx, req)
	default:
		return badRequest("unknown action %q", req.Action)
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx, req.User.Username)
	return nil
}

func (s *SyncService) save(ctx context.Context, req SyncRequest) error {
	switch req.Type {
	case models.ProfileType:
		var profile models.Profile
		if err := json.Unmarshal(req.Payload, &profile); err != nil {
			return badRequest("invalid profile payload")
		}
		user := s.offloadAvatar(ctx, req.User)
		return s.sheets.SaveProfile(ctx, user, profile)

	case models.LoginLogType:
		entry := models.LoginLog{
			Username:    req.User.Username,
			DisplayName: req.User.DisplayName,
			Role:        req.User.Role,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.logins.Record(ctx, entry); err != nil {
			return err
		}
		if s.feed != nil {
			if err := s.feed.Publish(ctx, entry); err != nil {
				s.log.WithError(err).WithField("username", entry.Username).Warn("publish login event failed")
			}
		}
		return nil
	}

	t, ok := collectionType(req.Type)
	if !ok {
		return badRequest("unknown type %q", req.Type)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(req.Payload, &entries); err != nil {
		return badRequest("payload for %s must be an array", t)
	}
	if len(entries) > t.Cap() {
		entries = entries[:t.Cap()]
	}
	return s.sheets.SaveCollection(ctx, req.User.Username, t, entries)
}

func (s *SyncService) clear(ctx context.Context, req SyncRequest) error {
	t, ok := collectionType(req.Type)
	if !ok {
		return badRequest("unknown type %q", req.Type)
	}
	return s.sheets.ClearCollection(ctx, req.User.Username, t)
}

// Snapshot renders one identity's pull reply, served from the cache when
// possible.
func (s *SyncService) Snapshot(ctx context.Context, username string) (json.RawMessage, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, badRequest("username is required")
	}

	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, username)
		if err != nil {
			s.log.WithError(err).WithField("username", username).Warn("snapshot cache read failed")
		} else if ok {
			return data, nil
		}
	}

	user, err := s.sheets.LoadUser(ctx, username)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, username, data); err != nil {
			s.log.WithError(err).WithField("username", username).Warn("snapshot cache write failed")
		}
	}
	return data, nil
}

// Everything renders the administrative pull: all profiles, all collection
// rows tagged with their owner, and recent login logs.
func (s *SyncService) Everything(ctx context.Context) (json.RawMessage, error) {
	ds, err := s.sheets.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := s.logins.Recent(ctx, defaultLoginLogLimit)
	if err != nil {
		return nil, err
	}
	ds.LoginLogs = logs
	return json.Marshal(ds)
}

// Feed is the live login feed, nil when not configured.
func (s *SyncService) Feed() *LoginFeed {
	return s.feed
}

// offloadAvatar swaps an embedded avatar image for its hosted URL. On failure
// the embedded payload is stored as sent.
func (s *SyncService) offloadAvatar(ctx context.Context, user models.Identity) models.Identity {
	if s.avatars == nil || !user.HasImageAvatar() {
		return user
	}
	url, err := s.avatars.UploadAvatar(ctx, user.Avatar, user.Username)
	if err != nil {
		s.log.WithError(err).WithField("username", user.Username).Warn("avatar upload failed")
		return user
	}
	user.Avatar = url
	return user
}

func (s *SyncService) invalidate(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, username); err != nil {
		s.log.WithError(err).WithField("username", username).Warn("snapshot cache invalidation failed")
	}
}

var knownTypes = func() []string {
	out := []string{models.ProfileType, models.LoginLogType}
	for _, t := range models.CollectionTypes {
		out = append(out, string(t))
	}
	return out
}()

// label bounds metric label values to known ones.
func label(v string, known ...string) string {
	for _, k := range known {
		if v == k {
			return v
		}
	}
	return "unknown"
}

func collectionType(s string) (models.CollectionType, bool) {
	t := models.CollectionType(s)
	return t, t.Valid()
}
