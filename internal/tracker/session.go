// Package tracker is the session-scoped store behind every tracking feature:
// identity and role, the capped history collections, the profile, the
// gamification ledger, and the background commands that mirror changes to
// the remote endpoint.
package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AnshRaj112/wellsync/internal/metrics"
	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/remote"
	"github.com/AnshRaj112/wellsync/internal/slot"
)

// Slot keys outside the per-collection ones.
const (
	KeyIdentity = "identity"
	KeyProfile  = "profile"
	KeyEndpoint = "endpoint"
	KeyTheme    = "theme"
	KeyAIKey    = "aiKey"
)

var (
	ErrRemoteUnavailable = errors.New("remote data unavailable")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrInvalidIdentity   = errors.New("identity needs a username")
)

// View is the active screen the session points consumers at.
type View string

const ViewLanding View = "landing"

// Remote is the transport plus the awaited pull.
type Remote interface {
	Transport
	PullAll(ctx context.Context, endpoint string, identity models.Identity) *remote.Snapshot
}

// Options configures a Session.
type Options struct {
	Store  slot.Store
	Remote Remote
	Rules  *Rules
	Logger logrus.FieldLogger

	CommandTimeout   time.Duration
	CompletionBuffer int
	NotificationTTL  time.Duration
	OnNotify         func(Notification)
}

// CanMutate reports whether role may change collections or the profile.
// Admins only read; guests are allowed through like users.
func CanMutate(role models.Role) bool {
	return role != models.RoleAdmin
}

// canWrite is CanMutate for the current identity. Nothing is written while
// logged out.
func canWrite(id models.Identity) bool {
	return !id.IsZero() && CanMutate(id.Role)
}

// Session is the store object every consumer is handed.
type Session struct {
	store  slot.Store
	remote Remote
	rules  *Rules
	log    logrus.FieldLogger

	dispatcher *Dispatcher
	notifier   *Notifier
	profile    *ProfileManager
	ledger     *Ledger

	collections map[models.CollectionType]Handle

	bmi      *Collection[models.BMIEntry]
	tdee     *Collection[models.TDEEEntry]
	food     *Collection[models.FoodEntry]
	planner  *Collection[models.PlannerEntry]
	water    *Collection[models.WaterEntry]
	calories *Collection[models.CalorieEntry]
	activity *Collection[models.ActivityEntry]
	sleep    *Collection[models.SleepEntry]
	mood     *Collection[models.MoodEntry]
	habits   *Collection[models.HabitEntry]
	social   *Collection[models.SocialEntry]
	quiz     *Collection[models.QuizEntry]

	syncMu  sync.Mutex
	syncing atomic.Int32
	viewMu  sync.RWMutex
	view    View
}

// New builds a session over opts.Store. A nil store means an in-memory one;
// nil rules mean DefaultRules.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	store := opts.Store
	if store == nil {
		store = slot.NewMemory()
	}
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}

	var transport Transport
	if opts.Remote != nil {
		transport = opts.Remote
	}

	s := &Session{
		store:      store,
		remote:     opts.Remote,
		rules:      rules,
		log:        logger.WithField("component", "tracker"),
		dispatcher: NewDispatcher(transport, opts.CommandTimeout, opts.CompletionBuffer, logger),
		notifier:   NewNotifier(opts.NotificationTTL, opts.OnNotify),
		view:       ViewLanding,
	}
	s.profile = &ProfileManager{s: s}
	s.ledger = &Ledger{s: s}

	s.bmi = newCollection[models.BMIEntry](s, models.BMIHistory)
	s.tdee = newCollection[models.TDEEEntry](s, models.TDEEHistory)
	s.food = newCollection[models.FoodEntry](s, models.FoodHistory)
	s.planner = newCollection[models.PlannerEntry](s, models.PlannerHistory)
	s.water = newCollection[models.WaterEntry](s, models.WaterHistory)
	s.calories = newCollection[models.CalorieEntry](s, models.CalorieHistory)
	s.activity = newCollection[models.ActivityEntry](s, models.ActivityHistory)
	s.sleep = newCollection[models.SleepEntry](s, models.SleepHistory)
	s.mood = newCollection[models.MoodEntry](s, models.MoodHistory)
	s.habits = newCollection[models.HabitEntry](s, models.HabitHistory)
	s.social = newCollection[models.SocialEntry](s, models.SocialHistory)
	s.quiz = newCollection[models.QuizEntry](s, models.QuizHistory)

	s.collections = map[models.CollectionType]Handle{
		models.BMIHistory:      s.bmi,
		models.TDEEHistory:     s.tdee,
		models.FoodHistory:     s.food,
		models.PlannerHistory:  s.planner,
		models.WaterHistory:    s.water,
		models.CalorieHistory:  s.calories,
		models.ActivityHistory: s.activity,
		models.SleepHistory:    s.sleep,
		models.MoodHistory:     s.mood,
		models.HabitHistory:    s.habits,
		models.SocialHistory:   s.social,
		models.QuizHistory:     s.quiz,
	}
	return s
}

// Identity returns the active identity; zero when nobody is logged in.
func (s *Session) Identity() models.Identity {
	return slot.Get(s.store, KeyIdentity, models.Identity{})
}

// Login makes id the active identity and resets the profile and every
// collection, whatever was stored before. Prior data only comes back through
// Sync.
func (s *Session) Login(id models.Identity) error {
	id.Username = strings.TrimSpace(id.Username)
	if id.Username == "" {
		return ErrInvalidIdentity
	}
	id.Role = models.NormalizeRole(string(id.Role))

	if err := slot.Set(s.store, KeyIdentity, id); err != nil {
		return err
	}
	s.profile.reset()
	for _, t := range models.CollectionTypes {
		s.collections[t].reset()
	}
	s.setView(ViewLanding)
	s.notifier.Dismiss()

	s.log.WithFields(logrus.Fields{"username": id.Username, "role": id.Role}).Info("logged in")

	endpoint := s.Endpoint()
	if endpoint == "" {
		return nil
	}
	s.dispatcher.Submit(Command{Kind: KindLoginLog, Type: models.LoginLogType, Payload: id, Endpoint: endpoint, User: id})
	if id.Role == models.RoleAdmin {
		s.dispatcher.Submit(Command{
			Kind:     KindPush,
			Type:     models.ProfileType,
			Payload:  models.DefaultProfile(),
			Endpoint: endpoint,
			User:     id,
		})
	}
	return nil
}

// Logout clears the identity only. Profile and collections stay stored until
// the next Login overwrites them.
func (s *Session) Logout() {
	if err := slot.Set[*models.Identity](s.store, KeyIdentity, nil); err != nil {
		s.log.WithError(err).Warn("failed to clear identity")
	}
	s.setView(ViewLanding)
	s.notifier.Dismiss()
}

// Endpoint returns the configured remote endpoint, or "".
func (s *Session) Endpoint() string {
	return slot.Get(s.store, KeyEndpoint, "")
}

// SetEndpoint stores the endpoint and, for the user role, re-runs the full
// pull against it.
func (s *Session) SetEndpoint(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if err := slot.Set(s.store, KeyEndpoint, endpoint); err != nil {
		return err
	}
	if s.Identity().Role != models.RoleUser {
		return nil
	}
	return s.Sync(ctx)
}

// Sync is the awaited full pull. It only runs for the user role with an
// endpoint configured; the session reports unsynced while it is in flight.
// Pulled data is stored without being pushed back.
func (s *Session) Sync(ctx context.Context) error {
	id := s.Identity()
	endpoint := s.Endpoint()
	if id.Role != models.RoleUser || endpoint == "" || s.remote == nil {
		return nil
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.syncing.Add(1)
	defer s.syncing.Add(-1)

	snap := s.remote.PullAll(ctx, endpoint, id)
	if snap == nil {
		metrics.RecordSyncAction("pull", "", false)
		return ErrRemoteUnavailable
	}
	if snap.Profile != nil {
		s.profile.hydrate(*snap.Profile)
	}
	for t, entries := range snap.Collections {
		if h, ok := s.collections[t]; ok {
			h.hydrate(entries)
		}
	}
	metrics.RecordSyncAction("pull", "", true)
	s.log.WithFields(logrus.Fields{
		"username":    id.Username,
		"collections": len(snap.Collections),
	}).Info("pulled remote data")
	return nil
}

// IsSynced is false only while a full pull is in flight.
func (s *Session) IsSynced() bool {
	return s.syncing.Load() == 0
}

func (s *Session) View() View {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view
}

func (s *Session) setView(v View) {
	s.viewMu.Lock()
	s.view = v
	s.viewMu.Unlock()
}

// Setting reads one of the auxiliary string slots (theme, aiKey, endpoint).
func (s *Session) Setting(key string) string {
	return slot.Get(s.store, key, "")
}

// SetSetting writes an auxiliary string slot. The core never reads theme or
// aiKey itself.
func (s *Session) SetSetting(key, value string) error {
	return slot.Set(s.store, key, value)
}

func (s *Session) Profile() *ProfileManager { return s.profile }
func (s *Session) Ledger() *Ledger          { return s.ledger }
func (s *Session) Notifier() *Notifier      { return s.notifier }

func (s *Session) BMI() *Collection[models.BMIEntry]           { return s.bmi }
func (s *Session) TDEE() *Collection[models.TDEEEntry]         { return s.tdee }
func (s *Session) Food() *Collection[models.FoodEntry]         { return s.food }
func (s *Session) Planner() *Collection[models.PlannerEntry]   { return s.planner }
func (s *Session) Water() *Collection[models.WaterEntry]       { return s.water }
func (s *Session) Calories() *Collection[models.CalorieEntry]  { return s.calories }
func (s *Session) Activity() *Collection[models.ActivityEntry] { return s.activity }
func (s *Session) Sleep() *Collection[models.SleepEntry]       { return s.sleep }
func (s *Session) Mood() *Collection[models.MoodEntry]         { return s.mood }
func (s *Session) Habits() *Collection[models.HabitEntry]      { return s.habits }
func (s *Session) Social() *Collection[models.SocialEntry]     { return s.social }
func (s *Session) Quiz() *Collection[models.QuizEntry]         { return s.quiz }

// Collection returns the collection of type t.
func (s *Session) Collection(t models.CollectionType) (Handle, bool) {
	h, ok := s.collections[t]
	return h, ok
}

// Completions delivers the outcome of every background command.
func (s *Session) Completions() <-chan Completion {
	return s.dispatcher.Completions()
}

// Wait blocks until in-flight background commands have finished.
func (s *Session) Wait() {
	s.dispatcher.Wait()
}

// Close waits for background commands and closes the slot store.
func (s *Session) Close() error {
	s.dispatcher.Wait()
	return s.store.Close()
}

// collectionChanged feeds the ledger after a collection mutation. It runs
// with no collection lock held.
func (s *Session) collectionChanged(t models.CollectionType, appended bool) {
	if appended {
		s.ledger.GainXP(s.rules.XPFor(t), t)
		return
	}
	s.ledger.EvaluateBadges(t)
}

func (s *Session) pushProfile(prof models.Profile, user models.Identity) {
	endpoint := s.Endpoint()
	if endpoint == "" {
		return
	}
	s.dispatcher.Submit(Command{
		Kind:     KindPush,
		Type:     models.ProfileType,
		Payload:  prof,
		Endpoint: endpoint,
		User:     user,
	})
}
