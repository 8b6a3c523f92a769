package tracker

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/AnshRaj112/wellsync/internal/models"
)

// Ledger keeps the gamification state of the active user: cumulative xp, the
// level derived from it, and the grow-only badge set.
type Ledger struct {
	s  *Session
	mu sync.Mutex
}

// Rules returns the rule table in use.
func (l *Ledger) Rules() *Rules {
	return l.s.rules
}

func (l *Ledger) XP() int {
	return l.s.profile.Get().XP
}

// Level is derived from xp on every read.
func (l *Ledger) Level() int {
	return l.s.rules.Level(l.XP())
}

func (l *Ledger) Badges() []string {
	return l.s.profile.Get().Badges
}

// NextThreshold returns the xp needed for the next level, or false at the
// top level.
func (l *Ledger) NextThreshold() (int, bool) {
	xp := l.XP()
	for _, t := range l.s.rules.Thresholds {
		if t > xp {
			return t, true
		}
	}
	return 0, false
}

// GainXP adds amount to the user's xp, announces a level increase, then
// evaluates every badge. Only the user role accrues progress. A non-positive
// amount only evaluates badges.
func (l *Ledger) GainXP(amount int, category models.CollectionType) {
	user := l.s.Identity()
	if user.Role != models.RoleUser {
		l.skip(user, category)
		return
	}

	var notes []Notification
	changed := false

	l.mu.Lock()
	if amount > 0 {
		l.s.profile.modifyLedger(func(p *models.Profile) {
			before := l.s.rules.Level(p.XP)
			p.XP += amount
			p.Level = l.s.rules.Level(p.XP)
			if p.Level > before {
				notes = append(notes, Notification{Kind: NotifyLevelUp, Level: p.Level})
			}
		})
		changed = true
	}
	unlocked := l.evaluate(func(BadgeRule) bool { return true })
	prof := l.s.profile.Get()
	l.mu.Unlock()

	for _, b := range unlocked {
		notes = append(notes, Notification{Kind: NotifyBadge, Badge: b})
	}
	if changed || len(unlocked) > 0 {
		l.s.log.WithFields(logrus.Fields{
			"username": user.Username,
			"category": category,
			"xp":       prof.XP,
			"level":    prof.Level,
		}).Debug("ledger updated")
		l.s.pushProfile(prof, user)
	}
	l.emit(notes)
}

// EvaluateBadges checks the predicates that read collection and unlocks the
// newly satisfied ones. Badges are never revoked.
func (l *Ledger) EvaluateBadges(collection models.CollectionType) {
	user := l.s.Identity()
	if user.Role != models.RoleUser {
		l.skip(user, collection)
		return
	}

	l.mu.Lock()
	unlocked := l.evaluate(func(b BadgeRule) bool {
		return b.Metric.readsCollection() && b.Collection == collection
	})
	prof := l.s.profile.Get()
	l.mu.Unlock()

	if len(unlocked) == 0 {
		return
	}
	l.s.pushProfile(prof, user)

	notes := make([]Notification, 0, len(unlocked))
	for _, b := range unlocked {
		notes = append(notes, Notification{Kind: NotifyBadge, Badge: b})
	}
	l.emit(notes)
}

// evaluate must be called with l.mu held.
func (l *Ledger) evaluate(match func(BadgeRule) bool) []BadgeRule {
	prof := l.s.profile.Get()
	var unlocked []BadgeRule
	for _, rule := range l.s.rules.Badges {
		if !match(rule) || prof.HasBadge(rule.ID) {
			continue
		}
		if l.measure(rule, prof) >= rule.AtLeast {
			unlocked = append(unlocked, rule)
		}
	}
	if len(unlocked) == 0 {
		return nil
	}
	l.s.profile.modifyLedger(func(p *models.Profile) {
		for _, rule := range unlocked {
			if !p.HasBadge(rule.ID) {
				p.Badges = append(p.Badges, rule.ID)
			}
		}
	})
	return unlocked
}

// measure aggregates the stored collection JSON directly so predicates can
// name any entry field, nested ones included ("analysis.calories").
func (l *Ledger) measure(rule BadgeRule, prof models.Profile) float64 {
	switch rule.Metric {
	case MetricXP:
		return float64(prof.XP)
	case MetricLevel:
		return float64(l.s.rules.Level(prof.XP))
	}

	raw, ok, err := l.s.store.Load(string(rule.Collection))
	if err != nil || !ok {
		return 0
	}
	entries := gjson.ParseBytes(raw)
	if !entries.IsArray() {
		return 0
	}

	switch rule.Metric {
	case MetricCount:
		return float64(len(entries.Array()))
	case MetricSum:
		total := 0.0
		for _, v := range entries.Get("#." + rule.Field).Array() {
			total += v.Float()
		}
		return total
	case MetricMax:
		best := 0.0
		for i, v := range entries.Get("#." + rule.Field).Array() {
			if f := v.Float(); i == 0 || f > best {
				best = f
			}
		}
		return best
	case MetricDays:
		days := make(map[string]struct{})
		for _, v := range entries.Get("#.date").Array() {
			if t, ok := models.ParseDate(v.String()); ok {
				days[t.Format("2006-01-02")] = struct{}{}
			}
		}
		return float64(len(days))
	}
	return 0
}

func (l *Ledger) emit(notes []Notification) {
	for _, n := range notes {
		l.s.notifier.Notify(n)
	}
}

func (l *Ledger) skip(user models.Identity, category models.CollectionType) {
	l.s.log.WithFields(logrus.Fields{
		"username": user.Username,
		"role":     user.Role,
		"category": category,
	}).Debug("ledger update skipped for role")
}
