package tracker

import (
	"sync"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/slot"
)

// ProfileManager owns the profile slot. User saves never touch the ledger
// fields (xp, level, badges); those are written through the Ledger.
type ProfileManager struct {
	s  *Session
	mu sync.Mutex
}

// Get returns the stored profile, or the default one.
func (p *ProfileManager) Get() models.Profile {
	prof := slot.Get(p.s.store, KeyProfile, models.DefaultProfile())
	if prof.Badges == nil {
		prof.Badges = []string{}
	}
	return prof
}

// Save overwrites the profile wholesale, keeping the ledger fields.
func (p *ProfileManager) Save(next models.Profile) {
	p.update(func(cur models.Profile) models.Profile {
		return withLedger(next, cur)
	})
}

// SaveDetails overwrites every profile field except the pillar scores and
// the ledger fields.
func (p *ProfileManager) SaveDetails(next models.Profile) {
	p.update(func(cur models.Profile) models.Profile {
		next = withLedger(next, cur)
		next.Pillars = cur.Pillars
		return next
	})
}

// SavePillars replaces the pillar scores and nothing else.
func (p *ProfileManager) SavePillars(pillars models.Pillars) {
	clamped := pillars.Clamp()
	p.update(func(cur models.Profile) models.Profile {
		cur.Pillars = &clamped
		return cur
	})
}

// update applies fn under the role gate, persists, and pushes the profile
// when an endpoint is configured.
func (p *ProfileManager) update(fn func(models.Profile) models.Profile) bool {
	user := p.s.Identity()
	if !canWrite(user) {
		p.s.log.WithField("role", user.Role).Debug("profile save skipped for identity")
		return false
	}

	p.mu.Lock()
	next := fn(p.Get())
	p.store(next)
	p.mu.Unlock()

	p.s.pushProfile(next, user)
	return true
}

func (p *ProfileManager) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store(models.DefaultProfile())
}

// hydrate stores a pulled profile. Level is derived from xp, not trusted.
func (p *ProfileManager) hydrate(prof models.Profile) {
	prof.Level = p.s.rules.Level(prof.XP)
	if prof.Badges == nil {
		prof.Badges = []string{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store(prof)
}

func (p *ProfileManager) store(prof models.Profile) {
	if err := slot.Set(p.s.store, KeyProfile, prof); err != nil {
		p.s.log.WithError(err).Warn("failed to persist profile")
	}
}

func withLedger(next, cur models.Profile) models.Profile {
	next.XP = cur.XP
	next.Level = cur.Level
	next.Badges = cur.Badges
	return next
}

// modifyLedger changes the ledger fields in place. Callers do their own role
// check.
func (p *ProfileManager) modifyLedger(fn func(*models.Profile)) models.Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof := p.Get()
	fn(&prof)
	p.store(prof)
	return prof
}
