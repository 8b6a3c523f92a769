package tracker

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AnshRaj112/wellsync/internal/models"
)

// Metric is the aggregate a badge predicate compares against its threshold.
type Metric string

const (
	MetricCount Metric = "count"
	MetricSum   Metric = "sum"
	MetricMax   Metric = "max"
	MetricDays  Metric = "days"
	MetricXP    Metric = "xp"
	MetricLevel Metric = "level"
)

func (m Metric) readsCollection() bool {
	return m != MetricXP && m != MetricLevel
}

func (m Metric) needsField() bool {
	return m == MetricSum || m == MetricMax
}

// BadgeRule unlocks a badge once the metric reaches AtLeast.
type BadgeRule struct {
	ID          string                `yaml:"id" json:"id"`
	Name        string                `yaml:"name" json:"name"`
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
	Collection  models.CollectionType `yaml:"collection,omitempty" json:"collection,omitempty"`
	Metric      Metric                `yaml:"metric" json:"metric"`
	Field       string                `yaml:"field,omitempty" json:"field,omitempty"`
	AtLeast     float64               `yaml:"atLeast" json:"atLeast"`
}

// Rules is the gamification table: level thresholds, XP per collection
// append, and badge predicates.
type Rules struct {
	Thresholds []int          `yaml:"thresholds"`
	XP         map[string]int `yaml:"xp"`
	Badges     []BadgeRule    `yaml:"badges"`
}

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// DefaultRules returns the built-in rule table.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("tracker: built-in rules: %v", err))
	}
	return r
}

// LoadRules reads and validates a YAML rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the table for internal consistency.
func (r *Rules) Validate() error {
	if len(r.Thresholds) == 0 {
		return errors.New("rules: no level thresholds")
	}
	if !sort.SliceIsSorted(r.Thresholds, func(i, j int) bool { return r.Thresholds[i] < r.Thresholds[j] }) {
		return errors.New("rules: thresholds must be ascending")
	}
	for i := 1; i < len(r.Thresholds); i++ {
		if r.Thresholds[i] == r.Thresholds[i-1] {
			return fmt.Errorf("rules: duplicate threshold %d", r.Thresholds[i])
		}
	}
	for name, amount := range r.XP {
		if !models.CollectionType(name).Valid() {
			return fmt.Errorf("rules: xp for unknown collection %q", name)
		}
		if amount < 0 {
			return fmt.Errorf("rules: negative xp for %s", name)
		}
	}

	seen := make(map[string]bool, len(r.Badges))
	for _, b := range r.Badges {
		switch {
		case b.ID == "":
			return errors.New("rules: badge without id")
		case seen[b.ID]:
			return fmt.Errorf("rules: duplicate badge %q", b.ID)
		}
		seen[b.ID] = true

		switch b.Metric {
		case MetricCount, MetricSum, MetricMax, MetricDays, MetricXP, MetricLevel:
		default:
			return fmt.Errorf("rules: badge %q: unknown metric %q", b.ID, b.Metric)
		}
		if b.Metric.readsCollection() && !b.Collection.Valid() {
			return fmt.Errorf("rules: badge %q: unknown collection %q", b.ID, b.Collection)
		}
		if b.Metric.needsField() && b.Field == "" {
			return fmt.Errorf("rules: badge %q: metric %s needs a field", b.ID, b.Metric)
		}
	}
	return nil
}

// XPFor returns the XP awarded for one append to collection t.
func (r *Rules) XPFor(t models.CollectionType) int {
	return r.XP[string(t)]
}

// Level derives the level for xp from the rule thresholds.
func (r *Rules) Level(xp int) int {
	return LevelFor(r.Thresholds, xp)
}

// LevelFor counts the thresholds at or below xp.
func LevelFor(thresholds []int, xp int) int {
	n := 0
	for _, t := range thresholds {
		if t <= xp {
			n++
		}
	}
	return n
}

// Badge looks up a rule by id.
func (r *Rules) Badge(id string) (BadgeRule, bool) {
	for _, b := range r.Badges {
		if b.ID == id {
			return b, true
		}
	}
	return BadgeRule{}, false
}
