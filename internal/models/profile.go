package models

// Pillars are the six self-assessed 1-10 wellness scores.
type Pillars struct {
	Nutrition  int `json:"nutrition" bson:"nutrition"`
	Activity   int `json:"activity" bson:"activity"`
	Sleep      int `json:"sleep" bson:"sleep"`
	Stress     int `json:"stress" bson:"stress"`
	Social     int `json:"social" bson:"social"`
	Substances int `json:"substances" bson:"substances"`
}

// Clamp bounds every score to 1..10; zero means "not assessed" and is kept.
func (p Pillars) Clamp() Pillars {
	clamp := func(v int) int {
		switch {
		case v == 0:
			return 0
		case v < 1:
			return 1
		case v > 10:
			return 10
		}
		return v
	}
	return Pillars{
		Nutrition:  clamp(p.Nutrition),
		Activity:   clamp(p.Activity),
		Sleep:      clamp(p.Sleep),
		Stress:     clamp(p.Stress),
		Social:     clamp(p.Social),
		Substances: clamp(p.Substances),
	}
}

// Profile is the single structured record kept per identity. XP, Level and
// Badges belong to the gamification ledger and are only written by it.
type Profile struct {
	Gender          string   `json:"gender" bson:"gender"`
	Age             int      `json:"age" bson:"age"`
	Weight          float64  `json:"weight" bson:"weight"`
	Height          float64  `json:"height" bson:"height"`
	Waist           float64  `json:"waist" bson:"waist"`
	Hip             float64  `json:"hip" bson:"hip"`
	ActivityLevel   float64  `json:"activityLevel" bson:"activity_level"`
	HealthCondition string   `json:"healthCondition" bson:"health_condition"`
	Pillars         *Pillars `json:"pillars,omitempty" bson:"pillars,omitempty"`

	XP     int      `json:"xp" bson:"xp"`
	Level  int      `json:"level" bson:"level"`
	Badges []string `json:"badges" bson:"badges"`
}

// DefaultProfile is what every login resets to.
func DefaultProfile() Profile {
	return Profile{
		Gender:          "male",
		Age:             30,
		Weight:          70,
		Height:          170,
		Waist:           80,
		Hip:             95,
		ActivityLevel:   1.2,
		HealthCondition: "none",
		Badges:          []string{},
	}
}

// HasBadge reports whether id is already unlocked.
func (p Profile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}
