package models

import "fmt"

// CollectionType names a history collection. It doubles as the slot key and
// as the remote "type" field.
type CollectionType string

const (
	BMIHistory      CollectionType = "bmiHistory"
	TDEEHistory     CollectionType = "tdeeHistory"
	FoodHistory     CollectionType = "foodHistory"
	PlannerHistory  CollectionType = "plannerHistory"
	WaterHistory    CollectionType = "waterHistory"
	CalorieHistory  CollectionType = "calorieHistory"
	ActivityHistory CollectionType = "activityHistory"
	SleepHistory    CollectionType = "sleepHistory"
	MoodHistory     CollectionType = "moodHistory"
	HabitHistory    CollectionType = "habitHistory"
	SocialHistory   CollectionType = "socialHistory"
	QuizHistory     CollectionType = "quizHistory"
)

// ProfileType is the remote type used when the profile itself is pushed.
const ProfileType = "profile"

// LoginLogType is the remote type of the login audit record.
const LoginLogType = "loginLog"

// collectionCaps holds the maximum length of each collection.
var collectionCaps = map[CollectionType]int{
	BMIHistory:      100,
	TDEEHistory:     100,
	FoodHistory:     50,
	PlannerHistory:  10,
	WaterHistory:    100,
	CalorieHistory:  100,
	ActivityHistory: 100,
	SleepHistory:    60,
	MoodHistory:     60,
	HabitHistory:    60,
	SocialHistory:   60,
	QuizHistory:     20,
}

// CollectionTypes lists every collection in a stable order.
var CollectionTypes = []CollectionType{
	BMIHistory,
	TDEEHistory,
	FoodHistory,
	PlannerHistory,
	WaterHistory,
	CalorieHistory,
	ActivityHistory,
	SleepHistory,
	MoodHistory,
	HabitHistory,
	SocialHistory,
	QuizHistory,
}

// Cap returns the maximum length for t, or 0 for unknown types.
func (t CollectionType) Cap() int {
	return collectionCaps[t]
}

// Valid reports whether t is a known collection.
func (t CollectionType) Valid() bool {
	_, ok := collectionCaps[t]
	return ok
}

func (t CollectionType) String() string {
	return string(t)
}

// ParseCollectionType accepts the full type name or its short form ("bmi",
// "water", ...).
func ParseCollectionType(s string) (CollectionType, error) {
	if t := CollectionType(s); t.Valid() {
		return t, nil
	}
	if t := CollectionType(s + "History"); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}
