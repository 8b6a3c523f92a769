package models

import (
	"time"

	"github.com/google/uuid"
)

// Every history entry carries its timestamp under the JSON key "date".

type BMIEntry struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
}

type TDEEEntry struct {
	Value float64 `json:"value"`
	BMR   float64 `json:"bmr"`
	Date  string  `json:"date"`
}

// FoodAnalysis is the nutrient and impact record attached to a food entry.
type FoodAnalysis struct {
	Name     string   `json:"name"`
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
	Score    int      `json:"healthScore,omitempty"`
	Impact   string   `json:"impact,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type FoodEntry struct {
	ID       string       `json:"id"`
	Date     string       `json:"date"`
	Analysis FoodAnalysis `json:"analysis"`
}

// PlannedMeal is one meal slot of a day plan.
type PlannedMeal struct {
	Slot     string  `json:"slot"`
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
}

type DayPlan struct {
	Day   string        `json:"day"`
	Meals []PlannedMeal `json:"meals"`
}

type PlannerEntry struct {
	ID      string    `json:"id"`
	Date    string    `json:"date"`
	Cuisine string    `json:"cuisine"`
	Diet    string    `json:"diet"`
	Plan    []DayPlan `json:"plan"`
}

type WaterEntry struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type CalorieEntry struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type ActivityEntry struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Burned float64 `json:"burned"`
}

type SleepEntry struct {
	ID      string  `json:"id"`
	Date    string  `json:"date"`
	Hours   float64 `json:"hours"`
	Quality int     `json:"quality"`
}

type MoodEntry struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Mood int    `json:"mood"`
	Note string `json:"note,omitempty"`
}

type HabitEntry struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Substance string  `json:"substance"`
	Amount    float64 `json:"amount"`
}

type SocialEntry struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Kind    string `json:"kind"`
	Minutes int    `json:"minutes"`
}

type QuizEntry struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Score int    `json:"score"`
	Total int    `json:"total"`
}

// NewEntryID returns a fresh id for entries that carry one.
func NewEntryID() string {
	return uuid.NewString()
}

// Now formats the current time the way entries store it.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ParseDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BMICategory derives the category stored alongside a BMI value.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}
