package models

import (
	"math"
	"strings"
)

// BMI computes body-mass index from weight in kg and height in cm.
func BMI(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return round1(weightKg / (m * m))
}

// BMR is the Mifflin-St Jeor basal metabolic rate for p.
func BMR(p Profile) float64 {
	base := 10*p.Weight + 6.25*p.Height - 5*float64(p.Age)
	if strings.EqualFold(p.Gender, "female") {
		return math.Round(base - 161)
	}
	return math.Round(base + 5)
}

// TDEE scales the BMR by the profile's activity multiplier.
func TDEE(p Profile) float64 {
	level := p.ActivityLevel
	if level <= 0 {
		level = 1.2
	}
	return math.Round(BMR(p) * level)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
