package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/tracker"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Append an entry to one of your histories",
}

var (
	logDate string

	logValue    float64
	logWeight   float64
	logHeight   float64
	logBMR      float64
	logAmount   float64
	logLabel    string
	logBurned   float64
	logHours    float64
	logQuality  int
	logMood     int
	logNote     string
	logSubst    string
	logServings float64
	logActName  string
	logKind     string
	logMinutes  int
	logScore    int
	logTotal    int
	logFood     string
	logCalories float64
	logProtein  float64
	logCarbs    float64
	logFat      float64
)

// entryDate returns --date as stored in entries, defaulting to now.
func entryDate() (string, error) {
	d := strings.TrimSpace(logDate)
	if d == "" {
		return models.Now(), nil
	}
	t, ok := models.ParseDate(d)
	if !ok {
		return "", fmt.Errorf("invalid --date %q (expected YYYY-MM-DD or RFC 3339)", d)
	}
	if len(d) == len("2006-01-02") {
		return d, nil
	}
	return t.UTC().Format(time.RFC3339), nil
}

// logEntry wraps the shared flow of every log subcommand: require a login,
// build the entry, append it, and confirm.
func logEntry(use, short string, build func(e *env, s *tracker.Session, date string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := entryDate()
			if err != nil {
				return err
			}
			return withSession(cmd, func(e *env, s *tracker.Session) error {
				id, err := requireLogin(s)
				if err != nil {
					return err
				}
				if !tracker.CanMutate(id.Role) {
					return fmt.Errorf("role %s cannot log entries", id.Role)
				}
				msg, err := build(e, s, date)
				if err != nil {
					return err
				}
				fmt.Fprintln(e.out, msg)
				return nil
			})
		},
	}
}

var logBMICmd = logEntry("bmi", "Record a BMI measurement", func(e *env, s *tracker.Session, date string) (string, error) {
	prof := s.Profile().Get()
	value := logValue
	if value <= 0 {
		weight, height := prof.Weight, prof.Height
		if logWeight > 0 {
			weight = logWeight
		}
		if logHeight > 0 {
			height = logHeight
		}
		value = models.BMI(weight, height)
	}
	if value <= 0 {
		return "", errors.New("BMI needs --value or a weight and height")
	}
	entry := models.BMIEntry{Value: value, Category: models.BMICategory(value), Date: date}
	s.BMI().Append(entry)
	return fmt.Sprintf("BMI %.1f (%s)", entry.Value, entry.Category), nil
})

var logTDEECmd = logEntry("tdee", "Record daily energy expenditure (computed from the profile unless given)", func(e *env, s *tracker.Session, date string) (string, error) {
	prof := s.Profile().Get()
	entry := models.TDEEEntry{Value: logValue, BMR: logBMR, Date: date}
	if entry.BMR <= 0 {
		entry.BMR = models.BMR(prof)
	}
	if entry.Value <= 0 {
		entry.Value = models.TDEE(prof)
	}
	s.TDEE().Append(entry)
	return fmt.Sprintf("TDEE %.0f kcal (BMR %.0f)", entry.Value, entry.BMR), nil
})

var logWaterCmd = logEntry("water", "Record water intake in ml", func(e *env, s *tracker.Session, date string) (string, error) {
	if logAmount <= 0 {
		return "", errors.New("--amount must be > 0")
	}
	s.Water().Append(models.WaterEntry{ID: models.NewEntryID(), Date: date, Amount: logAmount})
	return fmt.Sprintf("Logged %.0f ml of water", logAmount), nil
})

var logCaloriesCmd = logEntry("calories", "Record calories eaten outside the food log", func(e *env, s *tracker.Session, date string) (string, error) {
	if logAmount <= 0 {
		return "", errors.New("--amount must be > 0")
	}
	s.Calories().Append(models.CalorieEntry{ID: models.NewEntryID(), Date: date, Label: logLabel, Amount: logAmount})
	return fmt.Sprintf("Logged %.0f kcal", logAmount), nil
})

var logActivityCmd = logEntry("activity", "Record an activity and the calories it burned", func(e *env, s *tracker.Session, date string) (string, error) {
	if logBurned <= 0 {
		return "", errors.New("--burned must be > 0")
	}
	s.Activity().Append(models.ActivityEntry{ID: models.NewEntryID(), Date: date, Label: logActName, Burned: logBurned})
	return fmt.Sprintf("Logged %s (%.0f kcal)", logActName, logBurned), nil
})

var logSleepCmd = logEntry("sleep", "Record a night of sleep", func(e *env, s *tracker.Session, date string) (string, error) {
	if logHours <= 0 || logHours > 24 {
		return "", errors.New("--hours must be within (0, 24]")
	}
	s.Sleep().Append(models.SleepEntry{ID: models.NewEntryID(), Date: date, Hours: logHours, Quality: logQuality})
	return fmt.Sprintf("Logged %.1f h of sleep", logHours), nil
})

var logMoodCmd = logEntry("mood", "Record a mood check-in (1-5)", func(e *env, s *tracker.Session, date string) (string, error) {
	if logMood < 1 || logMood > 5 {
		return "", errors.New("--mood must be between 1 and 5")
	}
	s.Mood().Append(models.MoodEntry{ID: models.NewEntryID(), Date: date, Mood: logMood, Note: logNote})
	return "Mood logged", nil
})

var logHabitCmd = logEntry("habit", "Record a substance habit check-in", func(e *env, s *tracker.Session, date string) (string, error) {
	if strings.TrimSpace(logSubst) == "" {
		return "", errors.New("--substance is required")
	}
	s.Habits().Append(models.HabitEntry{ID: models.NewEntryID(), Date: date, Substance: logSubst, Amount: logServings})
	return fmt.Sprintf("Logged %s", logSubst), nil
})

var logSocialCmd = logEntry("social", "Record social time", func(e *env, s *tracker.Session, date string) (string, error) {
	if logMinutes <= 0 {
		return "", errors.New("--minutes must be > 0")
	}
	s.Social().Append(models.SocialEntry{ID: models.NewEntryID(), Date: date, Kind: logKind, Minutes: logMinutes})
	return fmt.Sprintf("Logged %d minutes of social time", logMinutes), nil
})

var logQuizCmd = logEntry("quiz", "Record a quiz result", func(e *env, s *tracker.Session, date string) (string, error) {
	if logTotal <= 0 || logScore < 0 || logScore > logTotal {
		return "", errors.New("need 0 <= --score <= --total and --total > 0")
	}
	s.Quiz().Append(models.QuizEntry{ID: models.NewEntryID(), Date: date, Score: logScore, Total: logTotal})
	return fmt.Sprintf("Quiz %d/%d", logScore, logTotal), nil
})

var logFoodCmd = logEntry("food", "Record a food with its nutrients", func(e *env, s *tracker.Session, date string) (string, error) {
	if strings.TrimSpace(logFood) == "" {
		return "", errors.New("--name is required")
	}
	s.Food().Append(models.FoodEntry{
		ID:   models.NewEntryID(),
		Date: date,
		Analysis: models.FoodAnalysis{
			Name:     logFood,
			Calories: logCalories,
			Protein:  logProtein,
			Carbs:    logCarbs,
			Fat:      logFat,
		},
	})
	return fmt.Sprintf("Logged %s (%.0f kcal)", logFood, logCalories), nil
})

func init() {
	logCmd.PersistentFlags().StringVar(&logDate, "date", "", "Entry date (YYYY-MM-DD or RFC 3339, default now)")

	logBMICmd.Flags().Float64Var(&logValue, "value", 0, "BMI value (computed when omitted)")
	logBMICmd.Flags().Float64Var(&logWeight, "weight", 0, "Weight in kg (default: profile)")
	logBMICmd.Flags().Float64Var(&logHeight, "height", 0, "Height in cm (default: profile)")

	logTDEECmd.Flags().Float64Var(&logValue, "value", 0, "TDEE in kcal (computed when omitted)")
	logTDEECmd.Flags().Float64Var(&logBMR, "bmr", 0, "BMR in kcal (computed when omitted)")

	logWaterCmd.Flags().Float64Var(&logAmount, "amount", 0, "Volume in ml")

	logCaloriesCmd.Flags().Float64Var(&logAmount, "amount", 0, "Calories in kcal")
	logCaloriesCmd.Flags().StringVar(&logLabel, "label", "", "What it was")

	logActivityCmd.Flags().StringVar(&logActName, "label", "activity", "Activity name")
	logActivityCmd.Flags().Float64Var(&logBurned, "burned", 0, "Calories burned")

	logSleepCmd.Flags().Float64Var(&logHours, "hours", 0, "Hours slept")
	logSleepCmd.Flags().IntVar(&logQuality, "quality", 0, "Sleep quality 1-5")

	logMoodCmd.Flags().IntVar(&logMood, "mood", 0, "Mood 1-5")
	logMoodCmd.Flags().StringVar(&logNote, "note", "", "Optional note")

	logHabitCmd.Flags().StringVar(&logSubst, "substance", "", "Substance (coffee, alcohol, ...)")
	logHabitCmd.Flags().Float64Var(&logServings, "amount", 1, "Servings")

	logSocialCmd.Flags().StringVar(&logKind, "kind", "in-person", "Kind of contact")
	logSocialCmd.Flags().IntVar(&logMinutes, "minutes", 0, "Minutes spent")

	logQuizCmd.Flags().IntVar(&logScore, "score", 0, "Correct answers")
	logQuizCmd.Flags().IntVar(&logTotal, "total", 0, "Total questions")

	logFoodCmd.Flags().StringVar(&logFood, "name", "", "Food name")
	logFoodCmd.Flags().Float64Var(&logCalories, "calories", 0, "Calories in kcal")
	logFoodCmd.Flags().Float64Var(&logProtein, "protein", 0, "Protein in g")
	logFoodCmd.Flags().Float64Var(&logCarbs, "carbs", 0, "Carbs in g")
	logFoodCmd.Flags().Float64Var(&logFat, "fat", 0, "Fat in g")

	logCmd.AddCommand(logBMICmd, logTDEECmd, logWaterCmd, logCaloriesCmd, logActivityCmd,
		logSleepCmd, logMoodCmd, logHabitCmd, logSocialCmd, logQuizCmd, logFoodCmd)
	rootCmd.AddCommand(logCmd)
}
