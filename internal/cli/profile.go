package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/tracker"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if _, err := requireLogin(s); err != nil {
				return err
			}
			return printJSON(e.out, s.Profile().Get())
		})
	},
}

var (
	profGender    string
	profAge       int
	profWeight    float64
	profHeight    float64
	profWaist     float64
	profHip       float64
	profActivity  float64
	profCondition string
)

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Edit profile details; pillar scores are kept",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if err := requireEditor(s); err != nil {
				return err
			}
			p := s.Profile().Get()
			f := cmd.Flags()
			if f.Changed("gender") {
				p.Gender = profGender
			}
			if f.Changed("age") {
				p.Age = profAge
			}
			if f.Changed("weight") {
				p.Weight = profWeight
			}
			if f.Changed("height") {
				p.Height = profHeight
			}
			if f.Changed("waist") {
				p.Waist = profWaist
			}
			if f.Changed("hip") {
				p.Hip = profHip
			}
			if f.Changed("activity") {
				p.ActivityLevel = profActivity
			}
			if f.Changed("condition") {
				p.HealthCondition = profCondition
			}
			if p.Age <= 0 || p.Weight <= 0 || p.Height <= 0 {
				return errors.New("age, weight and height must be > 0")
			}
			s.Profile().SaveDetails(p)
			fmt.Fprintln(e.out, "Profile saved")
			return nil
		})
	},
}

var pillarFlags = []string{"nutrition", "activity", "sleep", "stress", "social", "substances"}

var pillarValues = make(map[string]*int, len(pillarFlags))

var profilePillarsCmd = &cobra.Command{
	Use:   "pillars",
	Short: "Set the six 1-10 pillar self-assessment scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if err := requireEditor(s); err != nil {
				return err
			}
			var pillars models.Pillars
			if cur := s.Profile().Get().Pillars; cur != nil {
				pillars = *cur
			}
			fields := map[string]*int{
				"nutrition":  &pillars.Nutrition,
				"activity":   &pillars.Activity,
				"sleep":      &pillars.Sleep,
				"stress":     &pillars.Stress,
				"social":     &pillars.Social,
				"substances": &pillars.Substances,
			}
			for _, name := range pillarFlags {
				if !cmd.Flags().Changed(name) {
					continue
				}
				v := *pillarValues[name]
				if v < 1 || v > 10 {
					return fmt.Errorf("--%s must be between 1 and 10", name)
				}
				*fields[name] = v
			}
			s.Profile().SavePillars(pillars)
			return printJSON(e.out, s.Profile().Get().Pillars)
		})
	},
}

func requireEditor(s *tracker.Session) error {
	id, err := requireLogin(s)
	if err != nil {
		return err
	}
	if !tracker.CanMutate(id.Role) {
		return fmt.Errorf("role %s has no editable profile", id.Role)
	}
	return nil
}

func init() {
	f := profileSetCmd.Flags()
	f.StringVar(&profGender, "gender", "", "male or female")
	f.IntVar(&profAge, "age", 0, "Age in years")
	f.Float64Var(&profWeight, "weight", 0, "Weight in kg")
	f.Float64Var(&profHeight, "height", 0, "Height in cm")
	f.Float64Var(&profWaist, "waist", 0, "Waist circumference in cm")
	f.Float64Var(&profHip, "hip", 0, "Hip circumference in cm")
	f.Float64Var(&profActivity, "activity", 0, "Activity multiplier (1.2 sedentary .. 1.9 very active)")
	f.StringVar(&profCondition, "condition", "", "Named health condition")

	for _, name := range pillarFlags {
		v := new(int)
		pillarValues[name] = v
		profilePillarsCmd.Flags().IntVar(v, name, 0, "Score 1-10")
	}

	profileCmd.AddCommand(profileShowCmd, profileSetCmd, profilePillarsCmd)
	rootCmd.AddCommand(profileCmd)
}
