package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wellsync/internal/tracker"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show xp, level and badges",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if _, err := requireLogin(s); err != nil {
				return err
			}
			ledger := s.Ledger()
			fmt.Fprintf(e.out, "Level %d (%d xp)\n", ledger.Level(), ledger.XP())
			if next, ok := ledger.NextThreshold(); ok {
				fmt.Fprintf(e.out, "Next level at %d xp\n", next)
			}
			badges := ledger.Badges()
			if len(badges) == 0 {
				fmt.Fprintln(e.out, "No badges yet")
				return nil
			}
			fmt.Fprintln(e.out, "Badges:")
			for _, id := range badges {
				name := id
				if rule, ok := ledger.Rules().Badge(id); ok && rule.Name != "" {
					name = rule.Name
				}
				fmt.Fprintf(e.out, "  🏅 %s\n", name)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
}
