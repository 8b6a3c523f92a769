package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/tracker"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <type>",
	Short: "Print a history, newest first, one JSON entry per line",
	Long:  "Print a history, newest first. <type> is a collection name such as water, waterHistory, bmi or sleep.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			h, _ := s.Collection(typ)
			entries := h.Raw()
			if historyLimit > 0 && len(entries) > historyLimit {
				entries = entries[:historyLimit]
			}
			if len(entries) == 0 {
				fmt.Fprintf(e.out, "No %s entries\n", typ)
				return nil
			}
			for _, entry := range entries {
				fmt.Fprintln(e.out, string(entry))
			}
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <type>",
	Short: "Empty a history locally and on the endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			id, err := requireLogin(s)
			if err != nil {
				return err
			}
			if !tracker.CanMutate(id.Role) {
				return fmt.Errorf("role %s cannot clear histories", id.Role)
			}
			h, _ := s.Collection(typ)
			h.Clear()
			fmt.Fprintf(e.out, "Cleared %s\n", typ)
			return nil
		})
	},
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List history types and their caps",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "TYPE\tCAP")
		for _, t := range models.CollectionTypes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", t, t.Cap())
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show at most this many entries")
	rootCmd.AddCommand(historyCmd, clearCmd, typesCmd)
}
