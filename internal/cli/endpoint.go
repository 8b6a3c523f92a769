package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/tracker"
)

var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Manage the remote sync endpoint",
}

var endpointSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Store the endpoint and pull from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			err := s.SetEndpoint(cmd.Context(), args[0])
			switch {
			case errors.Is(err, tracker.ErrRemoteUnavailable):
				fmt.Fprintln(e.errOut, "warning: endpoint stored but remote data is unavailable")
			case err != nil:
				return err
			}
			fmt.Fprintf(e.out, "Endpoint set to %s\n", s.Endpoint())
			return nil
		})
	},
}

var endpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the endpoint; changes stay local",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if err := s.SetEndpoint(cmd.Context(), ""); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "Endpoint cleared")
			return nil
		})
	},
}

var endpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if endpoint := s.Endpoint(); endpoint != "" {
				fmt.Fprintln(e.out, endpoint)
				return nil
			}
			fmt.Fprintln(e.out, "No endpoint configured")
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the active user's data from the endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			id, err := requireLogin(s)
			if err != nil {
				return err
			}
			if s.Endpoint() == "" {
				return errors.New("no endpoint configured: run `wellsync endpoint set <url>`")
			}
			if id.Role != models.RoleUser {
				fmt.Fprintf(e.out, "Nothing to sync for role %s\n", id.Role)
				return nil
			}
			if err := s.Sync(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "Synced")
			return nil
		})
	},
}

var settingKeys = map[string]string{
	"theme": tracker.KeyTheme,
	"aikey": tracker.KeyAIKey,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or write auxiliary settings (theme, aiKey)",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := settingKey(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			fmt.Fprintln(e.out, s.Setting(key))
			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := settingKey(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			return s.SetSetting(key, args[1])
		})
	},
}

func settingKey(name string) (string, error) {
	key, ok := settingKeys[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown setting %q (want theme or aiKey)", name)
	}
	return key, nil
}

func init() {
	endpointCmd.AddCommand(endpointSetCmd, endpointShowCmd, endpointClearCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(endpointCmd, syncCmd, configCmd)
}
