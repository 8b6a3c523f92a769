package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/tracker"
	"github.com/AnshRaj112/wellsync/pkg/utils"
)

var (
	authName   string
	authAvatar string
	authRole   string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new identity and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		id := models.Identity{
			Username:    models.NewUsername(),
			DisplayName: strings.TrimSpace(authName),
			Avatar:      authAvatar,
			Role:        models.NormalizeRole(authRole),
		}
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if err := loginAs(cmd, e, s, id); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Signed up as %s (username %s)\n", id.DisplayName, id.Username)
			return nil
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in as an existing identity",
	Long:  "Log in as an existing identity. Local data is reset; for the user role it is pulled back from the remote endpoint.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := utils.NormalizeUsername(args[0])
		name := strings.TrimSpace(authName)
		if name == "" {
			name = username
		}
		id := models.Identity{
			Username:    username,
			DisplayName: name,
			Avatar:      authAvatar,
			Role:        models.NormalizeRole(authRole),
		}
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			if err := loginAs(cmd, e, s, id); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Logged in as %s (%s)\n", id.DisplayName, id.Role)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out the active identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			s.Logout()
			fmt.Fprintln(e.out, "Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the active identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(e *env, s *tracker.Session) error {
			id := s.Identity()
			if id.IsZero() {
				fmt.Fprintln(e.out, "Not logged in")
				return nil
			}
			avatar := id.Avatar
			if id.HasImageAvatar() {
				avatar = "[image]"
			}
			fmt.Fprintf(e.out, "%s %s\nusername: %s\nrole: %s\n", avatar, id.DisplayName, id.Username, id.Role)
			if endpoint := s.Endpoint(); endpoint != "" {
				fmt.Fprintf(e.out, "endpoint: %s\n", endpoint)
			}
			return nil
		})
	},
}

func loginAs(cmd *cobra.Command, e *env, s *tracker.Session, id models.Identity) error {
	if err := utils.ValidateUsername(id.Username); err != nil {
		return err
	}
	if err := utils.ValidateDisplayName(id.DisplayName); err != nil {
		return err
	}
	if err := s.Login(id); err != nil {
		return err
	}
	pull(cmd.Context(), e, s)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVar(&authName, "name", "", "Display name")
		c.Flags().StringVar(&authAvatar, "avatar", "🙂", "Avatar emoji or data:image URI")
		c.Flags().StringVar(&authRole, "role", "user", "Role: user, guest or admin")
	}
	_ = signupCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}
