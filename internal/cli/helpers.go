package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wellsync/internal/config"
	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/remote"
	"github.com/AnshRaj112/wellsync/internal/slot"
	"github.com/AnshRaj112/wellsync/internal/tracker"
)

// env bundles what a command needs besides the session.
type env struct {
	cfg    *config.ClientConfig
	log    *logrus.Logger
	remote *remote.Client
	out    io.Writer
	errOut io.Writer
}

func newLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg := config.LoadClient()
	if storeLocation != "" {
		cfg.Store = storeLocation
	}
	if cfg.Store == "" {
		path, err := config.DefaultStorePath()
		if err != nil {
			return nil, err
		}
		cfg.Store = path
	}
	if rulesPath != "" {
		cfg.RulesPath = rulesPath
	}
	logger := newLogger(cmd.ErrOrStderr())
	return &env{
		cfg:    cfg,
		log:    logger,
		remote: remote.New(remote.Config{Timeout: cfg.Timeout, Logger: logger}),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}, nil
}

// withSession opens the slot store, builds a session, runs fn, then waits for
// background remote commands before closing.
func withSession(cmd *cobra.Command, fn func(*env, *tracker.Session) error) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	rules := tracker.DefaultRules()
	if e.cfg.RulesPath != "" {
		if rules, err = tracker.LoadRules(e.cfg.RulesPath); err != nil {
			return err
		}
	}

	store, err := slot.Open(e.cfg.Store)
	if err != nil {
		return err
	}

	s := tracker.New(tracker.Options{
		Store:          store,
		Remote:         e.remote,
		Rules:          rules,
		Logger:         e.log,
		CommandTimeout: e.cfg.Timeout,
		OnNotify:       func(n tracker.Notification) { printNotification(e.out, n) },
	})
	defer func() {
		s.Wait()
		reportFailures(e, s)
		if cerr := s.Close(); cerr != nil {
			e.log.WithError(cerr).Warn("failed to close slot store")
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := applyEndpoint(ctx, e, s); err != nil {
		return err
	}
	return fn(e, s)
}

// applyEndpoint stores --endpoint, or WELLSYNC_ENDPOINT when nothing is
// stored yet.
func applyEndpoint(ctx context.Context, e *env, s *tracker.Session) error {
	target := strings.TrimSpace(endpointURL)
	if target == "" && s.Endpoint() == "" {
		target = strings.TrimSpace(e.cfg.Endpoint)
	}
	if target == "" || target == s.Endpoint() {
		return nil
	}
	if err := s.SetEndpoint(ctx, target); err != nil {
		if errors.Is(err, tracker.ErrRemoteUnavailable) {
			fmt.Fprintln(e.errOut, "warning: remote data unavailable, working from local state")
			return nil
		}
		return err
	}
	return nil
}

func reportFailures(e *env, s *tracker.Session) {
	failed := 0
drain:
	for {
		select {
		case c := <-s.Completions():
			if c.Outcome == tracker.TransportError {
				failed++
			}
		default:
			break drain
		}
	}
	if failed > 0 {
		e.log.WithField("failed", failed).Warn("some remote updates did not go through")
	}
}

func requireLogin(s *tracker.Session) (models.Identity, error) {
	id := s.Identity()
	if id.IsZero() {
		return id, fmt.Errorf("%w: run `wellsync login` or `wellsync signup` first", tracker.ErrNotLoggedIn)
	}
	return id, nil
}

// pull runs the awaited sync and turns an unavailable remote into a warning.
func pull(ctx context.Context, e *env, s *tracker.Session) {
	if err := s.Sync(ctx); err != nil {
		fmt.Fprintf(e.errOut, "warning: %v\n", err)
	}
}

func printNotification(w io.Writer, n tracker.Notification) {
	switch n.Kind {
	case tracker.NotifyLevelUp:
		fmt.Fprintf(w, "🎉 Level up! You reached level %d\n", n.Level)
	case tracker.NotifyBadge:
		name := n.Badge.Name
		if name == "" {
			name = n.Badge.ID
		}
		fmt.Fprintf(w, "🏅 Badge unlocked: %s\n", name)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseCollection(arg string) (models.CollectionType, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "calories":
		return models.CalorieHistory, nil
	case "habits":
		return models.HabitHistory, nil
	}
	return models.ParseCollectionType(strings.TrimSpace(arg))
}
