package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("WELLSYNC_STORE", "")
	t.Setenv("WELLSYNC_ENDPOINT", "")
	t.Setenv("WELLSYNC_RULES", "")
	return filepath.Join(t.TempDir(), "wellsync.db")
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "wellsync")
	assert.Contains(t, out, "signup")
}

func TestLocalFlow(t *testing.T) {
	store := isolate(t)

	out, err := run(t, "--store", store, "signup", "--name", "Ada")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed up as Ada (username u_")

	out, err = run(t, "--store", store, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "role: user")

	out, err = run(t, "--store", store, "log", "water", "--amount", "250", "--date", "2024-05-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged 250 ml of water")

	out, err = run(t, "--store", store, "history", "water")
	require.NoError(t, err)
	assert.Contains(t, out, `"amount":250`)
	assert.Contains(t, out, `"date":"2024-05-01"`)

	out, err = run(t, "--store", store, "progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Level 1 (5 xp)")

	out, err = run(t, "--store", store, "clear", "waterHistory")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared waterHistory")

	out, err = run(t, "--store", store, "history", "water")
	require.NoError(t, err)
	assert.Contains(t, out, "No waterHistory entries")

	_, err = run(t, "--store", store, "logout")
	require.NoError(t, err)
	_, err = run(t, "--store", store, "log", "water", "--amount", "100")
	assert.ErrorContains(t, err, "not logged in")
}

func TestProfileCommands(t *testing.T) {
	store := isolate(t)
	_, err := run(t, "--store", store, "login", "u_profile", "--name", "Pat")
	require.NoError(t, err)

	_, err = run(t, "--store", store, "profile", "pillars", "--sleep", "6", "--stress", "3")
	require.NoError(t, err)

	_, err = run(t, "--store", store, "profile", "set", "--age", "41", "--weight", "80")
	require.NoError(t, err)

	out, err := run(t, "--store", store, "profile", "show")
	require.NoError(t, err)

	var prof struct {
		Age     int     `json:"age"`
		Weight  float64 `json:"weight"`
		Height  float64 `json:"height"`
		Pillars struct {
			Sleep  int `json:"sleep"`
			Stress int `json:"stress"`
		} `json:"pillars"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &prof))
	assert.Equal(t, 41, prof.Age)
	assert.Equal(t, 80.0, prof.Weight)
	assert.Equal(t, 170.0, prof.Height)
	assert.Equal(t, 6, prof.Pillars.Sleep)
	assert.Equal(t, 3, prof.Pillars.Stress)

	_, err = run(t, "--store", store, "profile", "pillars", "--sleep", "11")
	assert.ErrorContains(t, err, "between 1 and 10")
}

func TestAdminCannotLog(t *testing.T) {
	store := isolate(t)
	_, err := run(t, "--store", store, "login", "u_boss", "--role", "admin", "--name", "Boss")
	require.NoError(t, err)

	_, err = run(t, "--store", store, "log", "sleep", "--hours", "7")
	assert.ErrorContains(t, err, "cannot log entries")
}

func TestUnknownHistoryType(t *testing.T) {
	store := isolate(t)
	_, err := run(t, "--store", store, "history", "steps")
	assert.ErrorContains(t, err, "unknown collection")
}

type remoteStub struct {
	mu    sync.Mutex
	types []string
}

func (r *remoteStub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodGet {
		_, _ = io.WriteString(w, `{"status":"success","data":{
			"profile": {"age": "40"},
			"waterHistory": [
				{"id": "old", "date": "2024-01-01", "amount": 100},
				{"id": "new", "date": "2024-03-01", "amount": 200}
			]}}`)
		return
	}
	var env struct {
		Type string `json:"type"`
	}
	_ = json.NewDecoder(req.Body).Decode(&env)
	r.mu.Lock()
	r.types = append(r.types, env.Type)
	r.mu.Unlock()
	_, _ = io.WriteString(w, `{"status":"success"}`)
}

func (r *remoteStub) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func TestRemoteFlow(t *testing.T) {
	store := isolate(t)
	stub := &remoteStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	_, err := run(t, "--store", store, "--endpoint", srv.URL, "login", "u_remote", "--name", "Rem")
	require.NoError(t, err)

	out, err := run(t, "--store", store, "history", "water")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":"new"`)

	_, err = run(t, "--store", store, "log", "water", "--amount", "300")
	require.NoError(t, err)

	seen := stub.seen()
	assert.Contains(t, seen, "loginLog")
	assert.Contains(t, seen, "waterHistory")

	out, err = run(t, "--store", store, "endpoint", "show")
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL)
}

func TestFailedRemoteUpdatesReachStderr(t *testing.T) {
	store := isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","message":"sheet locked"}`)
	}))
	defer srv.Close()

	out, err := run(t, "--store", store, "--endpoint", srv.URL, "login", "u_offline", "--name", "Off")
	require.NoError(t, err)
	assert.Contains(t, out, "some remote updates did not go through")
	assert.Contains(t, out, "failed=1")
}
