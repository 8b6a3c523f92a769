package tracker

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/wellsync/internal/models"
)

func TestDispatcherOutcomes(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	spy := &spyRemote{}
	d := NewDispatcher(spy, 0, 8, logger)

	d.Submit(Command{Kind: KindPush, Type: "waterHistory", Payload: []int{1}, Endpoint: testEndpoint, User: userA})
	d.Wait()
	c := <-d.Completions()
	assert.Equal(t, OK, c.Outcome)
	assert.NoError(t, c.Err)
	assert.False(t, c.Command.IssuedAt.IsZero())

	spy.fail = true
	d.Submit(Command{Kind: KindLoginLog, Type: models.LoginLogType, Endpoint: testEndpoint, User: userA})
	d.Wait()
	c = <-d.Completions()
	assert.Equal(t, TransportError, c.Outcome)
	assert.ErrorIs(t, c.Err, ErrTransport)

	d.Suppress(Command{Kind: KindPush, Type: "waterHistory", Payload: []int{}})
	c = <-d.Completions()
	assert.Equal(t, Suppressed, c.Outcome)
	assert.Len(t, spy.calls, 2, "suppressed commands never reach the transport")
}

func TestDispatcherWarnsOnFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	d := NewDispatcher(&spyRemote{fail: true}, 0, 8, logger)

	d.Submit(Command{Kind: KindPush, Type: "sleepHistory", Payload: []int{1}, Endpoint: testEndpoint, User: userA})
	d.Wait()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "remote command failed", entry.Message)
}

func TestDispatcherWithoutTransport(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	d := NewDispatcher(nil, 0, 0, logger)

	d.Submit(Command{Kind: KindClear, Type: "moodHistory"})
	d.Wait()
	c := <-d.Completions()
	assert.Equal(t, TransportError, c.Outcome)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	d := NewDispatcher(&spyRemote{}, 0, 1, logger)

	for i := 0; i < 3; i++ {
		d.Submit(Command{Kind: KindClear, Type: "moodHistory", Endpoint: testEndpoint, User: userA})
	}
	d.Wait()
	require.Len(t, drain(d.Completions()), 1)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "transport_error", TransportError.String())
	assert.Equal(t, "suppressed", Suppressed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
