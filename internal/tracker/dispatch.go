package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AnshRaj112/wellsync/internal/metrics"
	"github.com/AnshRaj112/wellsync/internal/models"
)

// DefaultCommandTimeout bounds one remote command.
const DefaultCommandTimeout = 20 * time.Second

const defaultCompletionBuffer = 64

// CommandKind names the remote side effect a command performs.
type CommandKind string

const (
	KindPush     CommandKind = "push"
	KindClear    CommandKind = "clear"
	KindLoginLog CommandKind = "loginLog"
)

// Command is one remote side effect, captured at issue time.
type Command struct {
	Kind     CommandKind
	Type     string
	Payload  any
	Endpoint string
	User     models.Identity
	IssuedAt time.Time
}

// Outcome is how a command ended.
type Outcome int

const (
	OK Outcome = iota
	TransportError
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case TransportError:
		return "transport_error"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

// Completion reports the outcome of a command.
type Completion struct {
	Command Command
	Outcome Outcome
	Err     error
}

// ErrTransport is the error carried by TransportError completions.
var ErrTransport = errors.New("remote did not confirm the command")

// Transport performs remote side effects. *remote.Client satisfies it.
type Transport interface {
	Push(ctx context.Context, endpoint, collectionType string, payload any, identity models.Identity) bool
	Clear(ctx context.Context, endpoint, collectionType string, identity models.Identity) bool
	LogLogin(ctx context.Context, endpoint string, identity models.Identity) bool
}

// Dispatcher runs commands in the background. Callers never wait on a single
// command; completions arrive on a channel and Wait drains in-flight work.
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	log       logrus.FieldLogger

	completions chan Completion
	wg          sync.WaitGroup
}

// NewDispatcher creates a dispatcher over transport.
func NewDispatcher(transport Transport, timeout time.Duration, buffer int, logger logrus.FieldLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if buffer <= 0 {
		buffer = defaultCompletionBuffer
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		transport:   transport,
		timeout:     timeout,
		log:         logger.WithField("component", "dispatcher"),
		completions: make(chan Completion, buffer),
	}
}

// Submit runs cmd on its own goroutine and returns immediately. There is no
// ordering between concurrent commands: the last response wins.
func (d *Dispatcher) Submit(cmd Command) {
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if d.run(ctx, cmd) {
			d.complete(Completion{Command: cmd, Outcome: OK})
			return
		}
		d.complete(Completion{Command: cmd, Outcome: TransportError, Err: ErrTransport})
	}()
}

// Suppress records a command that was decided against without touching the
// transport.
func (d *Dispatcher) Suppress(cmd Command) {
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	d.complete(Completion{Command: cmd, Outcome: Suppressed})
}

// Completions delivers command outcomes. Outcomes are dropped when the
// buffer is full.
func (d *Dispatcher) Completions() <-chan Completion {
	return d.completions
}

// Wait blocks until every submitted command has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, cmd Command) bool {
	if d.transport == nil {
		return false
	}
	switch cmd.Kind {
	case KindPush:
		return d.transport.Push(ctx, cmd.Endpoint, cmd.Type, cmd.Payload, cmd.User)
	case KindClear:
		return d.transport.Clear(ctx, cmd.Endpoint, cmd.Type, cmd.User)
	case KindLoginLog:
		return d.transport.LogLogin(ctx, cmd.Endpoint, cmd.User)
	}
	d.log.WithField("kind", cmd.Kind).Warn("unknown command kind")
	return false
}

func (d *Dispatcher) complete(c Completion) {
	metrics.RecordCommand(string(c.Command.Kind), c.Outcome.String())

	entry := d.log.WithFields(logrus.Fields{
		"kind":     c.Command.Kind,
		"type":     c.Command.Type,
		"username": c.Command.User.Username,
		"outcome":  c.Outcome.String(),
	})
	if c.Outcome == TransportError {
		entry.Warn("remote command failed")
	} else {
		entry.Debug("remote command finished")
	}

	select {
	case d.completions <- c:
	default:
		entry.Debug("completion dropped, buffer full")
	}
}
