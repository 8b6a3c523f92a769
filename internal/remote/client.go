// Package remote is the stateless transport to the spreadsheet-style sync
// endpoint. Nothing here returns an error: failures are logged, counted and
// reported as nil or false.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AnshRaj112/wellsync/internal/metrics"
	"github.com/AnshRaj112/wellsync/internal/models"
)

const (
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 8 << 20
)

const (
	opPull     = "pull"
	opPullAll  = "pull_everything"
	opPush     = "push"
	opClear    = "clear"
	opLoginLog = "login_log"

	outcomeSuccess   = "success"
	outcomeRejected  = "rejected"
	outcomeTransport = "transport_error"
	outcomeDecode    = "decode_error"
)

var errRejected = errors.New("remote reported failure")

// Config configures a Client.
type Config struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client talks to one or more remote endpoints. The endpoint is passed per
// call because it is user configuration that can change at any time.
type Client struct {
	httpClient *http.Client
	log        logrus.FieldLogger
}

// New creates a Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{httpClient: hc, log: logger.WithField("component", "remote")}
}

// PullAll fetches the profile and every collection stored for identity.
// It returns nil on any failure; nil means "nothing known", not "no data".
func (c *Client) PullAll(ctx context.Context, endpoint string, identity models.Identity) *Snapshot {
	start := time.Now()
	target, err := withQuery(endpoint, url.Values{"username": {identity.Username}})
	if err != nil {
		c.fail(opPull, outcomeTransport, start, err, logrus.Fields{"username": identity.Username})
		return nil
	}
	resp, outcome, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.fail(opPull, outcome, start, err, logrus.Fields{"username": identity.Username})
		return nil
	}
	snap := parseSnapshot(resp.Data)
	if snap == nil {
		c.fail(opPull, outcomeDecode, start, errors.New("data is not an object"), logrus.Fields{"username": identity.Username})
		return nil
	}
	metrics.RecordRemoteRequest(opPull, outcomeSuccess, time.Since(start))
	return snap
}

// PullEverything is the administrative pull of every identity's data and the
// login logs, authorized by a shared key instead of an identity.
func (c *Client) PullEverything(ctx context.Context, endpoint, adminKey string) *AdminSnapshot {
	start := time.Now()
	target, err := withQuery(endpoint, url.Values{
		"action":   {ActionGetAllData},
		"adminKey": {adminKey},
	})
	if err != nil {
		c.fail(opPullAll, outcomeTransport, start, err, nil)
		return nil
	}
	resp, outcome, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.fail(opPullAll, outcome, start, err, nil)
		return nil
	}
	metrics.RecordRemoteRequest(opPullAll, outcomeSuccess, time.Since(start))
	return parseAdminSnapshot(resp.Data)
}

// Push saves the full collection snapshot for identity. Never retried.
func (c *Client) Push(ctx context.Context, endpoint, collectionType string, payload any, identity models.Identity) bool {
	return c.post(ctx, opPush, endpoint, Envelope{
		Action:  ActionSave,
		Type:    collectionType,
		Payload: payload,
		User:    identity,
	})
}

// Clear asks the remote to empty one collection for identity.
func (c *Client) Clear(ctx context.Context, endpoint, collectionType string, identity models.Identity) bool {
	return c.post(ctx, opClear, endpoint, Envelope{
		Action: ActionClear,
		Type:   collectionType,
		User:   identity,
	})
}

// LogLogin writes the login audit record.
func (c *Client) LogLogin(ctx context.Context, endpoint string, identity models.Identity) bool {
	return c.post(ctx, opLoginLog, endpoint, Envelope{
		Action:  ActionSave,
		Type:    models.LoginLogType,
		Payload: identity,
		User:    identity,
	})
}

func (c *Client) post(ctx context.Context, op, endpoint string, env Envelope) bool {
	start := time.Now()
	fields := logrus.Fields{"type": env.Type, "username": env.User.Username}
	if endpoint == "" {
		c.fail(op, outcomeTransport, start, errors.New("no endpoint configured"), fields)
		return false
	}
	if _, outcome, err := c.do(ctx, http.MethodPost, endpoint, env); err != nil {
		c.fail(op, outcome, start, err, fields)
		return false
	}
	metrics.RecordRemoteRequest(op, outcomeSuccess, time.Since(start))
	c.log.WithFields(fields).WithField("op", op).Debug("remote call succeeded")
	return true
}

// do performs one request and decodes the reply envelope. The returned
// outcome label is only meaningful when err is non-nil.
func (c *Client) do(ctx context.Context, method, target string, body any) (*Response, string, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, outcomeTransport, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, outcomeTransport, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, outcomeTransport, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, outcomeTransport, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode >= 400 {
		return nil, outcomeTransport, fmt.Errorf("http %d: %s", httpResp.StatusCode, truncate(raw, 200))
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, outcomeDecode, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != StatusSuccess {
		if resp.Message != "" {
			return &resp, outcomeRejected, fmt.Errorf("%w: %s", errRejected, resp.Message)
		}
		return &resp, outcomeRejected, errRejected
	}
	return &resp, outcomeSuccess, nil
}

func (c *Client) fail(op, outcome string, start time.Time, err error, fields logrus.Fields) {
	metrics.RecordRemoteRequest(op, outcome, time.Since(start))
	c.log.WithFields(fields).WithFields(logrus.Fields{
		"op":      op,
		"outcome": outcome,
	}).WithError(err).Warn("remote call failed")
}

func withQuery(endpoint string, params url.Values) (string, error) {
	if endpoint == "" {
		return "", errors.New("no endpoint configured")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
