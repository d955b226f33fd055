package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"avn-launcher/internal/models"
)

// Source is the remote metadata provider. Failures are reported inside the
// Result, never as panics.
type Source interface {
	GetGame(ctx context.Context, threadID int) models.Result[models.RemoteGame]
	GetVersions(ctx context.Context, threadIDs []int) models.Result[map[int]string]
}

// Client talks to the metadata HTTP API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers map[string]string
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithHeaders(h map[string]string) Option {
	return func(c *Client) { c.headers = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

type apiResponse struct {
	Status string          `json:"status"`
	Msg    json.RawMessage `json:"msg"`
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		logger:         zap.NewNop(),
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetGame(ctx context.Context, threadID int) models.Result[models.RemoteGame] {
	var game models.RemoteGame
	if err := c.get(ctx, "/games/"+strconv.Itoa(threadID), &game); err != nil {
		return models.Fail[models.RemoteGame](fmt.Errorf("get game %d: %w", threadID, err))
	}
	if game.ThreadID == 0 {
		game.ThreadID = threadID
	}
	return models.Ok(game)
}

func (c *Client) GetVersions(ctx context.Context, threadIDs []int) models.Result[map[int]string] {
	if len(threadIDs) == 0 {
		return models.Ok(map[int]string{})
	}

	ids := make([]string, len(threadIDs))
	for i, id := range threadIDs {
		ids[i] = strconv.Itoa(id)
	}

	var raw map[string]string
	if err := c.get(ctx, "/versions?ids="+strings.Join(ids, ","), &raw); err != nil {
		return models.Fail[map[int]string](fmt.Errorf("get versions of %d games: %w", len(threadIDs), err))
	}

	versions := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			c.logger.Warn("skipping version with malformed thread id", zap.String("thread_id", k))
			continue
		}
		versions[id] = v
	}
	return models.Ok(versions)
}

// get issues a GET and decodes the "msg" field of the response envelope into out.
// Transport errors and 5xx responses are retried with backoff.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = fmt.Errorf("api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			return decodeResponse(resp.Body(), out)
		}

		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeResponse(body []byte, out any) error {
	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Status != "ok" {
		var msg string
		if err := json.Unmarshal(envelope.Msg, &msg); err != nil {
			msg = truncate(string(envelope.Msg), 256)
		}
		return fmt.Errorf("api returned status %q: %s", envelope.Status, msg)
	}
	if err := json.Unmarshal(envelope.Msg, out); err != nil {
		return fmt.Errorf("decode msg: %w", err)
	}
	return nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
