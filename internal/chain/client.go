package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/util"
	"github.com/cocosci/fishchain/internal/worker"
	"github.com/google/uuid"
)

// ErrNoFreeChains is returned when the service has no chain for the condition
var ErrNoFreeChains = errors.New("no free chains")

// NoSpaceNotice is shown to participants when assignment fails with ErrNoFreeChains
const NoSpaceNotice = "Unfortunately there is no space in the experiment at this time. We apologize for the inconvenience."

const (
	maxBodyBytes   = 1 << 20
	retryBaseDelay = 500 * time.Millisecond
)

var retryWaitFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// StatusError is a non-2xx response from the service
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Client talks to the chain-assignment service
type Client struct {
	baseURL     string
	httpClient  *http.Client
	userAgent   string
	maxAttempts int
	limiter     *worker.Limiter
	logger      *slog.Logger
}

// NewClient creates a client from configuration. limiter may be nil.
func NewClient(cfg model.ChainConfig, limiter *worker.Limiter, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid chain base url %q", cfg.BaseURL)
	}

	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "fishchain"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent:   userAgent,
		maxAttempts: attempts,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Assign requests a chain for a message condition, busy or not
func (c *Client) Assign(ctx context.Context, condition string) (*Chain, error) {
	return c.assign(ctx, "/assign/"+url.PathEscape(condition))
}

// AssignNoBusy requests a chain that no other participant is currently writing to
func (c *Client) AssignNoBusy(ctx context.Context, condition string) (*Chain, error) {
	return c.assign(ctx, "/assign/no-busy/"+url.PathEscape(condition))
}

func (c *Client) assign(ctx context.Context, path string) (*Chain, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, path, nil, &raw)

	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, ErrNoFreeChains
	}
	if err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}

	// The service also signals exhaustion with a bare 404 body
	if strings.TrimSpace(string(raw)) == "404" {
		return nil, ErrNoFreeChains
	}

	var ch Chain
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}
	if ch.ID == "" {
		return nil, fmt.Errorf("decode chain: missing _id")
	}
	return &ch, nil
}

// Free releases a busy chain so another participant can write to it
func (c *Client) Free(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/free/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("free chain %s: %w", id, err)
	}
	return nil
}

// PostMessage appends a message to the chain and completes the participant's turn
func (c *Client) PostMessage(ctx context.Context, id string, msg ChainMessage) error {
	body := struct {
		Message ChainMessage `json:"message"`
	}{msg}
	if err := c.do(ctx, http.MethodPost, "/chain/complete/"+url.PathEscape(id), body, nil); err != nil {
		return fmt.Errorf("post message to %s: %w", id, err)
	}
	return nil
}

// MarkRead records that a read-only participant viewed the chain's last message
func (c *Client) MarkRead(ctx context.Context, id string) (*Chain, error) {
	var ch Chain
	if err := c.do(ctx, http.MethodPost, "/chain/read/"+url.PathEscape(id), nil, &ch); err != nil {
		return nil, fmt.Errorf("mark read %s: %w", id, err)
	}
	return &ch, nil
}

// Release frees the held chain if it is still busy. The holder keeps the chain
// with Busy cleared.
func (h *Holder) Release(ctx context.Context, client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.chain == nil || !h.chain.Busy {
		return nil
	}
	if err := client.Free(ctx, h.chain.ID); err != nil {
		return err
	}
	h.chain.Busy = false
	return nil
}

// do sends a request with retries for transient failures
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			c.logger.Debug("retrying chain request", "method", method, "path", path, "attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := retryWaitFunc(ctx, delay); err != nil {
				return fmt.Errorf("retry backoff: %w", err)
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, endpoint); err != nil {
				return fmt.Errorf("rate limit: %w", err)
			}
		}

		lastErr = c.once(ctx, method, endpoint, payload, out)
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(limited, 4096))
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(snippet)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// isRetryable reports whether err is a transient failure: 5xx, 429, or a
// transport error that was not caused by context cancellation
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ue *url.Error
	return errors.As(err, &ue)
}
