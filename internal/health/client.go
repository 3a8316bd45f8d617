package health

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/util/retry"
)

const (
	phase = "health"

	healthPath   = "health"
	statusesPath = "api/v1/endpoints/statuses"

	// maxBodyBytes bounds how much of a response body is kept for messages.
	maxBodyBytes = 64 << 10
)

// Policy controls CheckHealth.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Timeout bounds each request.
	Timeout time.Duration
}

// DefaultPolicy allows for the monitor container starting after boot.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 10, Delay: 15 * time.Second, Timeout: 30 * time.Second}
}

// Result is the outcome of CheckHealth. An unhealthy monitor is a Result
// with Healthy false, not an error.
type Result struct {
	URL        string
	Healthy    bool
	Attempts   int
	StatusCode int
	Message    string
	Duration   time.Duration
}

// Recorder observes health checks. *metrics.Recorder implements it.
type Recorder interface {
	ObserveHealthCheck(monitor string, healthy bool, attempts int, duration time.Duration)
}

// Client talks to one Gatus instance.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	observer provisioning.Observer
	recorder Recorder
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets credentials. They are only sent when both are set.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithVerifyTLS controls certificate verification. Verification is off by
// default because monitors on test VMs use self-signed certificates.
func WithVerifyTLS(verify bool) Option {
	return func(c *Client) {
		c.http = newHTTPClient(!verify)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithObserver sets the observer notified of failed attempts.
func WithObserver(o provisioning.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a client for the Gatus instance at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(true),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: insecure, //nolint:gosec // Self-signed certificates on ephemeral monitors
	}
	return &http.Client{Transport: transport}
}

// BaseURL returns the monitor's base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckHealth polls GET /health until it returns 200 or MaxAttempts
// requests were made, waiting Delay between attempts but not after the
// last one. Non-200 responses and transport errors are retried alike.
func (c *Client) CheckHealth(ctx context.Context, policy Policy) *Result {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	res := &Result{URL: c.url(healthPath)}
	start := time.Now()
	var lastErr string

	attempts, err := retry.Fixed(ctx, func(attempt int) error {
		status, body, err := c.get(ctx, healthPath, policy.Timeout)
		res.StatusCode = status
		switch {
		case err != nil:
			lastErr = err.Error()
		case status == http.StatusOK:
			res.Message = "Gatus healthy: " + body
			return nil
		default:
			lastErr = fmt.Sprintf("HTTP %d: %s", status, body)
		}

		if c.observer != nil {
			provisioning.LogAttemptFailed(c.observer, phase, c.baseURL, attempt, policy.MaxAttempts, lastErr)
		}
		return errAttemptFailed
	},
		retry.WithMaxAttempts(policy.MaxAttempts),
		retry.WithDelay(policy.Delay),
		retry.WithSleeper(c.sleep),
	)

	res.Attempts = attempts
	res.Duration = time.Since(start)
	switch {
	case err == nil:
		res.Healthy = true
	case errors.Is(err, errAttemptFailed):
		res.Message = fmt.Sprintf("Failed after %d attempts. Last error: %s", attempts, lastErr)
	default:
		res.Message = fmt.Sprintf("Stopped after %d attempts: %v. Last error: %s", attempts, err, lastErr)
	}

	if c.recorder != nil {
		c.recorder.ObserveHealthCheck(c.baseURL, res.Healthy, res.Attempts, res.Duration)
	}
	return res
}

var errAttemptFailed = errors.New("health check attempt failed")

// get issues a GET for path and returns the status code and a bounded,
// trimmed body.
func (c *Client) get(ctx context.Context, path string, timeout time.Duration) (int, string, error) {
	var (
		status int
		body   string
	)
	err := c.do(ctx, path, timeout, func(resp *http.Response) error {
		status = resp.StatusCode
		var err error
		body, err = readBounded(resp.Body)
		return err
	})
	return status, body, err
}

// do issues a GET for path and hands the open response to handle. The
// per-request timeout covers reading the body.
func (c *Client) do(ctx context.Context, path string, timeout time.Duration, handle func(*http.Response) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return handle(resp)
}

// readBounded reads at most maxBodyBytes of r for use in messages.
func readBounded(r io.Reader) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + path
}
