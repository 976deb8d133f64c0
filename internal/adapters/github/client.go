package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseURL  = "https://api.github.com"
	DefaultMaxPages = 10
	perPage         = 100
	maxRetries      = 3
	maxBodyBytes    = 8 << 20
	apiVersion      = "2022-11-28"
)

var ErrUnauthorized = errors.New("github rejected the token")

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Client is a thin client for the GitHub REST API. It authenticates with
// a bearer token, follows Link pagination and retries rate limited calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxPages   int
	newBackOff func() backoff.BackOff
	wait       func(ctx context.Context, d time.Duration) error
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithMaxPages(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithBackOff replaces the retry schedule used when no Retry-After header is
// present. newBackOff is called once per request.
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// WithWait replaces the function used to sleep between retries.
func WithWait(wait func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		if wait != nil {
			c.wait = wait
		}
	}
}

func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxPages:   DefaultMaxPages,
		newBackOff: newRetryBackOff,
		wait:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// pages fetches path and every following page, handing each decoded page
// to visit. visit returns false to stop early. At most maxPages pages are
// requested.
func (c *Client) pages(ctx context.Context, path string, visit func(body []byte) (bool, error)) error {
	next := c.baseURL + path
	for page := 0; next != "" && page < c.maxPages; page++ {
		body, link, err := c.get(ctx, next)
		if err != nil {
			return err
		}

		more, err := visit(body)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		next = nextLink(link)
	}

	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	retry := c.newBackOff()
	retry.Reset()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("GET %s: %w", url, err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, "", fmt.Errorf("read response body: %w", readErr)
		}

		if rateLimited(resp) {
			lastErr = fmt.Errorf("rate limited (%d) on GET %s", resp.StatusCode, url)
			if attempt == maxRetries {
				break
			}
			delay := retryDelay(resp, retry)
			if delay == backoff.Stop {
				break
			}
			if err := c.wait(ctx, delay); err != nil {
				return nil, "", err
			}
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, "", fmt.Errorf("%w (401) on GET %s", ErrUnauthorized, url)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr errorJSON
			if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
				return nil, "", fmt.Errorf("github API error (%d) on GET %s: %s", resp.StatusCode, url, apiErr.Message)
			}
			return nil, "", fmt.Errorf("unexpected status %d on GET %s", resp.StatusCode, url)
		}

		return body, resp.Header.Get("Link"), nil
	}

	return nil, "", fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// rateLimited covers both 429 and the 403 GitHub sends for secondary
// limits or an exhausted primary quota.
func rateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if resp.StatusCode != http.StatusForbidden {
		return false
	}

	return resp.Header.Get("Retry-After") != "" || resp.Header.Get("X-RateLimit-Remaining") == "0"
}

func newRetryBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.Multiplier = 2
	return bo
}

// retryDelay prefers the server's Retry-After seconds over the schedule. The
// schedule still advances so a later attempt without the header backs off
// further.
func retryDelay(resp *http.Response, retry backoff.BackOff) time.Duration {
	next := retry.NextBackOff()
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return next
}

func nextLink(header string) string {
	match := nextLinkPattern.FindStringSubmatch(header)
	if match == nil {
		return ""
	}
	return match[1]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
