// Package hackernews reads stories, items and users from the public Hacker News
// API and turns ranked ID lists into pages of resolved items.
package hackernews

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/gxr404/hackernews-mcp/safeunmarshal"
)

const (
	// DefaultBaseURL is the public Hacker News API root.
	DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

	defaultTimeout = 30 * time.Second

	// maxBodySize caps a single response; the largest documents are users
	// with long submission histories.
	maxBodySize = 8 * 1024 * 1024
)

// Client fetches from the item store. It holds no cache: every call is a
// fresh read.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	limiter        *rate.Limiter
	maxConcurrency int
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another store root (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client. The client is used as
// given: WithTimeout does not modify it. A nil hc is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the HTTP client NewClient
// builds. It has no effect together with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit limits outbound reads to rps per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxConcurrency bounds the parallel item reads of one page. n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) {
		c.maxConcurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the public API.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// ListIDs returns the ID list for lt exactly as the store orders it.
func (c *Client) ListIDs(ctx context.Context, lt ListType) ([]int, error) {
	endpoint, ok := listEndpoints[lt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownListType, lt)
	}

	body, err := c.get(ctx, endpoint+".json")
	if err != nil {
		return nil, fmt.Errorf("fetching %s stories: %w", lt, err)
	}
	if body == nil {
		return []int{}, nil
	}

	ids, err := safeunmarshal.To[[]int](body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s stories: %w", lt, err)
	}
	return ids, nil
}

// TopStories returns up to 500 top stories and jobs.
func (c *Client) TopStories(ctx context.Context) ([]int, error) {
	return c.ListIDs(ctx, ListTop)
}

// NewStories returns up to 500 newest stories.
func (c *Client) NewStories(ctx context.Context) ([]int, error) {
	return c.ListIDs(ctx, ListNew)
}

// BestStories returns up to 200 best stories.
func (c *Client) BestStories(ctx context.Context) ([]int, error) {
	return c.ListIDs(ctx, ListBest)
}

func (c *Client) AskStories(ctx context.Context) ([]int, error) {
	return c.ListIDs(ctx, ListAsk)
}

func (c *Client) ShowStories(ctx context.Context) ([]int, error) {
	return c.ListIDs(ctx, ListShow)
}

func (c *Client) JobStories(ctx context.Context) ([]int, error) {
	return c.ListIDs(ctx, ListJob)
}

// GetItem fetches one item. A non-positive id fails with ErrMissingParameter
// before any request is made.
func (c *Client) GetItem(ctx context.Context, id int) (*Item, error) {
	if id <= 0 {
		return nil, ErrMissingParameter
	}

	body, err := c.get(ctx, fmt.Sprintf("item/%d.json", id))
	if err != nil {
		return nil, fmt.Errorf("fetching item %d: %w", id, err)
	}
	if body == nil {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}

	item, err := safeunmarshal.To[Item](body)
	if err != nil {
		return nil, fmt.Errorf("decoding item %d: %w", id, err)
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetUser fetches a user profile. An empty userID fails with
// ErrMissingParameter before any request is made.
func (c *Client) GetUser(ctx context.Context, userID string) (*UserInfo, error) {
	if userID == "" {
		return nil, ErrMissingParameter
	}

	body, err := c.get(ctx, "user/"+url.PathEscape(userID)+".json")
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", userID, err)
	}
	if body == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	user, err := safeunmarshal.To[UserInfo](body)
	if err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", userID, err)
	}
	return &user, nil
}

// get performs one GET against the store. A JSON null body is returned as nil.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("item store request failed",
			"url", u,
			"status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("item store request",
		"url", u,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	return trimmed, nil
}
