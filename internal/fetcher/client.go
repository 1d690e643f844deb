package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// ClientOptions parameterise the page fetcher.
type ClientOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
}

// Client fetches pages with a fixed attempt count and linearly increasing
// backoff delays between attempts.
type Client struct {
	opts   ClientOptions
	client *http.Client
	logger zerolog.Logger
}

// NewClient constructs a page fetcher.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 40 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 1500 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "page_fetcher").Logger(),
	}
}

// Get retrieves a page body, retrying transient failures. The delay before
// attempt n is n times the configured backoff.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		body, err := c.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Str("url", url).Int("attempt", attempt).Msg("fetch attempt failed")

		if attempt == c.opts.Retries {
			break
		}
		delay := time.Duration(attempt) * c.opts.Backoff
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

var _ PageFetcher = (*Client)(nil)
