// Package scrape fetches web pages and digs recipe data out of them.
package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/recipeclip/recipeclip/internal/logger"
)

// defaultUserAgent is a realistic desktop browser user agent. Recipe sites
// routinely reject obvious bot agents.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// defaultTimeout bounds a single page fetch. A hung fetch surfaces as a
// NetworkError instead of stalling the job.
const defaultTimeout = 10 * time.Second

// NetworkError indicates a page could not be fetched: timeout, transport
// failure, or a non-2xx response.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher retrieves the HTML of a page.
type Fetcher interface {
	// FetchPage retrieves page HTML. It returns a *NetworkError on timeout
	// or non-2xx status.
	FetchPage(ctx context.Context, url string) (string, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// FetcherConfig holds common fetcher configuration.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultFetcherConfig returns sensible defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		UserAgent: defaultUserAgent,
		Timeout:   defaultTimeout,
	}
}

// StaticFetcher fetches pages over plain HTTP using Colly.
type StaticFetcher struct {
	config FetcherConfig
}

// NewStaticFetcher creates a new static fetcher.
func NewStaticFetcher(cfg FetcherConfig) *StaticFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &StaticFetcher{config: cfg}
}

// FetchPage retrieves page HTML using Colly.
func (f *StaticFetcher) FetchPage(ctx context.Context, targetURL string) (string, error) {
	// A fresh collector per request: no shared cookie jar between jobs.
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var html string
	var fetchErr *NetworkError

	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		ne := &NetworkError{URL: targetURL, Err: err}
		if r != nil {
			ne.StatusCode = r.StatusCode
		}
		fetchErr = ne
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = &NetworkError{URL: targetURL, Err: err}
	}

	if fetchErr != nil {
		logger.Debug("page fetch failed", "url", targetURL, "error", fetchErr)
		return "", fetchErr
	}

	logger.Debug("page fetched", "url", targetURL, "html_size", len(html))
	return html, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error { return nil }
