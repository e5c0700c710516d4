package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/recipeclip/recipeclip/internal/logger"
)

const defaultBaseURL = "https://api.apify.com"

// defaultActor is the scraping actor used to resolve posts.
const defaultActor = "apify~instagram-scraper"

// UpstreamError indicates the scraping actor failed or returned no results
// for a post URL.
type UpstreamError struct {
	URL string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fetch post %s: %v", e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Config holds scraping actor settings.
type Config struct {
	Token   string
	Actor   string
	BaseURL string
	Timeout time.Duration
}

// Client fetches posts by running the scraping actor synchronously.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a post fetcher.
func NewClient(cfg Config) *Client {
	if cfg.Actor == "" {
		cfg.Actor = defaultActor
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute // actor runs are slow
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type actorInput struct {
	DirectURLs   []string `json:"directUrls"`
	ResultsType  string   `json:"resultsType"`
	ResultsLimit int      `json:"resultsLimit"`
}

// FetchPost runs the scraping actor for a single post URL and returns the
// scraped post. It returns an *UpstreamError if the run fails or yields
// zero results.
func (c *Client) FetchPost(ctx context.Context, postURL string) (Post, error) {
	input := actorInput{
		DirectURLs:   []string{postURL},
		ResultsType:  "posts",
		ResultsLimit: 1,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return Post{}, &UpstreamError{URL: postURL, Err: err}
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		c.cfg.BaseURL, c.cfg.Actor, url.QueryEscape(c.cfg.Token))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Post{}, &UpstreamError{URL: postURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Post{}, &UpstreamError{URL: postURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Post{}, &UpstreamError{
			URL: postURL,
			Err: fmt.Errorf("actor returned status %d: %s", resp.StatusCode, msg),
		}
	}

	var items []Post
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return Post{}, &UpstreamError{URL: postURL, Err: fmt.Errorf("decode actor response: %w", err)}
	}
	if len(items) == 0 {
		return Post{}, &UpstreamError{URL: postURL, Err: fmt.Errorf("actor returned zero results")}
	}

	logger.Debug("post fetched",
		"url", postURL,
		"type", items[0].Type,
		"caption_size", len(items[0].Caption),
		"duration", time.Since(start))
	return items[0], nil
}
