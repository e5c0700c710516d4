package scrape

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/recipeclip/recipeclip/internal/logger"
)

// DynamicFetcher renders pages in headless Chrome. Some recipe sites gate
// their markup behind JavaScript or bot walls that a plain HTTP fetch cannot
// get past; the rendered DOM still carries the JSON-LD blocks.
type DynamicFetcher struct {
	config    FetcherConfig
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamicFetcher creates a dynamic fetcher backed by a browser allocator.
func NewDynamicFetcher(cfg FetcherConfig) (*DynamicFetcher, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// FetchPage retrieves rendered page HTML using a headless browser.
func (f *DynamicFetcher) FetchPage(ctx context.Context, targetURL string) (string, error) {
	start := time.Now()

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, f.config.Timeout)
	defer cancelTimeout()

	// Stop early if the caller's context dies first.
	go func() {
		select {
		case <-ctx.Done():
			cancelBrowser()
		case <-timeoutCtx.Done():
		}
	}()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitVisible("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		logger.Debug("dynamic fetch failed", "url", targetURL, "error", err)
		return "", &NetworkError{URL: targetURL, Err: err}
	}

	logger.Debug("dynamic fetch complete",
		"url", targetURL,
		"html_size", len(html),
		"duration", time.Since(start))
	return html, nil
}

// Close releases browser resources.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}
