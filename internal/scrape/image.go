package scrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/recipeclip/recipeclip/internal/logger"
)

// maxImageBytes caps cover image downloads.
const maxImageBytes = 20 << 20

var imageClient = &http.Client{Timeout: 30 * time.Second}

// DownloadImage fetches image bytes from a URL. It is strictly best-effort:
// any network failure, non-2xx status, or non-image content type yields nil.
// Cover art is never allowed to block recipe creation.
func DownloadImage(ctx context.Context, url string) []byte {
	if url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Warn("image download skipped", "url", url, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := imageClient.Do(req)
	if err != nil {
		logger.Warn("image download failed", "url", url, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("image download failed", "url", url, "status", resp.StatusCode)
		return nil
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		logger.Warn("image download skipped, not an image", "url", url, "content_type", ct)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		logger.Warn("image download failed mid-read", "url", url, "error", err)
		return nil
	}
	return data
}
