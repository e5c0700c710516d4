// Package pipeline composes classification, fetching, and synthesis into the
// per-URL extraction procedure.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/recipeclip/recipeclip/internal/instagram"
	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/recipe"
	"github.com/recipeclip/recipeclip/internal/scrape"
	"github.com/recipeclip/recipeclip/internal/source"
	"github.com/recipeclip/recipeclip/internal/synth"
)

// Outcome is the terminal result of one extraction. Either the source did
// not describe a recipe (NotRecipe true, Reason set) or it did (Recipe set,
// with attribution and an optional cover photo).
type Outcome struct {
	NotRecipe  bool
	Reason     string
	Recipe     *recipe.Recipe
	Confidence float64

	// SourceURL is the page the recipe is attributed to. It differs from
	// the ingested URL when a caption-linked page's structured data wins.
	SourceURL  string
	SourceName string
	Photo      []byte
}

// PostFetcher retrieves social posts.
type PostFetcher interface {
	FetchPost(ctx context.Context, url string) (instagram.Post, error)
}

// PageFetcher retrieves page HTML.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// ImageDownloader retrieves cover art, best-effort.
type ImageDownloader func(ctx context.Context, url string) []byte

// Synthesizer turns captions and structured data into validated recipes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) (synth.Result, error)
}

// Extractor runs the two-route extraction procedure.
type Extractor struct {
	posts       PostFetcher
	pages       PageFetcher
	synthesizer Synthesizer
	download    ImageDownloader
}

// New creates an Extractor. download may be nil to skip cover art entirely.
func New(posts PostFetcher, pages PageFetcher, synthesizer Synthesizer, download ImageDownloader) *Extractor {
	if download == nil {
		download = func(context.Context, string) []byte { return nil }
	}
	return &Extractor{posts: posts, pages: pages, synthesizer: synthesizer, download: download}
}

// Extract runs one extraction job to a terminal outcome. Mandatory-step
// failures (post fetch, direct page fetch, synthesis) return an error;
// enrichment failures degrade with a warning and the job continues.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Outcome, error) {
	switch source.Classify(rawURL) {
	case source.RouteSocial:
		return e.extractSocial(ctx, rawURL)
	default:
		return e.extractDirect(ctx, rawURL)
	}
}

func (e *Extractor) extractSocial(ctx context.Context, postURL string) (Outcome, error) {
	post, err := e.posts.FetchPost(ctx, postURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetching post: %w", err)
	}
	logger.Debug("post fetched", "url", postURL, "owner", post.OwnerUsername, "type", post.Type)

	req := synth.Request{Mode: synth.ModeCaption, Caption: post.Caption}
	sourceURL := postURL

	// A caption-linked recipe page is strictly better input than the
	// caption alone, but fetching it is enrichment, not a requirement.
	if link := source.CaptionLink(post.Caption); link != "" {
		if data := e.fetchLinkedData(ctx, link); data != nil {
			req.Mode = synth.ModeMerge
			req.Data = data
			sourceURL = link
		}
	}

	result, err := e.synthesizer.Synthesize(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	if !result.IsRecipe {
		return Outcome{NotRecipe: true, Reason: result.Reason, SourceURL: postURL}, nil
	}

	var photo []byte
	if coverURL := post.CoverImageURL(); coverURL != "" {
		photo = e.download(ctx, coverURL)
		if photo == nil {
			logger.Warn("cover image download failed, continuing without photo", "url", coverURL)
		}
	}

	return Outcome{
		Recipe:     result.Recipe,
		Confidence: result.Confidence,
		SourceURL:  sourceURL,
		SourceName: post.SourceName(),
		Photo:      photo,
	}, nil
}

func (e *Extractor) extractDirect(ctx context.Context, pageURL string) (Outcome, error) {
	html, err := e.pages.FetchPage(ctx, pageURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetching page: %w", err)
	}

	data := scrape.ExtractStructuredRecipe(html)
	if data == nil {
		// No caption to fall back to on this route; the model is not
		// consulted.
		return Outcome{NotRecipe: true, Reason: "no structured recipe data found", SourceURL: pageURL}, nil
	}

	result, err := e.synthesizer.Synthesize(ctx, synth.Request{Mode: synth.ModeStructured, Data: data})
	if err != nil {
		return Outcome{}, err
	}
	if !result.IsRecipe {
		return Outcome{NotRecipe: true, Reason: result.Reason, SourceURL: pageURL}, nil
	}

	var photo []byte
	if coverURL := scrape.ExtractCoverImage(html); coverURL != "" {
		photo = e.download(ctx, coverURL)
		if photo == nil {
			logger.Warn("cover image download failed, continuing without photo", "url", coverURL)
		}
	}

	return Outcome{
		Recipe:     result.Recipe,
		Confidence: result.Confidence,
		SourceURL:  pageURL,
		SourceName: pageHostname(pageURL),
		Photo:      photo,
	}, nil
}

// fetchLinkedData attempts a structured-data fetch on a caption-extracted
// link. Any failure degrades to nil.
func (e *Extractor) fetchLinkedData(ctx context.Context, link string) scrape.StructuredData {
	html, err := e.pages.FetchPage(ctx, link)
	if err != nil {
		logger.Warn("caption link fetch failed, falling back to caption-only synthesis",
			"link", link, "error", err)
		return nil
	}
	data := scrape.ExtractStructuredRecipe(html)
	if data == nil {
		logger.Debug("caption link has no structured recipe data", "link", link)
	}
	return data
}

// pageHostname returns a page URL's hostname with a leading www. stripped,
// for attribution.
func pageHostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
