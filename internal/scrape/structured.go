package scrape

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/recipeclip/recipeclip/internal/logger"
)

// StructuredData is a loosely schema.org-shaped recipe document as scraped
// from a page's JSON-LD block. It is transient and never persisted.
type StructuredData map[string]any

// ExtractStructuredRecipe scans all JSON-LD script blocks in document order
// and returns the first schema.org Recipe node, or nil if the page carries
// none. Malformed JSON-LD blocks are skipped; broken markup on one block
// must not abort extraction.
func ExtractStructuredRecipe(html string) StructuredData {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Debug("structured data parse failed", "error", err)
		return nil
	}

	var recipe StructuredData
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var parsed any
		if err := json.Unmarshal([]byte(s.Text()), &parsed); err != nil {
			logger.Debug("skipping malformed JSON-LD block", "error", err)
			return true
		}

		for _, candidate := range ldCandidates(parsed) {
			if isRecipeNode(candidate) {
				recipe = candidate
				return false
			}
		}
		return true
	})

	return recipe
}

// ldCandidates normalizes a parsed JSON-LD value into a flat candidate list:
// a top-level array is used as-is, an @graph array is unwrapped, and a
// single object becomes a one-element list.
func ldCandidates(parsed any) []StructuredData {
	switch v := parsed.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			return objectsOf(graph)
		}
		return []StructuredData{v}
	default:
		return nil
	}
}

func objectsOf(items []any) []StructuredData {
	out := make([]StructuredData, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// isRecipeNode checks a candidate's @type. Sites emit the type either as a
// plain string or as a list of types.
func isRecipeNode(node StructuredData) bool {
	switch t := node["@type"].(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// ExtractCoverImage returns the page's og:image meta tag value, or the
// empty string when the tag is absent.
func ExtractCoverImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	img, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return strings.TrimSpace(img)
}
