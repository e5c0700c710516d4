package source

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// lineWrapRe matches a newline immediately followed by a non-whitespace
	// character. Captions frequently wrap long URLs across lines; such a
	// break is an inserted line-wrap, not a paragraph break.
	lineWrapRe = regexp.MustCompile(`\n(\S)`)

	// urlTokenRe greedily matches a URL-looking token up to the next
	// whitespace. Bare www. tokens count; a scheme is added later.
	urlTokenRe = regexp.MustCompile(`(?:https?://|www\.)\S+`)
)

// trailingPunct holds characters that are almost always sentence punctuation
// when they end a matched token, not part of the URL itself.
const trailingPunct = ".,)>]"

// CaptionLink returns the first URL embedded in caption text that does not
// point back at the social platform's own domain. It returns the empty
// string when no such URL exists.
//
// The function is deterministic and performs no I/O.
func CaptionLink(caption string) string {
	// Reassemble URLs split across line breaks before scanning.
	caption = lineWrapRe.ReplaceAllString(caption, "$1")

	for _, token := range urlTokenRe.FindAllString(caption, -1) {
		link := strings.TrimRight(token, trailingPunct)
		if !strings.Contains(link, "://") {
			link = "https://" + link
		}

		u, err := url.Parse(link)
		if err != nil || u.Hostname() == "" {
			continue
		}
		if isPlatformHost(u.Hostname()) {
			continue
		}
		return link
	}
	return ""
}
