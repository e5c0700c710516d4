// Package source decides where an ingested URL comes from and pulls
// candidate links out of social captions.
package source

import (
	"net/url"
	"strings"
)

// platformDomain is the social platform whose posts get the social route.
const platformDomain = "instagram.com"

// Route selects the extraction strategy for an ingested URL.
type Route int

const (
	// RouteDirect treats the URL as a generic web page with (hopefully)
	// embedded structured recipe data.
	RouteDirect Route = iota
	// RouteSocial treats the URL as a social media post.
	RouteSocial
)

func (r Route) String() string {
	if r == RouteSocial {
		return "social"
	}
	return "direct"
}

// Classify routes a URL by its host. It is total: anything that does not
// parse as a platform URL takes the direct route.
func Classify(rawURL string) Route {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RouteDirect
	}
	if isPlatformHost(u.Hostname()) {
		return RouteSocial
	}
	return RouteDirect
}

// isPlatformHost reports whether host belongs to the social platform,
// with or without a www. prefix.
func isPlatformHost(host string) bool {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return host == platformDomain || strings.HasSuffix(host, "."+platformDomain)
}
