// Package instagram fetches social posts through a third-party scraping
// actor and applies cover image policy to them.
package instagram

// Post type values as reported by the scraping actor.
const (
	TypeImage   = "Image"
	TypeSidecar = "Sidecar" // carousel of images
	TypeVideo   = "Video"
)

// Post is one scraped social post. It is transient: it exists only for the
// duration of a single extraction.
type Post struct {
	Caption       string   `json:"caption"`
	OwnerUsername string   `json:"ownerUsername"`
	OwnerFullName string   `json:"ownerFullName"`
	Type          string   `json:"type"`
	DisplayURL    string   `json:"displayUrl"`
	Images        []string `json:"images"`
}

// SourceName returns the attribution string for the post: the author's
// display name, falling back to the handle.
func (p Post) SourceName() string {
	if p.OwnerFullName != "" {
		return p.OwnerFullName
	}
	return p.OwnerUsername
}

// CoverImageURL selects the cover image for a post. This is policy, not
// I/O: a carousel uses its first image, a video uses its thumbnail, and
// everything else uses the primary display image.
func (p Post) CoverImageURL() string {
	switch p.Type {
	case TypeSidecar:
		if len(p.Images) > 0 {
			return p.Images[0]
		}
	case TypeVideo:
		// The actor reports the video thumbnail as the display URL.
		return p.DisplayURL
	}
	return p.DisplayURL
}
