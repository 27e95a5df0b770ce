package domain

// LinkMetadata represents what was extracted from a shared link's document.
type LinkMetadata struct {
	// SourceURL is the URL exactly as it was shared.
	SourceURL string `json:"url"`

	// Title resolved from og:title, twitter:title, <title> or the URL path. Never empty.
	Title string `json:"title"`

	// Description is either the decorated scraped description or the themed default. Never empty.
	Description string `json:"description"`

	// ThumbnailURL is an absolute http(s) URL with a recognized image extension, or empty.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	// SiteDomain is the host portion of SourceURL, or empty if it could not be parsed.
	SiteDomain string `json:"site_domain,omitempty"`
}

// HasThumbnail reports whether a thumbnail was resolved.
func (m LinkMetadata) HasThumbnail() bool {
	return m.ThumbnailURL != ""
}

// ImageDimensions holds the pixel size of a probed image. Both values are > 0.
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Exceeds reports whether the image is strictly wider and taller than min pixels.
func (d ImageDimensions) Exceeds(min int) bool {
	return d.Width > min && d.Height > min
}
