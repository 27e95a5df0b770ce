package domain

// PresentationContext describes who shared a link and where.
type PresentationContext struct {
	AuthorDisplayName string
	// AuthorAvatarURL is empty when the author has no avatar.
	AuthorAvatarURL string
	// DefaultAvatarURL is used for the footer icon when AuthorAvatarURL is empty.
	DefaultAvatarURL string
	ChannelName      string
	IsDirectMessage  bool
}

// CardField is a labeled value rendered alongside the card description.
type CardField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// PreviewCard is a finalized, length-bounded card ready to be rendered by a chat client.
type PreviewCard struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	Color        int    `json:"color"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	// DomainField is nil when the site domain is unknown.
	DomainField *CardField `json:"domain_field,omitempty"`
	// SiteDomain is the raw domain behind DomainField, for renderers that format it themselves.
	SiteDomain string `json:"site_domain,omitempty"`

	FooterText    string `json:"footer_text"`
	FooterIconURL string `json:"footer_icon_url,omitempty"`
}
