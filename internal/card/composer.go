// Package card turns extracted link metadata into a styled, length-bounded preview card.
package card

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"mikabot/internal/domain"
)

const (
	// Color is the signature embed colour (muted gold).
	Color = 0xC7A87A

	// MaxDescriptionLength is the rendering platform's description limit.
	MaxDescriptionLength = 4096
	// MaxTitleLength is the rendering platform's title limit.
	MaxTitleLength = 256

	// DomainFieldLabel names the site domain field.
	DomainFieldLabel = "Cosmic Origin"

	titlePrefix = "💖🌟 "
	titleSuffix = " 🔗 | ⭐"

	paddingTop    = "Hehe! ✨ Mika found something lovely for you! 💖"
	paddingBottom = "This is a little sparkle from the cosmos, just for you! 😉🌟"

	shortDescriptionLength = 100
	safeDescriptionLength  = MaxDescriptionLength - 3
	longDescriptionLength  = 4000
	ellipsis               = "..."

	footerPrefix = "💖 Mika's Craftsmanship"
	footerSuffix = "✨ So magical! ✨"
	footerSep    = " | "
)

// DefaultFillerPhrases mark a description as generic filler that gets wrapped in padding.
var DefaultFillerPhrases = []string{
	"celestial",
	"mika's touch",
	"curated",
	"link resource",
	"beauty",
	"clarity",
	"found something lovely",
}

// Composer builds preview cards. It performs no I/O and is safe for concurrent use.
type Composer struct {
	fillers []string
}

// NewComposer returns a composer using fillers, or DefaultFillerPhrases when empty.
func NewComposer(fillers []string) *Composer {
	if len(fillers) == 0 {
		fillers = DefaultFillerPhrases
	}
	normalized := make([]string, 0, len(fillers))
	for _, f := range fillers {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			normalized = append(normalized, f)
		}
	}
	return &Composer{fillers: normalized}
}

// Compose builds the card for meta as shared in pc.
func (c *Composer) Compose(meta domain.LinkMetadata, pc domain.PresentationContext) domain.PreviewCard {
	card := domain.PreviewCard{
		Title:         composeTitle(meta.Title),
		Description:   c.composeDescription(meta.Title, meta.Description),
		URL:           meta.SourceURL,
		Color:         Color,
		FooterText:    composeFooter(pc),
		FooterIconURL: pc.AuthorAvatarURL,
	}
	if card.FooterIconURL == "" {
		card.FooterIconURL = pc.DefaultAvatarURL
	}

	if isWellFormedHTTP(meta.ThumbnailURL) {
		card.ThumbnailURL = meta.ThumbnailURL
	}

	if meta.SiteDomain != "" {
		card.SiteDomain = meta.SiteDomain
		card.DomainField = &domain.CardField{
			Name:   "🌟 **" + DomainFieldLabel + "**",
			Value:  "`" + meta.SiteDomain + "`",
			Inline: true,
		}
	}
	return card
}

func composeTitle(title string) string {
	budget := MaxTitleLength - utf8.RuneCountInString(titlePrefix) - utf8.RuneCountInString(titleSuffix)
	if utf8.RuneCountInString(title) > budget {
		title = truncateRunes(title, budget-len(ellipsis)) + ellipsis
	}
	return titlePrefix + title + titleSuffix
}

func (c *Composer) composeDescription(title, description string) string {
	if utf8.RuneCountInString(description) < shortDescriptionLength || c.isFiller(description) {
		combined := paddingTop + "\n\n" + description + "\n\n" + paddingBottom
		return truncateRunes(combined, safeDescriptionLength)
	}

	combined := "Oh! A " + title + "! Let me make it shine. ✨ " + description
	if utf8.RuneCountInString(combined) > longDescriptionLength {
		combined = truncateRunes(combined, safeDescriptionLength) + ellipsis
	}
	return combined
}

func (c *Composer) isFiller(description string) bool {
	lower := strings.ToLower(description)
	for _, phrase := range c.fillers {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func composeFooter(pc domain.PresentationContext) string {
	parts := []string{footerPrefix, "Shared by: " + pc.AuthorDisplayName}
	// An unknown channel name leaves the channel part out rather than a bare "#".
	if !pc.IsDirectMessage && strings.TrimSpace(pc.ChannelName) != "" {
		parts = append(parts, "Channel: #"+pc.ChannelName)
	}
	parts = append(parts, footerSuffix)
	return strings.Join(parts, footerSep)
}

func isWellFormedHTTP(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
