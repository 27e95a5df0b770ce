package scraper

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultTitle       = "✨ Celestial Link Preview ✨"
	DefaultDescription = "✨ Glimmering with cosmic insight. A refined experience. Mika's touch ensures beauty and clarity. 💎"

	minTitleLength         = 5
	minDescriptionLength   = 51
	maxDescriptionLength   = 300
	descriptionMarker      = "💖 "
	ellipsis               = "..."
	minPathSegmentLength   = 3
	minDerivedTitleLength  = 5
	maxDerivedTitleLength  = 59
	minThumbnailSidePixels = 80
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// resolver returns a candidate value from the document, or "" if it has none.
type resolver func(doc *goquery.Document) string

var (
	titleResolvers = []resolver{
		metaProperty("og:title"),
		metaName("twitter:title"),
		elementText("title"),
	}
	descriptionResolvers = []resolver{
		metaProperty("og:description"),
		metaName("twitter:description"),
		metaName("description"),
	}
	imageResolvers = []resolver{
		metaProperty("og:image"),
		metaName("twitter:image"),
	}
)

func metaProperty(property string) resolver {
	return metaContent(`meta[property="` + property + `"]`)
}

func metaName(name string) resolver {
	return metaContent(`meta[name="` + name + `"]`)
}

func metaContent(selector string) resolver {
	return func(doc *goquery.Document) string {
		var content string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return content == ""
		})
		return content
	}
}

func elementText(tag string) resolver {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(tag).First().Text())
	}
}

// firstResolved tries resolvers in order; the first non-empty value wins.
func firstResolved(doc *goquery.Document, resolvers []resolver) string {
	for _, r := range resolvers {
		if v := r(doc); v != "" {
			return v
		}
	}
	return ""
}

// allResolved collects every non-empty value in resolver order.
func allResolved(doc *goquery.Document, resolvers []resolver) []string {
	var out []string
	for _, r := range resolvers {
		if v := r(doc); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// resolveTitle picks the document title, falling back to the URL path and then DefaultTitle.
func resolveTitle(doc *goquery.Document, pageURL *url.URL) string {
	title := firstResolved(doc, titleResolvers)
	if title == "" {
		title = DefaultTitle
	}
	if title == DefaultTitle || utf8.RuneCountInString(title) < minTitleLength {
		if derived, ok := titleFromURL(pageURL); ok {
			return derived
		}
	}
	return title
}

// titleFromURL turns the last path segment into a title, e.g. /blog/my-cool_post → "My Cool Post".
func titleFromURL(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	parts := strings.Split(u.Path, "/")
	segment := parts[len(parts)-1]
	if utf8.RuneCountInString(segment) < minPathSegmentLength {
		return "", false
	}
	candidate := strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	n := utf8.RuneCountInString(candidate)
	if n < minDerivedTitleLength || n > maxDerivedTitleLength {
		return "", false
	}
	return cases.Title(language.Und).String(candidate), true
}

// resolveDescription decorates a substantial scraped description. Anything of 50 runes or
// fewer is not trusted and replaced by DefaultDescription.
func resolveDescription(doc *goquery.Document) string {
	scraped := firstResolved(doc, descriptionResolvers)
	if utf8.RuneCountInString(scraped) < minDescriptionLength {
		return DefaultDescription
	}
	return descriptionMarker + truncateRunes(scraped, maxDescriptionLength) + ellipsis
}

// selectThumbnail resolves candidates against base and returns the first absolute
// http(s) URL with a recognized image extension.
func selectThumbnail(candidates []string, base *url.URL) string {
	for _, candidate := range candidates {
		resolved := candidate
		if !strings.HasPrefix(candidate, "http") && base != nil {
			ref, err := base.Parse(candidate)
			if err != nil {
				continue
			}
			resolved = ref.String()
		}
		if isAbsoluteHTTP(resolved) && hasImageExtension(resolved) {
			return resolved
		}
	}
	return ""
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func hasImageExtension(raw string) bool {
	lower := strings.ToLower(raw)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
