// Package patterns holds the versioned heuristic tables shared by the classifier,
// the review card extractor and the pagination navigator. Selectors are passed to
// in-page probe scripts as arguments so the browser and the HTML fixture prober
// read the same tables.
package patterns

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Version identifies the table revision. Bump it whenever a selector, pattern or
// threshold below changes so recorded fixtures can be re-validated.
const Version = "2024.11-r4"

// DOM selectors.
const (
	// RatingAnchor is the canonical review marker: one per review card.
	RatingAnchor = `[aria-label*="Rating:"][aria-label*="out of 5 stars"]`

	// RatingIndicator is the weaker signal used when the anchor label format drifts.
	// It matches substrings ("items-start" contains "star"), so hits are narrowed
	// to whole words by IsRatingHint.
	RatingIndicator = `[class*="rating"], [class*="Rating"], [class*="star"], [class*="Star"], [aria-label*="star"], [aria-label*="Star"]`

	Heading = "h1"
	Price   = `[class*="price"], [class*="Price"], [itemprop="price"], [data-testid*="price"]`

	CartControl = `button, a, [role="button"], input[type="submit"]`
	Clickable   = `button, a, span, div, li, [role="button"]`

	PagerContainer = `[class*="pagination"], [class*="Pagination"], [class*="pager"], [class*="Pager"]`
	PagerItem      = `button, a, li, span`
	SVGControl     = `button svg, a svg`
	SVGParent      = `button, a`

	// CandidateAttr tags navigation candidates in the live DOM so a later click
	// can address the element chosen on the Go side.
	CandidateAttr = "data-rvw-nav"
)

// ProductTitle and ProductImage are tried in order.
var (
	ProductTitle = []string{"h1", `[class*="title"]`, `[class*="Title"]`}
	ProductImage = []string{
		`[class*="ProductImage"] img`,
		`[class*="product-image"] img`,
		`[class*="gallery"] img`,
		`[class*="slider"] img`,
		`img[class*="product"]`,
	}
)

// Keyword tables.
var (
	GateTitleKeywords = []string{"security", "verify", "captcha"}
	AddToCartPhrases  = []string{"add to cart", "add to bag", "buy now"}
	ArrowGlyphs       = []string{"→", ">", "›", "»"}
	ActiveClasses     = []string{"active", "selected", "current"}
	ActiveAriaCurrent = []string{"true", "page"}
	VariantExclusions = []string{"Verified", "US", "Rating"}
	NextAriaPhrases   = []string{"next page", "go to next"}
	RatingWords       = []string{"star", "stars", "rating", "ratings"}
)

// Regular expressions.
var (
	RatingLabel  = regexp.MustCompile(`(?i)Rating:\s*(\d+(?:\.\d+)?)\s*out of 5`)
	MaskedUser   = regexp.MustCompile(`[A-Za-z0-9]+\*{2,}[A-Za-z0-9]*`)
	ISODate      = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	RelativeTime = regexp.MustCompile(`(?i)\b(?:\d+|an?|one)\s+(?:second|minute|hour|day|week|month|year)s?\s+ago\b`)
	AgoWord      = regexp.MustCompile(`(?i)\bago\b`)

	ItemLabelOnly    = regexp.MustCompile(`(?i)^(item|color|colour|size|variant|style):?$`)
	ItemLabelValue   = regexp.MustCompile(`(?i)^item:\s*(.+)$`)
	VariantLabel     = regexp.MustCompile(`(?i)^(color|colour|size|variant|style):\s*\S.*$`)
	VariantHeuristic = regexp.MustCompile(`^[A-Z][a-z]+[-\s][A-Z]`)
	PureNumber       = regexp.MustCompile(`^\d+$`)

	// RatingAriaWord finds star or rating as a whole word in an aria-label.
	RatingAriaWord = regexp.MustCompile(`(?i)\b(?:stars?|ratings?)\b`)

	NextText = regexp.MustCompile(`(?i)^next\s*[→›»>]?$`)

	// RatingLike matches lines that carry a rating rather than a name or text.
	RatingLike = regexp.MustCompile(`(?i)(^rating:|out of 5|^[★☆\s]+$|^\d(?:\.\d)?\s*stars?$)`)
)

// MetadataLines are lines that can never be a review body.
var MetadataLines = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^verified`),
	regexp.MustCompile(`^US\b`),
	regexp.MustCompile(`(?i)^(item|color|colour|size|variant|style):`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`(?i)^rating:`),
	regexp.MustCompile(`(?i)out of 5 stars?`),
	regexp.MustCompile(`^[★☆\s]+$`),
	regexp.MustCompile(`(?i)^helpful\b`),
	regexp.MustCompile(`^[A-Za-z0-9]+\*{2,}[A-Za-z0-9]*$`),
	regexp.MustCompile(`(?i)^(?:\d+|an?|one)\s+(?:second|minute|hour|day|week|month|year)s?\s+ago$`),
}

// Thresholds. These are empirical and meant to be tuned against recorded fixtures.
const (
	MaxAncestorDepth     = 10
	MinContainerText     = 30
	MaxContainerText     = 4000
	MinBodyLength        = 10
	MaxAuthorLineLength  = 30
	MinItemLineLength    = 3
	MaxItemLineLength    = 80
	MinVariantLength     = 6
	MaxVariantLength     = 60
	MinHeadingLength     = 6
	MinRatingIndicators  = 3
	MaxRatingHints       = 200
	NavMinTop            = 200
	MaxCandidateText     = 24
	MaxControlTextLength = 40
)

// Placeholders used when a field cannot be isolated.
const (
	AnonymousAuthor = "Anonymous"
	BodyPlaceholder = "(no review text)"
)

// IsMetadataLine reports whether line matches any of the metadata-line patterns.
func IsMetadataLine(line string) bool {
	for _, re := range MetadataLines {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsRatingHint reports whether an element's class list or aria-label names a
// rating as a word of its own. Class tokens are split on '-', '_' and camelCase
// boundaries, so "star-rating" and "ReviewStars" count while "items-start" and
// "captcha-restart" do not.
func IsRatingHint(class, ariaLabel string) bool {
	if RatingAriaWord.MatchString(ariaLabel) {
		return true
	}
	for _, token := range strings.Fields(class) {
		for _, word := range classWords(token) {
			if slices.Contains(RatingWords, word) {
				return true
			}
		}
	}
	return false
}

// classWords splits a CSS class token into lower-case words.
func classWords(token string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, strings.ToLower(b.String()))
			b.Reset()
		}
	}
	runes := []rune(token)
	for i, r := range runes {
		switch {
		case r == '-' || r == '_':
			flush()
			continue
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
		}
		b.WriteRune(r)
	}
	flush()
	return words
}
