package domain

import "strings"

// Review is one customer review extracted from a rendered review card.
// Values are immutable once produced by the extractor.
type Review struct {
	Author      string `json:"author"`
	Rating      int    `json:"rating"` // 0 means not determined
	Body        string `json:"body"`
	Date        string `json:"date"` // ISO date, relative phrase, or empty
	ItemVariant string `json:"item_variant"`
}

// Fingerprint returns the dedup key for the review: the first 50 characters of the body.
func (r Review) Fingerprint() string {
	body := strings.TrimSpace(r.Body)
	runes := []rune(body)
	if len(runes) > FingerprintLength {
		runes = runes[:FingerprintLength]
	}
	return string(runes)
}

// FingerprintLength is the number of body characters used as the dedup key.
const FingerprintLength = 50

// GateState is the classifier verdict for the current page.
type GateState int

const (
	Gated GateState = iota
	ReviewsVisible
	RatingsVisible // weaker variant of ReviewsVisible: generic rating indicators only
	ProductVisible
)

// Cleared reports whether the bot-detection gate is considered passed.
func (g GateState) Cleared() bool {
	return g != Gated
}

// String returns the state name.
func (g GateState) String() string {
	switch g {
	case ReviewsVisible:
		return "reviews"
	case RatingsVisible:
		return "ratings"
	case ProductVisible:
		return "product"
	default:
		return "gated"
	}
}

// ProductInfo is collected once, early in a job.
type ProductInfo struct {
	Title string `json:"title"`
	Image string `json:"image"`
}
