// Package probe is the typed query layer between the heuristics and the DOM.
// Probers return raw facts about the rendered page; every decision made from those
// facts lives in the extract and paginate packages.
package probe

import (
	"context"

	"shopreviews/internal/core/domain"
)

// GateSignals are the facts the content classifier needs.
type GateSignals struct {
	RatingAnchors    int      `json:"ratingAnchors"`
	RatingHints      []RatingHint `json:"ratingHints"`
	Heading          string   `json:"heading"`
	HasPrice         bool     `json:"hasPrice"`
	Title            string   `json:"title"`
	ControlTexts     []string `json:"controlTexts"`
}

// RatingHint is the class list and aria-label of an element that loosely matched
// the rating indicator selector. Whether it really is a rating is decided in Go.
type RatingHint struct {
	Class     string `json:"class"`
	AriaLabel string `json:"ariaLabel"`
}

// CardProbe describes one rating anchor: its label and the flattened text of its
// ancestors, nearest first.
type CardProbe struct {
	Label     string   `json:"label"`
	Ancestors []string `json:"ancestors"`
}

// CardQuery bounds the ancestor walk.
type CardQuery struct {
	MaxDepth int `json:"maxDepth"`
	MaxText  int `json:"maxText"`
}

// NavCandidate is an element that might advance pagination.
type NavCandidate struct {
	ID          int     `json:"id"`
	Tag         string  `json:"tag"`
	Role        string  `json:"role"`
	Text        string  `json:"text"`
	AriaLabel   string  `json:"ariaLabel"`
	ContextText string  `json:"contextText"`
	Top         float64 `json:"top"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	InPager     bool    `json:"inPager"`
	AfterActive bool    `json:"afterActive"`
	SVGParent   bool    `json:"svgParent"`
}

// Prober answers typed questions about the current page.
type Prober interface {
	GateSignals(ctx context.Context) (GateSignals, error)
	AnchorCount(ctx context.Context) (int, error)
	Cards(ctx context.Context, q CardQuery) ([]CardProbe, error)
	NavCandidates(ctx context.Context) ([]NavCandidate, error)
	// Click activates the candidate with the given id from the latest
	// NavCandidates call. It returns false when the element is gone.
	Click(ctx context.Context, id int) (bool, error)
	Product(ctx context.Context) (domain.ProductInfo, error)
	// ScrollToFraction scrolls to a fraction of the document height.
	ScrollToFraction(ctx context.Context, f float64) error
	// FocusFirstAnchor scrolls the first rating anchor into view.
	FocusFirstAnchor(ctx context.Context) error
}
