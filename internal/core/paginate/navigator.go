// Package paginate finds and activates the control that advances a review widget
// to its next page.
package paginate

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/probe"
)

// Strategy names one way of recognizing a "next page" control.
type Strategy string

const (
	NextText     Strategy = "next-text"     // literal "Next", optional arrow suffix
	ArrowGlyph   Strategy = "arrow-glyph"   // a lone →, >, › or »
	PagerSibling Strategy = "pager-sibling" // sibling after the active pager item
	SVGNext      Strategy = "svg-next"      // icon button whose context mentions next
	AriaNext     Strategy = "aria-next"     // aria-label "next page" / "go to next"
	PageNumber   Strategy = "page-number"   // the element labelled current+1
)

// DefaultOrder tries the most explicit signals first.
var DefaultOrder = []Strategy{NextText, ArrowGlyph, PagerSibling, SVGNext, AriaNext, PageNumber}

var matchers = map[Strategy]func(c probe.NavCandidate, page int) bool{
	NextText:     matchNextText,
	ArrowGlyph:   matchArrow,
	PagerSibling: matchPagerSibling,
	SVGNext:      matchSVGNext,
	AriaNext:     matchAriaNext,
	PageNumber:   matchPageNumber,
}

// ParseStrategies reads a comma separated strategy list. Unknown names are an
// error; an empty list yields DefaultOrder.
func ParseStrategies(list string) ([]Strategy, error) {
	var out []Strategy
	for _, f := range strings.Split(list, ",") {
		f = strings.TrimSpace(strings.ToLower(f))
		if f == "" {
			continue
		}
		s := Strategy(f)
		if _, ok := matchers[s]; !ok {
			return nil, fmt.Errorf("unknown pagination strategy %q", f)
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return slices.Clone(DefaultOrder), nil
	}
	return out, nil
}

// Result describes one advance attempt.
type Result struct {
	Advanced  bool
	Strategy  Strategy
	Candidate probe.NavCandidate
}

// Navigator applies the strategies in a fixed order.
type Navigator struct {
	order  []Strategy
	minTop float64
}

// NewNavigator creates a navigator. A nil order uses DefaultOrder; minTop is the
// vertical position above which controls are treated as header or site navigation.
func NewNavigator(order []Strategy, minTop float64) *Navigator {
	if len(order) == 0 {
		order = DefaultOrder
	}
	return &Navigator{order: slices.Clone(order), minTop: minTop}
}

// Order returns the strategy order in use.
func (n *Navigator) Order() []Strategy {
	return slices.Clone(n.order)
}

// Select returns the first suitable candidate found by the first strategy that
// finds any.
func (n *Navigator) Select(cands []probe.NavCandidate, page int) (probe.NavCandidate, Strategy, bool) {
	for _, s := range n.order {
		if c, ok := n.find(s, cands, page); ok {
			return c, s, true
		}
	}
	return probe.NavCandidate{}, "", false
}

func (n *Navigator) find(s Strategy, cands []probe.NavCandidate, page int) (probe.NavCandidate, bool) {
	match := matchers[s]
	var preferred func(probe.NavCandidate) bool
	switch s {
	case PageNumber:
		// Numbers inside a pager beat stray numeric text.
		preferred = func(c probe.NavCandidate) bool { return c.InPager }
	case SVGNext:
		// Context text is shared by every icon in a pager row, so an icon that
		// names itself next beats one that merely sits near the word.
		preferred = ownsNext
	}
	if preferred != nil {
		for _, c := range cands {
			if preferred(c) && n.suitable(c) && match(c, page) {
				return c, true
			}
		}
	}
	for _, c := range cands {
		if n.suitable(c) && match(c, page) {
			return c, true
		}
	}
	return probe.NavCandidate{}, false
}

// Advance clicks the next-page control for page. A false result means no control
// was found, which is the normal end of pagination. If a chosen element vanishes
// before the click, the remaining strategies are tried.
func (n *Navigator) Advance(ctx context.Context, p probe.Prober, page int) (Result, error) {
	cands, err := p.NavCandidates(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("probe nav candidates: %w", err)
	}
	for _, s := range n.order {
		c, ok := n.find(s, cands, page)
		if !ok {
			continue
		}
		clicked, err := p.Click(ctx, c.ID)
		if err != nil {
			return Result{}, fmt.Errorf("click %s candidate: %w", s, err)
		}
		if clicked {
			return Result{Advanced: true, Strategy: s, Candidate: c}, nil
		}
	}
	return Result{}, nil
}

// suitable filters out invisible controls and anything in the page header.
func (n *Navigator) suitable(c probe.NavCandidate) bool {
	return c.Width > 0 && c.Height > 0 && c.Top > n.minTop
}

var clickableTags = []string{"button", "a", "span", "div", "li"}

func clickable(c probe.NavCandidate) bool {
	return slices.Contains(clickableTags, strings.ToLower(c.Tag)) || strings.EqualFold(c.Role, "button")
}

func matchNextText(c probe.NavCandidate, _ int) bool {
	return clickable(c) && patterns.NextText.MatchString(strings.TrimSpace(c.Text))
}

func matchArrow(c probe.NavCandidate, _ int) bool {
	return clickable(c) && slices.Contains(patterns.ArrowGlyphs, strings.TrimSpace(c.Text))
}

func matchPagerSibling(c probe.NavCandidate, _ int) bool {
	return c.InPager && c.AfterActive
}

func matchSVGNext(c probe.NavCandidate, _ int) bool {
	if !c.SVGParent {
		return false
	}
	return ownsNext(c) || strings.Contains(strings.ToLower(c.ContextText), "next")
}

// ownsNext reports whether the control's own label or text says next.
func ownsNext(c probe.NavCandidate) bool {
	return strings.Contains(strings.ToLower(c.AriaLabel), "next") ||
		strings.Contains(strings.ToLower(c.Text), "next")
}

func matchAriaNext(c probe.NavCandidate, _ int) bool {
	label := strings.ToLower(c.AriaLabel)
	for _, phrase := range patterns.NextAriaPhrases {
		if strings.Contains(label, phrase) {
			return true
		}
	}
	return false
}

func matchPageNumber(c probe.NavCandidate, page int) bool {
	return clickable(c) && strings.TrimSpace(c.Text) == strconv.Itoa(page+1)
}
