// Package extract holds the content classifier and the review card extractor.
// Both work on facts returned by a probe.Prober and never touch the DOM directly.
package extract

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/probe"
)

// Options tunes the card heuristics. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	MaxDepth         int
	MinContainerText int
	MaxContainerText int
	MinBodyLength    int
	// RequireAuthor drops cards whose author falls back to the anonymous placeholder.
	RequireAuthor bool
}

// DefaultOptions returns the thresholds from the patterns tables.
func DefaultOptions() Options {
	return Options{
		MaxDepth:         patterns.MaxAncestorDepth,
		MinContainerText: patterns.MinContainerText,
		MaxContainerText: patterns.MaxContainerText,
		MinBodyLength:    patterns.MinBodyLength,
	}
}

// SkipReason explains why a card produced no review.
type SkipReason int

const (
	Accepted SkipReason = iota
	SkipNoContainer
	SkipNoAuthor
	SkipShortBody
	SkipFault
)

// String returns the reason as logged.
func (r SkipReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case SkipNoContainer:
		return "no-container"
	case SkipNoAuthor:
		return "no-author"
	case SkipShortBody:
		return "short-body"
	default:
		return "fault"
	}
}

// Tally is the per-call diagnostic count used to calibrate the heuristics.
type Tally struct {
	Anchors            int `json:"anchors"`
	Emitted            int `json:"emitted"`
	Anonymous          int `json:"anonymous"`
	SkippedNoContainer int `json:"skipped_no_container"`
	SkippedNoAuthor    int `json:"skipped_no_author"`
	SkippedShortBody   int `json:"skipped_short_body"`
	Faults             int `json:"faults"`
}

func (t *Tally) record(r SkipReason) {
	switch r {
	case Accepted:
		t.Emitted++
	case SkipNoContainer:
		t.SkippedNoContainer++
	case SkipNoAuthor:
		t.SkippedNoAuthor++
	case SkipShortBody:
		t.SkippedShortBody++
	default:
		t.Faults++
	}
}

// Extractor turns rating anchors into reviews.
type Extractor struct {
	opts Options
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract reads every rating anchor on the page and parses one review per card.
// Cards that fail the heuristics are counted in the tally and skipped; only a
// probe failure is returned as an error.
func (e *Extractor) Extract(ctx context.Context, p probe.Prober) ([]domain.Review, Tally, error) {
	var tally Tally
	cards, err := p.Cards(ctx, probe.CardQuery{MaxDepth: e.opts.MaxDepth, MaxText: e.opts.MaxContainerText})
	if err != nil {
		return nil, tally, fmt.Errorf("probe cards: %w", err)
	}
	tally.Anchors = len(cards)

	reviews := make([]domain.Review, 0, len(cards))
	for _, card := range cards {
		r, reason := e.parseSafe(card)
		tally.record(reason)
		if reason != Accepted {
			continue
		}
		if r.Author == patterns.AnonymousAuthor {
			tally.Anonymous++
		}
		reviews = append(reviews, r)
	}
	return reviews, tally, nil
}

func (e *Extractor) parseSafe(card probe.CardProbe) (r domain.Review, reason SkipReason) {
	defer func() {
		if recover() != nil {
			r, reason = domain.Review{}, SkipFault
		}
	}()
	return e.ParseCard(card)
}

// ParseCard parses a single card. The review is valid only when the reason is
// Accepted.
func (e *Extractor) ParseCard(card probe.CardProbe) (domain.Review, SkipReason) {
	text, ok := e.container(card.Ancestors)
	if !ok {
		return domain.Review{}, SkipNoContainer
	}
	lines := splitLines(text)

	r := domain.Review{
		Rating: ParseRating(card.Label),
		Author: ParseAuthor(text, lines),
		Date:   ParseDate(text),
	}
	if r.Author == patterns.AnonymousAuthor && e.opts.RequireAuthor {
		return domain.Review{}, SkipNoAuthor
	}
	r.ItemVariant = ParseVariant(lines)

	body := ParseBody(lines, r.Author, r.Date, r.ItemVariant)
	if len([]rune(body)) < e.opts.MinBodyLength {
		if r.Rating == 0 {
			return domain.Review{}, SkipShortBody
		}
		body = patterns.BodyPlaceholder
	}
	r.Body = body
	return r, Accepted
}

// container picks the nearest ancestor that is long enough and carries a
// review-like marker.
func (e *Extractor) container(ancestors []string) (string, bool) {
	for _, text := range ancestors {
		n := len([]rune(text))
		if n > e.opts.MaxContainerText {
			break
		}
		if n <= e.opts.MinContainerText {
			continue
		}
		if patterns.ISODate.MatchString(text) ||
			patterns.MaskedUser.MatchString(text) ||
			patterns.AgoWord.MatchString(text) {
			return text, true
		}
	}
	return "", false
}

// ParseRating reads "Rating: n out of 5" from an anchor label, rounded and clamped
// to 0..5. Unparseable labels yield 0.
func ParseRating(label string) int {
	m := patterns.RatingLabel.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	n := int(math.Round(f))
	return max(0, min(5, n))
}

// ParseAuthor prefers a masked handle, then a short first line, then the
// anonymous placeholder.
func ParseAuthor(text string, lines []string) string {
	if m := patterns.MaskedUser.FindString(text); m != "" {
		return m
	}
	if len(lines) > 0 {
		first := lines[0]
		if len([]rune(first)) <= patterns.MaxAuthorLineLength &&
			!patterns.RatingLike.MatchString(first) &&
			!patterns.IsMetadataLine(first) {
			return first
		}
	}
	return patterns.AnonymousAuthor
}

// ParseDate returns an ISO date, else a relative-time phrase, else "".
func ParseDate(text string) string {
	if m := patterns.ISODate.FindString(text); m != "" {
		return m
	}
	return patterns.RelativeTime.FindString(text)
}

// ParseVariant looks for an explicit option label first; a capitalized hyphenated
// phrase is used only when no label is found.
func ParseVariant(lines []string) string {
	guess := ""
	for i, line := range lines {
		if patterns.ItemLabelOnly.MatchString(line) {
			for j := i + 1; j < len(lines) && j <= i+2; j++ {
				if v := lines[j]; itemValue(v) {
					return v
				}
			}
			continue
		}
		if m := patterns.ItemLabelValue.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
		if patterns.VariantLabel.MatchString(line) {
			return line
		}
		if guess == "" && variantLike(line) {
			guess = line
		}
	}
	return guess
}

func itemValue(s string) bool {
	n := len([]rune(s))
	return n >= patterns.MinItemLineLength && n < patterns.MaxItemLineLength &&
		!strings.Contains(s, "Verified") && !patterns.PureNumber.MatchString(s)
}

func variantLike(s string) bool {
	n := len([]rune(s))
	if n < patterns.MinVariantLength || n >= patterns.MaxVariantLength {
		return false
	}
	if !patterns.VariantHeuristic.MatchString(s) {
		return false
	}
	for _, ex := range patterns.VariantExclusions {
		if strings.Contains(s, ex) {
			return false
		}
	}
	return true
}

// ParseBody returns the longest line that is not one of the already parsed fields
// and not a metadata line.
func ParseBody(lines []string, author, date, variant string) string {
	body := ""
	for _, line := range lines {
		if line == author || line == date || line == variant {
			continue
		}
		if patterns.IsMetadataLine(line) || patterns.ItemLabelOnly.MatchString(line) {
			continue
		}
		if len([]rune(line)) > len([]rune(body)) {
			body = line
		}
	}
	return body
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
