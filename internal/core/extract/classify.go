package extract

import (
	"context"
	"strings"

	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/probe"
)

// Classify decides whether the bot-detection gate has cleared. Any probe error
// reads as Gated so the caller keeps waiting; the error is returned only so the
// caller can log it or spot a dead driver.
func Classify(ctx context.Context, p probe.Prober) (domain.GateState, error) {
	sig, err := p.GateSignals(ctx)
	if err != nil {
		return domain.Gated, err
	}
	return ClassifySignals(sig), nil
}

// ClassifySignals applies the gate rules in order of decreasing specificity.
// The first matching rule wins.
func ClassifySignals(sig probe.GateSignals) domain.GateState {
	switch {
	case sig.RatingAnchors >= 1:
		return domain.ReviewsVisible
	case ratingIndicators(sig.RatingHints) >= patterns.MinRatingIndicators && !gateTitle(sig.Title):
		return domain.RatingsVisible
	case hasHeading(sig.Heading) && sig.HasPrice && !gateTitle(sig.Title):
		return domain.ProductVisible
	case hasCartControl(sig.ControlTexts):
		return domain.ProductVisible
	default:
		return domain.Gated
	}
}

// ratingIndicators counts hints that name a rating as a whole word.
func ratingIndicators(hints []probe.RatingHint) int {
	n := 0
	for _, h := range hints {
		if patterns.IsRatingHint(h.Class, h.AriaLabel) {
			n++
		}
	}
	return n
}

func hasHeading(h string) bool {
	return len([]rune(strings.TrimSpace(h))) >= patterns.MinHeadingLength
}

func gateTitle(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range patterns.GateTitleKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

func hasCartControl(texts []string) bool {
	for _, t := range texts {
		t = strings.ToLower(strings.TrimSpace(t))
		for _, phrase := range patterns.AddToCartPhrases {
			if strings.Contains(t, phrase) {
				return true
			}
		}
	}
	return false
}
