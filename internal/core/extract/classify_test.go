package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopreviews/internal/adapters/htmlsnapshot"
	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/extract"
	"shopreviews/internal/core/probe"
)

const fixtures = "../../adapters/htmlsnapshot/testdata/"

func TestClassifySignals(t *testing.T) {
	tests := []struct {
		name string
		sig  probe.GateSignals
		want domain.GateState
	}{
		{"rating anchor wins", probe.GateSignals{RatingAnchors: 1, Title: "Security check"}, domain.ReviewsVisible},
		{"generic indicators", probe.GateSignals{RatingHints: ratingHints("star-rating", "ReviewStars", "")}, domain.RatingsVisible},
		{"indicators by aria label", probe.GateSignals{RatingHints: []probe.RatingHint{
			{AriaLabel: "4 stars"}, {AriaLabel: "Rating 5"}, {Class: "rating"},
		}}, domain.RatingsVisible},
		{"too few indicators", probe.GateSignals{RatingHints: ratingHints("stars", "rating")}, domain.Gated},
		{"layout classes are not ratings", probe.GateSignals{RatingHints: ratingHints("flex items-start", "justify-start", "captcha-restart", "starter")}, domain.Gated},
		{"gate title blocks indicator rule", probe.GateSignals{RatingHints: ratingHints("stars", "stars", "stars"), Title: "Security Verification"}, domain.Gated},
		{"heading and price", probe.GateSignals{Heading: "Vortex Pro Blender", HasPrice: true, Title: "Shop"}, domain.ProductVisible},
		{"gate title blocks heading rule", probe.GateSignals{Heading: "Vortex Pro Blender", HasPrice: true, Title: "Please verify"}, domain.Gated},
		{"short heading", probe.GateSignals{Heading: "Hi", HasPrice: true}, domain.Gated},
		{"cart control", probe.GateSignals{ControlTexts: []string{"Menu", " ADD TO CART "}}, domain.ProductVisible},
		{"cart control despite gate title", probe.GateSignals{Title: "captcha", ControlTexts: []string{"Buy now"}}, domain.ProductVisible},
		{"nothing", probe.GateSignals{Title: "Security Verification", Heading: "Verify you are human"}, domain.Gated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extract.ClassifySignals(tt.sig))
		})
	}
}

// ratingHints builds class-only hints; an empty class stands for "Star" in an aria-label.
func ratingHints(classes ...string) []probe.RatingHint {
	out := make([]probe.RatingHint, 0, len(classes))
	for _, c := range classes {
		if c == "" {
			out = append(out, probe.RatingHint{AriaLabel: "Star"})
			continue
		}
		out = append(out, probe.RatingHint{Class: c})
	}
	return out
}

func TestClassify_Fixtures(t *testing.T) {
	for _, name := range []string{"gated.html", "gated_layout.html"} {
		t.Run(name, func(t *testing.T) {
			gated, err := htmlsnapshot.Open(fixtures + name)
			require.NoError(t, err)
			state, err := extract.Classify(context.Background(), gated)
			require.NoError(t, err)
			assert.Equal(t, domain.Gated, state)
		})
	}

	product, err := htmlsnapshot.Open(fixtures + "product_page1.html")
	require.NoError(t, err)
	state, err := extract.Classify(context.Background(), product)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewsVisible, state)
	assert.True(t, state.Cleared())
}

type failingProber struct{ probe.Prober }

func (failingProber) GateSignals(context.Context) (probe.GateSignals, error) {
	return probe.GateSignals{RatingAnchors: 5}, errors.New("execution context was destroyed")
}

func TestClassify_ErrorIsGated(t *testing.T) {
	state, err := extract.Classify(context.Background(), failingProber{})
	assert.Error(t, err)
	assert.Equal(t, domain.Gated, state)
}
