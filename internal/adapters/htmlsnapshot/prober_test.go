package htmlsnapshot

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/probe"
)

func TestInnerText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="x">
		<span>J***n</span> <b>says</b>
		<p>First   line</p><script>var x = 1;</script>
		<div style="display: none">secret</div><div hidden>also secret</div>
		Trailing<br>text
	</div>`))
	require.NoError(t, err)
	assert.Equal(t, "J***n says\nFirst line\nTrailing\ntext", innerText(doc.Find("#x")))
}

func TestGateSignals(t *testing.T) {
	p, err := Open("testdata/product_page1.html")
	require.NoError(t, err)
	sig, err := p.GateSignals(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sig.RatingAnchors)
	assert.Equal(t, "Vortex Pro Blender 1200W", sig.Heading)
	assert.True(t, sig.HasPrice)
	assert.Equal(t, "Vortex Pro Blender 1200W | Shop", sig.Title)
	assert.Contains(t, sig.ControlTexts, "Add to Cart")
}

func TestGateSignals_LayoutClassesAreOnlyHints(t *testing.T) {
	p, err := Open("testdata/gated_layout.html")
	require.NoError(t, err)
	sig, err := p.GateSignals(context.Background())
	require.NoError(t, err)

	// The loose selector picks up every "start" class; none is a rating.
	require.NotEmpty(t, sig.RatingHints)
	for _, h := range sig.RatingHints {
		assert.False(t, patterns.IsRatingHint(h.Class, h.AriaLabel), h.Class)
	}
	assert.Zero(t, sig.RatingAnchors)
	assert.Equal(t, "Security Verification", sig.Title)
}

func TestCards_WalksAncestors(t *testing.T) {
	p, err := Open("testdata/product_page1.html")
	require.NoError(t, err)
	cards, err := p.Cards(context.Background(), probe.CardQuery{MaxDepth: 3, MaxText: 4000})
	require.NoError(t, err)
	require.Len(t, cards, 3)

	assert.Equal(t, "Rating: 5 out of 5 stars", cards[0].Label)
	require.NotEmpty(t, cards[0].Ancestors)
	assert.Equal(t, "J***n", cards[0].Ancestors[0])
	assert.Contains(t, cards[0].Ancestors[1], "2024-03-12")
	assert.LessOrEqual(t, len(cards[0].Ancestors), 3)
}

func TestNavCandidates(t *testing.T) {
	p, err := Open("testdata/product_page1.html")
	require.NoError(t, err)
	cands, err := p.NavCandidates(context.Background())
	require.NoError(t, err)

	byText := map[string][]probe.NavCandidate{}
	for _, c := range cands {
		byText[c.Text] = append(byText[c.Text], c)
	}
	require.Len(t, byText["Next"], 1)
	assert.Zero(t, byText["Next"][0].Top, "header link sits above the fold")

	require.Len(t, byText["Next ›"], 1)
	next := byText["Next ›"][0]
	assert.Greater(t, next.Top, 200.0)
	assert.True(t, next.InPager)
	assert.Equal(t, "button", next.Tag)

	require.Len(t, byText["2"], 1)
	assert.True(t, byText["2"][0].AfterActive)
	assert.False(t, byText["3"][0].AfterActive)
}

func TestNavCandidates_SVGAndHidden(t *testing.T) {
	p, err := New(`<html><body>
		<div class="controls"><span>Next</span><button aria-label="forward"><svg></svg></button></div>
		<button style="display:none" aria-label="Next page">Next</button>
	</body></html>`)
	require.NoError(t, err)
	cands, err := p.NavCandidates(context.Background())
	require.NoError(t, err)

	var svg, hiddenNext *probe.NavCandidate
	for i := range cands {
		c := &cands[i]
		switch {
		case c.SVGParent:
			svg = c
		case c.AriaLabel == "Next page":
			hiddenNext = c
		}
	}
	require.NotNil(t, svg)
	assert.Contains(t, svg.ContextText, "Next")
	assert.Equal(t, "forward", svg.AriaLabel)
	require.NotNil(t, hiddenNext)
	assert.Empty(t, hiddenNext.Text)
	assert.Zero(t, hiddenNext.Width)
}

func TestClick_AdvancesPages(t *testing.T) {
	p, err := Open("testdata/product_page1.html", "testdata/product_page2.html")
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := p.Click(ctx, 0)
	require.NoError(t, err)
	assert.False(t, ok, "click before any candidate lookup")

	cands, err := p.NavCandidates(ctx)
	require.NoError(t, err)
	ok, err = p.Click(ctx, cands[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, p.Page())
	require.Len(t, p.Clicked(), 1)

	n, err := p.AnchorCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err = p.Click(ctx, cands[0].ID)
	require.NoError(t, err)
	assert.False(t, ok, "ids are invalid after the page changes")
}

func TestProduct(t *testing.T) {
	p, err := Open("testdata/product_page1.html")
	require.NoError(t, err)
	info, err := p.Product(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Vortex Pro Blender 1200W", info.Title)
	assert.Equal(t, "https://cdn.example.com/blender.jpg", info.Image)

	p, err = New(`<html><body><img src="/icon.png" width="16" height="16"><img src="/hero.jpg" width="600" height="600"></body></html>`)
	require.NoError(t, err)
	info, err = p.Product(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/hero.jpg", info.Image)
}
