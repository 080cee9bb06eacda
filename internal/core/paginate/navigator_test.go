package paginate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopreviews/internal/adapters/htmlsnapshot"
	"shopreviews/internal/core/paginate"
	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/probe"
)

const fixtures = "../../adapters/htmlsnapshot/testdata/"

func cand(id int, tag, text string) probe.NavCandidate {
	return probe.NavCandidate{ID: id, Tag: tag, Text: text, Top: 900, Width: 40, Height: 20}
}

func TestSelect_Strategies(t *testing.T) {
	nav := paginate.NewNavigator(nil, patterns.NavMinTop)

	tests := []struct {
		name     string
		cands    []probe.NavCandidate
		page     int
		wantID   int
		strategy paginate.Strategy
	}{
		{
			name:     "next text with arrow",
			cands:    []probe.NavCandidate{cand(0, "button", "1"), cand(1, "a", "NEXT »")},
			wantID:   1,
			strategy: paginate.NextText,
		},
		{
			name:     "arrow glyph",
			cands:    []probe.NavCandidate{cand(0, "span", "‹"), cand(1, "span", "›")},
			wantID:   1,
			strategy: paginate.ArrowGlyph,
		},
		{
			name: "pager sibling",
			cands: []probe.NavCandidate{
				{ID: 0, Tag: "li", Text: "4", Top: 900, Width: 10, Height: 10, InPager: true},
				{ID: 1, Tag: "li", Text: "5", Top: 900, Width: 10, Height: 10, InPager: true, AfterActive: true},
			},
			page:     3,
			wantID:   1,
			strategy: paginate.PagerSibling,
		},
		{
			name: "svg with next context",
			cands: []probe.NavCandidate{
				{ID: 0, Tag: "button", Top: 900, Width: 10, Height: 10, SVGParent: true, ContextText: "Previous"},
				{ID: 1, Tag: "button", Top: 900, Width: 10, Height: 10, SVGParent: true, ContextText: "Page 2 Next"},
			},
			wantID:   1,
			strategy: paginate.SVGNext,
		},
		{
			name: "svg names itself next",
			cands: []probe.NavCandidate{
				{ID: 0, Tag: "button", Top: 900, Width: 10, Height: 10, SVGParent: true, AriaLabel: "Previous page", ContextText: "1\n2\n3\nNext"},
				{ID: 1, Tag: "button", Top: 900, Width: 10, Height: 10, SVGParent: true, AriaLabel: "Next page", ContextText: "1\n2\n3\nNext"},
			},
			wantID:   1,
			strategy: paginate.SVGNext,
		},
		{
			name: "svg falls back to shared context",
			cands: []probe.NavCandidate{
				{ID: 0, Tag: "button", Top: 900, Width: 10, Height: 10, SVGParent: true, ContextText: "1\n2\n3\nNext"},
				{ID: 1, Tag: "button", Top: 900, Width: 10, Height: 10, SVGParent: true, ContextText: "1\n2\n3\nNext"},
			},
			wantID:   0,
			strategy: paginate.SVGNext,
		},
		{
			name: "aria label",
			cands: []probe.NavCandidate{
				{ID: 0, Tag: "div", Top: 900, Width: 10, Height: 10, AriaLabel: "Go to next set of reviews"},
			},
			wantID:   0,
			strategy: paginate.AriaNext,
		},
		{
			name: "page number prefers pager",
			cands: []probe.NavCandidate{
				cand(0, "span", "3"),
				{ID: 1, Tag: "a", Text: "3", Top: 900, Width: 10, Height: 10, InPager: true},
			},
			page:     2,
			wantID:   1,
			strategy: paginate.PageNumber,
		},
		{
			name:     "explicit text beats arrow",
			cands:    []probe.NavCandidate{cand(0, "span", ">"), cand(1, "button", "Next")},
			wantID:   1,
			strategy: paginate.NextText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s, ok := nav.Select(tt.cands, tt.page)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, c.ID)
			assert.Equal(t, tt.strategy, s)
		})
	}
}

func TestSelect_RejectsUnsuitable(t *testing.T) {
	nav := paginate.NewNavigator(nil, patterns.NavMinTop)
	cands := []probe.NavCandidate{
		{ID: 0, Tag: "a", Text: "Next", Top: 40, Width: 30, Height: 20},
		{ID: 1, Tag: "button", Text: "Next", Top: 900, Width: 0, Height: 0},
		{ID: 2, Tag: "p", Text: "Next", Top: 900, Width: 30, Height: 20},
	}
	_, _, ok := nav.Select(cands, 1)
	assert.False(t, ok)
}

func TestSelect_CustomOrder(t *testing.T) {
	order, err := paginate.ParseStrategies("page-number, next-text")
	require.NoError(t, err)
	nav := paginate.NewNavigator(order, patterns.NavMinTop)

	c, s, ok := nav.Select([]probe.NavCandidate{cand(0, "button", "Next"), cand(1, "button", "2")}, 1)
	require.True(t, ok)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, paginate.PageNumber, s)
}

func TestParseStrategies(t *testing.T) {
	got, err := paginate.ParseStrategies("")
	require.NoError(t, err)
	assert.Equal(t, paginate.DefaultOrder, got)

	got, err = paginate.ParseStrategies("ARIA-NEXT,aria-next,svg-next")
	require.NoError(t, err)
	assert.Equal(t, []paginate.Strategy{paginate.AriaNext, paginate.SVGNext}, got)

	_, err = paginate.ParseStrategies("next-text,bogus")
	assert.Error(t, err)
}

func TestAdvance_Fixture(t *testing.T) {
	p, err := htmlsnapshot.Open(fixtures+"product_page1.html", fixtures+"product_page2.html")
	require.NoError(t, err)
	nav := paginate.NewNavigator(nil, patterns.NavMinTop)
	ctx := context.Background()

	res, err := nav.Advance(ctx, p, 1)
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, paginate.NextText, res.Strategy)
	assert.Equal(t, "Next ›", res.Candidate.Text)
	assert.Equal(t, 2, p.Page())

	// The last page has no next control, no arrows and no page 3.
	res, err = nav.Advance(ctx, p, 2)
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	assert.Len(t, p.Clicked(), 1)
}

type vanishingProber struct {
	probe.Prober
	cands  []probe.NavCandidate
	gone   map[int]bool
	clicks []int
}

func (v *vanishingProber) NavCandidates(context.Context) ([]probe.NavCandidate, error) {
	return v.cands, nil
}

func (v *vanishingProber) Click(_ context.Context, id int) (bool, error) {
	v.clicks = append(v.clicks, id)
	return !v.gone[id], nil
}

func TestAdvance_FallsThroughWhenElementVanishes(t *testing.T) {
	v := &vanishingProber{
		cands: []probe.NavCandidate{cand(0, "button", "Next"), cand(1, "span", "»")},
		gone:  map[int]bool{0: true},
	}
	res, err := paginate.NewNavigator(nil, patterns.NavMinTop).Advance(context.Background(), v, 1)
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, paginate.ArrowGlyph, res.Strategy)
	assert.Equal(t, []int{0, 1}, v.clicks)
}
