// Package htmlsnapshot implements probe.Prober over static HTML so the heuristics
// can run against recorded fixtures without a browser. A snapshot may hold several
// pages; a successful Click moves to the next one, mimicking a pagination click.
//
// Layout is approximated: elements inside header or nav sit at the top of the
// page, everything else well below the fold. A data-top attribute overrides the
// vertical position for fixtures that need it.
package htmlsnapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/probe"
)

const (
	headerTop   = 0
	bodyTop     = 1000
	elementSize = 10
	maxContext  = 200
)

// Prober serves probe queries from parsed HTML documents.
type Prober struct {
	mu      sync.Mutex
	pages   []*goquery.Document
	current int
	nodes   map[int]*html.Node
	clicks  []probe.NavCandidate
	cands   []probe.NavCandidate
	scrolls int
}

// New parses each HTML string as one page.
func New(pages ...string) (*Prober, error) {
	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		readers[i] = strings.NewReader(p)
	}
	return NewFromReaders(readers...)
}

// NewFromReaders parses one page per reader.
func NewFromReaders(readers ...io.Reader) (*Prober, error) {
	if len(readers) == 0 {
		return nil, fmt.Errorf("htmlsnapshot: no pages")
	}
	p := &Prober{nodes: map[int]*html.Node{}}
	for i, r := range readers {
		doc, err := goquery.NewDocumentFromReader(r)
		if err != nil {
			return nil, fmt.Errorf("parse page %d: %w", i+1, err)
		}
		p.pages = append(p.pages, doc)
	}
	return p, nil
}

// Open loads one page per file path.
func Open(paths ...string) (*Prober, error) {
	readers := make([]io.Reader, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		readers = append(readers, f)
	}
	return NewFromReaders(readers...)
}

// Page returns the 1-based index of the page currently served.
func (p *Prober) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current + 1
}

// Clicked returns the candidates clicked so far, in order.
func (p *Prober) Clicked() []probe.NavCandidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.clicks)
}

// Scrolls counts scroll requests.
func (p *Prober) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls
}

func (p *Prober) doc() *goquery.Document {
	return p.pages[p.current]
}

// GateSignals collects the classifier inputs from the current page.
func (p *Prober) GateSignals(ctx context.Context) (probe.GateSignals, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.doc()
	sig := probe.GateSignals{
		RatingAnchors:    d.Find(patterns.RatingAnchor).Length(),
		HasPrice:         d.Find(patterns.Price).Length() > 0,
		Title:            strings.TrimSpace(d.Find("title").First().Text()),
	}
	d.Find(patterns.RatingIndicator).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		sig.RatingHints = append(sig.RatingHints, probe.RatingHint{
			Class:     s.AttrOr("class", ""),
			AriaLabel: s.AttrOr("aria-label", ""),
		})
		return len(sig.RatingHints) < patterns.MaxRatingHints
	})
	if h := innerText(d.Find(patterns.Heading).First()); h != "" {
		sig.Heading = strings.SplitN(h, "\n", 2)[0]
	}
	d.Find(patterns.CartControl).Each(func(_ int, s *goquery.Selection) {
		t := innerText(s)
		if t == "" {
			t = s.AttrOr("value", "")
		}
		if t != "" && len([]rune(t)) <= patterns.MaxControlTextLength {
			sig.ControlTexts = append(sig.ControlTexts, t)
		}
	})
	return sig, nil
}

// AnchorCount counts rating anchors on the current page.
func (p *Prober) AnchorCount(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc().Find(patterns.RatingAnchor).Length(), nil
}

// Cards returns each rating anchor with its ancestor texts.
func (p *Prober) Cards(ctx context.Context, q probe.CardQuery) ([]probe.CardProbe, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []probe.CardProbe
	p.doc().Find(patterns.RatingAnchor).Each(func(_ int, anchor *goquery.Selection) {
		card := probe.CardProbe{Label: anchor.AttrOr("aria-label", "")}
		node := anchor
		for i := 0; i < q.MaxDepth; i++ {
			node = node.Parent()
			if node.Length() == 0 {
				break
			}
			text := innerText(node)
			if len([]rune(text)) > q.MaxText {
				break
			}
			card.Ancestors = append(card.Ancestors, text)
		}
		out = append(out, card)
	})
	return out, nil
}

// NavCandidates describes the pagination candidates of the current page.
func (p *Prober) NavCandidates(ctx context.Context) ([]probe.NavCandidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.doc()
	p.nodes = map[int]*html.Node{}
	p.cands = nil
	index := map[*html.Node]int{}

	describe := func(s *goquery.Selection) *probe.NavCandidate {
		n := s.Get(0)
		if id, ok := index[n]; ok {
			return &p.cands[id]
		}
		c := probe.NavCandidate{
			ID:        len(p.cands),
			Tag:       n.Data,
			Role:      s.AttrOr("role", ""),
			Text:      truncate(innerText(s), maxContext),
			AriaLabel: s.AttrOr("aria-label", ""),
			Top:       top(s),
		}
		if !hiddenTree(n) {
			c.Width, c.Height = elementSize, elementSize
		}
		index[n] = c.ID
		p.nodes[c.ID] = n
		p.cands = append(p.cands, c)
		return &p.cands[c.ID]
	}

	d.Find(patterns.Clickable).Each(func(_ int, s *goquery.Selection) {
		t := innerText(s)
		_, hasAria := s.Attr("aria-label")
		if (t != "" && len([]rune(t)) <= patterns.MaxCandidateText) || hasAria {
			describe(s)
		}
	})

	// A pointer from describe is valid only until the next describe call.
	d.Find(patterns.PagerContainer).Each(func(_ int, container *goquery.Selection) {
		container.Find(patterns.PagerItem).Each(func(_ int, item *goquery.Selection) {
			describe(item).InPager = true
			if !active(item) {
				return
			}
			sib := item.Next()
			if sib.Length() == 0 && !item.Parent().IsSelection(container) {
				sib = item.Parent().Next()
			}
			if sib.Length() > 0 {
				next := describe(sib)
				next.InPager = true
				next.AfterActive = true
			}
		})
	})

	d.Find(patterns.SVGControl).Each(func(_ int, svg *goquery.Selection) {
		parent := svg.Closest(patterns.SVGParent)
		if parent.Length() == 0 {
			return
		}
		c := describe(parent)
		c.SVGParent = true
		c.ContextText = truncate(innerText(parent.Parent()), maxContext)
	})

	return slices.Clone(p.cands), nil
}

// Click records the click and moves to the next page, if any.
func (p *Prober) Click(ctx context.Context, id int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.nodes[id]; !ok || id >= len(p.cands) {
		return false, nil
	}
	p.clicks = append(p.clicks, p.cands[id])
	p.nodes = map[int]*html.Node{}
	if p.current < len(p.pages)-1 {
		p.current++
	}
	return true, nil
}

// Product reads the product title and main image.
func (p *Prober) Product(ctx context.Context) (domain.ProductInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.doc()
	var info domain.ProductInfo
	for _, sel := range patterns.ProductTitle {
		if t := innerText(d.Find(sel).First()); t != "" {
			info.Title = strings.SplitN(t, "\n", 2)[0]
			break
		}
	}
	for _, sel := range patterns.ProductImage {
		img := d.Find(sel).First()
		if src := img.AttrOr("src", img.AttrOr("data-src", "")); src != "" {
			info.Image = src
			break
		}
	}
	if info.Image == "" {
		d.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			w, _ := strconv.Atoi(img.AttrOr("width", "0"))
			h, _ := strconv.Atoi(img.AttrOr("height", "0"))
			if src := img.AttrOr("src", ""); w > 200 && h > 200 && src != "" {
				info.Image = src
				return false
			}
			return true
		})
	}
	return info, nil
}

// ScrollToFraction only counts the request.
func (p *Prober) ScrollToFraction(ctx context.Context, f float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return nil
}

// FocusFirstAnchor only counts the request.
func (p *Prober) FocusFirstAnchor(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return nil
}

func top(s *goquery.Selection) float64 {
	if v, ok := s.Attr("data-top"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if s.Closest("header, nav").Length() > 0 {
		return headerTop
	}
	return bodyTop
}

func active(s *goquery.Selection) bool {
	for _, c := range patterns.ActiveClasses {
		if s.HasClass(c) {
			return true
		}
	}
	return slices.Contains(patterns.ActiveAriaCurrent, s.AttrOr("aria-current", ""))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
