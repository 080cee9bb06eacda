package probe

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/ports"
)

//go:embed scripts/*.js
var scriptFS embed.FS

var (
	gateScript    = mustScript("gate.js")
	countScript   = mustScript("count.js")
	cardsScript   = mustScript("cards.js")
	navScript     = mustScript("nav.js")
	clickScript   = mustScript("click.js")
	productScript = mustScript("product.js")
	scrollScript  = mustScript("scroll.js")
	focusScript   = mustScript("focus.js")
)

func mustScript(name string) string {
	b, err := scriptFS.ReadFile("scripts/" + name)
	if err != nil {
		panic(fmt.Sprintf("probe: missing script %s: %v", name, err))
	}
	return string(b)
}

// ScriptProber runs the embedded probe scripts through a live browser.
type ScriptProber struct {
	browser ports.Browser
}

// NewScriptProber creates a prober bound to browser.
func NewScriptProber(browser ports.Browser) *ScriptProber {
	return &ScriptProber{browser: browser}
}

// GateSignals collects the classifier inputs from the live page.
func (p *ScriptProber) GateSignals(ctx context.Context) (GateSignals, error) {
	var out GateSignals
	err := p.eval(ctx, gateScript, map[string]any{
		"anchor":        patterns.RatingAnchor,
		"indicator":     patterns.RatingIndicator,
		"heading":       patterns.Heading,
		"price":         patterns.Price,
		"controls":      patterns.CartControl,
		"maxControlLen": patterns.MaxControlTextLength,
		"maxHints":      patterns.MaxRatingHints,
	}, &out)
	return out, err
}

// AnchorCount counts rating anchors currently rendered.
func (p *ScriptProber) AnchorCount(ctx context.Context) (int, error) {
	var n int
	err := p.eval(ctx, countScript, map[string]any{"anchor": patterns.RatingAnchor}, &n)
	return n, err
}

// Cards returns each rating anchor with its ancestor texts.
func (p *ScriptProber) Cards(ctx context.Context, q CardQuery) ([]CardProbe, error) {
	var out []CardProbe
	err := p.eval(ctx, cardsScript, map[string]any{
		"anchor":   patterns.RatingAnchor,
		"maxDepth": q.MaxDepth,
		"maxText":  q.MaxText,
	}, &out)
	return out, err
}

// NavCandidates tags and describes every element that might advance pagination.
func (p *ScriptProber) NavCandidates(ctx context.Context) ([]NavCandidate, error) {
	var out []NavCandidate
	err := p.eval(ctx, navScript, map[string]any{
		"attr":          patterns.CandidateAttr,
		"clickable":     patterns.Clickable,
		"pager":         patterns.PagerContainer,
		"pagerItems":    patterns.PagerItem,
		"svg":           patterns.SVGControl,
		"svgParent":     patterns.SVGParent,
		"activeClasses": patterns.ActiveClasses,
		"activeAria":    patterns.ActiveAriaCurrent,
		"maxText":       patterns.MaxCandidateText,
	}, &out)
	return out, err
}

// Click clicks the tagged candidate with the given id.
func (p *ScriptProber) Click(ctx context.Context, id int) (bool, error) {
	var ok bool
	err := p.eval(ctx, clickScript, map[string]any{"attr": patterns.CandidateAttr, "id": id}, &ok)
	return ok, err
}

// Product reads the product title and main image.
func (p *ScriptProber) Product(ctx context.Context) (domain.ProductInfo, error) {
	var out domain.ProductInfo
	err := p.eval(ctx, productScript, map[string]any{
		"titles": patterns.ProductTitle,
		"images": patterns.ProductImage,
	}, &out)
	return out, err
}

// ScrollToFraction scrolls to fraction f of the document height.
func (p *ScriptProber) ScrollToFraction(ctx context.Context, f float64) error {
	_, err := p.browser.Evaluate(ctx, scrollScript, f)
	return err
}

// FocusFirstAnchor scrolls the first rating anchor into view.
func (p *ScriptProber) FocusFirstAnchor(ctx context.Context) error {
	_, err := p.browser.Evaluate(ctx, focusScript, patterns.RatingAnchor)
	return err
}

func (p *ScriptProber) eval(ctx context.Context, script string, arg any, out any) error {
	v, err := p.browser.Evaluate(ctx, script, arg)
	if err != nil {
		return err
	}
	return Decode(v, out)
}

// Decode converts an evaluation result into out. Probe scripts return JSON strings;
// plain values (numbers, booleans) returned by drivers are re-encoded first.
func Decode(v any, out any) error {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode probe result: %w", err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode probe result: %w", err)
	}
	return nil
}
