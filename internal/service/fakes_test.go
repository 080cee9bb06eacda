package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"shopreviews/internal/adapters/htmlsnapshot"
	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/ports"
	"shopreviews/internal/core/probe"
)

const fixtures = "../adapters/htmlsnapshot/testdata/"

type fakeBrowser struct {
	mu          sync.Mutex
	navigated   []string
	inputs      []domain.InputEvent
	screenshots int
	scrolls     int
	closed      int
	navErr      error

	// navHold, when set, keeps Navigate in flight until it is closed.
	navHold    chan struct{}
	loading    bool
	loadFrames int
	loadInputs int
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string, _ time.Duration) error {
	b.mu.Lock()
	b.navigated = append(b.navigated, url)
	hold := b.navHold
	b.loading = hold != nil
	b.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
		}
		b.mu.Lock()
		b.loading = false
		b.mu.Unlock()
	}
	return b.navErr
}

func (b *fakeBrowser) Evaluate(context.Context, string, ...any) (any, error) {
	return nil, errors.New("evaluate not supported by fake")
}

func (b *fakeBrowser) Screenshot(context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.screenshots++
	if b.loading {
		b.loadFrames++
	}
	return []byte("jpeg"), nil
}

func (b *fakeBrowser) Input(_ context.Context, ev domain.InputEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inputs = append(b.inputs, ev)
	if b.loading {
		b.loadInputs++
	}
	return nil
}

func (b *fakeBrowser) Wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (b *fakeBrowser) ScrollBy(context.Context, float64, float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrolls++
	return nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func (b *fakeBrowser) inputCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inputs)
}

func (b *fakeBrowser) closeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type fakeLauncher struct {
	browser *fakeBrowser
	err     error
}

func (l *fakeLauncher) Name() string { return "fake" }

func (l *fakeLauncher) Launch(context.Context, ports.LaunchOptions) (ports.Browser, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

type fakeDownloader struct{}

func (fakeDownloader) Download(context.Context, string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("image-bytes")), "image/png", nil
}

// inputGate keeps the page gated until the viewer has sent an input event.
type inputGate struct {
	*htmlsnapshot.Prober
	browser *fakeBrowser
}

func (g *inputGate) GateSignals(ctx context.Context) (probe.GateSignals, error) {
	if g.browser.inputCount() == 0 {
		return probe.GateSignals{Title: "Security Verification"}, nil
	}
	return g.Prober.GateSignals(ctx)
}

// progressRecorder samples job progress each time the loop extracts cards.
type progressRecorder struct {
	*htmlsnapshot.Prober
	job  *domain.Job
	mu   sync.Mutex
	seen []int
}

func (p *progressRecorder) Cards(ctx context.Context, q probe.CardQuery) ([]probe.CardProbe, error) {
	p.mu.Lock()
	p.seen = append(p.seen, p.job.Progress())
	p.mu.Unlock()
	return p.Prober.Cards(ctx, q)
}

type brokenCards struct {
	*htmlsnapshot.Prober
}

func (brokenCards) Cards(context.Context, probe.CardQuery) ([]probe.CardProbe, error) {
	return nil, errors.Join(domain.ErrDriver, errors.New("target closed"))
}

type panickingProduct struct {
	*htmlsnapshot.Prober
}

func (panickingProduct) Product(context.Context) (domain.ProductInfo, error) {
	panic("unexpected nil element")
}
