// Package playwright implements ports.Browser on playwright-go. It is the default
// driver.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/ports"
)

// LaunchArgs are passed to every Chromium instance.
var LaunchArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
}

var (
	installOnce sync.Once
	installErr  error
)

// Launcher starts one Playwright driver and Chromium per session.
type Launcher struct {
	logger  zerolog.Logger
	install bool
}

// NewLauncher creates a launcher. When install is true, the driver and Chromium are
// downloaded once per process before the first launch.
func NewLauncher(logger zerolog.Logger, install bool) *Launcher {
	return &Launcher{logger: logger.With().Str("driver", "playwright").Logger(), install: install}
}

// Name returns the driver name.
func (l *Launcher) Name() string { return "playwright" }

// Launch starts the driver, Chromium and a page configured by opts.
func (l *Launcher) Launch(ctx context.Context, opts ports.LaunchOptions) (ports.Browser, error) {
	if l.install {
		installOnce.Do(func() {
			installErr = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}, Verbose: false})
		})
		if installErr != nil {
			l.logger.Warn().Err(installErr).Msg("failed to install driver resources")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: start playwright: %v", domain.ErrDriver, err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     LaunchArgs,
	}
	if opts.ProxyURL != "" {
		proxy, err := proxyOption(opts.ProxyURL)
		if err != nil {
			_ = pw.Stop()
			return nil, err
		}
		launch.Proxy = proxy
	}

	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: launch chromium: %v", domain.ErrDriver, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:          &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight},
		UserAgent:         playwright.String(opts.UserAgent),
		IgnoreHttpsErrors: playwright.Bool(opts.ProxyURL != ""),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: new context: %v", domain.ErrDriver, err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: new page: %v", domain.ErrDriver, err)
	}

	l.logger.Debug().Bool("headless", opts.Headless).Bool("proxy", opts.ProxyURL != "").Msg("browser launched")
	return &Browser{pw: pw, browser: browser, page: page, quality: opts.ScreenshotQuality}, nil
}

// proxyOption splits credentials out of a proxy URL the way Chromium expects them.
func proxyOption(raw string) (*playwright.Proxy, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid proxy url")
	}
	p := &playwright.Proxy{Server: u.Scheme + "://" + u.Host}
	if u.User != nil {
		p.Username = playwright.String(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			p.Password = playwright.String(pass)
		}
	}
	return p, nil
}

// Browser drives a single page. Calls are serialized.
type Browser struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	quality int
	closed  bool
}

// Navigate does not hold the command lock, so the viewer can keep taking
// screenshots and sending input while the page loads.
func (b *Browser) Navigate(ctx context.Context, target string, timeout time.Duration) error {
	if err := b.live(ctx); err != nil {
		return err
	}
	_, err := b.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return b.classify(err)
}

// Evaluate runs a function expression in the page.
func (b *Browser) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	var out any
	err := b.do(ctx, func() error {
		var err error
		out, err = b.page.Evaluate(script, args...)
		return err
	})
	return out, err
}

// Screenshot captures the viewport as JPEG.
func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	var img []byte
	err := b.do(ctx, func() error {
		var err error
		img, err = b.page.Screenshot(playwright.PageScreenshotOptions{
			Type:    playwright.ScreenshotTypeJpeg,
			Quality: playwright.Int(b.quality),
		})
		return err
	})
	return img, err
}

// Input replays a viewer event with the page mouse or keyboard.
func (b *Browser) Input(ctx context.Context, ev domain.InputEvent) error {
	return b.do(ctx, func() error {
		mouse := b.page.Mouse()
		switch ev.Type {
		case domain.InputClick:
			return mouse.Click(ev.X, ev.Y)
		case domain.InputMouseMove:
			return mouse.Move(ev.X, ev.Y)
		case domain.InputMouseDown:
			if err := mouse.Move(ev.X, ev.Y); err != nil {
				return err
			}
			return mouse.Down()
		case domain.InputMouseUp:
			if err := mouse.Move(ev.X, ev.Y); err != nil {
				return err
			}
			return mouse.Up()
		case domain.InputScroll:
			return mouse.Wheel(ev.DeltaX, ev.DeltaY)
		case domain.InputKeyDown:
			return b.page.Keyboard().Press(ev.Key)
		default:
			return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidInput, ev.Type)
		}
	})
}

// Wait pauses for d or until ctx is done.
func (b *Browser) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ScrollBy scrolls the window by dx, dy.
func (b *Browser) ScrollBy(ctx context.Context, dx, dy float64) error {
	_, err := b.Evaluate(ctx, `([dx, dy]) => window.scrollBy(dx, dy)`, []float64{dx, dy})
	return err
}

// Close closes the browser and stops the driver. It is safe to call twice.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	errs := []error{b.browser.Close(), b.pw.Stop()}
	return errors.Join(errs...)
}

// do serializes a page command and marks closed-target failures as driver faults.
func (b *Browser) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page.IsClosed() {
		return fmt.Errorf("%w: page closed", domain.ErrDriver)
	}
	return b.classify(fn())
}

func (b *Browser) live(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page.IsClosed() {
		return fmt.Errorf("%w: page closed", domain.ErrDriver)
	}
	return nil
}

func (b *Browser) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTargetClosed) || b.page.IsClosed() {
		return fmt.Errorf("%w: %v", domain.ErrDriver, err)
	}
	return err
}
