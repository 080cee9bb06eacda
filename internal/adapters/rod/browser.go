// Package rod implements ports.Browser on go-rod with stealth page setup. It is
// the alternate driver, selected with BROWSER_DRIVER=rod.
package rod

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
	"github.com/ysmood/gson"

	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/ports"
)

// Launcher starts a local Chromium through the rod launcher.
type Launcher struct {
	logger zerolog.Logger
}

// NewLauncher creates a new Launcher.
func NewLauncher(logger zerolog.Logger) *Launcher {
	return &Launcher{logger: logger.With().Str("driver", "rod").Logger()}
}

// Name returns the driver name.
func (l *Launcher) Name() string { return "rod" }

// Launch starts Chromium and opens a stealth page configured by opts.
func (l *Launcher) Launch(ctx context.Context, opts ports.LaunchOptions) (ports.Browser, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")

	var user, pass string
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil || u.Host == "" {
			return nil, errors.New("invalid proxy url")
		}
		ln = ln.Proxy(u.Scheme + "://" + u.Host).Set("ignore-certificate-errors")
		if u.User != nil {
			user = u.User.Username()
			pass, _ = u.User.Password()
		}
	}

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch chromium: %v", domain.ErrDriver, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		return nil, fmt.Errorf("%w: connect: %v", domain.ErrDriver, err)
	}
	if user != "" {
		go func() {
			if err := browser.HandleAuth(user, pass)(); err != nil {
				l.logger.Debug().Err(err).Msg("proxy auth handler stopped")
			}
		}()
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		ln.Kill()
		return nil, fmt.Errorf("%w: stealth page: %v", domain.ErrDriver, err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		l.logger.Warn().Err(err).Msg("failed to set viewport")
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			l.logger.Warn().Err(err).Msg("failed to set user agent")
		}
	}

	l.logger.Debug().Bool("headless", opts.Headless).Bool("proxy", opts.ProxyURL != "").Msg("browser launched")
	return &Browser{launcher: ln, browser: browser, page: page, quality: opts.ScreenshotQuality}, nil
}

// Browser drives one stealth page. Calls are serialized.
type Browser struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	quality  int
	closed   bool
}

// Navigate does not hold the command lock, so the viewer can keep taking
// screenshots and sending input while the page loads.
func (b *Browser) Navigate(ctx context.Context, target string, timeout time.Duration) error {
	page, err := b.live(ctx)
	if err != nil {
		return err
	}
	p := page.Context(ctx).Timeout(timeout)
	if err := p.Navigate(target); err != nil {
		return classify(err)
	}
	return classify(p.WaitLoad())
}

// Evaluate runs a function expression in the page.
func (b *Browser) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	var out any
	err := b.do(ctx, func(p *rod.Page) error {
		res, err := p.Eval(script, args...)
		if err != nil {
			return err
		}
		out = res.Value.Val()
		return nil
	})
	return out, err
}

// Screenshot captures the viewport as JPEG.
func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	var img []byte
	err := b.do(ctx, func(p *rod.Page) error {
		var err error
		img, err = p.Screenshot(false, &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: gson.Int(b.quality),
		})
		return err
	})
	return img, err
}

// Input replays a viewer event with the page mouse or keyboard.
func (b *Browser) Input(ctx context.Context, ev domain.InputEvent) error {
	return b.do(ctx, func(p *rod.Page) error {
		pt := proto.Point{X: ev.X, Y: ev.Y}
		switch ev.Type {
		case domain.InputClick:
			if err := p.Mouse.MoveTo(pt); err != nil {
				return err
			}
			return p.Mouse.Click(proto.InputMouseButtonLeft, 1)
		case domain.InputMouseMove:
			return p.Mouse.MoveTo(pt)
		case domain.InputMouseDown:
			if err := p.Mouse.MoveTo(pt); err != nil {
				return err
			}
			return p.Mouse.Down(proto.InputMouseButtonLeft, 1)
		case domain.InputMouseUp:
			if err := p.Mouse.MoveTo(pt); err != nil {
				return err
			}
			return p.Mouse.Up(proto.InputMouseButtonLeft, 1)
		case domain.InputScroll:
			return p.Mouse.Scroll(ev.DeltaX, ev.DeltaY, 1)
		case domain.InputKeyDown:
			if k, ok := KeyFor(ev.Key); ok {
				return p.Keyboard.Press(k)
			}
			return p.InsertText(ev.Key)
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
	_, err := b.Evaluate(ctx, `(dx, dy) => window.scrollBy(dx, dy)`, dx, dy)
	return err
}

// Close closes the browser and kills the Chromium process. It is safe to call twice.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

func (b *Browser) do(ctx context.Context, fn func(p *rod.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("%w: page closed", domain.ErrDriver)
	}
	return classify(fn(b.page.Context(ctx)))
}

func (b *Browser) live(ctx context.Context) (*rod.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("%w: page closed", domain.ErrDriver)
	}
	return b.page, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if fatal(err) {
		return fmt.Errorf("%w: %v", domain.ErrDriver, err)
	}
	return err
}

// fatal reports errors after which the session cannot continue.
func fatal(err error) bool {
	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) && strings.Contains(cdpErr.Message, "No target with given id") {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "Target closed") ||
		strings.Contains(msg, "websocket: close")
}

// namedKeys maps DOM key names to rod keys. Printable characters are typed as text.
var namedKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Backspace":  input.Backspace,
	"Escape":     input.Escape,
	"Delete":     input.Delete,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
	" ":          input.Space,
}

// KeyFor returns the rod key for a DOM key name.
func KeyFor(name string) (input.Key, bool) {
	k, ok := namedKeys[name]
	return k, ok
}
