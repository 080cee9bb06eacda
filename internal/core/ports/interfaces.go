package ports

import (
	"context"
	"io"
	"time"

	"shopreviews/internal/core/domain"
)

// Browser is the capability interface the core needs from a browser-automation
// driver. Implementations serialize commands against a single page.
type Browser interface {
	// Navigate loads url. Errors are advisory: the page may be partially loaded.
	// Screenshot and Input may be called while a navigation is in flight.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Evaluate runs a JS function expression in the page with an optional argument
	// and returns its result. Probe scripts return JSON strings.
	Evaluate(ctx context.Context, script string, args ...any) (any, error)

	// Screenshot captures the viewport as JPEG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Input replays a synthetic input event at page coordinates.
	Input(ctx context.Context, ev domain.InputEvent) error

	// Wait pauses for d or until ctx is done.
	Wait(ctx context.Context, d time.Duration) error

	// ScrollBy scrolls the window by the given offsets.
	ScrollBy(ctx context.Context, dx, dy float64) error

	// Close releases the page, the browser and the driver process.
	Close() error
}

// LaunchOptions configures a browser session.
type LaunchOptions struct {
	Headless          bool
	ProxyURL          string
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	ScreenshotQuality int
}

// Launcher starts browser sessions. Failures wrap domain.ErrDriver.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
	Name() string
}

// Downloader fetches remote resources such as product images.
type Downloader interface {
	// Download returns a ReadCloser the caller must close, plus the content type.
	Download(ctx context.Context, url string) (io.ReadCloser, string, error)
}

// Storage persists per-job artifacts.
type Storage interface {
	// InitJob creates the job directory structure.
	InitJob(ctx context.Context, jobID string) error

	// SaveInput saves the job request (URL, page budget, timestamp).
	SaveInput(ctx context.Context, jobID string, data []byte) error

	// SaveReviews saves the final review list as JSON.
	SaveReviews(ctx context.Context, jobID string, data []byte) error

	// SaveFile saves an arbitrary artifact (product image, final screenshot).
	SaveFile(ctx context.Context, jobID string, reader io.Reader, filename string) error

	// GetJobPath returns the storage path for a given job ID.
	GetJobPath(jobID string) string
}
