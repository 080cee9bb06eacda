// Package launcher selects the browser driver by name.
package launcher

import (
	"fmt"

	"github.com/rs/zerolog"

	"shopreviews/internal/adapters/playwright"
	"shopreviews/internal/adapters/rod"
	"shopreviews/internal/core/ports"
)

// New returns the launcher for driver ("playwright" or "rod").
func New(driver string, logger zerolog.Logger) (ports.Launcher, error) {
	switch driver {
	case "", "playwright":
		return playwright.NewLauncher(logger, true), nil
	case "rod":
		return rod.NewLauncher(logger), nil
	default:
		return nil, fmt.Errorf("unknown BROWSER_DRIVER: %s (use 'playwright' or 'rod')", driver)
	}
}
