package service

import (
	"shopreviews/internal/config"
	"shopreviews/internal/core/paginate"
	"shopreviews/internal/core/ports"
)

// OptionsFromConfig maps environment settings onto orchestrator options.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	order, err := paginate.ParseStrategies(cfg.NavStrategies)
	if err != nil {
		return Options{}, err
	}
	opts := DefaultOptions()
	opts.Launch = ports.LaunchOptions{
		Headless:          cfg.Headless,
		ProxyURL:          cfg.ProxyURL,
		ViewportWidth:     cfg.ViewportWidth,
		ViewportHeight:    cfg.ViewportHeight,
		UserAgent:         cfg.UserAgent,
		ScreenshotQuality: cfg.ScreenshotQuality,
	}
	opts.NavTimeout = cfg.NavTimeout
	opts.GateTimeout = cfg.GateTimeout
	opts.GatePollInterval = cfg.GatePollInterval
	opts.RenderRetries = cfg.RenderRetries
	opts.RenderInterval = cfg.RenderInterval
	opts.PageSettle = cfg.PageSettle
	opts.Strategies = order
	return opts, nil
}

// ManagerOptionsFromConfig maps page bounds and input throttling.
func ManagerOptionsFromConfig(cfg config.Config) ManagerOptions {
	opts := DefaultManagerOptions()
	opts.DefaultMaxPages = cfg.MaxPagesDefault
	opts.MaxPagesLimit = cfg.MaxPagesLimit
	opts.InputRate = cfg.InputRate
	opts.InputBurst = cfg.InputBurst
	return opts
}
