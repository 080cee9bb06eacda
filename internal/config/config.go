// Package config loads runtime settings from the environment. A .env file in the
// working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Config is the full set of tunables for the server and the CLIs.
type Config struct {
	Port     string
	LogLevel zerolog.Level

	Driver            string
	Headless          bool
	ProxyURL          string
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	ScreenshotQuality int

	NavTimeout       time.Duration
	GateTimeout      time.Duration
	GatePollInterval time.Duration
	RenderRetries    int
	RenderInterval   time.Duration
	PageSettle       time.Duration
	NavStrategies    string

	MaxPagesDefault int
	MaxPagesLimit   int

	InputRate  float64
	InputBurst int

	DataDir        string
	StreamInterval time.Duration
	FrameInterval  time.Duration
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests need not touch the
// process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}
	cfg := Config{
		Port:              e.str("PORT", "5000"),
		Driver:            strings.ToLower(e.str("BROWSER_DRIVER", "playwright")),
		Headless:          e.bool("HEADLESS", true),
		ProxyURL:          ProxyURL(e.str("BRIGHT_DATA_PROXY", "")),
		ViewportWidth:     e.int("VIEWPORT_WIDTH", 1280),
		ViewportHeight:    e.int("VIEWPORT_HEIGHT", 800),
		UserAgent:         e.str("USER_AGENT", defaultUserAgent),
		ScreenshotQuality: e.int("SCREENSHOT_QUALITY", 50),
		NavTimeout:        e.duration("NAV_TIMEOUT", 60*time.Second),
		GateTimeout:       e.duration("GATE_TIMEOUT", 180*time.Second),
		GatePollInterval:  e.duration("GATE_POLL_INTERVAL", 500*time.Millisecond),
		RenderRetries:     e.int("RENDER_RETRIES", 10),
		RenderInterval:    e.duration("RENDER_INTERVAL", 500*time.Millisecond),
		PageSettle:        e.duration("PAGE_SETTLE", 1500*time.Millisecond),
		NavStrategies:     e.str("NAV_STRATEGIES", ""),
		MaxPagesDefault:   e.int("MAX_PAGES_DEFAULT", 50),
		MaxPagesLimit:     e.int("MAX_PAGES_LIMIT", 500),
		InputRate:         e.float("INPUT_RATE", 30),
		InputBurst:        e.int("INPUT_BURST", 60),
		DataDir:           e.str("DATA_DIR", ""),
		StreamInterval:    e.duration("STREAM_INTERVAL", 500*time.Millisecond),
		FrameInterval:     e.duration("FRAME_INTERVAL", 300*time.Millisecond),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(e.str("LOG_LEVEL", "info")))
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	cfg.LogLevel = level

	if cfg.Driver != "playwright" && cfg.Driver != "rod" {
		e.errs = append(e.errs, fmt.Sprintf("BROWSER_DRIVER: unknown driver %q (use 'playwright' or 'rod')", cfg.Driver))
	}
	if cfg.MaxPagesDefault < 1 || cfg.MaxPagesLimit < cfg.MaxPagesDefault {
		e.errs = append(e.errs, "MAX_PAGES_DEFAULT must be >= 1 and <= MAX_PAGES_LIMIT")
	}
	if cfg.ScreenshotQuality < 1 || cfg.ScreenshotQuality > 100 {
		e.errs = append(e.errs, "SCREENSHOT_QUALITY must be within 1..100")
	}
	if len(e.errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(e.errs, "; "))
	}
	return cfg, nil
}

// ProxyURL normalizes a proxy setting of the form user:pass@host:port by adding
// an http scheme when none is given.
func ProxyURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

type env struct {
	get  func(string) string
	errs []string
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := e.get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return f
}

func (e *env) bool(key string, def bool) bool {
	v := e.get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}
