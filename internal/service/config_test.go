package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopreviews/internal/config"
	"shopreviews/internal/core/paginate"
)

func TestOptionsFromConfig(t *testing.T) {
	env := map[string]string{
		"HEADLESS":          "false",
		"BRIGHT_DATA_PROXY": "u:p@proxy.local:22225",
		"GATE_TIMEOUT":      "90s",
		"NAV_STRATEGIES":    "aria-next,next-text",
		"MAX_PAGES_LIMIT":   "80",
		"INPUT_RATE":        "5",
	}
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.False(t, opts.Launch.Headless)
	assert.Equal(t, "http://u:p@proxy.local:22225", opts.Launch.ProxyURL)
	assert.Equal(t, 90*time.Second, opts.GateTimeout)
	assert.Equal(t, []paginate.Strategy{paginate.AriaNext, paginate.NextText}, opts.Strategies)
	assert.Equal(t, 1, opts.MinCards)

	mopts := ManagerOptionsFromConfig(cfg)
	assert.Equal(t, 80, mopts.MaxPagesLimit)
	assert.Equal(t, 50, mopts.DefaultMaxPages)
	assert.InDelta(t, 5.0, mopts.InputRate, 0.001)
}

func TestOptionsFromConfig_BadStrategy(t *testing.T) {
	cfg, err := config.FromEnv(func(k string) string {
		if k == "NAV_STRATEGIES" {
			return "next-text,teleport"
		}
		return ""
	})
	require.NoError(t, err)
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
