package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 512, cfg.DefaultChunkSize)
	assert.Equal(t, 64, cfg.DefaultChunkOverlap)
	assert.Equal(t, 20, cfg.DefaultTopK)
	assert.InDelta(t, 0.3, cfg.DefaultScoreThreshold, 1e-9)
	assert.Equal(t, 20, cfg.ProgressStep)
	assert.Equal(t, 200*time.Millisecond, cfg.ProgressInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDelay)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("LOREKEEP_HTTP_ADDRESS", ":9999")
	t.Setenv("LOREKEEP_DEFAULT_CHUNK_SIZE", "128")
	t.Setenv("LOREKEEP_DEFAULT_CHUNK_OVERLAP", "16")
	t.Setenv("LOREKEEP_PROGRESS_INTERVAL", "50ms")
	t.Setenv("LOREKEEP_DEBUG", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddress)
	assert.Equal(t, 128, cfg.DefaultChunkSize)
	assert.Equal(t, 16, cfg.DefaultChunkOverlap)
	assert.Equal(t, 50*time.Millisecond, cfg.ProgressInterval)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero chunk size", key: "LOREKEEP_DEFAULT_CHUNK_SIZE", value: "0"},
		{name: "overlap at chunk size", key: "LOREKEEP_DEFAULT_CHUNK_OVERLAP", value: "512"},
		{name: "threshold above one", key: "LOREKEEP_DEFAULT_SCORE_THRESHOLD", value: "1.5"},
		{name: "zero top k", key: "LOREKEEP_DEFAULT_TOP_K", value: "0"},
		{name: "progress step above hundred", key: "LOREKEEP_PROGRESS_STEP", value: "150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	valid := &Config{
		HTTPAddress:           ":8080",
		DefaultChunkSize:      512,
		DefaultChunkOverlap:   64,
		DefaultTopK:           20,
		DefaultScoreThreshold: 0.3,
		ProgressStep:          20,
		ProgressInterval:      200 * time.Millisecond,
		SearchDelay:           0,
	}

	assert.NoError(t, validateConfig(valid))

	broken := *valid
	broken.SearchDelay = -time.Second
	assert.Error(t, validateConfig(&broken))
}
