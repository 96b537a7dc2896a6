package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	// Server settings
	HTTPAddress string
	Debug       bool

	// Creation-time defaults for new knowledge bases
	DefaultChunkSize      int
	DefaultChunkOverlap   int
	DefaultTopK           int
	DefaultScoreThreshold float64

	// Indexing progress simulation
	ProgressStep     int
	ProgressInterval time.Duration

	// Artificial latency before a search scans the corpus
	SearchDelay time.Duration
}

// LoadConfig loads configuration from files and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Configure environment variables before reading the config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":           "LOREKEEP_HTTP_ADDRESS",
		"Debug":                 "LOREKEEP_DEBUG",
		"DefaultChunkSize":      "LOREKEEP_DEFAULT_CHUNK_SIZE",
		"DefaultChunkOverlap":   "LOREKEEP_DEFAULT_CHUNK_OVERLAP",
		"DefaultTopK":           "LOREKEEP_DEFAULT_TOP_K",
		"DefaultScoreThreshold": "LOREKEEP_DEFAULT_SCORE_THRESHOLD",
		"ProgressStep":          "LOREKEEP_PROGRESS_STEP",
		"ProgressInterval":      "LOREKEEP_PROGRESS_INTERVAL",
		"SearchDelay":           "LOREKEEP_SEARCH_DELAY",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("lorekeep")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.lorekeep")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("Debug", false)

	v.SetDefault("DefaultChunkSize", 512)
	v.SetDefault("DefaultChunkOverlap", 64)
	v.SetDefault("DefaultTopK", 20)
	v.SetDefault("DefaultScoreThreshold", 0.3)

	v.SetDefault("ProgressStep", 20)
	v.SetDefault("ProgressInterval", "200ms")

	v.SetDefault("SearchDelay", "300ms")
}

func validateConfig(config *Config) error {
	var problems []string

	if config.HTTPAddress == "" {
		problems = append(problems, "http address must not be empty")
	}

	if config.DefaultChunkSize < 1 {
		problems = append(problems, fmt.Sprintf("default chunk size must be at least 1, got %d", config.DefaultChunkSize))
	}

	if config.DefaultChunkOverlap < 0 || config.DefaultChunkOverlap >= config.DefaultChunkSize {
		problems = append(problems, fmt.Sprintf("default chunk overlap must be in [0, %d), got %d", config.DefaultChunkSize, config.DefaultChunkOverlap))
	}

	if config.DefaultTopK < 1 {
		problems = append(problems, fmt.Sprintf("default top k must be at least 1, got %d", config.DefaultTopK))
	}

	if config.DefaultScoreThreshold < 0 || config.DefaultScoreThreshold > 1 {
		problems = append(problems, fmt.Sprintf("default score threshold must be in [0, 1], got %g", config.DefaultScoreThreshold))
	}

	if config.ProgressStep < 1 || config.ProgressStep > 100 {
		problems = append(problems, fmt.Sprintf("progress step must be in [1, 100], got %d", config.ProgressStep))
	}

	if config.ProgressInterval < 0 {
		problems = append(problems, "progress interval must not be negative")
	}

	if config.SearchDelay < 0 {
		problems = append(problems, "search delay must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}
