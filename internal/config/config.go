// Package config loads process configuration from the environment (with
// an optional .env file and an optional YAML overlay for values an
// operator wants to persist across shells) into a typed Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every operator-tunable knob named in spec.md §6 "Process
// configuration", plus the supplemental ones introduced in SPEC_FULL.md §11.
type Config struct {
	BaseURL string `env:"CTXMCP_BASE_URL" yaml:"base_url"`
	Token   string `env:"CTXMCP_TOKEN" yaml:"token"`

	MaxLinesPerChunk int `env:"CTXMCP_MAX_LINES_PER_CHUNK" envDefault:"800" yaml:"max_lines_per_chunk"`

	RetrievalTimeoutMs int `env:"CTXMCP_RETRIEVAL_TIMEOUT_MS" envDefault:"60000" yaml:"retrieval_timeout_ms"`

	// Strategy overrides; zero means "not set, let the AIMD controller adapt."
	ConcurrencyOverride int `env:"CTXMCP_CONCURRENCY_OVERRIDE" yaml:"concurrency_override"`
	TimeoutMsOverride   int `env:"CTXMCP_TIMEOUT_MS_OVERRIDE" yaml:"timeout_ms_override"`
	DisableAdaptive     bool `env:"CTXMCP_DISABLE_ADAPTIVE" yaml:"disable_adaptive"`

	DisableBrowser bool `env:"CTXMCP_DISABLE_BROWSER" yaml:"disable_browser"`

	// EnhancerEndpoint selects the provider shape: "new" (Simplified),
	// "old" (Streamed), "claude", "openai", or "gemini".
	EnhancerEndpoint    string `env:"CTXMCP_ENHANCER_ENDPOINT" envDefault:"new" yaml:"enhancer_endpoint"`
	EnhancerBaseURL     string `env:"CTXMCP_ENHANCER_BASE_URL" yaml:"enhancer_base_url"`
	EnhancerToken       string `env:"CTXMCP_ENHANCER_TOKEN" yaml:"enhancer_token"`
	EnhancerModel       string `env:"CTXMCP_ENHANCER_MODEL" yaml:"enhancer_model"`
	DisableEnhancer     bool   `env:"CTXMCP_DISABLE_ENHANCER" yaml:"disable_enhancer"`

	RequestLogEnabled bool `env:"CTXMCP_REQUEST_LOG" yaml:"request_log"`

	LogLevel string `env:"CTXMCP_LOG_LEVEL" envDefault:"info" yaml:"log_level"`

	// Supplemental (SPEC_FULL.md §11).
	WatchMode       bool `env:"CTXMCP_WATCH_MODE" yaml:"watch_mode"`
	MetricsEnabled  bool `env:"CTXMCP_METRICS_ENABLED" yaml:"metrics_enabled"`
}

// Load reads .env (if present), then environment variables, then overlays
// an optional YAML file at yamlPath onto the string fields applyOverlay
// lists. Environment always wins over the YAML overlay.
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if yamlPath != "" {
		if data, err := os.ReadFile(yamlPath); err == nil {
			overlay := &Config{}
			if yerr := yaml.Unmarshal(data, overlay); yerr != nil {
				return nil, fmt.Errorf("parse config overlay %s: %w", yamlPath, yerr)
			}
			applyOverlay(cfg, overlay)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverlay fills BaseURL, Token, EnhancerBaseURL, EnhancerToken and
// EnhancerModel from overlay when they are empty, and EnhancerEndpoint
// when it is empty or still the default "new". No other field is
// overlaid: int fields, LogLevel and booleans come from the environment
// (or their defaults) only.
func applyOverlay(cfg, overlay *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = overlay.BaseURL
	}
	if cfg.Token == "" {
		cfg.Token = overlay.Token
	}
	if cfg.EnhancerEndpoint == "" || cfg.EnhancerEndpoint == "new" {
		if overlay.EnhancerEndpoint != "" {
			cfg.EnhancerEndpoint = overlay.EnhancerEndpoint
		}
	}
	if cfg.EnhancerBaseURL == "" {
		cfg.EnhancerBaseURL = overlay.EnhancerBaseURL
	}
	if cfg.EnhancerToken == "" {
		cfg.EnhancerToken = overlay.EnhancerToken
	}
	if cfg.EnhancerModel == "" {
		cfg.EnhancerModel = overlay.EnhancerModel
	}
}

// Normalize applies the base-URL scheme/trailing-slash rules from
// original_source/src/config.rs and validates the required fields.
func (c *Config) Normalize() error {
	c.BaseURL = normalizeBaseURL(c.BaseURL)
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if c.Token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if c.MaxLinesPerChunk <= 0 {
		c.MaxLinesPerChunk = DefaultMaxLinesPerChunk
	}
	return nil
}

func normalizeBaseURL(u string) string {
	switch {
	case strings.HasPrefix(u, "http://"):
		u = "https://" + strings.TrimPrefix(u, "http://")
	case strings.HasPrefix(u, "https://"):
		// already correct scheme
	case u != "":
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}

// DefaultYAMLPath returns ~/.ctxmcp/config.yaml, or "" if the home
// directory cannot be resolved.
func DefaultYAMLPath() string {
	dir := DefaultStateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStateDir returns ~/.ctxmcp, the process-wide (not per-project)
// state directory backing the config overlay and the HTTP request log, or
// "" if the home directory cannot be resolved.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "."+strings.TrimPrefix(StateDirName, "."))
}
