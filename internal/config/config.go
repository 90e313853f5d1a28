// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/dropin-tui/internal/reveal"
	"github.com/jeranaias/dropin-tui/internal/util"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the main configuration structure.
type Config struct {
	Agent  AgentConfig  `toml:"agent" json:"agent"`
	Reveal RevealConfig `toml:"reveal" json:"reveal"`
	UI     UIConfig     `toml:"ui" json:"ui"`
	Log    LogConfig    `toml:"log" json:"log"`
}

// AgentConfig holds the remote agent connection settings.
type AgentConfig struct {
	// BaseURL of the agent; /stream and /health_check hang off it
	BaseURL string `toml:"base_url" json:"base_url"`

	// ConnectTimeoutSecs bounds dialing and waiting for response headers
	ConnectTimeoutSecs int `toml:"connect_timeout" json:"connect_timeout"`

	// HealthTimeoutSecs bounds the health probe
	HealthTimeoutSecs int `toml:"health_timeout" json:"health_timeout"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (a AgentConfig) ConnectTimeout() time.Duration {
	return time.Duration(a.ConnectTimeoutSecs) * time.Second
}

// HealthTimeout returns the health probe timeout as a duration.
func (a AgentConfig) HealthTimeout() time.Duration {
	return time.Duration(a.HealthTimeoutSecs) * time.Second
}

// RevealConfig controls the paced reveal of a streaming reply.
type RevealConfig struct {
	// TickMs is the reveal tick period in milliseconds
	TickMs int `toml:"tick_ms" json:"tick_ms"`

	// Tiers map a backlog bound to a step size, ascending
	Tiers []reveal.Tier `toml:"tiers" json:"tiers"`

	// BurstStep applies once the backlog exceeds the last tier
	BurstStep int `toml:"burst_step" json:"burst_step"`
}

// TickInterval returns the tick period as a duration.
func (r RevealConfig) TickInterval() time.Duration {
	return time.Duration(r.TickMs) * time.Millisecond
}

// Policy returns the step policy described by the tiers.
func (r RevealConfig) Policy() reveal.Policy {
	tiers := make([]reveal.Tier, len(r.Tiers))
	copy(tiers, r.Tiers)
	return reveal.Policy{Tiers: tiers, Burst: r.BurstStep}
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme"` // auto, dark, light
	Markdown       bool   `toml:"markdown" json:"markdown"`
	WordWrap       int    `toml:"word_wrap" json:"word_wrap"` // 0 = terminal width
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps"`
}

// LogConfig controls the diagnostic log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"` // debug, info, warn, error, off
	Path  string `toml:"path" json:"path"`   // empty = ~/.dropin/dropin.log
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTickMs  = 15
)

// Default returns a Config with sensible default values.
func Default() *Config {
	policy := reveal.DefaultPolicy()
	return &Config{
		Agent: AgentConfig{
			BaseURL:            DefaultBaseURL,
			ConnectTimeoutSecs: 10,
			HealthTimeoutSecs:  5,
		},
		Reveal: RevealConfig{
			TickMs:    DefaultTickMs,
			Tiers:     policy.Tiers,
			BurstStep: policy.Burst,
		},
		UI: UIConfig{
			Theme:          "auto",
			Markdown:       true,
			WordWrap:       0,
			ShowTimestamps: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the dropin configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".dropin"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns the log file used when log.path is empty.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dropin.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.dropin/config.toml, falling back to defaults when it does
// not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current value.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	// An explicit tiers list replaces the default one rather than merging.
	cfg.Reveal.Tiers = nil

	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	defaults := Default()

	if cfg.Agent.BaseURL == "" {
		cfg.Agent.BaseURL = defaults.Agent.BaseURL
	}
	cfg.Agent.BaseURL = strings.TrimRight(cfg.Agent.BaseURL, "/")
	if cfg.Agent.ConnectTimeoutSecs == 0 {
		cfg.Agent.ConnectTimeoutSecs = defaults.Agent.ConnectTimeoutSecs
	}
	if cfg.Agent.HealthTimeoutSecs == 0 {
		cfg.Agent.HealthTimeoutSecs = defaults.Agent.HealthTimeoutSecs
	}

	if cfg.Reveal.TickMs == 0 {
		cfg.Reveal.TickMs = defaults.Reveal.TickMs
	}
	if len(cfg.Reveal.Tiers) == 0 {
		cfg.Reveal.Tiers = defaults.Reveal.Tiers
	}
	if cfg.Reveal.BurstStep == 0 {
		cfg.Reveal.BurstStep = defaults.Reveal.BurstStep
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to path atomically.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# dropin configuration file")
	fmt.Fprintln(&buf, "# Changes to [reveal] and [ui] apply to a running session.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "off": true}
var validThemes = map[string]bool{"auto": true, "dark": true, "light": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Agent
	if u, err := url.Parse(c.Agent.BaseURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "agent.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Agent.BaseURL),
		})
	}
	if c.Agent.ConnectTimeoutSecs < 1 || c.Agent.ConnectTimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "agent.connect_timeout",
			Message: fmt.Sprintf("must be between 1 and 300 seconds, got %d", c.Agent.ConnectTimeoutSecs),
		})
	}
	if c.Agent.HealthTimeoutSecs < 1 || c.Agent.HealthTimeoutSecs > 60 {
		errs = append(errs, ValidationError{
			Field:   "agent.health_timeout",
			Message: fmt.Sprintf("must be between 1 and 60 seconds, got %d", c.Agent.HealthTimeoutSecs),
		})
	}

	// Reveal
	if c.Reveal.TickMs < 1 || c.Reveal.TickMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "reveal.tick_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Reveal.TickMs),
		})
	}
	if err := c.Reveal.Policy().Validate(); err != nil {
		errs = append(errs, ValidationError{Field: "reveal.tiers", Message: err.Error()})
	}

	// UI
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.WordWrap != 0 && (c.UI.WordWrap < 20 || c.UI.WordWrap > 400) {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: fmt.Sprintf("must be 0 or between 20 and 400, got %d", c.UI.WordWrap),
		})
	}

	// Log
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error, off", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DROPIN_* environment variables.
// Unparseable numeric values are ignored.
func (c *Config) ApplyEnvOverrides() {
	// DROPIN_BASE_URL
	if base := os.Getenv("DROPIN_BASE_URL"); base != "" {
		c.Agent.BaseURL = base
	}

	// DROPIN_TICK_MS
	if tick := os.Getenv("DROPIN_TICK_MS"); tick != "" {
		if ms, err := strconv.Atoi(tick); err == nil {
			c.Reveal.TickMs = ms
		}
	}

	// DROPIN_LOG_LEVEL
	if level := os.Getenv("DROPIN_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}

	// DROPIN_LOG_PATH
	if path := os.Getenv("DROPIN_LOG_PATH"); path != "" {
		c.Log.Path = path
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Reveal.Tiers = make([]reveal.Tier, len(c.Reveal.Tiers))
	copy(clone.Reveal.Tiers, c.Reveal.Tiers)
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
