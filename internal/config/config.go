// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/kelseyhightower/envconfig"

	"github.com/jeranaias/ragdesk/internal/offline"
	"github.com/jeranaias/ragdesk/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragdesk configuration.
type Config struct {
	Backend   BackendConfig   `toml:"backend" json:"backend"`
	Storage   StorageConfig   `toml:"storage" json:"storage"`
	Stream    StreamConfig    `toml:"stream" json:"stream"`
	Documents DocumentsConfig `toml:"documents" json:"documents"`
	Log       LogConfig       `toml:"log" json:"log"`
}

// BackendConfig describes the RAG service.
type BackendConfig struct {
	// URL is the service base URL.
	URL string `toml:"url" json:"url"`
	// TimeoutSecs bounds one request including retries. 0 disables it.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the retry count for transient failures.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RateLimit is requests per second. 0 disables limiting.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// Offline restricts URL to loopback hosts.
	Offline bool `toml:"offline" json:"offline"`
}

// StorageConfig selects where chat history is kept.
type StorageConfig struct {
	// Driver is "sqlite" or "json".
	Driver string `toml:"driver" json:"driver"`
	// Path is the database file or directory. Empty means ~/.ragdesk/history.
	Path string `toml:"path" json:"path"`
	// MaxSessions caps the json driver. 0 keeps everything.
	MaxSessions int `toml:"max_sessions" json:"max_sessions"`
}

// StreamConfig controls how answers are revealed.
type StreamConfig struct {
	// TokenIntervalMs is the pause between revealed tokens.
	TokenIntervalMs int `toml:"token_interval_ms" json:"token_interval_ms"`
	// WordWrap is the markdown wrap column. 0 disables wrapping.
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// Style is auto, dark, light, notty or plain.
	Style string `toml:"style" json:"style"`
}

// DocumentsConfig points at the directory the backend ingests from.
type DocumentsConfig struct {
	// Dir is watched for changes. Empty disables watching.
	Dir string `toml:"dir" json:"dir"`
	// Include holds doublestar globs relative to Dir.
	Include []string `toml:"include" json:"include"`
	// DebounceMs is how long a file must be quiet before it is reported.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `toml:"level" json:"level"`
	Development bool   `toml:"development" json:"development"`
	// File receives log output. Empty means ~/.ragdesk/ragdesk.log.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         "http://127.0.0.1:8000",
			TimeoutSecs: 120,
			MaxRetries:  3,
			RateLimit:   5,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Stream: StreamConfig{
			TokenIntervalMs: 20,
			WordWrap:        80,
			Style:           "auto",
		},
		Documents: DocumentsConfig{
			Include:    []string{"**/*.pdf", "**/*.docx", "**/*.txt", "**/*.md"},
			DebounceMs: 500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// BackendTimeout returns Backend.TimeoutSecs as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// TokenInterval returns Stream.TokenIntervalMs as a duration.
func (c *Config) TokenInterval() time.Duration {
	return time.Duration(c.Stream.TokenIntervalMs) * time.Millisecond
}

// Debounce returns Documents.DebounceMs as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Documents.DebounceMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragdesk configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RAGDESK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragdesk"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// StoragePath returns Storage.Path, or the default under ConfigDir.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return expandHome(c.Storage.Path), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// LogPath returns Log.File, or the default under ConfigDir.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return expandHome(c.Log.File), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ragdesk.log"), nil
}

// DocumentsDir returns Documents.Dir with ~ expanded.
func (c *Config) DocumentsDir() string {
	return expandHome(c.Documents.Dir)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ConfigDir.
// TOML is tried first, then JSON; defaults apply when neither exists.
// Environment overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(tomlPath); statErr == nil {
		return LoadFromPath(tomlPath)
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	return finish(Default())
}

// LoadFromPath loads configuration from a specific file with full validation.
// Keys missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
// Zero is meaningful for TimeoutSecs, RateLimit, MaxRetries and
// TokenIntervalMs, so those are left alone.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Backend.URL == "" {
		cfg.Backend.URL = defaults.Backend.URL
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaults.Storage.Driver
	}
	if cfg.Stream.Style == "" {
		cfg.Stream.Style = defaults.Stream.Style
	}
	if cfg.Documents.Include == nil {
		cfg.Documents.Include = defaults.Documents.Include
	}
	if cfg.Documents.DebounceMs == 0 {
		cfg.Documents.DebounceMs = defaults.Documents.DebounceMs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0o600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ragdesk configuration file\n")
	buf.WriteString("# Environment variables (RAGDESK_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validDrivers = map[string]bool{"sqlite": true, "json": true, "memory": true}
	validStyles  = map[string]bool{"auto": true, "dark": true, "light": true, "notty": true, "plain": true}
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate validates the configuration and returns ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Backend
	if err := offline.ValidateURL(c.Backend.URL, c.Backend.Offline); err != nil {
		add("backend.url", "%v: '%s'", err, c.Backend.URL)
	}
	if c.Backend.TimeoutSecs < 0 {
		add("backend.timeout_secs", "must not be negative")
	}
	if c.Backend.MaxRetries < 0 || c.Backend.MaxRetries > 10 {
		add("backend.max_retries", "must be between 0 and 10, got %d", c.Backend.MaxRetries)
	}
	if c.Backend.RateLimit < 0 {
		add("backend.rate_limit", "must not be negative")
	}

	// Storage
	if !validDrivers[strings.ToLower(c.Storage.Driver)] {
		add("storage.driver", "invalid driver '%s', must be one of: sqlite, json, memory", c.Storage.Driver)
	}
	if c.Storage.MaxSessions < 0 {
		add("storage.max_sessions", "must not be negative")
	}

	// Stream
	if c.Stream.TokenIntervalMs < 0 || c.Stream.TokenIntervalMs > 1000 {
		add("stream.token_interval_ms", "must be between 0 and 1000, got %d", c.Stream.TokenIntervalMs)
	}
	if c.Stream.WordWrap < 0 {
		add("stream.word_wrap", "must not be negative")
	}
	if !validStyles[strings.ToLower(c.Stream.Style)] {
		add("stream.style", "invalid style '%s', must be one of: auto, dark, light, notty, plain", c.Stream.Style)
	}

	// Documents
	for _, p := range c.Documents.Include {
		if !doublestar.ValidatePattern(p) {
			add("documents.include", "invalid pattern '%s'", p)
		}
	}
	if c.Documents.DebounceMs < 0 {
		add("documents.debounce_ms", "must not be negative")
	}

	// Log
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// envOverrides lists the RAGDESK_* variables. Unset variables stay nil.
type envOverrides struct {
	BackendURL      *string  `split_words:"true"`
	BackendTimeout  *int     `split_words:"true"`
	BackendRetries  *int     `split_words:"true"`
	RateLimit       *float64 `split_words:"true"`
	Offline         *bool
	Storage         *string
	StoragePath     *string `split_words:"true"`
	TokenIntervalMs *int    `split_words:"true"`
	Style           *string
	DocumentsDir    *string `split_words:"true"`
	LogLevel        *string `split_words:"true"`
	LogFile         *string `split_words:"true"`
	Debug           *bool
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGDESK_BACKEND_URL, RAGDESK_BACKEND_TIMEOUT, RAGDESK_BACKEND_RETRIES
//   - RAGDESK_RATE_LIMIT, RAGDESK_OFFLINE
//   - RAGDESK_STORAGE (driver), RAGDESK_STORAGE_PATH
//   - RAGDESK_TOKEN_INTERVAL_MS, RAGDESK_STYLE
//   - RAGDESK_DOCUMENTS_DIR
//   - RAGDESK_LOG_LEVEL, RAGDESK_LOG_FILE
//   - RAGDESK_DEBUG: development logging at debug level
func (c *Config) ApplyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process("RAGDESK", &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}

	setString(&c.Backend.URL, env.BackendURL)
	setInt(&c.Backend.TimeoutSecs, env.BackendTimeout)
	setInt(&c.Backend.MaxRetries, env.BackendRetries)
	if env.RateLimit != nil {
		c.Backend.RateLimit = *env.RateLimit
	}
	if env.Offline != nil {
		c.Backend.Offline = *env.Offline
	}
	setString(&c.Storage.Driver, env.Storage)
	setString(&c.Storage.Path, env.StoragePath)
	setInt(&c.Stream.TokenIntervalMs, env.TokenIntervalMs)
	setString(&c.Stream.Style, env.Style)
	setString(&c.Documents.Dir, env.DocumentsDir)
	setString(&c.Log.Level, env.LogLevel)
	setString(&c.Log.File, env.LogFile)
	if env.Debug != nil && *env.Debug {
		c.Log.Level = "debug"
		c.Log.Development = true
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "backend.url").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Keys returns all configuration keys in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := section.Tag.Get("toml")
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Documents.Include != nil {
		clone.Documents.Include = append([]string(nil), c.Documents.Include...)
	}
	return &clone
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
