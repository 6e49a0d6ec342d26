// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for mucgpt.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.mucgpt/config.toml
//   - ~/.mucgpt/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/storage"
	"github.com/it-at-m/mucgpt-sub002/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mucgpt configuration.
type Config struct {
	// Backend connection
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Request defaults for new conversations
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Stream processing
	Stream StreamConfig `toml:"stream" json:"stream"`

	// Conversation persistence
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// Prometheus endpoint
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
}

// BackendConfig describes the chat backend.
type BackendConfig struct {
	BaseURL     string `toml:"base_url" json:"base_url"`
	ChatPath    string `toml:"chat_path" json:"chat_path"`
	APIKey      string `toml:"api_key" json:"api_key,omitempty"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
	MaxRetries  int    `toml:"max_retries" json:"max_retries"`
}

// Timeout returns TimeoutSecs as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// ChatConfig holds the request settings used for new conversations.
type ChatConfig struct {
	Model           string   `toml:"model" json:"model"`
	Language        string   `toml:"language" json:"language"`
	SystemMessage   string   `toml:"system_message" json:"system_message"`
	Temperature     float64  `toml:"temperature" json:"temperature"`
	MaxOutputTokens int      `toml:"max_output_tokens" json:"max_output_tokens"`
	EnabledTools    []string `toml:"enabled_tools" json:"enabled_tools,omitempty"`
}

// ToModel converts the section into the per-conversation config.
func (c ChatConfig) ToModel() model.ChatConfig {
	return model.ChatConfig{
		Model:           c.Model,
		Language:        c.Language,
		SystemMessage:   c.SystemMessage,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		EnabledTools:    append([]string(nil), c.EnabledTools...),
	}
}

// StreamConfig tunes stream decoding and UI refresh.
type StreamConfig struct {
	NotifyDebounceMs int `toml:"notify_debounce_ms" json:"notify_debounce_ms"`
	NotifyMaxWaitMs  int `toml:"notify_max_wait_ms" json:"notify_max_wait_ms"`
	MaxFrameBytes    int `toml:"max_frame_bytes" json:"max_frame_bytes"`
}

// Debounce returns NotifyDebounceMs as a duration.
func (s StreamConfig) Debounce() time.Duration {
	return time.Duration(s.NotifyDebounceMs) * time.Millisecond
}

// MaxWait returns NotifyMaxWaitMs as a duration.
func (s StreamConfig) MaxWait() time.Duration {
	return time.Duration(s.NotifyMaxWaitMs) * time.Millisecond
}

// StorageConfig selects the persistence engine.
type StorageConfig struct {
	// Engine is one of file, sqlite, pebble, memory
	Engine string `toml:"engine" json:"engine"`

	// Dir holds the engine's data. Empty means ~/.mucgpt/conversations
	Dir string `toml:"dir" json:"dir"`

	// MaxConversations limits stored conversations (0 = unlimited)
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
}

// ResolvedDir returns Dir or the default conversation directory.
func (s StorageConfig) ResolvedDir() (string, error) {
	if s.Dir != "" {
		return s.Dir, nil
	}
	return storage.DefaultDir()
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://localhost:8080",
			ChatPath:    "/api/backend/chatstream",
			TimeoutSecs: 300,
			MaxRetries:  3,
		},

		Chat: ChatConfig{
			Model:           "gpt-4o-mini",
			Language:        "Deutsch",
			Temperature:     0.7,
			MaxOutputTokens: 4000,
		},

		Stream: StreamConfig{
			NotifyDebounceMs: 100,
			NotifyMaxWaitMs:  1000,
			MaxFrameBytes:    4 << 20,
		},

		Storage: StorageConfig{
			Engine:           storage.EngineFile,
			MaxConversations: storage.DefaultMaxConversations,
		},

		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the mucgpt configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mucgpt"), nil
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

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg := &Config{}
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg := &Config{}
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	// Return defaults (with any load error for informational purposes)
	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

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

// finish applies environment overrides and validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	// Backend
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if cfg.Backend.ChatPath == "" {
		cfg.Backend.ChatPath = defaults.Backend.ChatPath
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}

	// Chat
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = defaults.Chat.Model
	}
	if cfg.Chat.Language == "" {
		cfg.Chat.Language = defaults.Chat.Language
	}
	if cfg.Chat.MaxOutputTokens == 0 {
		cfg.Chat.MaxOutputTokens = defaults.Chat.MaxOutputTokens
	}

	// Stream
	if cfg.Stream.NotifyDebounceMs == 0 {
		cfg.Stream.NotifyDebounceMs = defaults.Stream.NotifyDebounceMs
	}
	if cfg.Stream.MaxFrameBytes == 0 {
		cfg.Stream.MaxFrameBytes = defaults.Stream.MaxFrameBytes
	}

	// Storage
	if cfg.Storage.Engine == "" {
		cfg.Storage.Engine = defaults.Storage.Engine
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}

	return nil
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

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), util.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# mucgpt configuration file")
	fmt.Fprintln(file, "# Generated by mucgpt - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
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

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// Backend
	// ==========================================================================

	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Host == "" {
		add("backend.base_url", "invalid URL '%s'", c.Backend.BaseURL)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("backend.base_url", "scheme must be http or https, got '%s'", u.Scheme)
	}
	if !strings.HasPrefix(c.Backend.ChatPath, "/") {
		add("backend.chat_path", "must start with '/', got '%s'", c.Backend.ChatPath)
	}
	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 3600 {
		add("backend.timeout_secs", "must be between 1 and 3600, got %d", c.Backend.TimeoutSecs)
	}
	if c.Backend.MaxRetries < 0 || c.Backend.MaxRetries > 10 {
		add("backend.max_retries", "must be between 0 and 10, got %d", c.Backend.MaxRetries)
	}

	// ==========================================================================
	// Chat
	// ==========================================================================

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		add("chat.temperature", "must be between 0 and 2, got %g", c.Chat.Temperature)
	}
	if c.Chat.MaxOutputTokens < 1 {
		add("chat.max_output_tokens", "must be positive, got %d", c.Chat.MaxOutputTokens)
	}

	// ==========================================================================
	// Stream
	// ==========================================================================

	if c.Stream.NotifyDebounceMs < 0 {
		add("stream.notify_debounce_ms", "must not be negative, got %d", c.Stream.NotifyDebounceMs)
	}
	if c.Stream.NotifyMaxWaitMs < 0 {
		add("stream.notify_max_wait_ms", "must not be negative, got %d", c.Stream.NotifyMaxWaitMs)
	}
	if c.Stream.MaxFrameBytes < 1024 {
		add("stream.max_frame_bytes", "must be at least 1024, got %d", c.Stream.MaxFrameBytes)
	}

	// ==========================================================================
	// Storage
	// ==========================================================================

	validEngine := false
	for _, e := range storage.Engines {
		if strings.EqualFold(c.Storage.Engine, e) {
			validEngine = true
		}
	}
	if !validEngine {
		add("storage.engine", "invalid engine '%s', must be one of: %s", c.Storage.Engine, strings.Join(storage.Engines, ", "))
	}
	if c.Storage.MaxConversations < 0 {
		add("storage.max_conversations", "must not be negative, got %d", c.Storage.MaxConversations)
	}

	// ==========================================================================
	// Log and metrics
	// ==========================================================================

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		add("log.level", "invalid level '%s'", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "console" && f != "json" {
		add("log.format", "invalid format '%s', must be one of: console, json", c.Log.Format)
	}
	if c.Metrics.Addr != "" && !strings.Contains(c.Metrics.Addr, ":") {
		add("metrics.addr", "must be host:port, got '%s'", c.Metrics.Addr)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MUCGPT_BASE_URL: overrides backend.base_url
//   - MUCGPT_API_KEY: overrides backend.api_key
//   - MUCGPT_MODEL: overrides chat.model
//   - MUCGPT_LANGUAGE: overrides chat.language
//   - MUCGPT_TEMPERATURE: overrides chat.temperature
//   - MUCGPT_STORAGE_ENGINE: overrides storage.engine
//   - MUCGPT_STORAGE_DIR: overrides storage.dir
//   - MUCGPT_LOG_LEVEL: overrides log.level
//   - MUCGPT_LOG_FORMAT: overrides log.format
//   - MUCGPT_METRICS_ADDR: overrides metrics.addr
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MUCGPT_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("MUCGPT_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("MUCGPT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("MUCGPT_LANGUAGE"); v != "" {
		c.Chat.Language = v
	}
	if v := os.Getenv("MUCGPT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Chat.Temperature = f
		}
	}
	if v := os.Getenv("MUCGPT_STORAGE_ENGINE"); v != "" {
		c.Storage.Engine = v
	}
	if v := os.Getenv("MUCGPT_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("MUCGPT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MUCGPT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("MUCGPT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "chat.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "chat.model").
func (c *Config) Set(key string, value interface{}) error {
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
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
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
			field.SetBool(strVal == "1" || lower == "true" || lower == "yes")
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

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"backend.base_url",
		"backend.chat_path",
		"backend.api_key",
		"backend.timeout_secs",
		"backend.max_retries",
		"chat.model",
		"chat.language",
		"chat.system_message",
		"chat.temperature",
		"chat.max_output_tokens",
		"chat.enabled_tools",
		"stream.notify_debounce_ms",
		"stream.notify_max_wait_ms",
		"stream.max_frame_bytes",
		"storage.engine",
		"storage.dir",
		"storage.max_conversations",
		"log.level",
		"log.format",
		"metrics.addr",
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Chat.EnabledTools != nil {
		clone.Chat.EnabledTools = append([]string(nil), c.Chat.EnabledTools...)
	}
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the API key so it never ends up in logs.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Backend.APIKey != "" {
		safe.Backend.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
