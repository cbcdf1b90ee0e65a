// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for chainchat.
//
// Configuration lives in ~/.chainchat/config.toml, with sensible
// defaults and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chainchat configuration.
type Config struct {
	Version string `toml:"version"`

	// Nebula API configuration
	Nebula NebulaConfig `toml:"nebula"`

	// Wallet configuration
	Wallet WalletConfig `toml:"wallet"`

	// Chat persistence configuration
	Storage StorageConfig `toml:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// NebulaConfig contains the upstream API credentials and endpoints.
type NebulaConfig struct {
	// SecretKey is the thirdweb secret key sent as x-secret-key.
	SecretKey string `toml:"secret_key"`
	// ClientID is the optional thirdweb client id sent as x-client-id.
	ClientID string `toml:"client_id"`
	// BaseURL is the Nebula API endpoint.
	BaseURL string `toml:"base_url"`
	// RelayURL is an optional server-side relay used when no secret key
	// is configured. The relay holds the credential.
	RelayURL string `toml:"relay_url"`
	// UserID identifies the caller in chat requests.
	UserID string `toml:"user_id"`
	// RateLimit is the maximum requests per second (0 = unlimited).
	RateLimit float64 `toml:"rate_limit"`
}

// WalletConfig contains the wallet identity used in chat requests.
type WalletConfig struct {
	// Address is sent as the signer wallet address on every request.
	Address string `toml:"address"`
}

// StorageConfig contains chat persistence configuration.
type StorageConfig struct {
	// Backend selects the persistence backend: "file" or "sqlite".
	Backend string `toml:"backend"`
	// Path overrides the storage location (empty = ~/.chainchat).
	Path string `toml:"path"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// Markdown enables markdown rendering of assistant messages.
	Markdown bool `toml:"markdown"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Nebula: NebulaConfig{
			BaseURL: "https://nebula-api.thirdweb.com",
			UserID:  "default-user",
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the chainchat configuration directory (~/.chainchat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chainchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from the config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation. A missing file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		// SECURITY: Check and fix file permissions if needed
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save saves the configuration to the default TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// SECURITY: Create file with restrictive permissions (0600 = owner read/write only)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# chainchat configuration file")
	fmt.Fprintln(file, "# Generated by chainchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// SetDefaults fills in any zero values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()
	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Nebula.BaseURL == "" {
		c.Nebula.BaseURL = defaults.Nebula.BaseURL
	}
	if c.Nebula.UserID == "" {
		c.Nebula.UserID = defaults.Nebula.UserID
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Nebula.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Nebula.BaseURL); err != nil {
			return fmt.Errorf("nebula.base_url is not a valid URL: %w", err)
		}
	}
	if c.Nebula.RelayURL != "" {
		if _, err := url.ParseRequestURI(c.Nebula.RelayURL); err != nil {
			return fmt.Errorf("nebula.relay_url is not a valid URL: %w", err)
		}
	}
	if c.Nebula.RateLimit < 0 {
		return errors.New("nebula.rate_limit must not be negative")
	}

	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be \"file\" or \"sqlite\", got %q", c.Storage.Backend)
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme must be \"dark\", \"light\", or \"auto\", got %q", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHAINCHAT_SECRET_KEY: overrides nebula.secret_key
//   - CHAINCHAT_CLIENT_ID: overrides nebula.client_id
//   - CHAINCHAT_BASE_URL: overrides nebula.base_url
//   - CHAINCHAT_RELAY_URL: overrides nebula.relay_url
//   - CHAINCHAT_WALLET_ADDRESS: overrides wallet.address
//   - CHAINCHAT_STORAGE_BACKEND: overrides storage.backend
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("CHAINCHAT_SECRET_KEY"); key != "" {
		c.Nebula.SecretKey = key
	}
	if id := os.Getenv("CHAINCHAT_CLIENT_ID"); id != "" {
		c.Nebula.ClientID = id
	}
	if base := os.Getenv("CHAINCHAT_BASE_URL"); base != "" {
		c.Nebula.BaseURL = base
	}
	if relay := os.Getenv("CHAINCHAT_RELAY_URL"); relay != "" {
		c.Nebula.RelayURL = relay
	}
	if addr := os.Getenv("CHAINCHAT_WALLET_ADDRESS"); addr != "" {
		c.Wallet.Address = addr
	}
	if backend := os.Getenv("CHAINCHAT_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "nebula.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "nebula.secret_key").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}
	return fmt.Errorf("invalid key: %s", key)
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
			boolVal := strVal == "1" || strings.EqualFold(strVal, "true") || strings.EqualFold(strVal, "yes")
			field.SetBool(boolVal)
			return nil
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
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
