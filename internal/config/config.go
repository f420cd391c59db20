// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for kiseha.
//
// Supports both TOML and JSON (with comments) configuration formats, with
// sensible defaults, .env and environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.kiseha/config.toml
//   - ~/.kiseha/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete kiseha configuration.
type Config struct {
	// Answering service connection
	Service ServiceConfig `toml:"service" json:"service"`

	// Session behaviour
	Session SessionConfig `toml:"session" json:"session"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui"`

	// Local transcript archive
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// ServiceConfig describes how to reach the answering service.
type ServiceConfig struct {
	// BaseURL is the service root; requests go to BaseURL + "/query"
	BaseURL string `toml:"base_url" json:"base_url"`
	// Timeout is a Go duration string such as "60s"
	Timeout string `toml:"timeout" json:"timeout"`
	// SendLaw includes the selected category in requests. When false the
	// service chooses its own scope.
	SendLaw *bool `toml:"send_law" json:"send_law"`
}

// SessionConfig holds session defaults.
type SessionConfig struct {
	// DefaultLaw is the wire code of the category selected at startup
	DefaultLaw string `toml:"default_law" json:"default_law"`
	// HistoryPolicy is "replace" (service history is authoritative) or
	// "append" (the client appends the completed turn)
	HistoryPolicy string `toml:"history_policy" json:"history_policy"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Locale selects fixed messages and labels: "ko" or "en"
	Locale string `toml:"locale" json:"locale"`
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowTokens shows the token usage panel
	ShowTokens *bool `toml:"show_tokens" json:"show_tokens"`
	// RenderMarkdown renders answers as markdown
	RenderMarkdown *bool `toml:"render_markdown" json:"render_markdown"`
}

// StorageConfig controls the transcript archive.
type StorageConfig struct {
	// TranscriptEnabled records every answered turn in a local database
	TranscriptEnabled bool `toml:"transcript_enabled" json:"transcript_enabled"`
	// TranscriptPath overrides ~/.kiseha/transcripts.db
	TranscriptPath string `toml:"transcript_path" json:"transcript_path"`
}

func boolPtr(b bool) *bool { return &b }

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: "60s",
			SendLaw: boolPtr(true),
		},
		Session: SessionConfig{
			DefaultLaw:    model.DefaultCategory.Code(),
			HistoryPolicy: session.HistoryReplace.String(),
		},
		UI: UIConfig{
			Locale:         "ko",
			Theme:          "auto",
			ShowTokens:     boolPtr(true),
			RenderMarkdown: boolPtr(true),
		},
		Storage: StorageConfig{
			TranscriptEnabled: false,
		},
	}
}

// =============================================================================
// TYPED ACCESSORS
// =============================================================================

// ServiceTimeout returns the parsed service timeout, or 60s if unparseable.
func (c *Config) ServiceTimeout() time.Duration {
	d, err := time.ParseDuration(c.Service.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// SendLaw reports whether requests carry the law field.
func (c *Config) SendLaw() bool {
	return c.Service.SendLaw == nil || *c.Service.SendLaw
}

// DefaultCategory returns the configured startup category.
func (c *Config) DefaultCategory() model.LawCategory {
	cat, err := model.ParseLawCategory(c.Session.DefaultLaw)
	if err != nil {
		return model.DefaultCategory
	}
	return cat
}

// HistoryPolicy returns the configured history policy.
func (c *Config) HistoryPolicy() session.HistoryPolicy {
	p, _ := session.ParseHistoryPolicy(c.Session.HistoryPolicy)
	return p
}

// ShowTokens reports whether the usage panel is shown.
func (c *Config) ShowTokens() bool {
	return c.UI.ShowTokens == nil || *c.UI.ShowTokens
}

// RenderMarkdown reports whether answers are rendered as markdown.
func (c *Config) RenderMarkdown() bool {
	return c.UI.RenderMarkdown == nil || *c.UI.RenderMarkdown
}

// TranscriptPath returns the transcript database path.
func (c *Config) TranscriptPath() (string, error) {
	if c.Storage.TranscriptPath != "" {
		return expandHome(c.Storage.TranscriptPath)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcripts.db"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// DirEnv overrides the configuration directory. Tests point it at a temp dir.
const DirEnv = "KISEHA_HOME"

// ConfigDir returns the kiseha configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".kiseha"), nil
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

// LogPath returns the path of the TUI log file.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "kiseha.log"), nil
}

// ActivePath returns the config file Load would read, or "" if none exists.
func ActivePath() string {
	for _, fn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		if p, err := fn(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				return p
			}
		}
	}
	return ""
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// A .env file in the working directory and then environment overrides are
// applied last.
func Load() (*Config, error) {
	if path := ActivePath(); path != "" {
		return LoadFromPath(path)
	}
	return finish(Default())
}

// LoadFromPath loads the file at path (.json means JSONC, anything else TOML).
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".jsonc") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// finish applies env overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	loadDotEnv()
	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv reads ./.env without overriding variables already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg. Comments and trailing commas are
// allowed.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
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

// SaveTOML writes the configuration to path atomically.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# kiseha configuration file\n")
	buf.WriteString("# history_policy: \"replace\" or \"append\"\n")
	buf.WriteString("# default_law: Criminal_Law, Civil_Law, Road_Traffic_Act, Labor_Standards_Act, Police_Duties_Act\n\n")

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

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Service.BaseURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "service.base_url",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Service.BaseURL),
		})
	}

	if d, err := time.ParseDuration(c.Service.Timeout); err != nil || d <= 0 {
		errs = append(errs, ValidationError{
			Field:   "service.timeout",
			Message: fmt.Sprintf("must be a positive duration such as \"60s\", got %q", c.Service.Timeout),
		})
	}

	if _, err := model.ParseLawCategory(c.Session.DefaultLaw); err != nil {
		errs = append(errs, ValidationError{Field: "session.default_law", Message: err.Error()})
	}

	if _, err := session.ParseHistoryPolicy(c.Session.HistoryPolicy); err != nil {
		errs = append(errs, ValidationError{Field: "session.history_policy", Message: err.Error()})
	}

	switch strings.ToLower(c.UI.Locale) {
	case "ko", "ko-kr", "en", "en-us", "en-gb":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.locale",
			Message: fmt.Sprintf("must be ko or en, got %q", c.UI.Locale),
		})
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be dark, light or auto, got %q", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills every zero-valued field from Default().
func (c *Config) SetDefaults() error {
	// mergo only fills zero fields when WithOverride is not set.
	if err := mergo.Merge(c, Default()); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies KISEHA_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	// KISEHA_URL
	if v := os.Getenv("KISEHA_URL"); v != "" {
		c.Service.BaseURL = v
	}

	// KISEHA_TIMEOUT
	if v := os.Getenv("KISEHA_TIMEOUT"); v != "" {
		c.Service.Timeout = v
	}

	// KISEHA_SEND_LAW
	if v := os.Getenv("KISEHA_SEND_LAW"); v != "" {
		c.Service.SendLaw = boolPtr(parseBool(v))
	}

	// KISEHA_LAW
	if v := os.Getenv("KISEHA_LAW"); v != "" {
		c.Session.DefaultLaw = v
	}

	// KISEHA_HISTORY_POLICY
	if v := os.Getenv("KISEHA_HISTORY_POLICY"); v != "" {
		c.Session.HistoryPolicy = v
	}

	// KISEHA_LOCALE
	if v := os.Getenv("KISEHA_LOCALE"); v != "" {
		c.UI.Locale = v
	}

	// KISEHA_TRANSCRIPT
	if v := os.Getenv("KISEHA_TRANSCRIPT"); v != "" {
		c.Storage.TranscriptEnabled = parseBool(v)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "service.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil, nil
		}
		return field.Elem().Interface(), nil
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "session.history_policy").
// String values are converted to the field's type.
func (c *Config) Set(key string, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		field.SetBool(parseBool(value))
	case reflect.Ptr:
		if field.Type().Elem().Kind() != reflect.Bool {
			return fmt.Errorf("unsupported field type for %s", key)
		}
		field.Set(reflect.ValueOf(boolPtr(parseBool(value))))
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %v", err)
		}
		field.SetInt(n)
	default:
		return fmt.Errorf("unsupported field type for %s", key)
	}
	return nil
}

// lookup walks a dot-notation key to its struct field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
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
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
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

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := tagName(section)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+tagName(section.Type.Field(j)))
		}
	}
	return keys
}

func tagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return Default()
	}
	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return Default()
	}
	return clone
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("error encoding config: %v", err)
	}
	return buf.String()
}
