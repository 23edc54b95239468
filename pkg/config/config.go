// Package config loads engine settings from JSON or YAML documents.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-wolf/pkg/template"
)

// Config holds the engine settings a host may keep in a file.
type Config struct {
	// Whitespace is "trim" or "preserve".
	Whitespace       string
	MaxBindingLength int
	BaseURL          string
	BaseDir          string
	AllowHTTP        bool
	RequestTimeout   time.Duration
	LogLevel         string
	LogFormat        string
	// Models seeds named models with initial data.
	Models map[string]map[string]any
}

type fileConfig struct {
	Whitespace       string                    `json:"whitespace" yaml:"whitespace"`
	MaxBindingLength int                       `json:"maxBindingLength" yaml:"maxBindingLength"`
	BaseURL          string                    `json:"baseURL" yaml:"baseURL"`
	BaseDir          string                    `json:"baseDir" yaml:"baseDir"`
	AllowHTTP        bool                      `json:"allowHTTP" yaml:"allowHTTP"`
	RequestTimeout   string                    `json:"requestTimeout" yaml:"requestTimeout"`
	LogLevel         string                    `json:"logLevel" yaml:"logLevel"`
	LogFormat        string                    `json:"logFormat" yaml:"logFormat"`
	Models           map[string]map[string]any `json:"models" yaml:"models"`
}

// Default returns the settings used when no file is supplied.
func Default() Config {
	return Config{
		Whitespace:       "trim",
		MaxBindingLength: template.DefaultMaxBindingLength,
		RequestTimeout:   10 * time.Second,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a JSON or YAML document on top of Default and validates it.
func Parse(data []byte, source string) (Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Config{}, fmt.Errorf("config: file %s is empty", source)
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = fileConfig{}
		if yerr := yaml.Unmarshal(data, &raw); yerr != nil {
			return Config{}, fmt.Errorf("config: parse %s: invalid JSON or YAML", source)
		}
	}

	cfg := Default()
	if raw.Whitespace != "" {
		cfg.Whitespace = raw.Whitespace
	}
	if raw.MaxBindingLength != 0 {
		cfg.MaxBindingLength = raw.MaxBindingLength
	}
	cfg.BaseURL = strings.TrimSpace(raw.BaseURL)
	cfg.BaseDir = strings.TrimSpace(raw.BaseDir)
	cfg.AllowHTTP = raw.AllowHTTP
	if raw.RequestTimeout != "" {
		timeout, err := time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: requestTimeout: %w", source, err)
		}
		cfg.RequestTimeout = timeout
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.LogFormat != "" {
		cfg.LogFormat = raw.LogFormat
	}
	cfg.Models = raw.Models

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", source, err)
	}
	return cfg, nil
}

// Validate checks the settings for values the engine can not honour.
func (c Config) Validate() error {
	if _, err := template.ParseWhitespaceMode(c.Whitespace); err != nil {
		return err
	}
	if c.MaxBindingLength < 0 {
		return fmt.Errorf("config: maxBindingLength must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config: requestTimeout must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	for id := range c.Models {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("config: model id is required")
		}
	}
	return nil
}

// ReaderOptions maps the settings onto template reader options.
func (c Config) ReaderOptions() template.Options {
	mode, err := template.ParseWhitespaceMode(c.Whitespace)
	if err != nil {
		mode = template.WhitespaceTrim
	}
	return template.Options{Whitespace: mode, MaxBindingLength: c.MaxBindingLength}
}
