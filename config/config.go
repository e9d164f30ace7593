// Package config loads the configuration of the wasmcall command from a YAML
// file and WASMCALL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/otelwasm/wasmcall/wasmlib"
)

// EnvPrefix starts every environment override. A double underscore separates
// nested keys, for example WASMCALL_LIBRARY__RUNTIME__MODE=compiled.
const EnvPrefix = "WASMCALL_"

// Config is the configuration of the wasmcall command.
type Config struct {
	Library wasmlib.Config `mapstructure:"library"`
	// Catalog is the path of the function catalog.
	Catalog string      `mapstructure:"catalog"`
	Log     LogConfig   `mapstructure:"log"`
	Trace   TraceConfig `mapstructure:"trace"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is a zap level name such as "debug" or "warn".
	Level string `mapstructure:"level"`
	// Encoding is "json" or "console".
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// TraceConfig enables recording calls as OTLP traces.
type TraceConfig struct {
	// Output is the file receiving OTLP/JSON traces. Empty disables tracing.
	Output  string `mapstructure:"output"`
	Service string `mapstructure:"service"`
}

// Default returns the configuration used for keys that are not set.
func Default() Config {
	cfg := Config{
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		Trace: TraceConfig{Service: "wasmcall"},
	}
	cfg.Library.Default()
	return cfg
}

// Load reads path, when not empty, then applies environment overrides on top
// of Default.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: error loading %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: error loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	if err := c.Library.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("library: %w", err))
	}
	if c.Catalog == "" {
		errs = multierr.Append(errs, errors.New("catalog is required"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log: %w", err))
	}
	return errs
}

func (c LogConfig) Validate() error {
	if _, err := zap.ParseAtomicLevel(c.Level); err != nil {
		return err
	}
	switch c.Encoding {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("unknown encoding %q", c.Encoding)
	}
}

// Logger builds the logger described by c.
func (c LogConfig) Logger(opts ...zap.Option) (*zap.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	level, _ := zap.ParseAtomicLevel(c.Level)

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	if c.Encoding != "" {
		zc.Encoding = c.Encoding
	}
	return zc.Build(opts...)
}
