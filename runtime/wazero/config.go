package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/otelwasm/wasmcall/runtime"
)

// RuntimeType is the name this adapter registers under.
const RuntimeType = "wazero"

const (
	RuntimeModeInterpreter = "interpreter"
	RuntimeModeCompiled    = "compiled"
)

// maxMemoryPages is the wasm32 limit of 4 GiB in 64 KiB pages.
const maxMemoryPages = 65536

// Config configures the wazero engine.
type Config struct {
	// Mode is "interpreter" or "compiled". Empty means interpreter.
	Mode string `mapstructure:"mode"`
	// CloseOnContextDone aborts guest execution when the call context is done.
	CloseOnContextDone bool `mapstructure:"close_on_context_done"`
	// MemoryLimitPages caps guest memory. Zero keeps the wazero default.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Mode {
	case "", RuntimeModeInterpreter, RuntimeModeCompiled:
	default:
		return fmt.Errorf("invalid runtime mode %q: %w", c.Mode, runtime.ErrInvalidConfiguration)
	}
	if c.MemoryLimitPages > maxMemoryPages {
		return fmt.Errorf("memory_limit_pages %d exceeds %d: %w", c.MemoryLimitPages, maxMemoryPages, runtime.ErrInvalidConfiguration)
	}
	return nil
}

// Default sets default values for unspecified fields
func (c *Config) Default() {
	if c.Mode == "" {
		c.Mode = RuntimeModeInterpreter
	}
}

func (c *Config) runtimeConfig() wazero.RuntimeConfig {
	var wrc wazero.RuntimeConfig
	switch c.Mode {
	case RuntimeModeCompiled:
		wrc = wazero.NewRuntimeConfigCompiler()
	default:
		wrc = wazero.NewRuntimeConfigInterpreter()
	}
	if c.CloseOnContextDone {
		wrc = wrc.WithCloseOnContextDone(true)
	}
	if c.MemoryLimitPages > 0 {
		wrc = wrc.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	return wrc
}

// newWazeroRuntime creates a new Wazero runtime instance. config may be nil,
// a Config or a *Config.
func newWazeroRuntime(config any) (runtime.Runtime, error) {
	var cfg Config
	switch c := config.(type) {
	case nil:
	case Config:
		cfg = c
	case *Config:
		if c != nil {
			cfg = *c
		}
	default:
		return nil, fmt.Errorf("wazero: unexpected config type %T: %w", config, runtime.ErrInvalidConfiguration)
	}
	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("wazero: %w", err)
	}

	return &wazeroRuntime{
		runtime: wazero.NewRuntimeWithConfig(context.Background(), cfg.runtimeConfig()),
		config:  cfg,
	}, nil
}
