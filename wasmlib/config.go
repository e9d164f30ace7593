package wasmlib

import (
	"errors"
	"fmt"

	"github.com/otelwasm/wasmcall/abi"
	"github.com/otelwasm/wasmcall/runtime"
	"github.com/otelwasm/wasmcall/runtime/wazero"
)

// RuntimeConfig is the configuration for the WASM library runtime.
type RuntimeConfig struct {
	// Type selects a registered runtime. Defaults to wazero.
	Type string `mapstructure:"type"`

	Wazero wazero.Config `mapstructure:",squash"`
}

// ExportConfig overrides the names of the allocator exports. Empty names
// follow the ABI detected in the module.
type ExportConfig struct {
	Alloc string `mapstructure:"alloc"`
	Free  string `mapstructure:"free"`
}

// Config defines how a native library is loaded
type Config struct {
	// Path to the WASM module file
	Path string `mapstructure:"path"`

	// RequireABI rejects modules that do not export the ABI version marker.
	RequireABI bool `mapstructure:"require_abi"`

	Exports ExportConfig `mapstructure:"exports"`

	// Runtime is the configuration of the WASM runtime.
	Runtime RuntimeConfig `mapstructure:"runtime"`
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	if cfg.Path == "" {
		return errors.New("path is required")
	}
	if cfg.Runtime.Type != "" && cfg.Runtime.Type != wazero.RuntimeType {
		return fmt.Errorf("unsupported runtime type %q: %w", cfg.Runtime.Type, runtime.ErrInvalidConfiguration)
	}
	return cfg.Runtime.Wazero.Validate()
}

// Default sets default values for unspecified fields
func (cfg *Config) Default() {
	if cfg.Runtime.Type == "" {
		cfg.Runtime.Type = wazero.RuntimeType
	}
	cfg.Runtime.Wazero.Default()
}

// resolve returns the allocator export names to use for a module of ABI v.
func (e ExportConfig) resolve(v ABIVersion) ExportConfig {
	out := e
	switch v {
	case ABIV1:
		if out.Alloc == "" {
			out.Alloc = abi.Alloc
		}
		if out.Free == "" {
			out.Free = abi.Free
		}
	default:
		if out.Alloc == "" {
			out.Alloc = abi.LegacyAlloc
		}
		if out.Free == "" {
			out.Free = abi.LegacyFree
		}
	}
	return out
}
