// Package wasmlib loads a WebAssembly module as a native library callable
// through package marshal.
package wasmlib

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/otelwasm/wasmcall/abi"
	"github.com/otelwasm/wasmcall/marshal"
	"github.com/otelwasm/wasmcall/runtime"
	_ "github.com/otelwasm/wasmcall/runtime/wazero" // Register Wazero runtime
)

// Library is a WASM module instance exposed as a marshal.Library.
//
// Module instances are not reentrant: calls into one Library must be
// serialized by the caller.
type Library struct {
	runtime        runtime.Runtime
	runtimeContext runtime.Context
	module         runtime.ModuleInstance
	memory         runtime.Memory

	alloc runtime.FunctionInstance
	free  runtime.FunctionInstance

	abi     ABIVersion
	exports []string
	logger  *zap.Logger
	closed  bool
}

var _ marshal.Library = (*Library)(nil)

type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger receiving guest log messages.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open reads the module at cfg.Path and loads it.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Library, error) {
	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	binary, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("wasm: error reading module: %w", err)
	}
	return Load(ctx, binary, cfg, opts...)
}

// Load compiles and instantiates binary. cfg.Path is ignored.
func Load(ctx context.Context, binary []byte, cfg *Config, opts ...Option) (_ *Library, err error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	cfg.Default()
	if err := cfg.Runtime.Wazero.Validate(); err != nil {
		return nil, err
	}

	rt, err := runtime.NewRuntime(cfg.Runtime.Type, cfg.Runtime.Wazero)
	if err != nil {
		return nil, fmt.Errorf("wasm: error creating runtime: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close(ctx))
		}
	}()

	compiled, err := rt.Compile(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("wasm: error compiling module: %w", err)
	}

	exports := compiled.ExportedFunctions()
	version := detectABIVersion(exports)
	if cfg.RequireABI && version == ABIUnknown {
		return nil, fmt.Errorf("wasm: %s is not exported: %w", abi.VersionMarkerV1, ErrABIVersionMarkerNotExported)
	}

	module, runtimeContext, err := rt.InstantiateWithHost(ctx, compiled, newHostModule(o.logger))
	if err != nil {
		return nil, fmt.Errorf("wasm: error instantiating module: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, runtimeContext.Close(ctx))
		}
	}()

	names := cfg.Exports.resolve(version)
	lib := &Library{
		runtime:        rt,
		runtimeContext: runtimeContext,
		module:         module,
		memory:         module.Memory(),
		abi:            version,
		exports:        exports,
		logger:         o.logger,
	}
	if lib.memory == nil {
		return nil, fmt.Errorf("wasm: module has no memory: %w", runtime.ErrMemoryExportNotFound)
	}
	for _, req := range []struct {
		name string
		fn   *runtime.FunctionInstance
	}{
		{names.Alloc, &lib.alloc},
		{names.Free, &lib.free},
	} {
		*req.fn = module.Function(req.name)
		if *req.fn == nil {
			return nil, fmt.Errorf("wasm: %s is not exported: %w", req.name, ErrRequiredFunctionNotExported)
		}
	}

	o.logger.Debug("loaded native library",
		zap.Stringer("abi", version),
		zap.Int("exports", len(exports)),
		zap.String("alloc", names.Alloc),
		zap.String("free", names.Free))
	return lib, nil
}

// ABI returns the ABI version detected in the module.
func (l *Library) ABI() ABIVersion {
	return l.abi
}

// Exports returns the names of the functions exported by the module, sorted.
func (l *Library) Exports() []string {
	return append([]string(nil), l.exports...)
}

// Function returns the exported function name, or nil.
func (l *Library) Function(name string) marshal.Function {
	if l.closed {
		return nil
	}
	fn := l.module.Function(name)
	if fn == nil {
		return nil
	}
	return &function{lib: l, fn: fn}
}

// Memory returns the module memory.
func (l *Library) Memory() marshal.Memory {
	return l.memory
}

// Allocate calls the guest allocator.
func (l *Library) Allocate(ctx context.Context, size uint32) (uint32, error) {
	if l.closed {
		return 0, ErrClosed
	}
	res, err := l.alloc.Call(l.runtimeContext.WithRuntimeContext(ctx), uint64(size))
	if err != nil {
		return 0, fmt.Errorf("wasm: failed to call alloc: %w", err)
	}
	if len(res) != 1 {
		return 0, fmt.Errorf("wasm: alloc returned %d results", len(res))
	}
	return uint32(res[0]), nil
}

// Free returns ptr to the guest allocator.
func (l *Library) Free(ctx context.Context, ptr uint32) error {
	if l.closed {
		return ErrClosed
	}
	if _, err := l.free.Call(l.runtimeContext.WithRuntimeContext(ctx), uint64(ptr)); err != nil {
		return fmt.Errorf("wasm: failed to call free: %w", err)
	}
	return nil
}

// Close releases the module, the WASI system and the runtime.
func (l *Library) Close(ctx context.Context) error {
	if l.closed {
		return nil
	}
	l.closed = true

	var err error
	if l.runtimeContext != nil {
		if cerr := l.runtimeContext.Close(ctx); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("wasm: error closing runtime context: %w", cerr))
		}
	}
	if l.runtime != nil {
		if cerr := l.runtime.Close(ctx); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("wasm: error closing runtime: %w", cerr))
		}
	}
	return err
}

// function runs guest code under the runtime context.
type function struct {
	lib *Library
	fn  runtime.FunctionInstance
}

func (f *function) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f.fn.Call(f.lib.runtimeContext.WithRuntimeContext(ctx), params...)
}
