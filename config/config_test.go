package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/otelwasm/wasmcall/runtime/wazero"
)

const sample = `
library:
  path: solver.wasm
  require_abi: true
  exports:
    alloc: my_alloc
  runtime:
    mode: compiled
    memory_limit_pages: 128
catalog: solver.yaml
log:
  level: debug
  encoding: json
trace:
  output: traces.json
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wasmcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "solver.wasm", cfg.Library.Path)
	assert.True(t, cfg.Library.RequireABI)
	assert.Equal(t, "my_alloc", cfg.Library.Exports.Alloc)
	assert.Equal(t, wazero.RuntimeType, cfg.Library.Runtime.Type)
	assert.Equal(t, wazero.RuntimeModeCompiled, cfg.Library.Runtime.Wazero.Mode)
	assert.Equal(t, uint32(128), cfg.Library.Runtime.Wazero.MemoryLimitPages)
	assert.Equal(t, "solver.yaml", cfg.Catalog)
	assert.Equal(t, LogConfig{Level: "debug", Encoding: "json"}, cfg.Log)
	assert.Equal(t, TraceConfig{Output: "traces.json", Service: "wasmcall"}, cfg.Trace)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("WASMCALL_CATALOG", "other.yaml")
	t.Setenv("WASMCALL_LIBRARY__RUNTIME__MEMORY_LIMIT_PAGES", "64")
	t.Setenv("WASMCALL_LOG__LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "other.yaml", cfg.Catalog)
	assert.Equal(t, uint32(64), cfg.Library.Runtime.Wazero.MemoryLimitPages)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "solver.wasm", cfg.Library.Path)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, wazero.RuntimeModeInterpreter, cfg.Library.Runtime.Wazero.Mode)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2, "library path and catalog are missing")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "library: [not, a, map]"))
	require.Error(t, err)
}

func TestLogger(t *testing.T) {
	logger, err := LogConfig{Level: "warn"}.Logger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = LogConfig{Level: "loud"}.Logger()
	require.Error(t, err)
	_, err = LogConfig{Level: "info", Encoding: "xml"}.Logger()
	require.Error(t, err)
}
