package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelwasm/wasmcall/abi"
	"github.com/otelwasm/wasmcall/internal/wasmtest"
	"github.com/otelwasm/wasmcall/marshal"
)

var i32 = []wasmtest.ValType{wasmtest.I32}

const testCatalog = `
functions:
  - name: demo.Native.add
    params: [handle, handle]
    return: handle
  - name: demo.Native.mkNull
    params: [handle]
    return: handle_checked
  - name: demo.Native.fill
    native: fill3
    params: ["array:i32:out"]
    return: void
  - name: demo.Native.greet
    return: string
`

func demoModule() *wasmtest.Module {
	m := wasmtest.NewModule().Memory(1, true).
		Data(64, wasmtest.CString("no object")).
		Data(512, wasmtest.CString("hi"))
	m.BumpAllocator(abi.Alloc, abi.Free, 4096)
	m.Func(abi.VersionMarkerV1, nil, nil, nil)
	m.Func(abi.LastErrorCode, []wasmtest.ValType{wasmtest.I64}, i32, nil, wasmtest.I32Const(3))
	m.Func(abi.ErrorMessage, []wasmtest.ValType{wasmtest.I64, wasmtest.I32}, i32, nil, wasmtest.I32Const(64))
	m.Func("add", []wasmtest.ValType{wasmtest.I64, wasmtest.I64}, []wasmtest.ValType{wasmtest.I64}, nil,
		wasmtest.LocalGet(0), wasmtest.LocalGet(1), wasmtest.I64Add())
	m.Func("mk_null", []wasmtest.ValType{wasmtest.I64}, []wasmtest.ValType{wasmtest.I64}, nil, wasmtest.I64Const(0))
	m.Func("fill3", i32, nil, nil,
		wasmtest.LocalGet(0), wasmtest.I32Const(7), wasmtest.I32Store(0),
		wasmtest.LocalGet(0), wasmtest.I32Const(8), wasmtest.I32Store(4),
		wasmtest.LocalGet(0), wasmtest.I32Const(9), wasmtest.I32Store(8))
	m.Func("greet", nil, i32, nil, wasmtest.I32Const(512))
	return m
}

type fixture struct {
	library string
	catalog string
	dir     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	cat := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(cat, []byte(testCatalog), 0o600))
	return fixture{library: demoModule().WriteFile(t), catalog: cat, dir: dir}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCall(t *testing.T) {
	f := newFixture(t)
	base := []string{"--library", f.library, "--catalog", f.catalog, "--log-level", "error", "call"}

	out, err := run(t, append(base, "demo_Native_add", "2", "0x10")...)
	require.NoError(t, err)
	assert.Equal(t, "18\n", out)

	out, err = run(t, append(base, "demo.Native.fill", "3")...)
	require.NoError(t, err)
	assert.Equal(t, "arg 1: [7 8 9]\n", out)

	out, err = run(t, append(base, "demo.Native.greet")...)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)

	_, err = run(t, append(base, "demo.Native.mkNull", "1")...)
	require.ErrorIs(t, err, marshal.ErrNativeCallFailure)
	assert.Equal(t, "no object", err.Error())

	_, err = run(t, append(base, "demo.Native.add", "1", "null")...)
	require.ErrorIs(t, err, marshal.ErrNullHandle)

	_, err = run(t, append(base, "demo.Native.add", "1")...)
	require.ErrorContains(t, err, "takes 2 arguments")

	_, err = run(t, append(base, "demo.Native.missing")...)
	require.ErrorContains(t, err, "unknown function")
}

func TestCallWritesTraces(t *testing.T) {
	f := newFixture(t)
	traces := filepath.Join(f.dir, "traces.json")
	t.Setenv("WASMCALL_TRACE__OUTPUT", traces)

	_, err := run(t, "--library", f.library, "--catalog", f.catalog, "--log-level", "error",
		"call", "demo.Native.add", "1", "2")
	require.NoError(t, err)

	data, err := os.ReadFile(traces)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, string(data), "demo.Native.add")
}

func TestList(t *testing.T) {
	f := newFixture(t)
	catalogOnly := filepath.Join(f.dir, "unchecked.yaml")
	require.NoError(t, os.WriteFile(catalogOnly, []byte(`
native_prefix: demo_
functions:
  - name: demo.Native.add
    params: [handle, handle]
    return: handle
  - name: demo.Native.fill_all
    params: ["array:f64:inout"]
    return: status
`), 0o600))

	out, err := run(t, "--catalog", catalogOnly, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ENTRY")
	assert.Contains(t, out, "demo_Native_add")
	assert.Contains(t, out, "demo_add")
	assert.Contains(t, out, "demo_Native_fill_1all")
	assert.Contains(t, out, "array:f64:inout")

	out, err = run(t, "--catalog", catalogOnly, "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "entry: demo_Native_add")
	assert.Contains(t, out, "native: demo_fill_all")
	assert.Contains(t, out, "return: status")

	_, err = run(t, "--catalog", catalogOnly, "list", "-o", "xml")
	require.ErrorContains(t, err, "unknown output format")

	_, err = run(t, "list")
	require.Error(t, err)
}

func TestListExampleCatalog(t *testing.T) {
	cat := filepath.Join("..", "..", "examples", "counter", "catalog.yaml")

	out, err := run(t, "--catalog", cat, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "counter_Native_addAll")
	assert.Contains(t, out, "counter_add_all")
	assert.Contains(t, out, "string_checked")

	out, err = run(t, "--catalog", cat, "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "native: counter_name")
	assert.Contains(t, out, "code: wasmcall_last_error_code")
	assert.Contains(t, out, "message: wasmcall_error_message")
}

func TestMangle(t *testing.T) {
	out, err := run(t, "mangle", "--native-prefix", "Z3_", "z3.Native.mkContext")
	require.NoError(t, err)
	assert.Equal(t, "z3_Native_mkContext\tZ3_mk_context\n", out)

	out, err = run(t, "mangle", "-d", "z3_Native_mkContext")
	require.NoError(t, err)
	assert.Equal(t, "z3.Native.mkContext\n", out)
}

func TestParseArgs(t *testing.T) {
	d, err := marshal.NewDescriptor("demo.Native.all", marshal.ReturnsVoid(), []marshal.ParamSpec{
		marshal.ValueParam(marshal.F32),
		marshal.ValueParam(marshal.Bool),
		marshal.HandleOutParam(),
		marshal.StringParam(),
		marshal.ArrayParam(marshal.U32, marshal.In),
		marshal.ArrayParam(marshal.F64, marshal.Out),
		marshal.HandleArrayParam(),
	})
	require.NoError(t, err)

	args, err := parseArgs(d, []string{"1.5", "true", "_", "text", "1,2", "2", "3, null"})
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), args[0])
	assert.Equal(t, true, args[1])
	assert.Equal(t, &marshal.HandleRef{}, args[2])
	assert.Equal(t, "text", args[3])
	assert.Equal(t, []uint32{1, 2}, args[4])
	assert.Equal(t, []float64{0, 0}, args[5])
	assert.Equal(t, []marshal.Handle{3, marshal.Null}, args[6])

	args[2].(*marshal.HandleRef).Handle = 9
	assert.Equal(t, []string{"arg 3: 9", "arg 6: [0 0]"}, formatOutputs(d, args))

	_, err = parseArgs(d, []string{"x", "true", "_", "", "", "0", ""})
	require.ErrorContains(t, err, "argument 1")
	_, err = parseArgs(d, []string{"1", "true", "_", "", "", "-1", ""})
	require.ErrorContains(t, err, "output array length")
}
