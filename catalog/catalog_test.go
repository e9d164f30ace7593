package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/otelwasm/wasmcall/marshal"
)

const z3Catalog = `
native_prefix: Z3_
errors:
  code: Z3_get_error_code
  message: Z3_get_error_msg
functions:
  - name: z3.Native.mkContext
    params: [handle]
    return: handle_checked
  - name: z3.Native.getVersion
    native: Z3_get_full_version
    params: ["array:u32:out"]
    return: void
  - name: z3.Native.mkAnd
    params: [handle, "value:u32", handle_array]
    return: handle
  - name: z3.Native.astToString
    params: [handle, handle]
    return: string_checked
  - name: z3.Native.solverCheck
    params: [handle, handle]
    return: "value:i32"
    no_errors: true
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(z3Catalog))
	require.NoError(t, err)

	assert.Equal(t, "Z3_", c.NativePrefix)
	assert.Equal(t, marshal.ErrorAccessors{Code: "Z3_get_error_code", Message: "Z3_get_error_msg"}, c.Errors)
	require.Len(t, c.Functions, 5)
	assert.Equal(t, Function{
		Name:   "z3.Native.mkAnd",
		Params: []marshal.ParamSpec{marshal.HandleParam(), marshal.ValueParam(marshal.U32), marshal.HandleArrayParam()},
		Return: marshal.ReturnsHandle(false),
	}, c.Functions[2])
	assert.Equal(t, marshal.ReturnsValue(marshal.I32), c.Functions[4].Return)
	assert.True(t, c.Functions[4].NoErrors)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "functions: [unclosed"},
		{"unknown key", "native_prefx: Z3_"},
		{"unknown param kind", "functions: [{name: a, params: [pointer]}]"},
		{"unknown return", "functions: [{name: a, return: float}]"},
		{"value without type", "functions: [{name: a, params: [value]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestTable(t *testing.T) {
	c, err := Parse([]byte(z3Catalog))
	require.NoError(t, err)

	table, err := c.Table(marshal.ErrorAccessors{})
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())

	d, ok := table.Lookup("z3_Native_mkContext")
	require.True(t, ok)
	assert.Equal(t, "Z3_mk_context", d.Native)
	assert.Equal(t, c.Errors, d.Errors)

	d, ok = table.Lookup("z3.Native.getVersion")
	require.True(t, ok)
	assert.Equal(t, "Z3_get_full_version", d.Native)
	assert.True(t, d.Errors.IsZero(), "first parameter is not a handle")

	d, ok = table.Lookup("z3.Native.solverCheck")
	require.True(t, ok)
	assert.True(t, d.Errors.IsZero())
}

func TestTableUsesDefaultAccessors(t *testing.T) {
	c, err := Parse([]byte(`
functions:
  - name: solver.Native.mkNull
    params: [handle]
    return: handle_checked
  - name: solver.Native.custom
    params: [handle]
    return: handle_checked
    errors: {code: my_code, message: my_message}
`))
	require.NoError(t, err)

	defaults := marshal.ErrorAccessors{Code: "wasmcall_last_error_code", Message: "wasmcall_error_message"}
	table, err := c.Table(defaults)
	require.NoError(t, err)

	d, _ := table.Lookup("solver.Native.mkNull")
	assert.Equal(t, "mk_null", d.Native)
	assert.Equal(t, defaults, d.Errors)

	d, _ = table.Lookup("solver.Native.custom")
	assert.Equal(t, marshal.ErrorAccessors{Code: "my_code", Message: "my_message"}, d.Errors)

	_, err = c.Table(marshal.ErrorAccessors{})
	require.ErrorIs(t, err, marshal.ErrInvalidDescriptor, "checked return without accessors")
}

func TestTableReportsEveryProblem(t *testing.T) {
	c, err := Parse([]byte(`
functions:
  - params: [handle]
  - name: a.b
    params: [handle_out]
    return: handle_checked
  - name: a.c
    params: ["array:i32:out"]
    return: string
`))
	require.NoError(t, err)

	_, err = c.Table(marshal.ErrorAccessors{})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
	assert.ErrorIs(t, err, marshal.ErrInvalidDescriptor)

	c.Functions = append(c.Functions[2:], Function{Name: "a.c"})
	_, err = c.Table(marshal.ErrorAccessors{})
	require.ErrorIs(t, err, marshal.ErrInvalidDescriptor)
	assert.Contains(t, err.Error(), "duplicate function")
}

func TestMarshalRoundTrip(t *testing.T) {
	c, err := Parse([]byte(z3Catalog))
	require.NoError(t, err)

	out, err := c.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "native: Z3_get_full_version")

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(z3Catalog), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Functions, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
