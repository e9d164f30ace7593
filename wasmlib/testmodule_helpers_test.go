package wasmlib

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otelwasm/wasmcall/abi"
	"github.com/otelwasm/wasmcall/internal/wasmtest"
	"github.com/otelwasm/wasmcall/marshal"
)

var (
	i32 = []wasmtest.ValType{wasmtest.I32}
	i64 = []wasmtest.ValType{wasmtest.I64}
)

const (
	errorMessageAddr = 64
	raiseMessageAddr = 128
	logMessageAddr   = 192
	greetingAddr     = 512
	heapStart        = 4096

	raiseMessage = "boom"
	logMessage   = `{"level":"WARN","message":"hello from guest","fields":{"answer":42,"color":"blue"}}`
)

// solverModule builds an ABI v1 library exercising every parameter and return
// kind.
func solverModule() *wasmtest.Module {
	m := wasmtest.NewModule()
	raise := m.Import(abi.HostModule, abi.HostRaise, []wasmtest.ValType{wasmtest.I32, wasmtest.I32}, nil)
	logf := m.Import(abi.HostModule, abi.HostLog, []wasmtest.ValType{wasmtest.I32, wasmtest.I32}, nil)

	m.Memory(1, true).
		Data(errorMessageAddr, wasmtest.CString("m")).
		Data(raiseMessageAddr, []byte(raiseMessage)).
		Data(logMessageAddr, []byte(logMessage)).
		Data(greetingAddr, wasmtest.CString("hello"))
	m.BumpAllocator(abi.Alloc, abi.Free, heapStart)

	m.Func(abi.VersionMarkerV1, nil, nil, nil)
	m.Func(abi.LastErrorCode, i64, i32, nil, wasmtest.I32Const(7))
	m.Func(abi.ErrorMessage, []wasmtest.ValType{wasmtest.I64, wasmtest.I32}, i32, nil, wasmtest.I32Const(errorMessageAddr))

	m.Func("sum_handles", []wasmtest.ValType{wasmtest.I64, wasmtest.I64}, i64, nil,
		wasmtest.LocalGet(0), wasmtest.LocalGet(1), wasmtest.I64Add())
	m.Func("mk_null", i64, i64, nil, wasmtest.I64Const(0))
	m.Func("first_byte", i32, i32, nil, wasmtest.LocalGet(0), wasmtest.I32Load8U(0))
	m.Func("raise_boom", i64, i64, nil,
		wasmtest.I32Const(raiseMessageAddr), wasmtest.I32Const(int32(len(raiseMessage))), wasmtest.Call(raise),
		wasmtest.I64Const(1))
	m.Func("out_handle", i32, i32, nil,
		wasmtest.LocalGet(0), wasmtest.I64Const(42), wasmtest.I64Store(0),
		wasmtest.I32Const(0))
	m.Func("fill3", i32, nil, nil,
		wasmtest.LocalGet(0), wasmtest.I32Const(1), wasmtest.I32Store(0),
		wasmtest.LocalGet(0), wasmtest.I32Const(2), wasmtest.I32Store(4),
		wasmtest.LocalGet(0), wasmtest.I32Const(3), wasmtest.I32Store(8))
	m.Func("log_hello", nil, nil, nil,
		wasmtest.I32Const(logMessageAddr), wasmtest.I32Const(int32(len(logMessage))), wasmtest.Call(logf))
	m.Func("greet", nil, i32, nil, wasmtest.I32Const(greetingAddr))
	m.Func("trap", i64, i64, nil, wasmtest.Unreachable())
	m.Func("status", []wasmtest.ValType{wasmtest.I64, wasmtest.I32}, i32, nil, wasmtest.LocalGet(1))
	return m
}

// plainModule builds a library without the ABI marker whose allocator uses the
// given export names.
func plainModule(alloc, free string) *wasmtest.Module {
	m := wasmtest.NewModule().Memory(1, true)
	if alloc != "" {
		m.BumpAllocator(alloc, free, heapStart)
	}
	m.Func("answer", nil, i32, nil, wasmtest.I32Const(42))
	return m
}

func newTestLibrary(t *testing.T, m *wasmtest.Module, opts ...Option) *Library {
	t.Helper()

	ctx := context.Background()
	lib, err := Load(ctx, m.Bytes(), &Config{}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, lib.Close(ctx))
	})
	return lib
}

func freeCount(t *testing.T, lib *Library) uint64 {
	t.Helper()

	res, err := lib.Function(wasmtest.FreeCountExport).Call(context.Background())
	require.NoError(t, err)
	return res[0]
}

func descriptor(t *testing.T, name, native string, ret marshal.ReturnStrategy, params []marshal.ParamSpec, opts ...marshal.DescriptorOption) *marshal.Descriptor {
	t.Helper()

	d, err := marshal.NewDescriptor(name, ret, params, append([]marshal.DescriptorOption{marshal.WithNative(native)}, opts...)...)
	require.NoError(t, err)
	return d
}
