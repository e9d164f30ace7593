package wazero

import "github.com/otelwasm/wasmcall/runtime"

func init() {
	runtime.Register(RuntimeType, newWazeroRuntime)
}
